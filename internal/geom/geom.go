// Package geom holds the board's 2D primitives and the viewport transform
// between the input surface and world (scene) coordinates.
package geom

import "math"

// Point is a position in either surface or world space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Mul(s float64) Point {
	return Point{p.X * s, p.Y * s}
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rotate rotates p about c by angle radians.
func (p Point) Rotate(c Point, angle float64) Point {
	sin, cos := math.Sincos(angle)
	dx, dy := p.X-c.X, p.Y-c.Y
	return Point{
		X: c.X + dx*cos - dy*sin,
		Y: c.Y + dx*sin + dy*cos,
	}
}

// Rect is an axis-aligned rectangle. Width and Height are never negative
// for rectangles produced by this package.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints returns the rectangle spanned by two corners in any order.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// BoundsOf returns the smallest rectangle containing every point.
// An empty slice yields the zero Rect.
func BoundsOf(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Corners returns the four corners clockwise from the top-left.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{r.X, r.Y},
		{r.MaxX(), r.Y},
		{r.MaxX(), r.MaxY()},
		{r.X, r.MaxY()},
	}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Inflate grows r by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Translate moves r by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.MaxX(), o.MaxX())
	maxY := math.Max(r.MaxY(), o.MaxY())
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// Intersects reports whether r and o overlap, touching edges included.
func (r Rect) Intersects(o Rect) bool {
	return !(r.MaxX() < o.X || o.MaxX() < r.X || r.MaxY() < o.Y || o.MaxY() < r.Y)
}

// SegmentDistance returns the distance from p to the segment ab.
func SegmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Distance(Point{a.X + t*dx, a.Y + t*dy})
}

// ArrowHead returns the two barb points of an arrow from a to b drawn with
// the given stroke width.
func ArrowHead(a, b Point, width float64) (left, right Point) {
	angle := math.Atan2(b.Y-a.Y, b.X-a.X)
	headLen := math.Max(10, 3*width)
	const spread = math.Pi / 7
	left = Point{b.X - headLen*math.Cos(angle-spread), b.Y - headLen*math.Sin(angle-spread)}
	right = Point{b.X - headLen*math.Cos(angle+spread), b.Y - headLen*math.Sin(angle+spread)}
	return left, right
}
