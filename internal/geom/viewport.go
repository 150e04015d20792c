package geom

import (
	"math"

	"github.com/gogpu/gg"
)

// Zoom limits. Requests outside the range are clamped silently.
const (
	MinZoom = 0.1
	MaxZoom = 10.0
)

// View is the pan/zoom/rotation state of a board. It is what the structured
// document persists under "transform".
type View struct {
	Zoom     float64 `json:"zoom"`
	PanX     float64 `json:"panX"`
	PanY     float64 `json:"panY"`
	Rotation float64 `json:"rotation"`
}

// DefaultView is the identity view.
func DefaultView() View {
	return View{Zoom: 1}
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Viewport is a View bound to a surface size. The surface centre is the
// pivot for rotation.
type Viewport struct {
	View
	Width  float64
	Height float64
}

// NewViewport returns an identity viewport for a surface of the given size.
func NewViewport(width, height float64) Viewport {
	return Viewport{View: DefaultView(), Width: width, Height: height}
}

// scale treats an unset zoom as 1 so the zero Viewport is usable.
func (v Viewport) scale() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return ClampZoom(v.Zoom)
}

func (v Viewport) pan() Point    { return Point{v.PanX, v.PanY} }
func (v Viewport) center() Point { return Point{v.Width / 2, v.Height / 2} }

// ToWorld maps a surface point into world space: translate by -pan, scale by
// 1/zoom, then rotate by -rotation about the surface centre.
func (v Viewport) ToWorld(p Point) Point {
	q := p.Sub(v.pan()).Mul(1 / v.scale())
	if v.Rotation == 0 {
		return q
	}
	return q.Rotate(v.center(), -v.Rotation)
}

// ToScreen is the inverse of ToWorld.
func (v Viewport) ToScreen(p Point) Point {
	q := p
	if v.Rotation != 0 {
		q = q.Rotate(v.center(), v.Rotation)
	}
	return q.Mul(v.scale()).Add(v.pan())
}

// ZoomAt returns a viewport zoomed to z (clamped) whose ToWorld(p) is the
// same as before the call.
func (v Viewport) ZoomAt(p Point, z float64) Viewport {
	z = ClampZoom(z)
	old := v.scale()
	pan := p.Sub(p.Sub(v.pan()).Mul(z / old))
	v.Zoom = z
	v.PanX, v.PanY = pan.X, pan.Y
	return v
}

// PanBy shifts the view by a surface-space delta.
func (v Viewport) PanBy(dx, dy float64) Viewport {
	v.PanX += dx
	v.PanY += dy
	return v
}

// WithRotation returns v rotated to angle radians.
func (v Viewport) WithRotation(angle float64) Viewport {
	v.Rotation = angle
	return v
}

// Resize changes the surface size, keeping pan, zoom and rotation.
func (v Viewport) Resize(width, height float64) Viewport {
	v.Width, v.Height = width, height
	return v
}

// Matrix returns the world→surface affine transform used by renderers.
func (v Viewport) Matrix() gg.Matrix {
	z := v.scale()
	c := v.center()
	return gg.Translate(v.PanX, v.PanY).
		Multiply(gg.Scale(z, z)).
		Multiply(gg.Translate(c.X, c.Y)).
		Multiply(gg.Rotate(v.Rotation)).
		Multiply(gg.Translate(-c.X, -c.Y))
}

// ScaleFactor is the world→surface length ratio.
func (v Viewport) ScaleFactor() float64 {
	return v.scale()
}

// VisibleWorld returns the axis-aligned world rectangle covering the surface.
func (v Viewport) VisibleWorld() Rect {
	corners := Rect{Width: v.Width, Height: v.Height}.Corners()
	pts := make([]Point, 0, len(corners))
	for _, c := range corners {
		pts = append(pts, v.ToWorld(c))
	}
	return BoundsOf(pts)
}
