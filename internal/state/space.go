package state

import (
	"math"

	"TutorBoard/internal/geom"
)

// HitTest returns the top-most object on a visible, unlocked layer within
// radius world units of p, or nil.
func (s *Store) HitTest(p geom.Point, radius float64) Object {
	layers := s.Layers()
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if !l.Visible || l.Locked {
			continue
		}
		objs := l.Objects()
		for j := len(objs) - 1; j >= 0; j-- {
			if hits(objs[j], p, radius) {
				return objs[j]
			}
		}
	}
	return nil
}

// ObjectsIn returns objects on visible, unlocked layers whose bounds
// intersect r, in paint order.
func (s *Store) ObjectsIn(r geom.Rect) []Object {
	var out []Object
	for _, l := range s.Layers() {
		if !l.Visible || l.Locked {
			continue
		}
		for _, o := range l.Objects() {
			if Bounds(o).Intersects(r) {
				out = append(out, o)
			}
		}
	}
	return out
}

// ContentBounds is the union of the bounds of every object on a visible
// layer. ok is false for an empty board.
func (s *Store) ContentBounds() (r geom.Rect, ok bool) {
	for _, l := range s.Layers() {
		if !l.Visible {
			continue
		}
		for _, o := range l.Objects() {
			b := Bounds(o)
			if !ok {
				r, ok = b, true
				continue
			}
			r = r.Union(b)
		}
	}
	return r, ok
}

func hits(o Object, p geom.Point, radius float64) bool {
	switch v := o.(type) {
	case *Stroke:
		reach := radius + v.BrushSize/2
		if len(v.Points) == 1 {
			return p.Distance(v.Points[0]) <= reach
		}
		for i := 1; i < len(v.Points); i++ {
			if geom.SegmentDistance(p, v.Points[i-1], v.Points[i]) <= reach {
				return true
			}
		}
		return false
	case *Shape:
		reach := radius + v.StrokeWidth/2
		switch v.ShapeKind {
		case ShapeCircle:
			d := p.Distance(geom.Pt(v.CX, v.CY))
			if v.FillColor != "" {
				return d <= v.Radius+reach
			}
			return math.Abs(d-v.Radius) <= reach
		case ShapeLine, ShapeArrow:
			return geom.SegmentDistance(p, geom.Pt(v.X1, v.Y1), geom.Pt(v.X2, v.Y2)) <= reach
		default:
			r := Bounds(v)
			if v.FillColor != "" {
				return r.Inflate(reach).Contains(p)
			}
			c := r.Corners()
			for i := range c {
				if geom.SegmentDistance(p, c[i], c[(i+1)%4]) <= reach {
					return true
				}
			}
			return false
		}
	case *Image:
		r := Bounds(v)
		if v.Rotation != 0 {
			p = p.Rotate(r.Center(), -v.Rotation)
		}
		return r.Inflate(radius).Contains(p)
	}
	return Bounds(o).Inflate(radius).Contains(p)
}
