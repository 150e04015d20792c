// Package stroke turns raw pointer motion into the point list of a stroke.
package stroke

import "TutorBoard/internal/geom"

// DefaultMinDistance is the decimation threshold in world units.
const DefaultMinDistance = 2.0

// Sampler collects the points of one stroke at a time. A point is kept only
// when it lies farther than MinDistance from the last kept point.
type Sampler struct {
	MinDistance float64

	points  []geom.Point
	drawing bool
}

// New returns an idle sampler; a non-positive minDistance uses the default.
func New(minDistance float64) *Sampler {
	if minDistance <= 0 {
		minDistance = DefaultMinDistance
	}
	return &Sampler{MinDistance: minDistance}
}

// Begin starts a stroke at p, discarding any stroke in progress.
func (s *Sampler) Begin(p geom.Point) {
	s.points = append(s.points[:0], p)
	s.drawing = true
}

// Add offers p to the current stroke and reports whether it was kept.
func (s *Sampler) Add(p geom.Point) bool {
	if !s.drawing {
		return false
	}
	if p.Distance(s.points[len(s.points)-1]) <= s.MinDistance {
		return false
	}
	s.points = append(s.points, p)
	return true
}

// End finishes the stroke. ok is false when fewer than two points were
// kept, in which case nothing should be committed.
func (s *Sampler) End() (points []geom.Point, ok bool) {
	if !s.drawing {
		return nil, false
	}
	s.drawing = false
	points = append([]geom.Point(nil), s.points...)
	s.points = s.points[:0]
	return points, len(points) >= 2
}

// Cancel drops the stroke in progress.
func (s *Sampler) Cancel() {
	s.drawing = false
	s.points = s.points[:0]
}

// Drawing reports whether a stroke is in progress.
func (s *Sampler) Drawing() bool { return s.drawing }

// Points returns a copy of the points kept so far, for live preview.
func (s *Sampler) Points() []geom.Point {
	if !s.drawing {
		return nil
	}
	return append([]geom.Point(nil), s.points...)
}
