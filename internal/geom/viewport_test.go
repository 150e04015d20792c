package geom

import (
	"math"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func assertPointNear(t *testing.T, want, got Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-7, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-7, "y")
}

func TestViewportInvertibility(t *testing.T) {
	views := []Viewport{
		NewViewport(800, 600),
		{View: View{Zoom: 2, PanX: 30, PanY: -12}, Width: 800, Height: 600},
		{View: View{Zoom: 0.25, PanX: -400, PanY: 77, Rotation: math.Pi / 5}, Width: 1024, Height: 768},
		{View: View{Zoom: 9.5, PanX: 1, PanY: 2, Rotation: -2.3}, Width: 300, Height: 300},
	}
	points := []Point{{0, 0}, {100, 100}, {-50.5, 17.25}, {799, 599}, {1e4, -3e3}}

	for _, v := range views {
		for _, p := range points {
			assertPointNear(t, p, v.ToScreen(v.ToWorld(p)))
			assertPointNear(t, p, v.ToWorld(v.ToScreen(p)))
		}
	}
}

func TestViewportMatrixMatchesToScreen(t *testing.T) {
	v := Viewport{View: View{Zoom: 1.7, PanX: 12, PanY: -40, Rotation: 0.6}, Width: 640, Height: 480}
	m := v.Matrix()
	for _, p := range []Point{{0, 0}, {10, 20}, {-300, 155}} {
		got := m.TransformPoint(gg.Pt(p.X, p.Y))
		assertPointNear(t, v.ToScreen(p), Point{got.X, got.Y})
	}
}

func TestZoomAtKeepsPointFixed(t *testing.T) {
	tests := []struct {
		name string
		v    Viewport
		p    Point
		z    float64
	}{
		{"identity to 2x", NewViewport(800, 600), Pt(100, 100), 2},
		{"panned zoom out", Viewport{View: View{Zoom: 3, PanX: 40, PanY: 90}, Width: 800, Height: 600}, Pt(250, 13), 0.5},
		{"rotated", Viewport{View: View{Zoom: 1.2, PanX: -10, Rotation: 1.1}, Width: 500, Height: 400}, Pt(321, 44), 4},
		{"clamped high", NewViewport(800, 600), Pt(5, 5), 50},
		{"clamped low", NewViewport(800, 600), Pt(400, 300), 0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.v.ToWorld(tt.p)
			after := tt.v.ZoomAt(tt.p, tt.z)
			assertPointNear(t, before, after.ToWorld(tt.p))
			assert.GreaterOrEqual(t, after.Zoom, MinZoom)
			assert.LessOrEqual(t, after.Zoom, MaxZoom)
		})
	}
}

func TestZoomAtScenario(t *testing.T) {
	v := NewViewport(800, 600)
	before := v.ToWorld(Pt(100, 100))
	v = v.ZoomAt(Pt(100, 100), 2.0)
	assert.Equal(t, 2.0, v.Zoom)
	assertPointNear(t, before, v.ToWorld(Pt(100, 100)))
}

func TestToWorldOrder(t *testing.T) {
	// pan first, then zoom
	v := Viewport{View: View{Zoom: 2, PanX: 10, PanY: 20}, Width: 100, Height: 100}
	assertPointNear(t, Pt(45, 40), v.ToWorld(Pt(100, 100)))

	// rotation pivots on the surface centre
	r := Viewport{View: View{Zoom: 1, Rotation: math.Pi / 2}, Width: 100, Height: 100}
	assertPointNear(t, Pt(50, 50), r.ToWorld(Pt(50, 50)))
	assertPointNear(t, Pt(0, 100), r.ToWorld(Pt(0, 0)))
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, MinZoom, ClampZoom(0))
	assert.Equal(t, MaxZoom, ClampZoom(100))
	assert.InDelta(t, 1.5, ClampZoom(1.5), eps)
	assert.Equal(t, 1.0, ClampZoom(math.NaN()))
}

func TestZeroViewportActsAsIdentity(t *testing.T) {
	var v Viewport
	assertPointNear(t, Pt(3, 4), v.ToWorld(Pt(3, 4)))
}

func TestVisibleWorld(t *testing.T) {
	v := Viewport{View: View{Zoom: 2, PanX: -100, PanY: -50}, Width: 200, Height: 100}
	got := v.VisibleWorld()
	assert.InDelta(t, 50, got.X, eps)
	assert.InDelta(t, 25, got.Y, eps)
	assert.InDelta(t, 100, got.Width, eps)
	assert.InDelta(t, 50, got.Height, eps)
}

func TestRectOps(t *testing.T) {
	r := RectFromPoints(Pt(10, 40), Pt(0, 20))
	assert.Equal(t, Rect{X: 0, Y: 20, Width: 10, Height: 20}, r)
	assert.True(t, r.Contains(Pt(5, 30)))
	assert.False(t, r.Contains(Pt(11, 30)))
	assert.True(t, r.Intersects(Rect{X: 10, Y: 40, Width: 5, Height: 5}))
	assert.Equal(t, Rect{X: -1, Y: 19, Width: 12, Height: 22}, r.Inflate(1))
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 10, Height: 40}, r.Union(Rect{Width: 1, Height: 1}))
	assert.Equal(t, Rect{}, BoundsOf(nil))
	assert.InDelta(t, 5, SegmentDistance(Pt(5, 5), Pt(0, 0), Pt(10, 0)), eps)
	assert.InDelta(t, 5, SegmentDistance(Pt(-3, 4), Pt(0, 0), Pt(10, 0)), eps)
}
