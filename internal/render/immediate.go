package render

import (
	"github.com/gogpu/gg"

	"TutorBoard/internal/paint"
)

// Immediate rasterizes every frame on the CPU with the analytic scanline
// rasterizer.
type Immediate struct {
	surface
}

func NewImmediate(width, height int, p *paint.Painter) *Immediate {
	return &Immediate{surface: newSurface(width, height, gg.RasterizerAnalytic, p)}
}

func (r *Immediate) Name() string { return "immediate" }

func (r *Immediate) Render(frame paint.Scene) error {
	return r.painter.Paint(r.dc, frame)
}
