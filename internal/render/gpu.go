package render

import (
	"fmt"

	"github.com/gogpu/gg"

	"TutorBoard/internal/paint"
)

// GPU lets gg route fills and strokes to the GPU accelerator and flushes
// pending GPU work into the surface after each frame.
type GPU struct {
	surface
	accel gg.GPUAccelerator
}

// NewGPU builds a GPU renderer around accel, or the registered accelerator
// when accel is nil.
func NewGPU(width, height int, p *paint.Painter, accel gg.GPUAccelerator) (*GPU, error) {
	if accel == nil {
		accel = gg.Accelerator()
	}
	if accel == nil {
		return nil, ErrNoAccelerator
	}
	return &GPU{surface: newSurface(width, height, gg.RasterizerAuto, p), accel: accel}, nil
}

func (r *GPU) Name() string { return "gpu:" + r.accel.Name() }

func (r *GPU) Render(frame paint.Scene) error {
	if err := r.painter.Paint(r.dc, frame); err != nil {
		return fmt.Errorf("gpu paint: %w", err)
	}
	pm := r.dc.ResizeTarget()
	target := gg.GPURenderTarget{
		Data:   pm.Data(),
		Width:  pm.Width(),
		Height: pm.Height(),
		Stride: pm.Width() * 4,
	}
	if err := r.accel.Flush(target); err != nil {
		return fmt.Errorf("gpu flush: %w", err)
	}
	return nil
}
