// Package render presents board frames through one of two back-ends: a GPU
// path that routes fills and strokes through the registered gg accelerator,
// and an immediate CPU path. Both paint through paint.Painter.
package render

import (
	"errors"
	"image"

	"github.com/gogpu/gg"

	"TutorBoard/internal/paint"
)

// ErrNoAccelerator is returned when the GPU back-end is requested but no
// accelerator is available.
var ErrNoAccelerator = errors.New("no GPU accelerator available")

// Renderer draws frames onto an owned pixel surface.
type Renderer interface {
	Name() string
	// Resize sets the surface size in device pixels.
	Resize(width, height int) error
	Render(frame paint.Scene) error
	Clear()
	// Image returns a copy of the last presented frame.
	Image() image.Image
	Close() error
}

// surface is the gg context shared by both back-ends.
type surface struct {
	dc      *gg.Context
	painter *paint.Painter
}

func newSurface(width, height int, mode gg.RasterizerMode, p *paint.Painter) surface {
	width, height = max(width, 1), max(height, 1)
	dc := gg.NewContext(width, height)
	dc.SetRasterizerMode(mode)
	if p == nil {
		p = paint.New()
	}
	return surface{dc: dc, painter: p}
}

func (s *surface) Resize(width, height int) error {
	return s.dc.Resize(max(width, 1), max(height, 1))
}

func (s *surface) Clear() { s.dc.Clear() }

func (s *surface) Image() image.Image { return s.dc.Image() }

func (s *surface) Size() (int, int) { return s.dc.Width(), s.dc.Height() }

func (s *surface) Close() error { return s.dc.Close() }
