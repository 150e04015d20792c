package render

import (
	"fmt"
	"image"

	"github.com/charmbracelet/log"
	"github.com/gogpu/gg"

	"TutorBoard/internal/paint"
)

// Backend names accepted in configuration.
const (
	BackendAuto      = "auto"
	BackendGPU       = "gpu"
	BackendImmediate = "immediate"
)

type Options struct {
	// Backend is auto, gpu or immediate. Empty means auto.
	Backend string
	Width   int
	Height  int
	Painter *paint.Painter
	// Accelerator overrides gg.Accelerator() for the GPU back-end.
	Accelerator gg.GPUAccelerator
	Logger      *log.Logger
}

// Switcher is a Renderer that starts on the best available back-end and
// falls back from GPU to immediate at most once. After the fallback it
// never returns to the GPU path.
type Switcher struct {
	active   Renderer
	degraded bool
	opts     Options
	log      *log.Logger
	onSwitch func(from, to string)
}

// Select probes capabilities and returns a Switcher on the chosen back-end.
func Select(opts Options) *Switcher {
	if opts.Painter == nil {
		opts.Painter = paint.New()
	}
	s := &Switcher{opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = log.Default().WithPrefix("render")
	}

	switch opts.Backend {
	case BackendImmediate:
		s.active = s.immediate()
	case BackendGPU, BackendAuto, "":
		gpu, err := NewGPU(opts.Width, opts.Height, opts.Painter, opts.Accelerator)
		if err != nil {
			s.active = s.immediate()
			s.degraded = true
			if opts.Backend == BackendGPU {
				s.log.Warn("GPU renderer unavailable, using immediate mode", "err", err)
			} else {
				s.log.Info("no GPU accelerator, using immediate mode")
			}
			break
		}
		s.active = gpu
	default:
		s.log.Warn("unknown render backend, using immediate mode", "backend", opts.Backend)
		s.active = s.immediate()
	}
	s.log.Info("renderer selected", "name", s.active.Name())
	return s
}

func (s *Switcher) immediate() Renderer {
	return NewImmediate(s.opts.Width, s.opts.Height, s.opts.Painter)
}

// OnSwitch registers fn to run after a fallback.
func (s *Switcher) OnSwitch(fn func(from, to string)) { s.onSwitch = fn }

func (s *Switcher) Name() string { return s.active.Name() }

// Degraded reports whether the GPU path was lost or never available.
func (s *Switcher) Degraded() bool { return s.degraded }

func (s *Switcher) Resize(width, height int) error {
	s.opts.Width, s.opts.Height = width, height
	return s.active.Resize(width, height)
}

func (s *Switcher) Clear() { s.active.Clear() }
func (s *Switcher) Image() image.Image { return s.active.Image() }
func (s *Switcher) Close() error { return s.active.Close() }
func (s *Switcher) Active() Renderer { return s.active }

// Render draws frame. A failure or panic on the GPU path switches to the
// immediate back-end and re-renders the frame there.
func (s *Switcher) Render(frame paint.Scene) error {
	if _, onGPU := s.active.(*GPU); !onGPU {
		return s.active.Render(frame)
	}
	if err := s.tryRender(frame); err != nil {
		s.fallback(err)
		return s.active.Render(frame)
	}
	return nil
}

func (s *Switcher) tryRender(frame paint.Scene) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gpu renderer panic: %v", r)
		}
	}()
	return s.active.Render(frame)
}

func (s *Switcher) fallback(cause error) {
	from := s.active.Name()
	_ = s.active.Close()
	s.active = s.immediate()
	s.degraded = true
	s.log.Warn("GPU rendering failed, switching to immediate mode for the rest of the session", "from", from, "err", cause)
	if s.onSwitch != nil {
		s.onSwitch(from, s.active.Name())
	}
}
