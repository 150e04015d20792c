// Package board is the board controller. It owns the scene store, the
// viewport, the stroke sampler and the renderer, turns pointer input into
// store mutations, schedules frames and relays operations to and from a
// collaborator.
//
// A Controller is not safe for concurrent use. Hosts call it from a single
// goroutine and marshal network callbacks onto that goroutine.
package board

import (
	"image"
	"math"

	"github.com/charmbracelet/log"
	"github.com/gogpu/gg"

	"TutorBoard/internal/config"
	"TutorBoard/internal/geom"
	"TutorBoard/internal/paint"
	"TutorBoard/internal/render"
	"TutorBoard/internal/state"
	"TutorBoard/internal/stroke"
)

// Collaborator carries local operations and cursor positions to peers.
// Implementations must not block.
type Collaborator interface {
	Broadcast(op state.Operation)
	BroadcastCursor(x, y float64)
}

// Classifier may replace a freshly drawn stroke with a cleaner object, such
// as a shape. Returning nil keeps the stroke.
type Classifier interface {
	Classify(s *state.Stroke) state.Object
}

type Controller struct {
	store    *state.Store
	view     geom.Viewport
	dpr      float64
	sampler  *stroke.Sampler
	painter  *paint.Painter
	renderer *render.Switcher

	sched      Scheduler
	collab     Collaborator
	classifier Classifier
	formulas   paint.FormulaRenderer

	subs    map[int]func(Event)
	nextSub int
	onFrame func(image.Image)

	framePending bool
	frame        image.Image

	tool       Tool
	color      string
	fillColor  string
	brushSize  float64
	fontSize   float64
	grid       bool
	gridSize   float64
	background string

	gesture       *gesture
	onTextRequest func(at geom.Point)
	cursors       map[string]paint.Cursor

	cfg     config.Config
	backend string
	accel   gg.GPUAccelerator
	log     *log.Logger
}

type Option func(*Controller)

// WithConfig applies the board, render and history settings of cfg.
func WithConfig(cfg config.Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

func WithCollaborator(col Collaborator) Option {
	return func(c *Controller) { c.collab = col }
}

func WithClassifier(cl Classifier) Option {
	return func(c *Controller) { c.classifier = cl }
}

func WithFormulaRenderer(r paint.FormulaRenderer) Option {
	return func(c *Controller) { c.formulas = r }
}

// WithAccelerator overrides the GPU accelerator probed by the renderer.
func WithAccelerator(a gg.GPUAccelerator) Option {
	return func(c *Controller) { c.accel = a }
}

// WithStore starts the controller on an existing store.
func WithStore(s *state.Store) Option {
	return func(c *Controller) { c.store = s }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New returns a controller for a width x height logical surface.
func New(width, height float64, opts ...Option) *Controller {
	c := &Controller{
		cfg:     config.Default(),
		dpr:     1,
		subs:    map[int]func(Event){},
		cursors: map[string]paint.Cursor{},
		tool:    ToolPen,
		log:     log.Default().WithPrefix("board"),
	}
	for _, o := range opts {
		o(c)
	}
	b := c.cfg.Board
	c.color = b.Color
	c.brushSize = b.BrushSize
	c.fontSize = defaultFontSize
	c.grid = b.Grid
	c.gridSize = b.GridSize
	c.background = b.Background
	c.backend = c.cfg.Render.Backend
	c.sampler = stroke.New(b.MinPointDistance)

	if c.store == nil {
		c.store = state.NewStore(state.WithHistoryLimit(b.HistoryLimit), state.WithLogger(c.log.WithPrefix("store")))
	}
	c.store.SetEmitter(c.broadcast)
	c.painter = paint.New(paint.WithFormulaRenderer(c.formulas), paint.WithLogger(c.log.WithPrefix("paint")))
	if c.sched == nil {
		c.sched = &ManualScheduler{}
	}

	c.view = geom.NewViewport(width, height)
	w, h := c.devicePixels()
	c.renderer = render.Select(render.Options{
		Backend:     c.backend,
		Width:       w,
		Height:      h,
		Painter:     c.painter,
		Accelerator: c.accel,
		Logger:      c.log.WithPrefix("render"),
	})
	c.renderer.OnSwitch(func(from, to string) {
		c.emit(Event{Kind: RendererChanged, Renderer: to})
	})
	c.log.Debug("board ready", "renderer", c.renderer.Name(), "site", c.store.Site())
	c.requestFrame()
	return c
}

// Scene returns a read-only view of the board's content. Mutations go
// through the controller so history, observers and peers see them.
func (c *Controller) Scene() SceneView { return SceneView{store: c.store} }

// SceneView reads the store. Objects it returns are copies.
type SceneView struct {
	store *state.Store
}

func (v SceneView) Len() int { return v.store.Len() }

func (v SceneView) Object(id string) (state.Object, bool) {
	o, ok := v.store.Object(id)
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Objects returns every object bottom to top.
func (v SceneView) Objects() []state.Object { return clones(v.store.Objects()) }

func (v SceneView) Selection() []string { return v.store.Selection() }

// Snapshot returns the board as a structured document.
func (v SceneView) Snapshot() state.Document { return v.store.Snapshot() }

func (c *Controller) View() geom.Viewport { return c.view }

// Image returns the most recently rendered frame.
func (c *Controller) Image() image.Image { return c.frame }

func (c *Controller) RendererName() string { return c.renderer.Name() }

// OnFrame registers fn to receive every rendered frame.
func (c *Controller) OnFrame(fn func(image.Image)) { c.onFrame = fn }

// SetCollaborator attaches or detaches (nil) the collaborator.
func (c *Controller) SetCollaborator(col Collaborator) { c.collab = col }

// Close releases the renderer.
func (c *Controller) Close() error { return c.renderer.Close() }

func (c *Controller) broadcast(op state.Operation) {
	if c.collab != nil {
		c.collab.Broadcast(op)
	}
}

func (c *Controller) devicePixels() (int, int) {
	w := int(math.Ceil(c.view.Width * c.dpr))
	h := int(math.Ceil(c.view.Height * c.dpr))
	return max(w, 1), max(h, 1)
}

// OnResize adapts the surface to a new logical size and device pixel ratio.
// Content and the view transform are untouched.
func (c *Controller) OnResize(width, height, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	if width == c.view.Width && height == c.view.Height && dpr == c.dpr {
		return
	}
	c.view = c.view.Resize(width, height)
	c.dpr = dpr
	w, h := c.devicePixels()
	if err := c.renderer.Resize(w, h); err != nil {
		c.log.Warn("resize surface", "width", w, "height", h, "err", err)
	}
	c.emit(Event{Kind: ViewChanged})
	c.requestFrame()
}

// requestFrame asks the scheduler for one frame; requests made while one is
// pending coalesce into it.
func (c *Controller) requestFrame() {
	if c.framePending {
		return
	}
	c.framePending = true
	c.sched.RequestFrame(c.renderFrame)
}

func (c *Controller) renderFrame() {
	c.framePending = false
	if err := c.renderer.Render(c.scene()); err != nil {
		c.log.Error("render frame", "renderer", c.renderer.Name(), "err", err)
		return
	}
	c.frame = c.renderer.Image()
	if c.onFrame != nil {
		c.onFrame(c.frame)
	}
}

func (c *Controller) scene() paint.Scene {
	sc := paint.SceneOf(c.store)
	sc.Background = c.background
	sc.Grid = c.grid
	sc.GridSize = c.gridSize
	sc.Viewport = c.view
	sc.DPR = c.dpr
	if g := c.gesture; g != nil {
		sc.Preview = g.preview
		if len(g.hidden) > 0 {
			sc.Hidden = g.hidden
			sc.Selection = g.preview
		}
	}
	sc.Cursors = c.cursorList()
	return sc
}
