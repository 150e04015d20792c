// Package paint draws a board scene onto a gg context. Every renderer and
// the raster exporter paint through the same Painter, so their output only
// differs where the underlying rasterizer does.
package paint

import (
	"fmt"
	"image"
	"math"

	"github.com/charmbracelet/log"
	"github.com/gogpu/gg"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/state"
)

// Scene colours.
const (
	DefaultBackground = "#ffffff"
	gridColor         = "#e5e7eb"
	selectionColor    = "#3b82f6"
	HighlighterAlpha  = 0.35
	handleSize        = 8.0
)

// FormulaRenderer turns formula source into pixels.
type FormulaRenderer interface {
	RenderFormula(source string, fontSize float64, color string) (image.Image, error)
}

// Cursor is a remote participant's pointer in world coordinates.
type Cursor struct {
	Peer     string
	Label    string
	Position geom.Point
	Color    string
}

// Scene is everything a frame shows.
type Scene struct {
	// Layers sorted bottom to top.
	Layers    []*state.Layer
	Selection []state.Object
	// Preview objects are drawn above every layer, without layer effects.
	Preview []state.Object
	// Hidden ids are skipped in their layers, e.g. while a drag shows them
	// in Preview at their new position.
	Hidden  map[string]bool
	Cursors []Cursor

	Background string
	Grid       bool
	GridSize   float64

	// Viewport is in logical pixels; DPR scales it onto the device surface.
	Viewport geom.Viewport
	DPR      float64
}

// SceneOf fills the store-derived parts of a scene.
func SceneOf(s *state.Store) Scene {
	sc := Scene{Layers: s.Layers(), Background: DefaultBackground, DPR: 1}
	for _, id := range s.Selection() {
		if o, ok := s.Object(id); ok {
			sc.Selection = append(sc.Selection, o)
		}
	}
	return sc
}

// Matrix returns the world to device transform for the scene.
func (sc Scene) Matrix() gg.Matrix {
	dpr := sc.DPR
	if dpr <= 0 {
		dpr = 1
	}
	return gg.Scale(dpr, dpr).Multiply(sc.Viewport.Matrix())
}

// Painter draws scenes. It is safe to share between renderers used from one
// goroutine at a time.
type Painter struct {
	fonts    *Fonts
	images   *Images
	formulas FormulaRenderer
	log      *log.Logger
}

type Option func(*Painter)

func WithFormulaRenderer(r FormulaRenderer) Option {
	return func(p *Painter) { p.formulas = r }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Painter) { p.log = l }
}

func WithFonts(f *Fonts) Option {
	return func(p *Painter) { p.fonts = f }
}

func New(opts ...Option) *Painter {
	p := &Painter{fonts: NewFonts(), images: NewImages()}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = log.Default().WithPrefix("paint")
	}
	return p
}

func (p *Painter) Fonts() *Fonts { return p.fonts }

// frame carries per-paint state.
type frame struct {
	p     *Painter
	dc    *gg.Context
	m     gg.Matrix
	scale float64
	err   error
}

func (f *frame) check(err error) {
	if err != nil && f.err == nil {
		f.err = err
	}
}

// Paint draws sc onto dc: background, grid, layers bottom to top, live
// preview, selection chrome, then remote cursors. It returns the first
// rasterizer error; painting continues past it.
func (p *Painter) Paint(dc *gg.Context, sc Scene) error {
	if dc == nil {
		return fmt.Errorf("paint: nil context")
	}
	m := sc.Matrix()
	f := &frame{p: p, dc: dc, m: m, scale: matrixScale(m)}

	dc.Identity()
	dc.ClearDash()
	dc.ClearWithColor(parseColor(sc.Background, gg.Hex(DefaultBackground)))

	dc.Push()
	dc.SetTransform(m)
	if sc.Grid {
		f.grid(sc)
	}
	for _, l := range sc.Layers {
		f.layer(l, sc.Hidden)
	}
	for _, o := range sc.Preview {
		f.object(o)
	}
	f.selection(sc.Selection)
	dc.Pop()

	f.cursors(sc)
	return f.err
}

func (f *frame) grid(sc Scene) {
	size := sc.GridSize
	if size <= 0 {
		return
	}
	// keep at least 4 device pixels between lines
	for size*f.scale < 4 {
		size *= 2
	}
	vis := sc.Viewport.VisibleWorld()
	x0 := math.Floor(vis.X/size) * size
	y0 := math.Floor(vis.Y/size) * size

	f.dc.SetHexColor(gridColor)
	f.dc.SetLineWidth(1 / f.scale)
	f.dc.SetLineCap(gg.LineCapButt)
	for x := x0; x <= vis.MaxX(); x += size {
		f.dc.MoveTo(x, vis.Y)
		f.dc.LineTo(x, vis.MaxY())
	}
	for y := y0; y <= vis.MaxY(); y += size {
		f.dc.MoveTo(vis.X, y)
		f.dc.LineTo(vis.MaxX(), y)
	}
	f.check(f.dc.Stroke())
}

func (f *frame) layer(l *state.Layer, hidden map[string]bool) {
	if !l.Visible || l.Opacity <= 0 {
		return
	}
	composite := l.Opacity < 1 || l.BlendMode != state.BlendNormal
	if composite {
		f.dc.PushLayer(blendMode(l.BlendMode), l.Opacity)
	}
	for _, o := range l.Objects() {
		if !hidden[o.Base().ID] {
			f.object(o)
		}
	}
	if composite {
		f.dc.PopLayer()
	}
}

func (f *frame) selection(objs []state.Object) {
	if len(objs) == 0 {
		return
	}
	pad := 4 / f.scale
	hs := handleSize / f.scale
	for _, o := range objs {
		r := state.Bounds(o).Inflate(pad)

		f.dc.SetHexColor(selectionColor)
		f.dc.SetLineWidth(1.5 / f.scale)
		f.dc.SetDash(6/f.scale, 4/f.scale)
		f.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		f.check(f.dc.Stroke())
		f.dc.ClearDash()

		c := r.Center()
		for _, h := range []geom.Point{
			{X: r.X, Y: r.Y}, {X: c.X, Y: r.Y}, {X: r.MaxX(), Y: r.Y},
			{X: r.MaxX(), Y: c.Y}, {X: r.MaxX(), Y: r.MaxY()},
			{X: c.X, Y: r.MaxY()}, {X: r.X, Y: r.MaxY()}, {X: r.X, Y: c.Y},
		} {
			f.dc.DrawRectangle(h.X-hs/2, h.Y-hs/2, hs, hs)
			f.dc.SetRGBA(1, 1, 1, 1)
			f.check(f.dc.FillPreserve())
			f.dc.SetHexColor(selectionColor)
			f.dc.SetLineWidth(1 / f.scale)
			f.check(f.dc.Stroke())
		}
	}
}

// cursors are drawn in device space so they keep a constant size.
func (f *frame) cursors(sc Scene) {
	if len(sc.Cursors) == 0 {
		return
	}
	dpr := sc.DPR
	if dpr <= 0 {
		dpr = 1
	}
	face, err := f.p.fonts.Face("sans", 12*dpr)
	if err != nil {
		f.p.log.Warn("cursor label font", "err", err)
	}
	for _, c := range sc.Cursors {
		at := f.m.TransformPoint(gg.Pt(c.Position.X, c.Position.Y))
		col := parseColor(c.Color, gg.Hex(selectionColor))
		f.dc.SetRGBA(col.R, col.G, col.B, 1)
		f.dc.DrawCircle(at.X, at.Y, 5*dpr)
		f.check(f.dc.Fill())
		if face != nil && c.Label != "" {
			f.dc.SetFont(face)
			f.dc.DrawString(c.Label, at.X+8*dpr, at.Y-8*dpr)
		}
	}
}

func blendMode(m state.BlendMode) gg.BlendMode {
	switch m {
	case state.BlendMultiply:
		return gg.BlendMultiply
	case state.BlendScreen:
		return gg.BlendScreen
	case state.BlendOverlay:
		return gg.BlendOverlay
	}
	return gg.BlendNormal
}

// parseColor converts "#rrggbb" to gg.RGBA, falling back to def.
func parseColor(s string, def gg.RGBA) gg.RGBA {
	if c, ok := state.NormalizeColor(s); ok {
		return gg.Hex(c)
	}
	return def
}

// matrixScale is the uniform length scale of an affine transform.
func matrixScale(m gg.Matrix) float64 {
	s := math.Sqrt(math.Abs(m.A*m.E - m.B*m.D))
	if s == 0 || math.IsNaN(s) {
		return 1
	}
	return s
}
