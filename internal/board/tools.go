package board

import (
	"TutorBoard/internal/geom"
	"TutorBoard/internal/state"
)

type Tool string

const (
	ToolPen         Tool = "pen"
	ToolHighlighter Tool = "highlighter"
	ToolEraser      Tool = "eraser"
	ToolSelect      Tool = "select"
	ToolPan         Tool = "pan"
	ToolRectangle   Tool = "rectangle"
	ToolCircle      Tool = "circle"
	ToolLine        Tool = "line"
	ToolArrow       Tool = "arrow"
	ToolText        Tool = "text"
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{ToolPen, ToolHighlighter, ToolEraser, ToolSelect, ToolPan, ToolRectangle, ToolCircle, ToolLine, ToolArrow, ToolText}

const (
	// hitSlop is the pick tolerance in surface pixels.
	hitSlop = 4.0
	// Shapes smaller than this in world units are treated as stray clicks.
	minShapeSize = 1.0
	marqueeColor = "#3b82f6"
)

// gesture is a pointer interaction between down and up.
type gesture struct {
	tool   Tool
	start  geom.Point
	last   geom.Point
	screen geom.Point

	preview []state.Object
	hidden  map[string]bool
	ids     []string
	marquee bool
}

// OnTextRequest sets the callback the text tool invokes with the world
// point that was clicked. The host asks for the text and calls AddText.
func (c *Controller) OnTextRequest(fn func(at geom.Point)) { c.onTextRequest = fn }

// PointerDown starts a gesture for the current tool at a surface point.
func (c *Controller) PointerDown(x, y float64) {
	if c.gesture != nil {
		c.PointerUp(c.gesture.screen.X, c.gesture.screen.Y)
	}
	sp := geom.Pt(x, y)
	wp := c.view.ToWorld(sp)
	g := &gesture{tool: c.tool, start: wp, last: wp, screen: sp}

	switch c.tool {
	case ToolPen, ToolHighlighter:
		c.sampler.Begin(wp)
		g.preview = []state.Object{c.newStroke(c.tool, c.sampler.Points())}
	case ToolEraser:
		c.eraseAt(wp)
	case ToolSelect:
		c.beginSelect(g, wp)
	case ToolText:
		if c.onTextRequest != nil {
			c.onTextRequest(wp)
		}
		return
	}
	c.gesture = g
	c.requestFrame()
}

func (c *Controller) beginSelect(g *gesture, wp geom.Point) {
	hit := c.store.HitTest(wp, hitSlop/c.view.ScaleFactor())
	if hit == nil {
		g.marquee = true
		c.ClearSelection()
		return
	}
	id := hit.Base().ID
	if !c.store.IsSelected(id) {
		c.store.ClearSelection()
		c.store.Select(id)
		c.selectionChanged()
	}
	g.ids = c.store.Selection()
}

// PointerMove continues the active gesture, or reports a hover when no
// button is down.
func (c *Controller) PointerMove(x, y float64) {
	g := c.gesture
	if g == nil {
		c.PointerHover(x, y)
		return
	}
	sp := geom.Pt(x, y)
	wp := c.view.ToWorld(sp)

	switch g.tool {
	case ToolPen, ToolHighlighter:
		if c.sampler.Add(wp) {
			g.preview = []state.Object{c.newStroke(g.tool, c.sampler.Points())}
		}
	case ToolEraser:
		c.eraseAt(wp)
	case ToolSelect:
		if g.marquee {
			g.preview = []state.Object{c.marquee(g.start, wp)}
		} else {
			c.dragPreview(g, wp)
		}
	case ToolPan:
		c.Pan(sp.X-g.screen.X, sp.Y-g.screen.Y)
		wp = c.view.ToWorld(sp)
	case ToolRectangle, ToolCircle, ToolLine, ToolArrow:
		g.preview = []state.Object{c.newShape(g.tool, g.start, wp)}
	}
	g.last, g.screen = wp, sp
	c.broadcastCursor(wp)
	c.requestFrame()
}

// PointerHover shares the pointer position with peers.
func (c *Controller) PointerHover(x, y float64) {
	c.broadcastCursor(c.view.ToWorld(geom.Pt(x, y)))
}

// PointerUp finishes the gesture. It always ends a stroke in progress.
func (c *Controller) PointerUp(x, y float64) {
	g := c.gesture
	if g == nil {
		return
	}
	c.PointerMove(x, y)
	c.gesture = nil

	switch g.tool {
	case ToolPen, ToolHighlighter:
		if pts, ok := c.sampler.End(); ok {
			c.commitStroke(c.newStroke(g.tool, pts))
		}
	case ToolSelect:
		c.endSelect(g)
	case ToolRectangle, ToolCircle, ToolLine, ToolArrow:
		if s := c.newShape(g.tool, g.start, g.last); !degenerate(s) {
			c.AddObject(s)
		}
	}
	c.requestFrame()
}

func (c *Controller) endSelect(g *gesture) {
	if g.marquee {
		r := geom.RectFromPoints(g.start, g.last)
		if r.Width < minShapeSize && r.Height < minShapeSize {
			return
		}
		if c.store.Select(ids(c.store.ObjectsIn(r))...) {
			c.selectionChanged()
		}
		return
	}
	d := g.last.Sub(g.start)
	if len(g.ids) > 0 && (d.X != 0 || d.Y != 0) {
		c.MoveObjects(g.ids, d.X, d.Y)
	}
}

// cancelGesture drops the gesture without committing anything.
func (c *Controller) cancelGesture() {
	if c.gesture == nil {
		return
	}
	c.gesture = nil
	c.sampler.Cancel()
	c.requestFrame()
}

// dragPreview shows the dragged objects at their new position and hides the
// originals until the drag is committed.
func (c *Controller) dragPreview(g *gesture, wp geom.Point) {
	d := wp.Sub(g.start)
	g.preview = g.preview[:0]
	g.hidden = make(map[string]bool, len(g.ids))
	for _, id := range g.ids {
		o, ok := c.store.Object(id)
		if !ok {
			continue
		}
		moved := state.Translated(o, d.X, d.Y)
		g.preview = append(g.preview, moved)
		g.hidden[id] = true
	}
}

func (c *Controller) eraseAt(wp geom.Point) {
	radius := max(c.brushSize/2, hitSlop) / c.view.ScaleFactor()
	if hit := c.store.HitTest(wp, radius); hit != nil {
		c.RemoveObjects([]string{hit.Base().ID})
	}
}

func (c *Controller) commitStroke(s *state.Stroke) {
	var obj state.Object = s
	if c.classifier != nil {
		if o := c.classifier.Classify(s.Clone().(*state.Stroke)); o != nil {
			c.log.Debug("stroke classified", "kind", o.Kind())
			obj = o
		}
	}
	c.AddObject(obj)
}

func (c *Controller) newStroke(t Tool, pts []geom.Point) *state.Stroke {
	kind := state.ToolPen
	if t == ToolHighlighter {
		kind = state.ToolHighlighter
	}
	return &state.Stroke{
		ObjectBase: state.ObjectBase{Opacity: 1},
		Points:     pts,
		Color:      c.color,
		BrushSize:  c.brushSize,
		ToolKind:   kind,
	}
}

func (c *Controller) newShape(t Tool, a, b geom.Point) *state.Shape {
	s := &state.Shape{
		ObjectBase:  state.ObjectBase{Opacity: 1},
		StrokeColor: c.color,
		StrokeWidth: c.brushSize,
	}
	switch t {
	case ToolCircle:
		s.ShapeKind = state.ShapeCircle
		s.CX, s.CY, s.Radius = a.X, a.Y, a.Distance(b)
		s.FillColor = c.fillColor
	case ToolLine, ToolArrow:
		s.ShapeKind = state.ShapeLine
		if t == ToolArrow {
			s.ShapeKind = state.ShapeArrow
		}
		s.X1, s.Y1, s.X2, s.Y2 = a.X, a.Y, b.X, b.Y
	default:
		r := geom.RectFromPoints(a, b)
		s.ShapeKind = state.ShapeRectangle
		s.X, s.Y, s.Width, s.Height = r.X, r.Y, r.Width, r.Height
		s.FillColor = c.fillColor
	}
	return s
}

func (c *Controller) marquee(a, b geom.Point) *state.Shape {
	r := geom.RectFromPoints(a, b)
	return &state.Shape{
		ObjectBase:  state.ObjectBase{Opacity: 1},
		ShapeKind:   state.ShapeRectangle,
		X:           r.X,
		Y:           r.Y,
		Width:       r.Width,
		Height:      r.Height,
		StrokeColor: marqueeColor,
		StrokeWidth: 1 / c.view.ScaleFactor(),
	}
}

func degenerate(s *state.Shape) bool {
	switch s.ShapeKind {
	case state.ShapeCircle:
		return s.Radius < minShapeSize
	case state.ShapeLine, state.ShapeArrow:
		return geom.Pt(s.X1, s.Y1).Distance(geom.Pt(s.X2, s.Y2)) < minShapeSize
	}
	return s.Width < minShapeSize || s.Height < minShapeSize
}
