package board

import (
	"fmt"
	"math"
	"unicode/utf8"

	"TutorBoard/internal/export"
	"TutorBoard/internal/geom"
	"TutorBoard/internal/paint"
	"TutorBoard/internal/state"
)

const (
	// ZoomStep is the factor applied per wheel notch.
	ZoomStep        = 1.2
	defaultFontSize = 20.0
)

// changed finishes a local mutation: observers, history and a frame.
func (c *Controller) changed(kind EventKind, objs []state.Object, removed []string) {
	if len(objs) == 0 && len(removed) == 0 {
		return
	}
	c.emit(Event{Kind: kind, Objects: clones(objs), IDs: removed})
	c.emit(Event{Kind: HistoryChanged})
	c.requestFrame()
}

// AddObject inserts a copy of obj into its layer, or the active layer. obj
// itself is left untouched. It returns a copy of what was stored, with its
// id, or nil when the insert was refused.
func (c *Controller) AddObject(obj state.Object) state.Object {
	if obj == nil {
		return nil
	}
	added := c.store.AddObject(obj.Clone())
	if added == nil {
		return nil
	}
	c.changed(ObjectsAdded, []state.Object{added}, nil)
	return added.Clone()
}

// RemoveObjects deletes ids, skipping unknown ids and locked layers.
func (c *Controller) RemoveObjects(ids []string) []state.Object {
	before := len(c.store.Selection())
	removed := c.store.RemoveObjects(ids)
	c.afterRemove(removed, before)
	return clones(removed)
}

func (c *Controller) afterRemove(removed []state.Object, selBefore int) {
	if len(removed) == 0 {
		return
	}
	c.changed(ObjectsRemoved, removed, ids(removed))
	if len(c.store.Selection()) != selBefore {
		c.selectionChanged()
	}
}

// UpdateObjects replaces objects by id as one undoable step.
func (c *Controller) UpdateObjects(objs []state.Object) []state.Object {
	in := make([]state.Object, 0, len(objs))
	for _, o := range objs {
		if o != nil {
			in = append(in, o.Clone())
		}
	}
	updated := c.store.UpdateObjects(in)
	c.changed(ObjectsUpdated, updated, nil)
	return clones(updated)
}

// MoveObjects translates ids by a world-space delta.
func (c *Controller) MoveObjects(ids []string, dx, dy float64) []state.Object {
	moved := c.store.MoveObjects(ids, dx, dy)
	c.changed(ObjectsUpdated, moved, nil)
	return clones(moved)
}

func (c *Controller) DeleteSelection() []state.Object {
	return c.RemoveObjects(c.store.Selection())
}

// SelectAll selects every object on unlocked layers.
func (c *Controller) SelectAll() {
	if c.store.Select(ids(c.store.Objects())...) {
		c.selectionChanged()
		c.requestFrame()
	}
}

func (c *Controller) ClearSelection() {
	if c.store.ClearSelection() {
		c.selectionChanged()
		c.requestFrame()
	}
}

func (c *Controller) CanUndo() bool { return c.store.CanUndo() }
func (c *Controller) CanRedo() bool { return c.store.CanRedo() }

// Undo reverts the last history entry. It is a no-op with nothing to undo.
func (c *Controller) Undo() bool {
	layers := c.layerSet()
	op, ok := c.store.Undo()
	if ok {
		c.replayed(op, layers)
	}
	return ok
}

func (c *Controller) Redo() bool {
	layers := c.layerSet()
	op, ok := c.store.Redo()
	if ok {
		c.replayed(op, layers)
	}
	return ok
}

func (c *Controller) replayed(op state.Operation, layersBefore map[string]state.LayerInfo) {
	c.diffLayers(layersBefore, false)
	c.opEvents(op, false)
	c.emit(Event{Kind: HistoryChanged})
	c.requestFrame()
}

// opEvents reports an applied operation to observers.
func (c *Controller) opEvents(op state.Operation, remote bool) {
	switch op.Kind {
	case state.OpAdd:
		if len(op.Objects) > 0 {
			c.emit(Event{Kind: ObjectsAdded, Objects: clones(op.Objects), Remote: remote})
		}
	case state.OpTransform:
		if len(op.Objects) > 0 {
			c.emit(Event{Kind: ObjectsUpdated, Objects: clones(op.Objects), Remote: remote})
		}
	case state.OpRemove:
		if len(op.IDs) > 0 {
			c.emit(Event{Kind: ObjectsRemoved, IDs: op.IDs, Remote: remote})
		}
	}
}

func (c *Controller) layerSet() map[string]state.LayerInfo {
	m := map[string]state.LayerInfo{}
	for _, l := range c.store.Layers() {
		m[l.ID] = l.LayerInfo
	}
	return m
}

// diffLayers emits created and deleted layer events against before.
func (c *Controller) diffLayers(before map[string]state.LayerInfo, remote bool) {
	after := c.layerSet()
	for id, info := range before {
		if _, ok := after[id]; !ok {
			c.emit(Event{Kind: LayerDeleted, Layer: &info, Remote: remote})
		}
	}
	for id, info := range after {
		if _, ok := before[id]; !ok {
			c.emit(Event{Kind: LayerCreated, Layer: &info, Remote: remote})
		}
	}
}

// Layers.

func (c *Controller) Layers() []state.LayerInfo {
	var out []state.LayerInfo
	for _, l := range c.store.Layers() {
		out = append(out, l.LayerInfo)
	}
	return out
}

func (c *Controller) ActiveLayer() state.LayerInfo { return c.store.ActiveLayer().LayerInfo }

// CreateLayer adds a layer on top and makes it active.
func (c *Controller) CreateLayer(name string) state.LayerInfo {
	l := c.store.CreateLayer(name)
	c.layerEvent(LayerCreated, l)
	c.layerEvent(ActiveLayerChanged, l)
	return l.LayerInfo
}

// DeleteLayer removes a layer with its objects. The last layer and locked
// layers cannot be deleted.
func (c *Controller) DeleteLayer(id string) bool {
	l, ok := c.store.Layer(id)
	if !ok {
		return false
	}
	info, objs := l.LayerInfo, l.Objects()
	active := c.store.ActiveLayer().ID
	selBefore := len(c.store.Selection())
	if !c.store.DeleteLayer(id) {
		return false
	}
	if len(objs) > 0 {
		c.emit(Event{Kind: ObjectsRemoved, Objects: clones(objs), IDs: ids(objs)})
	}
	c.emit(Event{Kind: LayerDeleted, Layer: &info})
	c.emit(Event{Kind: HistoryChanged})
	if active == id {
		c.layerEvent(ActiveLayerChanged, c.store.ActiveLayer())
	}
	if len(c.store.Selection()) != selBefore {
		c.selectionChanged()
	}
	c.requestFrame()
	return true
}

func (c *Controller) SetActiveLayer(id string) bool {
	if !c.store.SetActiveLayer(id) {
		return false
	}
	c.layerEvent(ActiveLayerChanged, c.store.ActiveLayer())
	return true
}

func (c *Controller) SetLayerVisible(id string, visible bool) bool {
	return c.layerChanged(id, c.store.SetLayerVisible(id, visible))
}

func (c *Controller) SetLayerLocked(id string, locked bool) bool {
	selBefore := len(c.store.Selection())
	ok := c.layerChanged(id, c.store.SetLayerLocked(id, locked))
	if len(c.store.Selection()) != selBefore {
		c.selectionChanged()
	}
	return ok
}

func (c *Controller) SetLayerOpacity(id string, opacity float64) bool {
	return c.layerChanged(id, c.store.SetLayerOpacity(id, opacity))
}

func (c *Controller) SetLayerBlendMode(id string, mode state.BlendMode) bool {
	return c.layerChanged(id, c.store.SetLayerBlendMode(id, mode))
}

func (c *Controller) RenameLayer(id, name string) bool {
	return c.layerChanged(id, c.store.RenameLayer(id, name))
}

func (c *Controller) SetLayerOrder(id string, order int) bool {
	return c.layerChanged(id, c.store.SetLayerOrder(id, order))
}

func (c *Controller) layerChanged(id string, changed bool) bool {
	if !changed {
		return false
	}
	if l, ok := c.store.Layer(id); ok {
		c.layerEvent(LayerChanged, l)
	}
	c.requestFrame()
	return true
}

// View.

// ZoomAt zooms to zoom (clamped) keeping the surface point (x, y) fixed.
func (c *Controller) ZoomAt(x, y, zoom float64) {
	c.setView(c.view.ZoomAt(geom.Pt(x, y), zoom))
}

// ZoomBy multiplies the zoom by factor around (x, y).
func (c *Controller) ZoomBy(x, y, factor float64) {
	c.ZoomAt(x, y, c.view.ScaleFactor()*factor)
}

// Pan shifts the view by a surface-space delta.
func (c *Controller) Pan(dx, dy float64) {
	c.setView(c.view.PanBy(dx, dy))
}

// SetRotation rotates the view to angle radians about the surface centre.
func (c *Controller) SetRotation(angle float64) {
	c.setView(c.view.WithRotation(angle))
}

func (c *Controller) ResetView() {
	v := c.view
	v.View = geom.DefaultView()
	c.setView(v)
}

func (c *Controller) setView(v geom.Viewport) {
	if v == c.view {
		return
	}
	c.view = v
	c.emit(Event{Kind: ViewChanged})
	c.requestFrame()
}

// ToWorld maps a surface point into world coordinates.
func (c *Controller) ToWorld(x, y float64) geom.Point { return c.view.ToWorld(geom.Pt(x, y)) }

// Drawing settings.

func (c *Controller) Tool() Tool { return c.tool }

// SetTool switches tools, abandoning any gesture in progress.
func (c *Controller) SetTool(t Tool) {
	if t == c.tool {
		return
	}
	c.cancelGesture()
	c.tool = t
}

// SetColor sets the stroke and text colour. Malformed colours are ignored.
func (c *Controller) SetColor(hex string) bool {
	col, ok := state.NormalizeColor(hex)
	if ok {
		c.color = col
	}
	return ok
}

func (c *Controller) Color() string { return c.color }

// SetFillColor sets the fill for new rectangles and circles; "" disables it.
func (c *Controller) SetFillColor(hex string) bool {
	if hex == "" {
		c.fillColor = ""
		return true
	}
	col, ok := state.NormalizeColor(hex)
	if ok {
		c.fillColor = col
	}
	return ok
}

// SetBrushSize clamps size to [1, 100].
func (c *Controller) SetBrushSize(size float64) {
	if math.IsNaN(size) {
		return
	}
	c.brushSize = max(1, min(100, size))
}

func (c *Controller) BrushSize() float64 { return c.brushSize }

func (c *Controller) SetFontSize(size float64) {
	if size > 0 {
		c.fontSize = size
	}
}

// ToggleGrid flips the background grid and returns the new state.
func (c *Controller) ToggleGrid() bool {
	c.grid = !c.grid
	c.requestFrame()
	return c.grid
}

// Content helpers.

// AddText places text with its top-left corner at the world point at.
func (c *Controller) AddText(content string, at geom.Point) state.Object {
	if content == "" {
		return nil
	}
	return c.AddObject(&state.Text{
		X:          at.X,
		Y:          at.Y,
		Content:    content,
		FontFamily: "sans-serif",
		FontSize:   c.fontSize,
		Color:      c.color,
		Align:      state.AlignLeft,
		Baseline:   state.BaselineTop,
	})
}

// AddImage places an encoded image at the world point at. A zero width or
// height takes the image's natural size.
func (c *Controller) AddImage(src string, at geom.Point, width, height float64) (state.Object, error) {
	img, err := paint.DecodeSource(src)
	if err != nil {
		return nil, fmt.Errorf("add image: %w", err)
	}
	if width <= 0 || height <= 0 {
		b := img.Bounds()
		width, height = float64(b.Dx()), float64(b.Dy())
	}
	o := c.AddObject(&state.Image{X: at.X, Y: at.Y, Width: width, Height: height, Src: src})
	if o == nil {
		return nil, fmt.Errorf("add image: active layer %q is locked", c.store.ActiveLayer().Name)
	}
	return o, nil
}

// AddFormula places formula source at the world point at. The box is sized
// from the formula renderer when one is set, otherwise estimated.
func (c *Controller) AddFormula(source string, at geom.Point) state.Object {
	if source == "" {
		return nil
	}
	f := &state.Formula{X: at.X, Y: at.Y, Source: source, FontSize: c.fontSize, Color: c.color}
	if c.formulas != nil {
		if img, err := c.formulas.RenderFormula(source, f.FontSize, f.Color); err == nil {
			b := img.Bounds()
			f.Width, f.Height = float64(b.Dx()), float64(b.Dy())
		}
	}
	if f.Width <= 0 || f.Height <= 0 {
		f.Width = float64(utf8.RuneCountInString(source)) * f.FontSize * 0.6
		f.Height = f.FontSize * 1.2
	}
	return c.AddObject(f)
}

// Export and import.

// ExportAs encodes the board. Visual formats leave out the grid and the
// selection.
func (c *Controller) ExportAs(format export.Format) ([]byte, error) {
	return export.Export(c.store, c.view, format, export.Options{
		Background: c.background,
		Painter:    c.painter,
		Logger:     c.log.WithPrefix("export"),
	})
}

// Import replaces the board with a structured document. A malformed
// document leaves the board untouched. History and selection are reset and
// the document's view is restored.
func (c *Controller) Import(data []byte) error {
	doc, err := export.Decode(data)
	if err != nil {
		return err
	}
	layers := c.layerSet()
	removed := ids(c.store.Objects())
	if err := c.store.Load(doc); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	c.cancelGesture()
	if len(removed) > 0 {
		c.emit(Event{Kind: ObjectsRemoved, IDs: removed})
	}
	c.diffLayers(layers, false)
	if objs := c.store.Objects(); len(objs) > 0 {
		c.emit(Event{Kind: ObjectsAdded, Objects: clones(objs)})
	}
	c.layerEvent(ActiveLayerChanged, c.store.ActiveLayer())
	c.emit(Event{Kind: HistoryChanged})
	c.selectionChanged()
	v := c.view
	v.View = doc.Transform
	c.view = v
	c.emit(Event{Kind: ViewChanged})
	c.requestFrame()
	c.log.Info("board imported", "layers", len(doc.Layers), "objects", len(doc.Objects))
	return nil
}
