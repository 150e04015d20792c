package board

import "TutorBoard/internal/state"

type EventKind string

const (
	ObjectsAdded       EventKind = "objectsAdded"
	ObjectsRemoved     EventKind = "objectsRemoved"
	ObjectsUpdated     EventKind = "objectsUpdated"
	HistoryChanged     EventKind = "historyChanged"
	LayerCreated       EventKind = "layerCreated"
	LayerDeleted       EventKind = "layerDeleted"
	LayerChanged       EventKind = "layerChanged"
	ActiveLayerChanged EventKind = "activeLayerChanged"
	SelectionChanged   EventKind = "selectionChanged"
	ViewChanged        EventKind = "viewChanged"
	RendererChanged    EventKind = "rendererChanged"
)

// Event describes a change. Objects are copies; changing them has no effect
// on the board.
type Event struct {
	Kind    EventKind
	Objects []state.Object
	// IDs of removed objects, or the selection after a selection change.
	IDs      []string
	Layer    *state.LayerInfo
	Renderer string
	// Remote is set when a peer's operation caused the change.
	Remote bool
}

// Subscribe registers fn for every event and returns a function that
// removes it.
func (c *Controller) Subscribe(fn func(Event)) (cancel func()) {
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}

func (c *Controller) emit(ev Event) {
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			fn(ev)
		}
	}
}

func clones(objs []state.Object) []state.Object {
	if len(objs) == 0 {
		return nil
	}
	out := make([]state.Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}

func ids(objs []state.Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Base().ID
	}
	return out
}

func (c *Controller) layerEvent(kind EventKind, l *state.Layer) {
	info := l.LayerInfo
	c.emit(Event{Kind: kind, Layer: &info})
}

func (c *Controller) selectionChanged() {
	c.emit(Event{Kind: SelectionChanged, IDs: c.store.Selection()})
}
