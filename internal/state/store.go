// Package state holds the board's scene: layers, objects, selection, the
// undo history and the operation log shared with remote peers.
package state

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"TutorBoard/internal/geom"
)

// DefaultLayerName names the layer every new board starts with.
const DefaultLayerName = "Layer 1"

// Store owns layers, objects, selection and history. It is not safe for
// concurrent use; callers serialise access on one goroutine.
type Store struct {
	layers   map[string]*Layer
	layerSeq uint64
	activeID string

	// index mirrors every layer's objects with identical pointers.
	index     map[string]Object
	selection *orderedMap[string, struct{}]

	history *History
	clock   *Clock

	stamps     map[string]Stamp
	tombstones map[string]Stamp
	onLocal    func(Operation)

	now func() time.Time
	log *log.Logger
}

type Option func(*Store)

// WithHistoryLimit bounds the undo log.
func WithHistoryLimit(n int) Option {
	return func(s *Store) { s.history = NewHistory(n) }
}

// WithClock sets the Lamport clock, which also fixes the site id.
func WithClock(c *Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithNow overrides the wall clock used for createdAt.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEmitter registers fn to receive every stamped local operation.
func WithEmitter(fn func(Operation)) Option {
	return func(s *Store) { s.onLocal = fn }
}

// NewStore returns a store holding a single empty default layer.
func NewStore(opts ...Option) *Store {
	s := &Store{
		layers:     map[string]*Layer{},
		index:      map[string]Object{},
		selection:  newOrderedMap[string, struct{}](),
		stamps:     map[string]Stamp{},
		tombstones: map[string]Stamp{},
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.history == nil {
		s.history = NewHistory(DefaultHistoryLimit)
	}
	if s.clock == nil {
		s.clock = NewClock("")
	}
	if s.log == nil {
		s.log = log.Default().WithPrefix("store")
	}
	s.ensureLayer()
	return s
}

// SetEmitter replaces the local-operation callback.
func (s *Store) SetEmitter(fn func(Operation)) { s.onLocal = fn }

func (s *Store) History() *History { return s.history }
func (s *Store) Site() string      { return s.clock.Site() }

// Len returns the number of objects on the board.
func (s *Store) Len() int { return len(s.index) }

// Object looks up an object by id.
func (s *Store) Object(id string) (Object, bool) {
	o, ok := s.index[id]
	return o, ok
}

// Objects returns every object in paint order: layers bottom to top, then
// insertion order within a layer.
func (s *Store) Objects() []Object {
	out := make([]Object, 0, len(s.index))
	for _, l := range s.Layers() {
		out = append(out, l.Objects()...)
	}
	return out
}

// Bounds returns the world bounding box of o.
func (s *Store) Bounds(o Object) geom.Rect { return Bounds(o) }

// AddObject inserts obj, assigning an id and createdAt when missing. It
// returns nil when the target layer is locked or the id is taken.
func (s *Store) AddObject(obj Object) Object {
	if obj == nil {
		return nil
	}
	added := s.AddObjects([]Object{obj})
	if len(added) == 0 {
		return nil
	}
	return added[0]
}

// AddObjects inserts objs as one undoable step and returns those accepted.
func (s *Store) AddObjects(objs []Object) []Object {
	var added []Object
	for _, o := range objs {
		if o == nil {
			continue
		}
		if a := s.insert(o, true); a != nil {
			added = append(added, a)
		} else {
			s.log.Debug("add refused", "id", o.Base().ID, "layer", o.Base().LayerID)
		}
	}
	if len(added) == 0 {
		return nil
	}
	s.history.Push(Entry{Kind: EntryAdd, Objects: cloneAll(added)})
	s.emit(Operation{Kind: OpAdd, Objects: cloneAll(added)})
	return added
}

// RemoveObjects deletes the given ids, skipping unknown ids and objects on
// locked layers, and returns what was removed.
func (s *Store) RemoveObjects(ids []string) []Object {
	var removed []Object
	for _, id := range ids {
		if o := s.remove(id, true); o != nil {
			removed = append(removed, o)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	s.history.Push(Entry{Kind: EntryRemove, Objects: cloneAll(removed)})
	s.emit(Operation{Kind: OpRemove, IDs: idsOf(removed)})
	return removed
}

// UpdateObjects replaces existing objects by id as one transform step.
// Objects keep their layer. Unknown ids and locked layers are skipped.
func (s *Store) UpdateObjects(objs []Object) []Object {
	var updated, previous []Object
	for _, o := range objs {
		if o == nil {
			continue
		}
		if prev := s.replace(o, true); prev != nil {
			updated = append(updated, o)
			previous = append(previous, prev)
		}
	}
	if len(updated) == 0 {
		return nil
	}
	s.history.Push(Entry{Kind: EntryTransform, Objects: cloneAll(updated), Previous: cloneAll(previous)})
	s.emit(Operation{Kind: OpTransform, Objects: cloneAll(updated)})
	return updated
}

// MoveObjects translates the given objects by (dx, dy) world units.
func (s *Store) MoveObjects(ids []string, dx, dy float64) []Object {
	if dx == 0 && dy == 0 {
		return nil
	}
	moved := make([]Object, 0, len(ids))
	for _, id := range ids {
		o, ok := s.index[id]
		if !ok {
			continue
		}
		moved = append(moved, Translated(o, dx, dy))
	}
	return s.UpdateObjects(moved)
}

// Undo reverts the entry under the history cursor. The returned operation
// is the inverse that was applied; it has also been passed to the emitter.
func (s *Store) Undo() (Operation, bool) {
	e, ok := s.history.Undo()
	if !ok {
		return Operation{}, false
	}
	var op Operation
	switch e.Kind {
	case EntryAdd:
		op = s.silentRemove(e.Objects)
	case EntryRemove:
		if e.Layer != nil {
			s.restoreLayer(*e.Layer)
		}
		op = s.silentAdd(e.Objects)
	case EntryTransform:
		op = s.silentReplace(e.Previous)
	}
	return s.emit(op), true
}

// Redo re-applies the entry after the history cursor.
func (s *Store) Redo() (Operation, bool) {
	e, ok := s.history.Redo()
	if !ok {
		return Operation{}, false
	}
	var op Operation
	switch e.Kind {
	case EntryAdd:
		op = s.silentAdd(e.Objects)
	case EntryRemove:
		op = s.silentRemove(e.Objects)
		if e.Layer != nil {
			s.dropLayer(e.Layer.ID)
		}
	case EntryTransform:
		op = s.silentReplace(e.Objects)
	}
	return s.emit(op), true
}

func (s *Store) CanUndo() bool { return s.history.CanUndo() }
func (s *Store) CanRedo() bool { return s.history.CanRedo() }

// silentAdd inserts fresh copies of snaps without recording history.
func (s *Store) silentAdd(snaps []Object) Operation {
	var added []Object
	for _, snap := range snaps {
		if a := s.insert(snap.Clone(), false); a != nil {
			added = append(added, a)
		}
	}
	return Operation{Kind: OpAdd, Objects: cloneAll(added)}
}

func (s *Store) silentRemove(snaps []Object) Operation {
	var ids []string
	for _, snap := range snaps {
		if o := s.remove(snap.Base().ID, false); o != nil {
			ids = append(ids, o.Base().ID)
		}
	}
	return Operation{Kind: OpRemove, IDs: ids}
}

func (s *Store) silentReplace(snaps []Object) Operation {
	var updated []Object
	for _, snap := range snaps {
		c := snap.Clone()
		if s.replace(c, false) != nil {
			updated = append(updated, c)
		}
	}
	return Operation{Kind: OpTransform, Objects: cloneAll(updated)}
}

func (s *Store) insert(obj Object, checkLock bool) Object {
	b := obj.Base()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, taken := s.index[b.ID]; taken {
		return nil
	}
	s.ensureLayer()
	l := s.layers[b.LayerID]
	if l == nil {
		l = s.activeLayer()
	}
	if checkLock && l.Locked {
		return nil
	}
	b.LayerID = l.ID
	if b.CreatedAt == 0 {
		b.CreatedAt = s.now().UnixMilli()
	}
	b.Opacity = normalizeOpacity(b.Opacity)
	normalizeColors(obj)
	if t, ok := obj.(*Text); ok {
		t.estimateSize()
	}
	l.objects.Set(b.ID, obj)
	s.index[b.ID] = obj
	return obj
}

func (s *Store) remove(id string, checkLock bool) Object {
	o, ok := s.index[id]
	if !ok {
		return nil
	}
	l := s.layers[o.Base().LayerID]
	if l != nil {
		if checkLock && l.Locked {
			return nil
		}
		l.objects.Delete(id)
	}
	delete(s.index, id)
	s.selection.Delete(id)
	return o
}

// replace swaps the stored object with obj's id for obj and returns the
// previous value, or nil when nothing was replaced.
func (s *Store) replace(obj Object, checkLock bool) Object {
	b := obj.Base()
	prev, ok := s.index[b.ID]
	if !ok {
		return nil
	}
	pb := prev.Base()
	l := s.layers[pb.LayerID]
	if l == nil || (checkLock && l.Locked) {
		return nil
	}
	b.LayerID = pb.LayerID
	if b.CreatedAt == 0 {
		b.CreatedAt = pb.CreatedAt
	}
	b.Opacity = normalizeOpacity(b.Opacity)
	normalizeColors(obj)
	l.objects.Set(b.ID, obj)
	s.index[b.ID] = obj
	return prev
}

// emit stamps op as a local event and hands it to the emitter.
func (s *Store) emit(op Operation) Operation {
	if op.empty() {
		return op
	}
	st := s.clock.Tick()
	op.Lamport, op.Site = st.Lamport, st.Site
	for _, id := range op.ids() {
		if op.Kind == OpRemove {
			delete(s.stamps, id)
			s.tombstones[id] = st
		} else {
			s.stamps[id] = st
			delete(s.tombstones, id)
		}
	}
	if s.onLocal != nil {
		s.onLocal(op)
	}
	return op
}

func cloneAll(objs []Object) []Object {
	out := make([]Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}

func idsOf(objs []Object) []string {
	ids := make([]string, len(objs))
	for i, o := range objs {
		ids[i] = o.Base().ID
	}
	return ids
}
