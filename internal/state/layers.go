package state

import (
	"fmt"

	"github.com/google/uuid"
)

// Layers returns the layers sorted bottom to top.
func (s *Store) Layers() []*Layer {
	out := make([]*Layer, 0, len(s.layers))
	for _, l := range s.layers {
		out = append(out, l)
	}
	sortLayers(out)
	return out
}

func (s *Store) Layer(id string) (*Layer, bool) {
	l, ok := s.layers[id]
	return l, ok
}

// ActiveLayer returns the layer new objects go to.
func (s *Store) ActiveLayer() *Layer { return s.activeLayer() }

func (s *Store) activeLayer() *Layer {
	s.ensureLayer()
	if l, ok := s.layers[s.activeID]; ok {
		return l
	}
	ls := s.Layers()
	s.activeID = ls[len(ls)-1].ID
	return ls[len(ls)-1]
}

func (s *Store) ensureLayer() {
	if len(s.layers) > 0 {
		return
	}
	l := s.addLayer(LayerInfo{ID: uuid.NewString(), Name: DefaultLayerName, Visible: true, Opacity: 1, BlendMode: BlendNormal})
	s.activeID = l.ID
}

func (s *Store) addLayer(info LayerInfo) *Layer {
	s.layerSeq++
	l := newLayer(info, s.layerSeq)
	s.layers[l.ID] = l
	return l
}

// CreateLayer adds a visible layer above all others and makes it active.
// An empty name gets a numbered default.
func (s *Store) CreateLayer(name string) *Layer {
	top := -1
	for _, l := range s.layers {
		top = max(top, l.Order)
	}
	if name == "" {
		name = fmt.Sprintf("Layer %d", len(s.layers)+1)
	}
	l := s.addLayer(LayerInfo{
		ID:        uuid.NewString(),
		Name:      name,
		Visible:   true,
		Opacity:   1,
		BlendMode: BlendNormal,
		Order:     top + 1,
	})
	s.activeID = l.ID
	return l
}

// DeleteLayer removes a layer and its objects as one undoable step. The last
// remaining layer and locked layers are never deleted.
func (s *Store) DeleteLayer(id string) bool {
	l, ok := s.layers[id]
	if !ok || l.Locked || len(s.layers) <= 1 {
		return false
	}
	objs := l.Objects()
	for _, o := range objs {
		s.remove(o.Base().ID, false)
	}
	s.dropLayer(id)
	info := l.LayerInfo
	s.history.Push(Entry{Kind: EntryRemove, Objects: cloneAll(objs), Layer: &info})
	if len(objs) > 0 {
		s.emit(Operation{Kind: OpRemove, IDs: idsOf(objs)})
	}
	return true
}

// dropLayer removes an empty layer, moving the active layer if needed.
func (s *Store) dropLayer(id string) {
	if _, ok := s.layers[id]; !ok || len(s.layers) <= 1 {
		return
	}
	delete(s.layers, id)
	if s.activeID == id {
		s.activeID = ""
		s.activeLayer()
	}
}

func (s *Store) restoreLayer(info LayerInfo) {
	if _, ok := s.layers[info.ID]; ok {
		return
	}
	s.addLayer(info)
}

func (s *Store) SetActiveLayer(id string) bool {
	if _, ok := s.layers[id]; !ok || s.activeID == id {
		return false
	}
	s.activeID = id
	return true
}

func (s *Store) SetLayerVisible(id string, visible bool) bool {
	return s.updateLayer(id, func(l *Layer) bool {
		changed := l.Visible != visible
		l.Visible = visible
		return changed
	})
}

// SetLayerLocked toggles the lock. Locking prunes the layer's objects from
// the selection.
func (s *Store) SetLayerLocked(id string, locked bool) bool {
	return s.updateLayer(id, func(l *Layer) bool {
		changed := l.Locked != locked
		l.Locked = locked
		if locked {
			for _, o := range l.Objects() {
				s.selection.Delete(o.Base().ID)
			}
		}
		return changed
	})
}

// SetLayerOpacity clamps v to [0, 1].
func (s *Store) SetLayerOpacity(id string, v float64) bool {
	v = max(0, min(1, v))
	return s.updateLayer(id, func(l *Layer) bool {
		changed := l.Opacity != v
		l.Opacity = v
		return changed
	})
}

func (s *Store) SetLayerBlendMode(id string, m BlendMode) bool {
	if !ValidBlendMode(m) {
		return false
	}
	return s.updateLayer(id, func(l *Layer) bool {
		changed := l.BlendMode != m
		l.BlendMode = m
		return changed
	})
}

func (s *Store) RenameLayer(id, name string) bool {
	if name == "" {
		return false
	}
	return s.updateLayer(id, func(l *Layer) bool {
		changed := l.Name != name
		l.Name = name
		return changed
	})
}

// SetLayerOrder moves a layer in the z-order.
func (s *Store) SetLayerOrder(id string, order int) bool {
	return s.updateLayer(id, func(l *Layer) bool {
		changed := l.Order != order
		l.Order = order
		return changed
	})
}

func (s *Store) updateLayer(id string, fn func(*Layer) bool) bool {
	l, ok := s.layers[id]
	if !ok {
		return false
	}
	return fn(l)
}

// Select adds existing, unlocked objects to the selection. It reports
// whether the selection changed.
func (s *Store) Select(ids ...string) bool {
	changed := false
	for _, id := range ids {
		o, ok := s.index[id]
		if !ok || s.IsSelected(id) {
			continue
		}
		if l := s.layers[o.Base().LayerID]; l == nil || l.Locked {
			continue
		}
		s.selection.Set(id, struct{}{})
		changed = true
	}
	return changed
}

func (s *Store) Deselect(ids ...string) bool {
	changed := false
	for _, id := range ids {
		changed = s.selection.Delete(id) || changed
	}
	return changed
}

func (s *Store) ClearSelection() bool {
	if s.selection.Len() == 0 {
		return false
	}
	s.selection = newOrderedMap[string, struct{}]()
	return true
}

// Selection returns the selected ids in selection order.
func (s *Store) Selection() []string {
	return append([]string(nil), s.selection.keys...)
}

func (s *Store) IsSelected(id string) bool {
	_, ok := s.selection.Get(id)
	return ok
}
