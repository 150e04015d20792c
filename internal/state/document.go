package state

import (
	"errors"
	"fmt"

	"TutorBoard/internal/geom"
)

// DocumentVersion is written into every structured document.
const DocumentVersion = 1

// ErrInvalidDocument is returned by Load for structurally broken documents.
var ErrInvalidDocument = errors.New("invalid document")

// Document is the lossless structured form of a board.
type Document struct {
	Version       int         `json:"version"`
	Layers        []LayerInfo `json:"layers"`
	Objects       ObjectList  `json:"objects"`
	Transform     geom.View   `json:"transform"`
	ActiveLayerID string      `json:"activeLayerId,omitempty"`
}

// Snapshot returns a deep copy of the scene. The transform is left for the
// caller that owns the viewport.
func (s *Store) Snapshot() Document {
	doc := Document{
		Version:       DocumentVersion,
		Objects:       ObjectList(cloneAll(s.Objects())),
		Transform:     geom.DefaultView(),
		ActiveLayerID: s.activeLayer().ID,
	}
	for _, l := range s.Layers() {
		doc.Layers = append(doc.Layers, l.LayerInfo)
	}
	return doc
}

// Load replaces the whole scene with doc. Nothing is recorded in history and
// the previous history, selection and merge state are discarded. On error
// the store is left untouched.
func (s *Store) Load(doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	s.layers = map[string]*Layer{}
	s.index = map[string]Object{}
	s.selection = newOrderedMap[string, struct{}]()
	s.stamps = map[string]Stamp{}
	s.tombstones = map[string]Stamp{}
	s.history.Clear()
	for _, info := range doc.Layers {
		s.addLayer(info)
	}
	s.activeID = doc.ActiveLayerID
	s.activeLayer()
	for _, o := range doc.Objects {
		s.insert(o.Clone(), false)
	}
	s.log.Info("document loaded", "layers", len(doc.Layers), "objects", len(doc.Objects))
	return nil
}

// Validate checks layer and object ids and layer references.
func (d Document) Validate() error {
	if len(d.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidDocument)
	}
	layers := make(map[string]bool, len(d.Layers))
	for i, l := range d.Layers {
		if l.ID == "" {
			return fmt.Errorf("%w: layers[%d] has no id", ErrInvalidDocument, i)
		}
		if layers[l.ID] {
			return fmt.Errorf("%w: duplicate layer id %q", ErrInvalidDocument, l.ID)
		}
		layers[l.ID] = true
	}
	seen := make(map[string]bool, len(d.Objects))
	for i, o := range d.Objects {
		if o == nil {
			return fmt.Errorf("%w: objects[%d] is null", ErrInvalidDocument, i)
		}
		b := o.Base()
		if b.ID == "" || seen[b.ID] {
			return fmt.Errorf("%w: objects[%d] has a missing or duplicate id", ErrInvalidDocument, i)
		}
		if !layers[b.LayerID] {
			return fmt.Errorf("%w: objects[%d] references unknown layer %q", ErrInvalidDocument, i, b.LayerID)
		}
		seen[b.ID] = true
	}
	return nil
}
