package state

type OpKind string

const (
	OpAdd       OpKind = "add"
	OpRemove    OpKind = "remove"
	OpTransform OpKind = "transform"
)

// Operation is a stamped mutation exchanged between peers. Removes carry
// ids; adds and transforms carry full objects.
type Operation struct {
	Kind    OpKind     `json:"kind"`
	Objects ObjectList `json:"objects,omitempty"`
	IDs     []string   `json:"ids,omitempty"`
	Lamport uint64     `json:"lamport"`
	Site    string     `json:"site"`
}

func (op Operation) Stamp() Stamp { return Stamp{Lamport: op.Lamport, Site: op.Site} }

func (op Operation) empty() bool { return len(op.Objects) == 0 && len(op.IDs) == 0 }

// ids returns every id the operation touches.
func (op Operation) ids() []string {
	ids := append([]string(nil), op.IDs...)
	for _, o := range op.Objects {
		if o != nil {
			ids = append(ids, o.Base().ID)
		}
	}
	return ids
}

// Applied reports what a remote operation changed.
type Applied struct {
	Added   []Object
	Updated []Object
	Removed []Object
}

func (a Applied) Empty() bool {
	return len(a.Added) == 0 && len(a.Updated) == 0 && len(a.Removed) == 0
}

// Apply merges a remote operation. Each object keeps the state written by
// the highest stamp; removed ids leave tombstones so late or duplicate adds
// are ignored. Layer locks do not apply to remote writes. Accepted changes
// are recorded in history like local ones.
func (s *Store) Apply(op Operation) Applied {
	s.clock.Witness(op.Lamport)
	st := op.Stamp()
	var res Applied

	switch op.Kind {
	case OpAdd, OpTransform:
		var previous []Object
		for _, o := range op.Objects {
			if o == nil || o.Base().ID == "" {
				continue
			}
			id := o.Base().ID
			if t, dead := s.tombstones[id]; dead && !st.After(t) {
				s.log.Debug("stale write to removed object", "id", id, "site", op.Site)
				continue
			}
			if _, exists := s.index[id]; !exists {
				if a := s.insert(o.Clone(), false); a != nil {
					res.Added = append(res.Added, a)
					s.stamps[id] = st
					delete(s.tombstones, id)
				}
				continue
			}
			if !st.After(s.stamps[id]) {
				s.log.Debug("ignoring superseded write", "id", id, "site", op.Site)
				continue
			}
			c := o.Clone()
			if prev := s.replace(c, false); prev != nil {
				res.Updated = append(res.Updated, c)
				previous = append(previous, prev)
				s.stamps[id] = st
			}
		}
		if len(res.Added) > 0 {
			s.history.Push(Entry{Kind: EntryAdd, Objects: cloneAll(res.Added)})
		}
		if len(res.Updated) > 0 {
			s.history.Push(Entry{Kind: EntryTransform, Objects: cloneAll(res.Updated), Previous: cloneAll(previous)})
		}

	case OpRemove:
		for _, id := range op.ids() {
			if cur, ok := s.stamps[id]; ok && !st.After(cur) {
				continue
			}
			if t, ok := s.tombstones[id]; !ok || st.After(t) {
				s.tombstones[id] = st
			}
			delete(s.stamps, id)
			if o := s.remove(id, false); o != nil {
				res.Removed = append(res.Removed, o)
			}
		}
		if len(res.Removed) > 0 {
			s.history.Push(Entry{Kind: EntryRemove, Objects: cloneAll(res.Removed)})
		}

	default:
		s.log.Warn("unknown operation kind", "kind", op.Kind, "site", op.Site)
	}

	if !res.Empty() {
		s.log.Debug("remote operation applied", "kind", op.Kind, "site", op.Site, "lamport", op.Lamport,
			"added", len(res.Added), "updated", len(res.Updated), "removed", len(res.Removed))
	}
	return res
}

// SyncOperation returns an add operation carrying every object, stamped at
// the current clock value. A peer that joins late applies it to catch up.
func (s *Store) SyncOperation() Operation {
	return Operation{
		Kind:    OpAdd,
		Objects: ObjectList(cloneAll(s.Objects())),
		Lamport: s.clock.Now(),
		Site:    s.clock.Site(),
	}
}
