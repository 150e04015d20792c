package state

// DefaultHistoryLimit bounds the undo log when no limit is configured.
const DefaultHistoryLimit = 100

type EntryKind string

const (
	EntryAdd       EntryKind = "add"
	EntryRemove    EntryKind = "remove"
	EntryTransform EntryKind = "transform"
)

// Entry is one undoable mutation. Objects and Previous hold private
// snapshots; Previous is only set for transforms. Layer is set when a remove
// was caused by deleting a whole layer.
type Entry struct {
	Kind     EntryKind
	Objects  []Object
	Previous []Object
	Layer    *LayerInfo
}

// History is a bounded linear undo log with a cursor. Cursor is the index of
// the last applied entry, -1 when nothing can be undone.
type History struct {
	entries []Entry
	cursor  int
	limit   int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{cursor: -1, limit: limit}
}

// Push appends e, discarding any redo tail and evicting the oldest entries
// beyond the limit.
func (h *History) Push(e Entry) {
	h.entries = append(h.entries[:h.cursor+1], e)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append([]Entry(nil), h.entries[over:]...)
	}
	h.cursor = len(h.entries) - 1
}

// Undo steps the cursor back and returns the entry to revert.
func (h *History) Undo() (Entry, bool) {
	if h.cursor < 0 {
		return Entry{}, false
	}
	e := h.entries[h.cursor]
	h.cursor--
	return e, true
}

// Redo steps the cursor forward and returns the entry to re-apply.
func (h *History) Redo() (Entry, bool) {
	if h.cursor+1 >= len(h.entries) {
		return Entry{}, false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

func (h *History) CanUndo() bool { return h.cursor >= 0 }
func (h *History) CanRedo() bool { return h.cursor+1 < len(h.entries) }
func (h *History) Len() int      { return len(h.entries) }
func (h *History) Cursor() int   { return h.cursor }
func (h *History) Limit() int    { return h.limit }

func (h *History) Clear() {
	h.entries = nil
	h.cursor = -1
}
