package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func entry(id string) Entry {
	return Entry{Kind: EntryAdd, Objects: []Object{&Shape{ObjectBase: ObjectBase{ID: id}}}}
}

func TestHistoryUndoRedo(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, DefaultHistoryLimit, h.Limit())
	assert.Equal(t, -1, h.Cursor())

	_, ok := h.Undo()
	assert.False(t, ok, "undo on empty history")
	_, ok = h.Redo()
	assert.False(t, ok, "redo on empty history")

	h.Push(entry("a"))
	h.Push(entry("b"))
	assert.Equal(t, 1, h.Cursor())

	e, ok := h.Undo()
	assert.True(t, ok)
	assert.Equal(t, "b", e.Objects[0].Base().ID)
	assert.True(t, h.CanRedo())

	e, ok = h.Redo()
	assert.True(t, ok)
	assert.Equal(t, "b", e.Objects[0].Base().ID)
	assert.False(t, h.CanRedo())
}

func TestHistoryPushTruncatesRedoTail(t *testing.T) {
	h := NewHistory(10)
	h.Push(entry("a"))
	h.Push(entry("b"))
	h.Push(entry("c"))
	h.Undo()
	h.Undo()

	h.Push(entry("d"))
	assert.Equal(t, 2, h.Len())
	assert.False(t, h.CanRedo())

	e, _ := h.Undo()
	assert.Equal(t, "d", e.Objects[0].Base().ID)
	e, _ = h.Undo()
	assert.Equal(t, "a", e.Objects[0].Base().ID)
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		h.Push(entry(id))
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.Cursor())

	var got []string
	for h.CanUndo() {
		e, _ := h.Undo()
		got = append(got, e.Objects[0].Base().ID)
	}
	assert.Equal(t, []string{"e", "d", "c"}, got)
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(5)
	h.Push(entry("a"))
	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.False(t, h.CanUndo())
}
