package board

import (
	"hash/fnv"
	"sort"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/paint"
	"TutorBoard/internal/state"
)

var cursorPalette = []string{"#ef4444", "#f59e0b", "#10b981", "#3b82f6", "#8b5cf6", "#ec4899"}

// ApplyRemoteOperation merges a peer's operation. It enters the store at the
// same point as local mutations, but is not echoed back to the collaborator.
func (c *Controller) ApplyRemoteOperation(op state.Operation) state.Applied {
	layers := c.layerSet()
	selBefore := len(c.store.Selection())
	res := c.store.Apply(op)
	if res.Empty() {
		return res
	}
	c.diffLayers(layers, true)
	if len(res.Added) > 0 {
		c.emit(Event{Kind: ObjectsAdded, Objects: clones(res.Added), Remote: true})
	}
	if len(res.Updated) > 0 {
		c.emit(Event{Kind: ObjectsUpdated, Objects: clones(res.Updated), Remote: true})
	}
	if len(res.Removed) > 0 {
		c.emit(Event{Kind: ObjectsRemoved, Objects: clones(res.Removed), IDs: ids(res.Removed), Remote: true})
	}
	c.emit(Event{Kind: HistoryChanged, Remote: true})
	if len(c.store.Selection()) != selBefore {
		c.selectionChanged()
	}
	c.requestFrame()
	return res
}

// UpdateRemoteCursor moves a peer's cursor to world point (x, y).
func (c *Controller) UpdateRemoteCursor(peer string, x, y float64) {
	if peer == "" || peer == c.store.Site() {
		return
	}
	cur, ok := c.cursors[peer]
	if !ok {
		cur = paint.Cursor{Peer: peer, Label: peerLabel(peer), Color: peerColor(peer)}
	}
	cur.Position = geom.Pt(x, y)
	c.cursors[peer] = cur
	c.requestFrame()
}

// SetPeerLabel names a peer's cursor.
func (c *Controller) SetPeerLabel(peer, label string) {
	cur, ok := c.cursors[peer]
	if !ok || label == "" {
		return
	}
	cur.Label = label
	c.cursors[peer] = cur
	c.requestFrame()
}

// RemovePeer drops a departed peer's cursor.
func (c *Controller) RemovePeer(peer string) {
	if _, ok := c.cursors[peer]; !ok {
		return
	}
	delete(c.cursors, peer)
	c.requestFrame()
}

// Peers returns the peers with a visible cursor.
func (c *Controller) Peers() []string {
	out := make([]string, 0, len(c.cursors))
	for p := range c.cursors {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (c *Controller) cursorList() []paint.Cursor {
	if len(c.cursors) == 0 {
		return nil
	}
	out := make([]paint.Cursor, 0, len(c.cursors))
	for _, p := range c.Peers() {
		out = append(out, c.cursors[p])
	}
	return out
}

func (c *Controller) broadcastCursor(p geom.Point) {
	if c.collab != nil {
		c.collab.BroadcastCursor(p.X, p.Y)
	}
}

func peerLabel(peer string) string {
	if len(peer) > 8 {
		return peer[:8]
	}
	return peer
}

func peerColor(peer string) string {
	h := fnv.New32a()
	h.Write([]byte(peer))
	return cursorPalette[h.Sum32()%uint32(len(cursorPalette))]
}

// SyncOperation is the operation a newly joined peer applies to catch up
// with this board's content.
func (c *Controller) SyncOperation() state.Operation { return c.store.SyncOperation() }

// Site is the id this board stamps its operations with.
func (c *Controller) Site() string { return c.store.Site() }
