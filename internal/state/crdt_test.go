package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TutorBoard/internal/geom"
)

func remoteRect(id string, x float64) *Shape {
	r := rect(x, 0, 10, 10)
	r.ID = id
	return r
}

func TestStampOrdering(t *testing.T) {
	assert.True(t, Stamp{2, "a"}.After(Stamp{1, "z"}))
	assert.True(t, Stamp{2, "b"}.After(Stamp{2, "a"}))
	assert.False(t, Stamp{2, "a"}.After(Stamp{2, "a"}))
}

func TestClockWitness(t *testing.T) {
	c := NewClock("me")
	c.Witness(10)
	assert.Equal(t, uint64(11), c.Tick().Lamport)
	c.Witness(3)
	assert.Equal(t, uint64(11), c.Now())
	assert.NotEmpty(t, NewClock("").Site())
}

func TestApplyRemoteAdd(t *testing.T) {
	s := newTestStore()
	res := s.Apply(Operation{Kind: OpAdd, Objects: ObjectList{remoteRect("r1", 0)}, Lamport: 5, Site: "peer"})
	require.Len(t, res.Added, 1)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.CanUndo(), "remote adds are recorded in history")

	dup := s.Apply(Operation{Kind: OpAdd, Objects: ObjectList{remoteRect("r1", 0)}, Lamport: 5, Site: "peer"})
	assert.True(t, dup.Empty(), "duplicate add ignored")
	assert.Equal(t, 1, s.Len())
}

func TestApplyDoesNotAliasIncomingObjects(t *testing.T) {
	s := newTestStore()
	in := remoteRect("r1", 0)
	s.Apply(Operation{Kind: OpAdd, Objects: ObjectList{in}, Lamport: 1, Site: "peer"})
	in.X = 999
	got, _ := s.Object("r1")
	assert.Equal(t, 0.0, got.(*Shape).X)
}

func TestApplyLastWriterWins(t *testing.T) {
	s := newTestStore()
	s.Apply(Operation{Kind: OpAdd, Objects: ObjectList{remoteRect("r1", 0)}, Lamport: 1, Site: "a"})

	res := s.Apply(Operation{Kind: OpTransform, Objects: ObjectList{remoteRect("r1", 50)}, Lamport: 4, Site: "a"})
	require.Len(t, res.Updated, 1)

	stale := s.Apply(Operation{Kind: OpTransform, Objects: ObjectList{remoteRect("r1", 20)}, Lamport: 3, Site: "b"})
	assert.True(t, stale.Empty())

	tie := s.Apply(Operation{Kind: OpTransform, Objects: ObjectList{remoteRect("r1", 70)}, Lamport: 4, Site: "b"})
	require.Len(t, tie.Updated, 1, "equal lamport broken by site id")

	got, _ := s.Object("r1")
	assert.Equal(t, 70.0, got.(*Shape).X)
}

func TestApplyRemoveLeavesTombstone(t *testing.T) {
	s := newTestStore()
	s.Apply(Operation{Kind: OpAdd, Objects: ObjectList{remoteRect("r1", 0)}, Lamport: 1, Site: "a"})
	s.Select("r1")

	res := s.Apply(Operation{Kind: OpRemove, IDs: []string{"r1"}, Lamport: 2, Site: "a"})
	require.Len(t, res.Removed, 1)
	assert.Empty(t, s.Selection())

	late := s.Apply(Operation{Kind: OpAdd, Objects: ObjectList{remoteRect("r1", 0)}, Lamport: 1, Site: "a"})
	assert.True(t, late.Empty(), "add older than the remove is dropped")
	assert.Equal(t, 0, s.Len())
}

func TestApplyRemoveOlderThanLocalEditKeepsObject(t *testing.T) {
	s := newTestStore(WithClock(NewClock("local")))
	s.Apply(Operation{Kind: OpAdd, Objects: ObjectList{remoteRect("r1", 0)}, Lamport: 1, Site: "a"})
	s.MoveObjects([]string{"r1"}, 5, 0) // local stamp 2

	res := s.Apply(Operation{Kind: OpRemove, IDs: []string{"r1"}, Lamport: 2, Site: "a"})
	assert.True(t, res.Empty())
	assert.Equal(t, 1, s.Len())
}

func TestApplyIgnoresLocks(t *testing.T) {
	s := newTestStore()
	s.SetLayerLocked(s.ActiveLayer().ID, true)
	res := s.Apply(Operation{Kind: OpAdd, Objects: ObjectList{remoteRect("r1", 0)}, Lamport: 1, Site: "a"})
	assert.Len(t, res.Added, 1)
}

func TestConvergence(t *testing.T) {
	a := newTestStore(WithClock(NewClock("a")))
	b := newTestStore(WithClock(NewClock("b")))

	var fromA, fromB []Operation
	a.SetEmitter(func(op Operation) { fromA = append(fromA, op) })
	b.SetEmitter(func(op Operation) { fromB = append(fromB, op) })

	a.AddObject(remoteRect("shared", 0))
	b.Apply(fromA[0])

	// concurrent edits of the same object
	a.MoveObjects([]string{"shared"}, 10, 0)
	b.MoveObjects([]string{"shared"}, 0, 10)
	b.AddObject(line(geom.Pt(0, 0), geom.Pt(5, 5)))

	for _, op := range fromB {
		a.Apply(op)
	}
	for _, op := range fromA[1:] {
		b.Apply(op)
	}

	ga, _ := a.Object("shared")
	gb, _ := b.Object("shared")
	assert.Equal(t, Bounds(gb), Bounds(ga))
	assert.Equal(t, 10.0, ga.(*Shape).Y, "site b wins the lamport tie")
	assert.Equal(t, a.Len(), b.Len())
}

func TestSyncOperationCatchesUpLateJoiner(t *testing.T) {
	host := newTestStore(WithClock(NewClock("host")))
	host.AddObject(remoteRect("r1", 0))
	host.AddObject(remoteRect("r2", 40))
	host.RemoveObjects([]string{"r1"})

	late := newTestStore(WithClock(NewClock("late")))
	res := late.Apply(host.SyncOperation())
	require.Len(t, res.Added, 1)
	_, ok := late.Object("r2")
	assert.True(t, ok)

	again := late.Apply(host.SyncOperation())
	assert.True(t, again.Empty(), "re-sync changes nothing")
}
