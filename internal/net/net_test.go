package net

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TutorBoard/internal/export"
	"TutorBoard/internal/geom"
	"TutorBoard/internal/state"
)

type fakeBoard struct {
	site string
	sync state.Operation

	mu      sync.Mutex
	ops     []state.Operation
	cursors map[string]geom.Point
	labels  map[string]string
	removed []string
}

func newFakeBoard(site string) *fakeBoard {
	return &fakeBoard{site: site, cursors: map[string]geom.Point{}, labels: map[string]string{}}
}

func (b *fakeBoard) ApplyRemoteOperation(op state.Operation) state.Applied {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, op)
	return state.Applied{Added: op.Objects}
}

func (b *fakeBoard) UpdateRemoteCursor(peer string, x, y float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursors[peer] = geom.Pt(x, y)
}

func (b *fakeBoard) SetPeerLabel(peer, label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.labels[peer] = label
}

func (b *fakeBoard) RemovePeer(peer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, peer)
}

func (b *fakeBoard) SyncOperation() state.Operation { return b.sync }
func (b *fakeBoard) Site() string                   { return b.site }

func (b *fakeBoard) ExportAs(f export.Format) ([]byte, error) {
	return []byte("exported " + string(f)), nil
}

func (b *fakeBoard) opCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

func (b *fakeBoard) lastOp() state.Operation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ops[len(b.ops)-1]
}

func (b *fakeBoard) removedPeers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.removed...)
}

func addOp(site, id string) state.Operation {
	return state.Operation{
		Kind:    state.OpAdd,
		Objects: state.ObjectList{&state.Shape{ObjectBase: state.ObjectBase{ID: id, Opacity: 1}, ShapeKind: state.ShapeRectangle, Width: 10, Height: 10}},
		Lamport: 1,
		Site:    site,
	}
}

func startHub(t *testing.T, host *fakeBoard, opts ...Option) (*Hub, string) {
	t.Helper()
	hub := NewHub(host, opts...)
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, strings.TrimPrefix(srv.URL, "http://")
}

func join(t *testing.T, addr string, b *fakeBoard, opts ...Option) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, LinkScheme+addr, b, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

const wait, tick = 2 * time.Second, 10 * time.Millisecond

func TestHubRelaysBetweenPeers(t *testing.T) {
	host := newFakeBoard("host")
	hub, addr := startHub(t, host)
	a, b := newFakeBoard("a"), newFakeBoard("b")
	ca := join(t, addr, a)
	join(t, addr, b)
	require.Eventually(t, func() bool { return hub.Peers() == 2 }, wait, tick)

	ca.Broadcast(addOp("a", "r1"))

	require.Eventually(t, func() bool { return host.opCount() == 1 && b.opCount() == 1 }, wait, tick)
	got := b.lastOp()
	assert.Equal(t, "a", got.Site)
	require.Len(t, got.Objects, 1)
	assert.Equal(t, "r1", got.Objects[0].Base().ID)
	assert.IsType(t, &state.Shape{}, got.Objects[0])
	assert.Zero(t, a.opCount(), "sender does not get its own operation back")
}

func TestHubBroadcastReachesGuests(t *testing.T) {
	host := newFakeBoard("host")
	hub, addr := startHub(t, host, WithName("tutor"))
	g := newFakeBoard("g")
	join(t, addr, g)
	require.Eventually(t, func() bool { return hub.Peers() == 1 }, wait, tick)

	hub.Broadcast(addOp("host", "r1"))
	hub.BroadcastCursor(3, 4)

	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.ops) == 1 && g.labels["host"] == "tutor"
	}, wait, tick)
	g.mu.Lock()
	assert.Equal(t, geom.Pt(3, 4), g.cursors["host"])
	g.mu.Unlock()
}

func TestLateJoinerReceivesBoard(t *testing.T) {
	host := newFakeBoard("host")
	host.sync = addOp("host", "existing")
	_, addr := startHub(t, host)

	g := newFakeBoard("g")
	join(t, addr, g)
	require.Eventually(t, func() bool { return g.opCount() == 1 }, wait, tick)
	assert.Equal(t, "existing", g.lastOp().Objects[0].Base().ID)
}

func TestGuestLeavingRemovesCursor(t *testing.T) {
	host := newFakeBoard("host")
	hub, addr := startHub(t, host)
	a, b := newFakeBoard("a"), newFakeBoard("b")
	ca := join(t, addr, a)
	join(t, addr, b)
	require.Eventually(t, func() bool { return hub.Peers() == 2 }, wait, tick)

	ca.BroadcastCursor(1, 1)
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		_, ok := b.cursors["a"]
		return ok
	}, wait, tick)
	require.NoError(t, ca.Close())

	require.Eventually(t, func() bool {
		return len(host.removedPeers()) == 1 && len(b.removedPeers()) == 1
	}, wait, tick)
	assert.Equal(t, []string{"a"}, host.removedPeers())
	assert.Equal(t, []string{"a"}, b.removedPeers())
	assert.Eventually(t, func() bool { return hub.Peers() == 1 }, wait, tick)

	select {
	case <-ca.Done():
	case <-time.After(wait):
		t.Fatal("client did not finish")
	}
}

func TestHubClosingEndsClients(t *testing.T) {
	host := newFakeBoard("host")
	hub, addr := startHub(t, host)
	g := newFakeBoard("g")
	c := join(t, addr, g)
	require.Eventually(t, func() bool { return hub.Peers() == 1 }, wait, tick)

	hub.Close()
	select {
	case <-c.Done():
	case <-time.After(wait):
		t.Fatal("client still connected")
	}
	assert.Equal(t, []string{"host"}, g.removedPeers())

	// sending after the host left neither blocks nor panics
	c.Broadcast(addOp("g", "late"))
}

func TestExportEndpoint(t *testing.T) {
	_, addr := startHub(t, newFakeBoard("host"))

	resp, err := http.Get("http://" + addr + "/export/svg")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, "exported svg", string(body))

	resp, err = http.Get("http://" + addr + "/export/bmp")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDecodeRejectsBadMessages(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"unknown type", `{"type":"draw","site":"a"}`},
		{"op without operation", `{"type":"op","site":"a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}

	m, err := decode([]byte(`{"type":"cursor","site":"a","x":1.5,"y":2}`))
	require.NoError(t, err)
	assert.Equal(t, Message{Type: MsgCursor, Site: "a", X: 1.5, Y: 2}, m)
}

func TestParseShareLink(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"tutorboard://192.168.1.20:8888", "192.168.1.20:8888", false},
		{"tutorboard://192.168.1.20:8888/", "192.168.1.20:8888", false},
		{"10.0.0.2:9000", "10.0.0.2:9000", false},
		{"tutorboard://[fe80::1]:8888", "[fe80::1]:8888", false},
		{"tutorboard://192.168.1.20", "", true},
		{"tutorboard://:8888", "", true},
		{"tutorboard://host:99999", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShareLink(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "tutorboard://10.0.0.2:8888", ShareLink("10.0.0.2", 8888))
}
