package net

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"TutorBoard/internal/export"
	"TutorBoard/internal/state"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 32 << 20
	sendBuffer     = 256
)

type options struct {
	dispatch Dispatcher
	name     string
	log      *log.Logger
}

type Option func(*options)

// WithDispatcher routes every board call through d. Without one, calls are
// serialized by a mutex and run on the network goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) { o.dispatch = d }
}

// WithName labels this participant's cursor for the other peers.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.log = l }
}

func newOptions(prefix string, opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = log.Default().WithPrefix(prefix)
	}
	if o.dispatch == nil {
		var mu sync.Mutex
		o.dispatch = func(fn func()) {
			mu.Lock()
			defer mu.Unlock()
			fn()
		}
	}
	return o
}

// peer is one websocket connection on the hub.
type peer struct {
	conn *websocket.Conn
	send chan []byte
	addr string

	mu   sync.Mutex
	site string
}

func (p *peer) setSite(site string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.site == "" {
		p.site = site
	}
}

func (p *peer) siteID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.site
}

// Hub is the host side of a session. It relays each peer's messages to all
// other peers and delivers them to the host's board.
type Hub struct {
	board    Board
	site     string
	opts     options
	upgrader websocket.Upgrader
	router   chi.Router

	mu     sync.RWMutex
	peers  map[*peer]struct{}
	closed bool
}

func NewHub(board Board, opts ...Option) *Hub {
	h := &Hub{
		board: board,
		site:  board.Site(),
		opts:  newOptions("hub", opts),
		peers: map[*peer]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// peers on the LAN open the socket from the desktop app, not a browser
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", h.serveWS)
	r.Get("/export/{format}", h.serveExport)
	h.router = r
	return h
}

// Handler returns the hub's HTTP routes.
func (h *Hub) Handler() http.Handler { return h.router }

// ListenAndServe serves the hub on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.router, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	h.opts.log.Info("hub listening", "addr", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("hub: %w", err)
	case <-ctx.Done():
	}
	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("hub shutdown: %w", err)
	}
	return nil
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Broadcast sends a local operation to every peer.
func (h *Hub) Broadcast(op state.Operation) {
	h.send(Message{Type: MsgOp, Site: h.site, Op: &op}, nil)
}

// BroadcastCursor sends the host's pointer position to every peer.
func (h *Hub) BroadcastCursor(x, y float64) {
	h.send(Message{Type: MsgCursor, Site: h.site, Name: h.opts.name, X: x, Y: y}, nil)
}

// Close says goodbye to every peer and drops the connections.
func (h *Hub) Close() {
	h.send(Message{Type: MsgBye, Site: h.site}, nil)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for p := range h.peers {
		close(p.send)
		delete(h.peers, p)
	}
}

func (h *Hub) send(m Message, except *peer) {
	data, err := encode(m)
	if err != nil {
		h.opts.log.Error("broadcast", "err", err)
		return
	}
	h.relay(data, except)
}

// relay queues data for every peer but except. A peer whose buffer is full
// is dropped rather than stalling the sender.
func (h *Hub) relay(data []byte, except *peer) {
	h.mu.RLock()
	var slow []*peer
	for p := range h.peers {
		if p == except {
			continue
		}
		select {
		case p.send <- data:
		default:
			slow = append(slow, p)
		}
	}
	h.mu.RUnlock()
	for _, p := range slow {
		h.opts.log.Warn("peer not keeping up, disconnecting", "addr", p.addr)
		h.drop(p)
	}
}

// queue sends data to p alone, if p is still connected.
func (h *Hub) queue(p *peer, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.peers[p]; !ok {
		return
	}
	select {
	case p.send <- data:
	default:
		h.opts.log.Warn("peer send buffer full", "addr", p.addr)
	}
}

func (h *Hub) add(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.peers[p] = struct{}{}
	return true
}

// drop removes p and reports whether it was still registered.
func (h *Hub) drop(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; !ok {
		return false
	}
	delete(h.peers, p)
	close(p.send)
	return true
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.opts.log.Warn("websocket upgrade", "remote", r.RemoteAddr, "err", err)
		return
	}
	p := &peer{conn: conn, send: make(chan []byte, sendBuffer), addr: r.RemoteAddr}
	if !h.add(p) {
		conn.Close()
		return
	}
	h.opts.log.Info("peer connected", "addr", p.addr, "peers", h.Peers())

	var catchUp state.Operation
	h.opts.dispatch.wait(func() { catchUp = h.board.SyncOperation() })
	if len(catchUp.Objects) > 0 {
		if data, err := encode(Message{Type: MsgOp, Site: h.site, Op: &catchUp}); err == nil {
			h.queue(p, data)
		}
	}

	go writePump(conn, p.send, h.opts.log)
	h.readPump(p)
}

func (h *Hub) readPump(p *peer) {
	defer func() {
		p.conn.Close()
		if h.drop(p) {
			h.opts.log.Info("peer disconnected", "addr", p.addr, "site", p.siteID())
		}
		if site := p.siteID(); site != "" {
			bye := Message{Type: MsgBye, Site: site}
			h.send(bye, p)
			h.opts.dispatch(func() { deliver(h.board, bye) })
		}
	}()
	readLoop(p.conn, h.opts.log, func(data []byte, m Message) bool {
		if m.Site == "" || m.Site == h.site {
			h.opts.log.Warn("message with bad site", "addr", p.addr, "site", m.Site)
			return true
		}
		p.setSite(m.Site)
		if m.Type == MsgBye {
			return false
		}
		h.relay(data, p)
		h.opts.dispatch(func() { deliver(h.board, m) })
		return true
	})
}

func (h *Hub) serveExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go h.opts.dispatch(func() {
		data, err := h.board.ExportAs(format)
		done <- result{data, err}
	})

	select {
	case res := <-done:
		if res.err != nil {
			h.opts.log.Error("export over http", "format", format, "err", res.err)
			http.Error(w, res.err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="board.%s"`, format))
		_, _ = w.Write(res.data)
	case <-r.Context().Done():
	}
}

// writePump drains send onto conn and keeps the connection alive with
// pings. It returns when send is closed or a write fails.
func writePump(conn *websocket.Conn, send <-chan []byte, l *log.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				l.Debug("write failed", "err", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop decodes messages until the connection fails or handle returns
// false. Undecodable messages are logged and skipped.
func readLoop(conn *websocket.Conn, l *log.Logger, handle func(data []byte, m Message) bool) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.Warn("connection lost", "err", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		m, err := decode(data)
		if err != nil {
			l.Warn("dropping message", "err", err)
			continue
		}
		if !handle(data, m) {
			return
		}
	}
}
