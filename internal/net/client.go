package net

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"TutorBoard/internal/state"
)

// Client is a guest's connection to a host's Hub.
type Client struct {
	board Board
	site  string
	opts  options
	conn  *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
	done   chan struct{}
}

// Dial connects to the hub at addr, which may be a share link or host:port.
// Messages from the hub are delivered to board until the connection ends.
func Dial(ctx context.Context, addr string, board Board, opts ...Option) (*Client, error) {
	hostPort, err := ParseShareLink(addr)
	if err != nil {
		return nil, err
	}
	url := "ws://" + hostPort + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		board: board,
		site:  board.Site(),
		opts:  newOptions("client", opts),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
	}
	c.opts.log.Info("connected to host", "addr", hostPort, "site", c.site)

	go writePump(conn, c.send, c.opts.log)
	go c.readPump()
	return c, nil
}

// Done is closed when the connection to the host ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Broadcast sends a local operation to the host.
func (c *Client) Broadcast(op state.Operation) {
	c.enqueue(Message{Type: MsgOp, Site: c.site, Op: &op})
}

// BroadcastCursor sends the local pointer position to the host.
func (c *Client) BroadcastCursor(x, y float64) {
	c.enqueue(Message{Type: MsgCursor, Site: c.site, Name: c.opts.name, X: x, Y: y})
}

// Close tells the host this peer is leaving and ends the connection.
func (c *Client) Close() error {
	c.enqueue(Message{Type: MsgBye, Site: c.site})
	c.shutdown()
	return nil
}

// enqueue never blocks; messages are dropped once the buffer is full or the
// connection is gone.
func (c *Client) enqueue(m Message) {
	data, err := encode(m)
	if err != nil {
		c.opts.log.Error("send", "err", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.opts.log.Warn("send buffer full, dropping message", "type", m.Type)
	}
}

// shutdown closes the send queue; the write pump flushes it and closes the
// socket, which ends the read pump.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.shutdown()
		c.conn.Close()
		close(c.done)
		c.opts.log.Info("disconnected from host")
	}()
	readLoop(c.conn, c.opts.log, func(_ []byte, m Message) bool {
		if m.Site == c.site {
			return true
		}
		c.opts.dispatch(func() { deliver(c.board, m) })
		return true
	})
}
