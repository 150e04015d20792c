// Package net carries board operations and cursors between peers on a LAN.
// The host runs a Hub that relays every message to the other peers; guests
// connect with a Client. Both satisfy board.Collaborator.
package net

import (
	"encoding/json"
	"fmt"

	"TutorBoard/internal/export"
	"TutorBoard/internal/state"
)

type MessageType string

const (
	MsgOp     MessageType = "op"
	MsgCursor MessageType = "cursor"
	MsgBye    MessageType = "bye"
)

// Message is the JSON envelope exchanged over the websocket.
type Message struct {
	Type MessageType      `json:"type"`
	Site string           `json:"site"`
	Name string           `json:"name,omitempty"`
	Op   *state.Operation `json:"op,omitempty"`
	X    float64          `json:"x,omitempty"`
	Y    float64          `json:"y,omitempty"`
}

func encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type, err)
	}
	return data, nil
}

func decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	switch m.Type {
	case MsgOp:
		if m.Op == nil {
			return Message{}, fmt.Errorf("decode message: op message without operation")
		}
	case MsgCursor, MsgBye:
	default:
		return Message{}, fmt.Errorf("decode message: unknown type %q", m.Type)
	}
	return m, nil
}

// Board is the part of the board controller the network side drives. Its
// methods are only called through the dispatcher.
type Board interface {
	ApplyRemoteOperation(op state.Operation) state.Applied
	UpdateRemoteCursor(peer string, x, y float64)
	SetPeerLabel(peer, label string)
	RemovePeer(peer string)
	SyncOperation() state.Operation
	ExportAs(format export.Format) ([]byte, error)
	Site() string
}

// Dispatcher runs fn on the goroutine that owns the board.
type Dispatcher func(fn func())

// wait runs fn through d and blocks until it has run.
func (d Dispatcher) wait(fn func()) {
	done := make(chan struct{})
	d(func() {
		defer close(done)
		fn()
	})
	<-done
}

// deliver hands a peer's message to the local board.
func deliver(b Board, m Message) {
	switch m.Type {
	case MsgOp:
		b.ApplyRemoteOperation(*m.Op)
	case MsgCursor:
		b.UpdateRemoteCursor(m.Site, m.X, m.Y)
		if m.Name != "" {
			b.SetPeerLabel(m.Site, m.Name)
		}
	case MsgBye:
		b.RemovePeer(m.Site)
	}
}
