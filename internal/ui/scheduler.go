package ui

import (
	"sync"

	"fyne.io/fyne/v2"
)

// FrameScheduler runs frame callbacks on fyne's main goroutine. Requests
// made while one is queued collapse into it.
type FrameScheduler struct {
	mu      sync.Mutex
	pending bool
	fn      func()
	after   func()
	do      func(func())
}

func NewFrameScheduler() *FrameScheduler {
	return &FrameScheduler{do: fyne.Do}
}

// AfterFrame sets fn to run after every frame, typically a widget refresh.
func (s *FrameScheduler) AfterFrame(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.after = fn
}

func (s *FrameScheduler) RequestFrame(fn func()) {
	s.mu.Lock()
	s.fn = fn
	if s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.mu.Unlock()
	s.do(s.run)
}

func (s *FrameScheduler) run() {
	s.mu.Lock()
	fn, after := s.fn, s.after
	s.fn, s.pending = nil, false
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	if after != nil {
		after()
	}
}
