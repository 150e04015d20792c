package board

// Scheduler runs frame callbacks at the host's display refresh. The
// controller keeps at most one request outstanding.
type Scheduler interface {
	RequestFrame(fn func())
}

// ManualScheduler queues frames until Flush. Hosts without a display loop
// and tests use it to drive rendering explicitly.
type ManualScheduler struct {
	pending []func()
}

func (s *ManualScheduler) RequestFrame(fn func()) {
	s.pending = append(s.pending, fn)
}

// Pending reports how many frames are queued.
func (s *ManualScheduler) Pending() int { return len(s.pending) }

// Flush runs the queued frames and returns how many ran.
func (s *ManualScheduler) Flush() int {
	run := s.pending
	s.pending = nil
	for _, fn := range run {
		fn()
	}
	return len(run)
}
