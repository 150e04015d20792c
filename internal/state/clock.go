package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Stamp orders operations across sites. Higher Lamport wins; equal Lamport
// values are broken by comparing site ids.
type Stamp struct {
	Lamport uint64 `json:"lamport"`
	Site    string `json:"site"`
}

// After reports whether s supersedes o.
func (s Stamp) After(o Stamp) bool {
	if s.Lamport != o.Lamport {
		return s.Lamport > o.Lamport
	}
	return s.Site > o.Site
}

// Clock is a Lamport clock bound to one site.
type Clock struct {
	site    string
	lamport atomic.Uint64
}

// NewClock returns a clock for site; an empty site gets a fresh uuid.
func NewClock(site string) *Clock {
	if site == "" {
		site = uuid.NewString()
	}
	return &Clock{site: site}
}

func (c *Clock) Site() string { return c.site }

// Now returns the current value without advancing.
func (c *Clock) Now() uint64 { return c.lamport.Load() }

// Tick advances the clock for a local event.
func (c *Clock) Tick() Stamp {
	return Stamp{Lamport: c.lamport.Add(1), Site: c.site}
}

// Witness merges a remote Lamport value.
func (c *Clock) Witness(remote uint64) {
	for {
		cur := c.lamport.Load()
		if remote <= cur || c.lamport.CompareAndSwap(cur, remote) {
			return
		}
	}
}
