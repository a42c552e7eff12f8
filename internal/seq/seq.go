// Package seq provides a process-wide change counter. Writers bump it when
// observable state changes; observers poll Read or block on Wait to learn
// that something moved, then rescan whatever they were watching.
package seq

import (
	"sync"
	"sync/atomic"
)

// Seq is a monotonically increasing counter with wakeup support. The zero
// value is not usable; call New.
type Seq struct {
	value atomic.Uint64

	mu      sync.Mutex
	changed chan struct{}
}

func New() *Seq {
	return &Seq{changed: make(chan struct{})}
}

// Read returns the current value. Safe to call concurrently with Change.
func (s *Seq) Read() uint64 {
	return s.value.Load()
}

// Change advances the counter and wakes every pending Wait.
func (s *Seq) Change() {
	s.mu.Lock()
	s.value.Add(1)
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Wait returns a channel that is closed once the counter has moved past
// seen. If it already has, the channel is closed on return.
func (s *Seq) Wait(seen uint64) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value.Load() != seen {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.changed
}
