// internal/stream/slot.go
package stream

import (
	"io"
	"sync"
)

// Slot is a process-wide output-redirection target: a single mutable
// writer slot shared by every component that emits engine progress.
// Installing a writer saves the previous one, and the returned restore
// function must run on every exit path; leaking an installed writer
// corrupts output for unrelated requests. Install/restore pairs are
// expected to nest LIFO.
type Slot struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSlot creates a slot with the given initial target, typically the
// process's real stdout.
func NewSlot(initial io.Writer) *Slot {
	return &Slot{w: initial}
}

// Install swaps the slot's target and returns a restore function that puts
// the previous target back. The caller must defer the restore immediately.
func (s *Slot) Install(w io.Writer) (restore func()) {
	s.mu.Lock()
	prev := s.w
	s.w = w
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.w = prev
		s.mu.Unlock()
	}
}

// Write forwards to the currently installed target. Writes while no target
// is installed are discarded.
func (s *Slot) Write(p []byte) (int, error) {
	s.mu.Lock()
	w := s.w
	s.mu.Unlock()
	if w == nil {
		return len(p), nil
	}
	return w.Write(p)
}
