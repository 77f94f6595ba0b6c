// Package testutil holds deterministic generators shared by tests and the
// scenario harness.
package testutil

import (
	"fmt"
	"sync"
)

// Sequence hands out prefix-1, prefix-2, ... in order.
//
// It satisfies realtime.KeyGenerator and can back auth.WithUIDs through
// its Next method value, so pushed keys and account ids are reproducible
// across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequence creates a sequence whose first value is prefix + "1".
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next value.
func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%d", s.prefix, s.n)
}

// Generate is Next under the realtime.KeyGenerator name.
func (s *Sequence) Generate() string {
	return s.Next()
}

// Count returns how many values have been handed out.
func (s *Sequence) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Reset restarts the sequence at prefix + "1".
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
