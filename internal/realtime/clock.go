package realtime

import "sync/atomic"

// Clock tracks the highest write revision this process has seen.
//
// Revisions themselves are issued by the database inside each write
// transaction, so every process sharing one database draws from the same
// sequence. Clock is safe for concurrent use.
type Clock struct {
	rev atomic.Int64
}

// NewClockAt creates a clock that has seen revisions up to start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.rev.Store(start)
	return c
}

// Observe records rev and returns the highest revision seen. Older
// revisions never move the clock back.
func (c *Clock) Observe(rev int64) int64 {
	for {
		cur := c.rev.Load()
		if rev <= cur {
			return cur
		}
		if c.rev.CompareAndSwap(cur, rev) {
			return rev
		}
	}
}

// Current returns the highest revision seen.
func (c *Clock) Current() int64 {
	return c.rev.Load()
}
