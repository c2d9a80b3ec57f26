package dispatcher

import "sync/atomic"

// Clock is a monotonic logical counter.
//
// It numbers observer events within a dispatcher and backs token sequences.
// The zero value is ready to use; the first Next returns 1.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new value.
// Calls are linearizable: each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
