package testutil

import (
	"sync"

	"github.com/roach88/flux/internal/value"
)

// Calls is a recording handler for dispatcher tests.
//
// Pass c.Handle wherever a dispatcher.Handler is expected. Every call is
// recorded; the handler returns the error set with FailWith.
//
// Thread-safety: safe for concurrent use via internal mutex.
type Calls struct {
	mu       sync.Mutex
	payloads []value.Object
	err      error
}

// NewCalls creates an empty recorder.
func NewCalls() *Calls {
	return &Calls{}
}

// Handle records p and returns the configured error.
func (c *Calls) Handle(p value.Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
	return c.err
}

// FailWith makes later calls return err. A nil err restores success.
func (c *Calls) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Count returns the number of recorded calls.
func (c *Calls) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

// Payload returns the payload of call i (0-based).
// Panics if i is out of range.
func (c *Calls) Payload(i int) value.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloads[i]
}

// Last returns the most recent payload, or nil if there were no calls.
func (c *Calls) Last() value.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.payloads) == 0 {
		return nil
	}
	return c.payloads[len(c.payloads)-1]
}

// Reset forgets every recorded call. The configured error is kept.
func (c *Calls) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = nil
}
