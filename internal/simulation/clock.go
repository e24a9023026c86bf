// Package simulation drives game time: a clock that only moves when the
// simulation steps, and a ticker that steps it at a fixed interval.
package simulation

import (
	"fmt"
	"sync"
	"time"
)

// Clock is simulation time. It satisfies weapon.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewClock returns a clock reading start.
func NewClock(start time.Duration) *Clock {
	return &Clock{now: start}
}

// Now returns the current simulation time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
//
// Precondition: d >= 0.
func (c *Clock) Advance(d time.Duration) time.Duration {
	if d < 0 {
		panic(fmt.Sprintf("simulation.Clock.Advance: negative step %v", d))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

// Set moves the clock to t, used when restoring a saved session.
func (c *Clock) Set(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
