package clock

import (
	"sync"
	"time"

	"p2pcrypto/application"
)

// FakeClock is a manually-advanced application.Clock for deterministic
// tests of handshake timeouts, liveness windows, and congestion ticks.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a FakeClock starting at t.
func NewFake(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

var _ application.Clock = (*FakeClock)(nil)
