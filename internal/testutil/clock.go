package testutil

import (
	"fmt"
	"sync"
	"time"
)

// ManualClock is a settable simulation clock for tests.
//
// It satisfies engine.TimeSource. Time only moves when the test calls Set or
// Advance, so every run is reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManualClock creates a clock reading start.
func NewManualClock(start time.Duration) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t. Moving backwards is allowed; the engine never
// assumes the clock is monotonic.
func (c *ManualClock) Set(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new reading.
func (c *ManualClock) Advance(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

// FixedIDGenerator returns ids from a fixed list, then "<fallback>-N".
//
// Implements engine.IDGenerator. Used where a test wants to name events up
// front, e.g. to cancel them by a known id.
type FixedIDGenerator struct {
	mu       sync.Mutex
	ids      []string
	fallback string
	n        int
}

// NewFixedIDGenerator creates a generator that hands out ids in order.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids, fallback: "id"}
}

// Generate returns the next id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return fmt.Sprintf("%s-%d", g.fallback, g.n)
}
