package engine

import (
	"sync/atomic"
	"time"
)

// TimeSource reports the current simulation time as an offset from the
// source's zero point.
type TimeSource interface {
	Now() time.Duration
}

// WallClock is a TimeSource backed by the monotonic wall clock.
type WallClock struct {
	start time.Time
}

// NewWallClock creates a WallClock whose zero point is now.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Now returns the time elapsed since the clock was created.
func (c *WallClock) Now() time.Duration {
	return time.Since(c.start)
}

// Sequence is a monotonic logical counter used to break timestamp ties.
//
// Every scheduled event is stamped with Sequence.Next(). Two events with the
// same fireAt are processed in ascending sequence order, which equals
// insertion order.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next sequence number. The first call returns 1.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
