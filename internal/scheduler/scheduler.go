// Package scheduler provides the repeating-callback abstraction that drives
// both the simulation engine and the renderer.
//
// Manual is driven explicitly by calling Tick, which makes runs fully
// deterministic in tests and in the harness. Loop drives callbacks from a
// time.Ticker on the goroutine that calls Run.
package scheduler

import (
	"sync/atomic"
	"time"
)

// Func is invoked on every scheduler tick with the current time.
type Func func(now time.Duration)

// Scheduler invokes registered callbacks on every tick until they are
// cancelled.
type Scheduler interface {
	// Every registers fn and returns a function that cancels exactly that
	// registration. Cancelling twice is a no-op.
	Every(fn Func) (cancel func())
}

type subscription struct {
	id        uint64
	fn        Func
	cancelled atomic.Bool
}

// registry is the subscription bookkeeping shared by Manual and Loop.
type registry struct {
	subs []*subscription
	next uint64
}

func (r *registry) add(fn Func) *subscription {
	r.next++
	s := &subscription{id: r.next, fn: fn}
	r.subs = append(r.subs, s)
	return s
}

func (r *registry) remove(s *subscription) {
	s.cancelled.Store(true)
	for i, cur := range r.subs {
		if cur == s {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

// snapshot returns the current subscriptions so callbacks may register or
// cancel while a tick is being delivered.
func (r *registry) snapshot() []*subscription {
	out := make([]*subscription, len(r.subs))
	copy(out, r.subs)
	return out
}

func dispatch(subs []*subscription, now time.Duration) {
	for _, s := range subs {
		if s.cancelled.Load() {
			continue
		}
		s.fn(now)
	}
}
