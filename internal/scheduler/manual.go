package scheduler

import "time"

// Manual is a Scheduler advanced explicitly with Tick.
//
// Not safe for concurrent use.
type Manual struct {
	reg   registry
	ticks int
}

// NewManual creates an idle Manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// Every implements Scheduler.
func (m *Manual) Every(fn Func) func() {
	s := m.reg.add(fn)
	return func() { m.reg.remove(s) }
}

// Tick invokes every active callback once with now, in registration order.
// A callback cancelled by an earlier callback in the same tick is skipped.
func (m *Manual) Tick(now time.Duration) {
	m.ticks++
	dispatch(m.reg.snapshot(), now)
}

// Run ticks from start to end (inclusive) every step, invoking before(now)
// ahead of each tick when non-nil.
func (m *Manual) Run(start, end, step time.Duration, before func(now time.Duration)) {
	if step <= 0 {
		return
	}
	for now := start; now <= end; now += step {
		if before != nil {
			before(now)
		}
		m.Tick(now)
	}
}

// Active returns the number of registered callbacks.
func (m *Manual) Active() int {
	return len(m.reg.subs)
}

// Ticks returns how many times Tick has been called.
func (m *Manual) Ticks() int {
	return m.ticks
}
