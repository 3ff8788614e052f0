package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Loop is a real-time Scheduler. Run ticks every interval and invokes the
// registered callbacks on the goroutine that called Run, so callbacks never
// run concurrently with each other.
type Loop struct {
	interval time.Duration
	now      func() time.Duration

	mu  sync.Mutex
	reg registry

	logger *slog.Logger
}

// DefaultInterval is roughly one 60 Hz animation frame.
const DefaultInterval = 16 * time.Millisecond

// NewLoop creates a Loop ticking every interval. now supplies the timestamp
// passed to callbacks and should be the same time source the engine uses.
func NewLoop(interval time.Duration, now func() time.Duration, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{interval: interval, now: now, logger: logger}
}

// Every implements Scheduler. Safe to call from any goroutine; registration
// takes effect on the next tick.
func (l *Loop) Every(fn Func) func() {
	l.mu.Lock()
	s := l.reg.add(fn)
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		l.reg.remove(s)
		l.mu.Unlock()
	}
}

// Interval returns the tick interval.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Run blocks, ticking until ctx is cancelled. Returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Debug("scheduler loop started", "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("scheduler loop stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			l.mu.Lock()
			subs := l.reg.snapshot()
			l.mu.Unlock()

			dispatch(subs, l.now())
		}
	}
}
