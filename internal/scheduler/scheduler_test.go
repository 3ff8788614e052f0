package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_TickInvokesInRegistrationOrder(t *testing.T) {
	m := NewManual()
	var calls []string

	m.Every(func(time.Duration) { calls = append(calls, "a") })
	m.Every(func(time.Duration) { calls = append(calls, "b") })

	m.Tick(0)
	m.Tick(time.Millisecond)

	assert.Equal(t, []string{"a", "b", "a", "b"}, calls)
	assert.Equal(t, 2, m.Ticks())
}

func TestManual_PassesNow(t *testing.T) {
	m := NewManual()
	var seen []time.Duration
	m.Every(func(now time.Duration) { seen = append(seen, now) })

	m.Tick(5 * time.Millisecond)
	m.Tick(21 * time.Millisecond)

	assert.Equal(t, []time.Duration{5 * time.Millisecond, 21 * time.Millisecond}, seen)
}

func TestManual_CancelRemovesExactlyOne(t *testing.T) {
	m := NewManual()
	var a, b int

	cancelA := m.Every(func(time.Duration) { a++ })
	m.Every(func(time.Duration) { b++ })
	require.Equal(t, 2, m.Active())

	cancelA()
	cancelA() // no-op
	assert.Equal(t, 1, m.Active())

	m.Tick(0)
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}

func TestManual_CancelDuringTickSkipsLaterCallback(t *testing.T) {
	m := NewManual()
	var second int
	var cancelSecond func()

	m.Every(func(time.Duration) { cancelSecond() })
	cancelSecond = m.Every(func(time.Duration) { second++ })

	m.Tick(0)

	assert.Equal(t, 0, second)
	assert.Equal(t, 1, m.Active())
}

func TestManual_RegisterDuringTickTakesEffectNextTick(t *testing.T) {
	m := NewManual()
	var late int

	m.Every(func(time.Duration) {
		if late == 0 && m.Active() == 1 {
			m.Every(func(time.Duration) { late++ })
		}
	})

	m.Tick(0)
	assert.Equal(t, 0, late)

	m.Tick(1)
	assert.Equal(t, 1, late)
}

func TestManual_RunInclusiveRange(t *testing.T) {
	m := NewManual()
	var ticks []time.Duration
	var befores int
	m.Every(func(now time.Duration) { ticks = append(ticks, now) })

	m.Run(0, 30*time.Millisecond, 10*time.Millisecond, func(time.Duration) { befores++ })

	assert.Equal(t, []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, ticks)
	assert.Equal(t, 4, befores)
}

func TestManual_RunRejectsNonPositiveStep(t *testing.T) {
	m := NewManual()
	m.Run(0, time.Second, 0, nil)
	assert.Equal(t, 0, m.Ticks())
}

func TestLoop_DefaultInterval(t *testing.T) {
	l := NewLoop(0, func() time.Duration { return 0 }, nil)
	assert.Equal(t, DefaultInterval, l.Interval())
}

func TestLoop_RunTicksUntilCancelled(t *testing.T) {
	start := time.Now()
	l := NewLoop(time.Millisecond, func() time.Duration { return time.Since(start) }, nil)

	var count atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	l.Every(func(time.Duration) {
		if count.Add(1) >= 3 {
			cancel()
		}
	})

	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, count.Load(), int64(3))
}

func TestLoop_CancelledCallbackNotInvoked(t *testing.T) {
	l := NewLoop(time.Millisecond, func() time.Duration { return 0 }, nil)

	var cancelled atomic.Int64
	stop := l.Every(func(time.Duration) { cancelled.Add(1) })
	stop()

	var live atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	l.Every(func(time.Duration) {
		if live.Add(1) >= 2 {
			cancel()
		}
	})

	require.ErrorIs(t, l.Run(ctx), context.Canceled)
	assert.Equal(t, int64(0), cancelled.Load())
}
