package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtGivenTime(t *testing.T) {
	clock := NewManualClock(5 * time.Second)
	assert.Equal(t, 5*time.Second, clock.Now())
}

func TestManualClock_SetAndAdvance(t *testing.T) {
	clock := NewManualClock(0)

	clock.Set(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, clock.Now())

	got := clock.Advance(50 * time.Millisecond)
	assert.Equal(t, 150*time.Millisecond, got)
	assert.Equal(t, 150*time.Millisecond, clock.Now())

	// Backwards is allowed.
	clock.Set(10 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(0)
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, numGoroutines*time.Millisecond, clock.Now())
}

func TestFixedIDGenerator_ListThenFallback(t *testing.T) {
	gen := NewFixedIDGenerator("a", "b")

	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Equal(t, "id-3", gen.Generate())
	assert.Equal(t, "id-4", gen.Generate())
}
