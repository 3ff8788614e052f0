package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRun_NotFound(t *testing.T) {
	st := createTestStore(t)

	_, err := st.GetRun(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestListRuns_NewestFirst(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "old", fixedTime)
	createTestRun(t, st, "new", fixedTime.Add(time.Hour))
	createTestRun(t, st, "mid", fixedTime.Add(time.Minute))

	runs, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, "old", runs[2].ID)
	assert.Equal(t, fixedTime.UnixMilli(), runs[2].StartedAt.UnixMilli())

	limited, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListRuns_Empty(t *testing.T) {
	st := createTestStore(t)

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestReadRunEvents_OrderedBySeq(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)

	// Inserted out of order; seq decides.
	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, st.AppendEvent(ctx, Event{
			RunID: "run-1",
			Seq:   seq,
			At:    time.Duration(100-seq) * ms,
			Type:  "stateChange",
		}))
	}

	events, err := st.ReadRunEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestReadRunEvents_Empty(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)

	events, err := st.ReadRunEvents(ctx, "run-1")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestReadComponentEvents(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)

	for i, comp := range []string{"actor-1", "pipe-1", "actor-1"} {
		require.NoError(t, st.AppendEvent(ctx, Event{
			RunID:     "run-1",
			Seq:       int64(i + 1),
			Type:      "stateChange",
			Component: comp,
		}))
	}

	events, err := st.ReadComponentEvents(ctx, "run-1", "actor-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(3), events[1].Seq)
}
