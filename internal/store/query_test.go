package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipesim/internal/queryir"
)

func seedQueryRun(t *testing.T, st *Store) {
	t.Helper()
	createTestRun(t, st, "run-1", fixedTime)
	createTestRun(t, st, "run-2", fixedTime.Add(time.Second))

	events := []Event{
		{RunID: "run-1", Seq: 1, Type: "simulationStarted"},
		{RunID: "run-1", Seq: 2, At: 100 * ms, Type: "stateChange", Component: "actor-1", From: "WAITING", To: "RUNNING", Action: "START_RUN"},
		{RunID: "run-1", Seq: 3, At: 300 * ms, Type: "stateChange", Component: "pipe-1", From: "IDLE", To: "FLOWING", Action: "START_FLOW",
			Payload: map[string]any{"cause": "actor-1"}},
		{RunID: "run-1", Seq: 4, At: 400 * ms, Type: "error", Component: "ghost", Error: "unknown component"},
		{RunID: "run-2", Seq: 1, At: 100 * ms, Type: "stateChange", Component: "actor-1", From: "WAITING", To: "RUNNING", Action: "START_RUN"},
	}
	for _, ev := range events {
		require.NoError(t, st.AppendEvent(ctx, ev))
	}
}

func seqs(events []Event) []int64 {
	out := make([]int64, len(events))
	for i, ev := range events {
		out[i] = ev.Seq
	}
	return out
}

func TestQueryEvents(t *testing.T) {
	st := createTestStore(t)
	seedQueryRun(t, st)

	tests := []struct {
		name   string
		filter queryir.Predicate
		want   []int64
	}{
		{"all", nil, []int64{1, 2, 3, 4}},
		{"by type", queryir.Equals{Field: "type", Value: "stateChange"}, []int64{2, 3}},
		{"by target state", queryir.Equals{Field: "to", Value: "FLOWING"}, []int64{3}},
		{"time window", queryir.Between{Field: "at", Lo: int64(100), Hi: int64(300)}, []int64{2, 3}},
		{"open window", queryir.Between{Field: "at", Lo: int64(301)}, []int64{4}},
		{"conjunction", queryir.Conj(
			queryir.Equals{Field: "type", Value: "stateChange"},
			queryir.Between{Field: "at", Hi: int64(200)},
		), []int64{2}},
		{"no match", queryir.Equals{Field: "component", Value: "nobody"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := st.QueryEvents(ctx, "run-1", tt.filter)
			require.NoError(t, err)
			assert.NotNil(t, events)
			assert.Equal(t, tt.want, seqs(events))
			for _, ev := range events {
				assert.Equal(t, "run-1", ev.RunID)
			}
		})
	}
}

func TestQueryEvents_ReadsFullRows(t *testing.T) {
	st := createTestStore(t)
	seedQueryRun(t, st)

	events, err := st.QueryEvents(ctx, "run-1", queryir.Equals{Field: "seq", Value: int64(3)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, 300*ms, ev.At)
	assert.Equal(t, "IDLE", ev.From)
	assert.Equal(t, "START_FLOW", ev.Action)
	assert.Equal(t, map[string]any{"cause": "actor-1"}, ev.Payload)

	events, err = st.QueryEvents(ctx, "run-1", queryir.Equals{Field: "type", Value: "error"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "unknown component", events[0].Error)
}

func TestQueryEvents_UnknownField(t *testing.T) {
	st := createTestStore(t)
	_, err := st.QueryEvents(ctx, "run-1", queryir.Equals{Field: "bogus", Value: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile event query")
}

func TestEventFields(t *testing.T) {
	fields := EventFields()
	for _, f := range []string{"type", "component", "from", "to", "action", "at", "seq"} {
		assert.True(t, fields[f], f)
	}
	fields["type"] = false
	assert.True(t, EventFields()["type"], "EventFields returns a copy")
}
