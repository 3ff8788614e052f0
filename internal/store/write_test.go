package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctx       = context.Background()
	fixedTime = time.UnixMilli(1_700_000_000_000)
)

func TestCreateRun_GeneratesID(t *testing.T) {
	st := createTestStore(t)

	run, err := st.CreateRun(ctx, Run{Pipeline: "default", Speed: 2})
	require.NoError(t, err)

	parsed, err := uuid.Parse(run.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Equal(t, StatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "default", got.Pipeline)
	assert.Equal(t, 2.0, got.Speed)
	assert.Nil(t, got.FinishedAt)
}

func TestCreateRun_RequiresPipeline(t *testing.T) {
	st := createTestStore(t)

	_, err := st.CreateRun(ctx, Run{ID: "x"})
	assert.Error(t, err)
}

func TestCreateRun_DuplicateID(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)

	_, err := st.CreateRun(ctx, Run{ID: "run-1", Pipeline: "default"})
	assert.Error(t, err)
}

func TestAppendEvent_RoundTrip(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)

	require.NoError(t, st.AppendEvent(ctx, Event{
		RunID:     "run-1",
		Seq:       1,
		At:        250 * ms,
		Type:      "stateChange",
		Component: "actor-1",
		From:      "IDLE",
		To:        "RUNNING",
		Action:    "START_RUN",
		Payload:   map[string]any{"cause": "sensor-1", "count": 3},
	}))

	events, err := st.ReadRunEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, int64(1), ev.Seq)
	assert.Equal(t, 250*ms, ev.At)
	assert.Equal(t, "actor-1", ev.Component)
	assert.Equal(t, "IDLE", ev.From)
	assert.Equal(t, "RUNNING", ev.To)
	assert.Equal(t, "START_RUN", ev.Action)
	assert.Equal(t, "sensor-1", ev.Payload["cause"])
	assert.Equal(t, json.Number("3"), ev.Payload["count"])
}

func TestAppendEvent_StoresCanonicalPayload(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)

	require.NoError(t, st.AppendEvent(ctx, Event{
		RunID:   "run-1",
		Seq:     1,
		Type:    "stateChange",
		Payload: map[string]any{"z": 1, "a": "x"},
	}))
	require.NoError(t, st.AppendEvent(ctx, Event{RunID: "run-1", Seq: 2, Type: "simulationStarted"}))

	rows, err := st.DB().Query(`SELECT payload FROM events WHERE run_id = ? ORDER BY seq`, "run-1")
	require.NoError(t, err)
	defer rows.Close()

	var payloads []string
	for rows.Next() {
		var p string
		require.NoError(t, rows.Scan(&p))
		payloads = append(payloads, p)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{`{"a":"x","z":1}`, `{}`}, payloads)
}

func TestAppendEvent_DuplicateSeq(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)

	ev := Event{RunID: "run-1", Seq: 1, Type: "simulationStarted"}
	require.NoError(t, st.AppendEvent(ctx, ev))
	assert.Error(t, st.AppendEvent(ctx, ev))
}

func TestAppendEvent_UnknownRun(t *testing.T) {
	st := createTestStore(t)

	err := st.AppendEvent(ctx, Event{RunID: "ghost", Seq: 1, Type: "simulationStarted"})
	assert.Error(t, err, "foreign key should reject events for unknown runs")
}

func TestAppendEvent_RejectsNonFinitePayload(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)

	err := st.AppendEvent(ctx, Event{RunID: "run-1", Seq: 1, Type: "x", Payload: map[string]any{"v": math.NaN()}})
	assert.Error(t, err)
}

func TestFinishRun(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)

	require.NoError(t, st.FinishRun(ctx, "run-1", StatusComplete, "abc123"))

	run, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, run.Status)
	assert.Equal(t, "abc123", run.TraceHash)
	require.NotNil(t, run.FinishedAt)
}

func TestFinishRun_Unknown(t *testing.T) {
	st := createTestStore(t)

	err := st.FinishRun(ctx, "ghost", StatusComplete, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteRun_CascadesEvents(t *testing.T) {
	st := createTestStore(t)
	createTestRun(t, st, "run-1", fixedTime)
	require.NoError(t, st.AppendEvent(ctx, Event{RunID: "run-1", Seq: 1, Type: "simulationStarted"}))

	require.NoError(t, st.DeleteRun(ctx, "run-1"))

	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count))
	assert.Zero(t, count)

	_, err := st.GetRun(ctx, "run-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
