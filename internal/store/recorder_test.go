package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
	"github.com/roach88/pipesim/internal/logging"
	"github.com/roach88/pipesim/internal/pipeline"
	"github.com/roach88/pipesim/internal/scheduler"
	"github.com/roach88/pipesim/internal/testutil"
)

type recordedScene struct {
	scene *pipeline.Scene
	clock *testutil.ManualClock
	sched *scheduler.Manual
}

func buildScene(t *testing.T) recordedScene {
	t.Helper()
	clock := testutil.NewManualClock(0)
	sched := scheduler.NewManual()
	scene, err := pipeline.Build(pipeline.Default(), pipeline.BuildOptions{
		Clock:     clock,
		Scheduler: sched,
		Logger:    logging.Discard(),
		IDs:       engine.NewSequentialGenerator("evt"),
	})
	require.NoError(t, err)
	return recordedScene{scene: scene, clock: clock, sched: sched}
}

func countBy(events []Event, typ string) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestRecorder_SingleDelivery(t *testing.T) {
	st := createTestStore(t)
	rs := buildScene(t)

	rec, err := NewRecorder(ctx, st, rs.scene.Engine, Run{
		Pipeline: "default",
		Scenario: "single-delivery",
		Speed:    1,
	}, logging.Discard())
	require.NoError(t, err)

	_, err = rs.scene.LoadScenario("single-delivery")
	require.NoError(t, err)
	require.NoError(t, rs.scene.Start())
	rs.sched.Run(0, 6*time.Second, 10*ms, rs.clock.Set)
	rs.scene.Stop()

	hash, err := rec.Finish(ctx, StatusComplete)
	require.NoError(t, err)
	require.NoError(t, rec.Err())
	assert.Len(t, hash, 64)

	events, err := st.ReadRunEvents(ctx, rec.RunID())
	require.NoError(t, err)
	assert.Equal(t, int64(len(events)), rec.Seq())

	// Six RESET changes from loading, then the 15 changes of the delivery.
	assert.Equal(t, 21, countBy(events, string(engine.NotifyStateChange)))
	assert.Equal(t, 1, countBy(events, string(engine.NotifySimulationReset)))
	assert.Equal(t, 1, countBy(events, string(engine.NotifyScenarioLoaded)))
	assert.Equal(t, 1, countBy(events, string(engine.NotifySimulationStarted)))
	assert.Equal(t, 1, countBy(events, string(engine.NotifySimulationStopped)))
	assert.Zero(t, countBy(events, string(engine.NotifyEventScheduled)))
	assert.Zero(t, countBy(events, string(engine.NotifyEventProcessed)))

	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	last := events[len(events)-1]
	assert.Equal(t, string(engine.NotifySimulationStopped), last.Type)

	var loaded Event
	for _, ev := range events {
		if ev.Type == string(engine.NotifyScenarioLoaded) {
			loaded = ev
		}
	}
	assert.Equal(t, "single-delivery", loaded.Payload["name"])

	run, err := st.GetRun(ctx, rec.RunID())
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, run.Status)
	assert.Equal(t, hash, run.TraceHash)
}

func TestRecorder_Deterministic(t *testing.T) {
	record := func() string {
		st := createTestStore(t)
		rs := buildScene(t)
		rec, err := NewRecorder(ctx, st, rs.scene.Engine, Run{Pipeline: "default"}, logging.Discard())
		require.NoError(t, err)

		_, err = rs.scene.LoadScenario("single-delivery")
		require.NoError(t, err)
		require.NoError(t, rs.scene.Start())
		rs.sched.Run(0, 6*time.Second, 10*ms, rs.clock.Set)
		rs.scene.Stop()

		hash, err := rec.Finish(ctx, StatusComplete)
		require.NoError(t, err)
		return hash
	}

	assert.Equal(t, record(), record())
}

func TestRecorder_ErrorsAndSpeed(t *testing.T) {
	st := createTestStore(t)
	rs := buildScene(t)

	rec, err := NewRecorder(ctx, st, rs.scene.Engine, Run{Pipeline: "default"}, logging.Discard())
	require.NoError(t, err)

	rs.scene.Engine.SetSpeed(2)
	rs.scene.Engine.ScheduleEvent(0, "ghost", fsm.ActionStartRun, nil)
	require.NoError(t, rs.scene.Start())
	rs.sched.Run(0, 20*ms, 10*ms, rs.clock.Set)
	rs.scene.Stop()

	_, err = rec.Finish(ctx, StatusStopped)
	require.NoError(t, err)

	events, err := st.ReadRunEvents(ctx, rec.RunID())
	require.NoError(t, err)

	var speed, failure *Event
	for i := range events {
		switch events[i].Type {
		case string(engine.NotifySpeedChanged):
			speed = &events[i]
		case string(engine.NotifyError):
			failure = &events[i]
		}
	}
	require.NotNil(t, speed)
	assert.Equal(t, json.Number("2"), speed.Payload["new"])

	require.NotNil(t, failure)
	assert.Equal(t, "ghost", failure.Component)
	assert.Equal(t, string(fsm.ActionStartRun), failure.Action)
	assert.Contains(t, failure.Error, "ghost")
}

func TestRecorder_FinishUnsubscribes(t *testing.T) {
	st := createTestStore(t)
	rs := buildScene(t)

	rec, err := NewRecorder(ctx, st, rs.scene.Engine, Run{Pipeline: "default"}, logging.Discard())
	require.NoError(t, err)
	_, err = rec.Finish(ctx, StatusStopped)
	require.NoError(t, err)

	rs.scene.Engine.Reset()
	assert.Zero(t, rec.Seq())
}

func TestRecorder_WriteFailureMarksRunFailed(t *testing.T) {
	st := createTestStore(t)
	rs := buildScene(t)

	rec, err := NewRecorder(ctx, st, rs.scene.Engine, Run{Pipeline: "default"}, logging.Discard())
	require.NoError(t, err)

	// Seq 1 is taken so the recorder's first write collides.
	require.NoError(t, st.AppendEvent(ctx, Event{RunID: rec.RunID(), Seq: 1, Type: "external"}))
	rs.scene.Engine.Reset()
	require.Error(t, rec.Err())

	_, err = rec.Finish(ctx, StatusComplete)
	require.NoError(t, err)

	run, err := st.GetRun(ctx, rec.RunID())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
}
