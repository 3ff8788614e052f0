package harness

import (
	"fmt"
	"time"

	"github.com/roach88/pipesim/internal/compiler"
	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/logging"
	"github.com/roach88/pipesim/internal/pipeline"
	"github.com/roach88/pipesim/internal/scheduler"
	"github.com/roach88/pipesim/internal/testutil"
)

// MaxSettle bounds runs without a duration that never drain their queue.
const MaxSettle = 10 * time.Minute

// Run executes a case and returns the result.
//
// Each case runs on a fresh scene with a manual clock, a manual scheduler and
// sequential event ids. The trace is recorded from the first tick, so the
// RESET changes of loading the scenario are not part of it.
func Run(c *Case) (*Result, error) {
	topo, err := LoadTopology(c.Pipeline)
	if err != nil {
		return nil, err
	}

	clock := testutil.NewManualClock(0)
	sched := scheduler.NewManual()
	scene, err := pipeline.Build(topo, pipeline.BuildOptions{
		Clock:        clock,
		Scheduler:    sched,
		Logger:       logging.Discard(),
		IDs:          engine.NewSequentialGenerator("evt"),
		InitialSpeed: c.Speed,
	})
	if err != nil {
		return nil, err
	}

	scenario, err := c.resolveScenario(topo)
	if err != nil {
		return nil, err
	}
	if _, err := scene.Engine.LoadScenario(scenario); err != nil {
		return nil, err
	}

	result := NewResult()
	unsubscribe := scene.Engine.On(engine.NotifyAll, result.record)
	defer unsubscribe()

	if err := scene.Start(); err != nil {
		return nil, fmt.Errorf("start scene: %w", err)
	}
	if err := play(scene, clock, sched, c, scenario); err != nil {
		scene.Stop()
		return nil, err
	}
	scene.Stop()

	for id, state := range scene.States() {
		result.Final[id] = string(state)
	}
	result.Ticks = sched.Ticks()

	for _, msg := range EvaluateAssertions(result, c.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// LoadTopology compiles the CUE pipeline in dir, or returns the built-in
// topology when dir is empty.
func LoadTopology(dir string) (*pipeline.Topology, error) {
	if dir == "" {
		return pipeline.Default(), nil
	}
	topo, err := compiler.CompileDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load pipeline %s: %w", dir, err)
	}
	return topo, nil
}

// play ticks the scheduler. With a duration it runs [0, duration]; without
// one it runs until the last scripted event has passed and the queue is
// empty.
func play(scene *pipeline.Scene, clock *testutil.ManualClock, sched *scheduler.Manual, c *Case, s engine.Scenario) error {
	step := c.Step()

	duration := time.Duration(c.DurationMS) * time.Millisecond
	if duration == 0 {
		duration = s.Duration
	}
	if duration > 0 {
		sched.Run(0, duration, step, clock.Set)
		return nil
	}

	end := s.End()
	for now := time.Duration(0); ; now += step {
		if now > MaxSettle {
			return fmt.Errorf("case %q did not settle within %s (%d events pending)",
				c.Name, MaxSettle, scene.Engine.QueueLen())
		}
		clock.Set(now)
		sched.Tick(now)
		if now >= end && scene.Engine.QueueLen() == 0 {
			return nil
		}
	}
}
