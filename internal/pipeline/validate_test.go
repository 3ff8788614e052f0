package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Topology)
		want   []string
	}{
		{
			name:   "no families",
			mutate: func(tp *Topology) { tp.Families = nil; tp.Components = nil; tp.Chains = nil; tp.Scenarios = nil },
			want:   []string{ErrNoFamilies, ErrNoComponents},
		},
		{
			name: "family key mismatch",
			mutate: func(tp *Topology) {
				tp.Families["mover"] = fsm.Actor()
			},
			want: []string{ErrFamilyMismatch},
		},
		{
			name: "empty and duplicate component ids",
			mutate: func(tp *Topology) {
				tp.Components = append(tp.Components,
					ComponentSpec{Family: fsm.FamilySink},
					ComponentSpec{ID: SinkID, Family: fsm.FamilySink},
				)
			},
			want: []string{ErrComponentIDEmpty, ErrDuplicateComponent},
		},
		{
			name: "unknown component family",
			mutate: func(tp *Topology) {
				tp.Components = append(tp.Components, ComponentSpec{ID: "x", Family: "robot"})
			},
			want: []string{ErrUnknownFamily},
		},
		{
			name: "chain family and state",
			mutate: func(tp *Topology) {
				tp.Chains.Add("robot", "IDLE", engine.ChainRule{Action: "GO"})
				tp.Chains.Add(fsm.FamilySink, "FULL", engine.ChainRule{Action: fsm.ActionReady})
			},
			want: []string{ErrChainFamily, ErrChainState},
		},
		{
			name: "chain target and action",
			mutate: func(tp *Topology) {
				tp.Chains.Add(fsm.FamilySink, fsm.SinkStored,
					engine.ChainRule{Target: "pipe-9", Action: fsm.ActionStartFlow},
					engine.ChainRule{Target: ActorID, Action: fsm.ActionStartFlow},
					engine.ChainRule{Target: engine.SelfTarget, Action: fsm.ActionStartFlow, Delay: -1},
				)
			},
			want: []string{ErrChainTarget, ErrChainAction, ErrChainDelay, ErrChainAction},
		},
		{
			name:   "speed range",
			mutate: func(tp *Topology) { tp.SpeedMin, tp.SpeedMax = 2, 1 },
			want:   []string{ErrSpeedRange},
		},
		{
			name: "scenarios",
			mutate: func(tp *Topology) {
				tp.Scenarios = append(tp.Scenarios,
					engine.Scenario{},
					engine.Scenario{Name: "single-delivery"},
					engine.Scenario{Name: "bad", Events: []engine.ScenarioEvent{
						{Component: "ghost", Action: fsm.ActionStartRun},
						{Component: ActorID, Action: fsm.ActionStartFlow},
					}},
				)
			},
			want: []string{ErrScenarioInvalid, ErrDuplicateScenario, ErrScenarioTarget, ErrScenarioAction},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := Default()
			tt.mutate(tp)
			assert.Equal(t, tt.want, codes(Validate(tp)))
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "components[0].id", Message: "id is required", Code: ErrComponentIDEmpty}
	assert.Equal(t, "[E111] components[0].id: id is required", err.Error())
}

func TestTopology_EngineConfig(t *testing.T) {
	tp := Default()
	tp.SpeedMin, tp.SpeedMax = 0.5, 2

	cfg := tp.EngineConfig()
	assert.Equal(t, 0.5, cfg.SpeedMin)
	assert.Equal(t, 2.0, cfg.SpeedMax)
	assert.Len(t, cfg.Chains.Keys(), len(tp.Chains.Keys()))

	_, err := tp.NewMachine("robot")
	assert.Error(t, err)
}
