package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilies_SatisfyErrorResetConvention(t *testing.T) {
	for name, def := range Families() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, def.Validate())

			for _, s := range def.States() {
				if s == StateError || def.IsTerminal(s) {
					continue
				}
				to, ok := def.Target(s, ActionError)
				assert.True(t, ok, "state %s must accept ERROR", s)
				assert.Equal(t, StateError, to)
			}

			to, ok := def.Target(StateError, ActionReset)
			require.True(t, ok)
			assert.Equal(t, def.Initial(), to)
		})
	}
}

func TestFamilies_AreFreshInstances(t *testing.T) {
	a := Families()
	b := Families()
	assert.NotSame(t, a[FamilyActor], b[FamilyActor])
}

func TestBuilder_AddsConvention(t *testing.T) {
	def, err := NewBuilder("door", "CLOSED").
		Transition("CLOSED", "OPEN", "OPENED").
		Transition("OPENED", "CLOSE", "CLOSED").
		Animated("OPENED").
		Build()
	require.NoError(t, err)

	assert.Equal(t, []Action{"CLOSE", ActionError}, def.Actions("OPENED"))
	assert.Equal(t, []Action{ActionReset}, def.Actions(StateError))
	assert.True(t, def.IsAnimated("OPENED"))
	assert.Equal(t, []State{"OPENED"}, def.AnimatedStates())
}

func TestBuilder_TerminalStatesStayTerminal(t *testing.T) {
	def, err := NewBuilder("job", "PENDING").
		Transition("PENDING", "FINISH", "DONE").
		Build()
	require.NoError(t, err)

	assert.True(t, def.IsTerminal("DONE"))
	assert.Empty(t, def.Actions("DONE"))
	assert.Contains(t, def.States(), State("DONE"))
}

func TestBuilder_RejectsUnknownAnimatedState(t *testing.T) {
	_, err := NewBuilder("job", "PENDING").
		Transition("PENDING", "FINISH", "DONE").
		Animated("SPINNING").
		Build()
	require.Error(t, err)

	var ce *ConventionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, State("SPINNING"), ce.State)
}

func TestBuilder_RejectsEmptyInitial(t *testing.T) {
	_, err := NewBuilder("job", "").Build()
	require.Error(t, err)
}

func TestDefinition_ValidateDetectsMissingError(t *testing.T) {
	// Hand-built table bypassing the builder convention.
	def := &Definition{
		family:  "raw",
		initial: "A",
		transitions: map[State]map[Action]State{
			"A":        {"GO": "B"},
			"B":        {"BACK": "A", ActionError: StateError},
			StateError: {ActionReset: "A"},
		},
		animated: map[State]bool{},
	}

	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing ERROR")
}

func TestDefinition_ValidateDetectsMissingReset(t *testing.T) {
	def := &Definition{
		family:  "raw",
		initial: "A",
		transitions: map[State]map[Action]State{
			"A":        {"GO": "A", ActionError: StateError},
			StateError: {"RETRY": "A"},
		},
		animated: map[State]bool{},
	}

	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing RESET")
}

func TestDefinition_AcceptsAnywhere(t *testing.T) {
	def := Processor()
	assert.True(t, def.AcceptsAnywhere(ActionReady))
	assert.True(t, def.AcceptsAnywhere(ActionReset))
	assert.False(t, def.AcceptsAnywhere(ActionStartFlow))
}

func TestDefinition_DOT(t *testing.T) {
	dot := Buffer().DOT(BufferFlowing)

	assert.Contains(t, dot, `digraph "buffer"`)
	assert.Contains(t, dot, `__start -> "IDLE"`)
	assert.Contains(t, dot, `"IDLE" -> "FLOWING" [label="START_FLOW"]`)
	assert.Contains(t, dot, `"FLOWING" [label="FLOWING", fillcolor="#90ee90", shape=doublecircle]`)
	assert.Contains(t, dot, `"ERROR" -> "IDLE" [label="RESET"]`)
}

func TestMachine_DOTHighlightsCurrent(t *testing.T) {
	m := New(Sensor())
	_, err := m.Transition(ActionActivate, nil)
	require.NoError(t, err)

	assert.Contains(t, m.DOT(), `"SCANNING" [label="SCANNING", fillcolor="#90ee90", shape=doublecircle]`)
}
