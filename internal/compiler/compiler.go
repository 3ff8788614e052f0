// Package compiler compiles CUE pipeline definitions into pipeline.Topology
// values.
//
// A definition file declares a top-level `pipeline` struct that unifies with
// the embedded #Pipeline schema:
//
//	pipeline: {
//		name: "default"
//		families: actor: builtin: true
//		families: gate: {
//			initial: "OPEN"
//			transitions: [{from: "OPEN", action: "CLOSE", to: "CLOSED"}]
//		}
//		components: [{id: "actor-1", family: "actor", x: 2, y: 2}]
//		chains: [{family: "actor", state: "DELIVERING", rules: [
//			{delay_ms: 200, target: "pipe-1", action: "START_FLOW"},
//		]}]
//		scenarios: [{name: "one", events: [{component: "actor-1", action: "START_RUN"}]}]
//	}
//
// Custom families get the universal ERROR and RESET transitions added.
package compiler

import (
	_ "embed"
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
	"github.com/roach88/pipesim/internal/pipeline"
)

//go:embed schema.cue
var schemaSource string

// RootField is the top-level field holding the pipeline definition.
const RootField = "pipeline"

// CompileString compiles CUE source into a Topology. filename is used in
// error positions.
//
// The Compile functions check shape only; run pipeline.Validate for
// cross-references.
func CompileString(src, filename string) (*pipeline.Topology, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileValue(v)
}

// CompileDir loads the CUE package in dir and compiles it.
func CompileDir(dir string) (*pipeline.Topology, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileValue(v)
}

// CompileValue compiles a CUE value holding a top-level pipeline field.
func CompileValue(root cue.Value) (*pipeline.Topology, error) {
	v := root.LookupPath(cue.ParsePath(RootField))
	if !v.Exists() {
		return nil, &CompileError{
			Field:   RootField,
			Message: "pipeline is required",
			Pos:     root.Pos(),
		}
	}

	schema := root.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v = schema.LookupPath(cue.ParsePath("#Pipeline")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	topo, err := compilePipeline(v)
	if err != nil {
		return nil, err
	}
	return topo, nil
}

func compilePipeline(v cue.Value) (*pipeline.Topology, error) {
	topo := &pipeline.Topology{
		Families:  make(map[string]*fsm.Definition),
		Chains:    engine.ChainTable{},
		SpeedMin:  engine.DefaultSpeedMin,
		SpeedMax:  engine.DefaultSpeedMax,
		Styles:    pipeline.DefaultStyles(),
		Sheets:    pipeline.DefaultSheets(),
		Particles: pipeline.DefaultParticles(),
	}

	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	topo.Name = name

	if speed := v.LookupPath(cue.ParsePath("speed")); speed.Exists() {
		if topo.SpeedMin, err = speed.LookupPath(cue.ParsePath("min")).Float64(); err != nil {
			return nil, formatCUEError(err)
		}
		if topo.SpeedMax, err = speed.LookupPath(cue.ParsePath("max")).Float64(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if err := parseFamilies(v.LookupPath(cue.ParsePath("families")), topo); err != nil {
		return nil, err
	}
	if topo.Components, err = parseComponents(v.LookupPath(cue.ParsePath("components"))); err != nil {
		return nil, err
	}
	if err := parseChains(v.LookupPath(cue.ParsePath("chains")), topo.Chains); err != nil {
		return nil, err
	}
	if topo.Scenarios, err = parseScenarios(v.LookupPath(cue.ParsePath("scenarios"))); err != nil {
		return nil, err
	}
	return topo, nil
}

// parseFamilies builds a Definition per family. Builtin families take the
// stock table of the same name.
func parseFamilies(v cue.Value, topo *pipeline.Topology) error {
	builtins := fsm.Families()

	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		fv := iter.Value()

		builtin, err := fv.LookupPath(cue.ParsePath("builtin")).Bool()
		if err != nil {
			return formatCUEError(err)
		}
		if builtin {
			def, ok := builtins[name]
			if !ok {
				return &CompileError{
					Field:   "families." + name,
					Message: fmt.Sprintf("no builtin family %q", name),
					Pos:     fv.Pos(),
				}
			}
			topo.Families[name] = def
			continue
		}

		def, err := parseFamily(name, fv)
		if err != nil {
			return err
		}
		topo.Families[name] = def
	}
	return nil
}

func parseFamily(name string, v cue.Value) (*fsm.Definition, error) {
	field := "families." + name

	initialVal := v.LookupPath(cue.ParsePath("initial"))
	if !initialVal.Exists() {
		return nil, &CompileError{Field: field + ".initial", Message: "initial is required for custom families", Pos: v.Pos()}
	}
	initial, err := initialVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	b := fsm.NewBuilder(name, fsm.State(initial))

	iter, err := v.LookupPath(cue.ParsePath("transitions")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	count := 0
	for iter.Next() {
		tv := iter.Value()
		from, to, action, err := parseTransition(tv)
		if err != nil {
			return nil, err
		}
		b.Transition(fsm.State(from), fsm.Action(action), fsm.State(to))
		count++
	}
	if count == 0 {
		return nil, &CompileError{Field: field + ".transitions", Message: "at least one transition is required", Pos: v.Pos()}
	}

	animated, err := stringList(v.LookupPath(cue.ParsePath("animated")))
	if err != nil {
		return nil, err
	}
	for _, s := range animated {
		b.Animated(fsm.State(s))
	}

	def, err := b.Build()
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return def, nil
}

func parseTransition(v cue.Value) (from, to, action string, err error) {
	if from, err = v.LookupPath(cue.ParsePath("from")).String(); err != nil {
		return "", "", "", formatCUEError(err)
	}
	if to, err = v.LookupPath(cue.ParsePath("to")).String(); err != nil {
		return "", "", "", formatCUEError(err)
	}
	if action, err = v.LookupPath(cue.ParsePath("action")).String(); err != nil {
		return "", "", "", formatCUEError(err)
	}
	return from, to, action, nil
}

func parseComponents(v cue.Value) ([]pipeline.ComponentSpec, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []pipeline.ComponentSpec
	for iter.Next() {
		cv := iter.Value()
		var spec pipeline.ComponentSpec
		if spec.ID, err = cv.LookupPath(cue.ParsePath("id")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if spec.Family, err = cv.LookupPath(cue.ParsePath("family")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if spec.X, err = cv.LookupPath(cue.ParsePath("x")).Float64(); err != nil {
			return nil, formatCUEError(err)
		}
		if spec.Y, err = cv.LookupPath(cue.ParsePath("y")).Float64(); err != nil {
			return nil, formatCUEError(err)
		}
		z, err := cv.LookupPath(cue.ParsePath("z")).Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Z = int(z)
		out = append(out, spec)
	}
	return out, nil
}

func parseChains(v cue.Value, table engine.ChainTable) error {
	iter, err := v.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		cv := iter.Value()
		family, err := cv.LookupPath(cue.ParsePath("family")).String()
		if err != nil {
			return formatCUEError(err)
		}
		state, err := cv.LookupPath(cue.ParsePath("state")).String()
		if err != nil {
			return formatCUEError(err)
		}

		rules, err := cv.LookupPath(cue.ParsePath("rules")).List()
		if err != nil {
			return formatCUEError(err)
		}
		for rules.Next() {
			rule, err := parseRule(rules.Value())
			if err != nil {
				return err
			}
			table.Add(family, fsm.State(state), rule)
		}
	}
	return nil
}

func parseRule(v cue.Value) (engine.ChainRule, error) {
	var rule engine.ChainRule

	delay, err := millis(v.LookupPath(cue.ParsePath("delay_ms")))
	if err != nil {
		return rule, err
	}
	rule.Delay = delay

	if rule.Target, err = v.LookupPath(cue.ParsePath("target")).String(); err != nil {
		return rule, formatCUEError(err)
	}
	action, err := v.LookupPath(cue.ParsePath("action")).String()
	if err != nil {
		return rule, formatCUEError(err)
	}
	rule.Action = fsm.Action(action)

	if rule.Payload, err = payload(v); err != nil {
		return rule, err
	}
	return rule, nil
}

func parseScenarios(v cue.Value) ([]engine.Scenario, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []engine.Scenario
	for iter.Next() {
		sv := iter.Value()
		var s engine.Scenario
		if s.Name, err = sv.LookupPath(cue.ParsePath("name")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if s.Description, err = sv.LookupPath(cue.ParsePath("description")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if dv := sv.LookupPath(cue.ParsePath("duration_ms")); dv.Exists() {
			if s.Duration, err = millis(dv); err != nil {
				return nil, err
			}
		}

		events, err := sv.LookupPath(cue.ParsePath("events")).List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for events.Next() {
			ev, err := parseEvent(events.Value())
			if err != nil {
				return nil, err
			}
			s.Events = append(s.Events, ev)
		}
		if s.Duration == 0 {
			s.Duration = s.End()
		}
		out = append(out, s)
	}
	return out, nil
}

func parseEvent(v cue.Value) (engine.ScenarioEvent, error) {
	var ev engine.ScenarioEvent

	delay, err := millis(v.LookupPath(cue.ParsePath("delay_ms")))
	if err != nil {
		return ev, err
	}
	ev.Delay = delay

	if ev.Component, err = v.LookupPath(cue.ParsePath("component")).String(); err != nil {
		return ev, formatCUEError(err)
	}
	action, err := v.LookupPath(cue.ParsePath("action")).String()
	if err != nil {
		return ev, formatCUEError(err)
	}
	ev.Action = fsm.Action(action)

	if ev.Payload, err = payload(v); err != nil {
		return ev, err
	}
	return ev, nil
}

func millis(v cue.Value) (time.Duration, error) {
	n, err := v.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func payload(v cue.Value) (fsm.Payload, error) {
	pv := v.LookupPath(cue.ParsePath("payload"))
	if !pv.Exists() {
		return nil, nil
	}
	var p map[string]any
	if err := pv.Decode(&p); err != nil {
		return nil, &CompileError{Field: "payload", Message: err.Error(), Pos: pv.Pos()}
	}
	return fsm.Payload(p), nil
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
