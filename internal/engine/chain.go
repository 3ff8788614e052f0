package engine

import (
	"sort"
	"time"

	"github.com/roach88/pipesim/internal/fsm"
)

// SelfTarget in a ChainRule refers to the component that entered the state.
const SelfTarget = "$self"

// ChainKey identifies the trigger of a chaining rule: a component of Family
// entering State.
type ChainKey struct {
	Family string
	State  fsm.State
}

// ChainRule schedules Action on Target, Delay after the trigger.
type ChainRule struct {
	Delay   time.Duration
	Target  string
	Action  fsm.Action
	Payload fsm.Payload
}

// ChainTable is the static dependent-event mapping
// (family, newState) -> rules. Rules fire in slice order.
type ChainTable map[ChainKey][]ChainRule

// Add appends rules for (family, state) and returns the table for chaining.
func (t ChainTable) Add(family string, state fsm.State, rules ...ChainRule) ChainTable {
	k := ChainKey{Family: family, State: state}
	t[k] = append(t[k], rules...)
	return t
}

// Rules returns the rules for a component of family entering state.
func (t ChainTable) Rules(family string, state fsm.State) []ChainRule {
	return t[ChainKey{Family: family, State: state}]
}

// Keys returns the table's keys sorted by family then state.
func (t ChainTable) Keys() []ChainKey {
	keys := make([]ChainKey, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Family != keys[j].Family {
			return keys[i].Family < keys[j].Family
		}
		return keys[i].State < keys[j].State
	})
	return keys
}

// Clone returns a deep copy so callers cannot mutate an engine's table.
func (t ChainTable) Clone() ChainTable {
	out := make(ChainTable, len(t))
	for k, rules := range t {
		cp := make([]ChainRule, len(rules))
		for i, r := range rules {
			cp[i] = r
			cp[i].Payload = clonePayload(r.Payload)
		}
		out[k] = cp
	}
	return out
}

// resolve returns the concrete target id for a rule fired by source.
func (r ChainRule) resolve(source string) string {
	if r.Target == SelfTarget || r.Target == "" {
		return source
	}
	return r.Target
}

// chainPayload merges the rule payload with cause metadata.
func (r ChainRule) chainPayload(source string, state fsm.State) fsm.Payload {
	p := make(fsm.Payload, len(r.Payload)+2)
	for k, v := range r.Payload {
		p[k] = v
	}
	p["cause"] = source
	p["causeState"] = string(state)
	return p
}

func clonePayload(p fsm.Payload) fsm.Payload {
	if p == nil {
		return nil
	}
	out := make(fsm.Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
