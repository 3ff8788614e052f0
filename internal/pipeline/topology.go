package pipeline

import (
	"fmt"
	"sort"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
	"github.com/roach88/pipesim/internal/render"
)

// ComponentSpec places one component on the scene.
type ComponentSpec struct {
	ID     string
	Family string
	X, Y   float64
	Z      int
}

// Topology is a complete pipeline description.
type Topology struct {
	Name       string
	Families   map[string]*fsm.Definition
	Components []ComponentSpec
	Chains     engine.ChainTable

	SpeedMin float64
	SpeedMax float64

	Styles    render.StyleTable
	Sheets    []render.SpriteSheet
	Particles map[string][]render.ParticleRule // by family

	Scenarios []engine.Scenario
}

// Component returns the spec with the given id.
func (t *Topology) Component(id string) (ComponentSpec, bool) {
	for _, c := range t.Components {
		if c.ID == id {
			return c, true
		}
	}
	return ComponentSpec{}, false
}

// Scenario returns the named scenario.
func (t *Topology) Scenario(name string) (engine.Scenario, bool) {
	for _, s := range t.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return engine.Scenario{}, false
}

// ScenarioNames returns the scenario names in declaration order.
func (t *Topology) ScenarioNames() []string {
	names := make([]string, len(t.Scenarios))
	for i, s := range t.Scenarios {
		names[i] = s.Name
	}
	return names
}

// FamilyNames returns the family names sorted.
func (t *Topology) FamilyNames() []string {
	names := make([]string, 0, len(t.Families))
	for name := range t.Families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EngineConfig returns the engine configuration for this topology.
func (t *Topology) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Chains = t.Chains.Clone()
	if t.SpeedMin > 0 {
		cfg.SpeedMin = t.SpeedMin
	}
	if t.SpeedMax > 0 {
		cfg.SpeedMax = t.SpeedMax
	}
	return cfg
}

// NewMachine creates a fresh machine for a component of family.
func (t *Topology) NewMachine(family string, opts ...fsm.Option) (*fsm.Machine, error) {
	def, ok := t.Families[family]
	if !ok {
		return nil, fmt.Errorf("unknown family %q", family)
	}
	return fsm.New(def, opts...), nil
}
