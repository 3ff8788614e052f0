package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
	"github.com/roach88/pipesim/internal/render"
	"github.com/roach88/pipesim/internal/scheduler"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// Clock is the engine time source. Required.
	Clock engine.TimeSource

	// Scheduler drives both the engine and the renderer. May be nil when the
	// host calls Step and Tick itself.
	Scheduler scheduler.Scheduler

	// Surface enables the renderer. Nil builds a headless scene.
	Surface   render.Surface
	TargetFPS int

	Logger       *slog.Logger
	IDs          engine.IDGenerator
	HistoryLimit int
	InitialSpeed float64
}

// Scene is an engine with every topology component registered, optionally
// bound to a renderer.
type Scene struct {
	Topology *Topology
	Engine   *engine.Engine
	Renderer *render.Renderer
	Binders  map[string]*render.Binder
}

// Build validates t and wires a Scene from it.
func Build(t *Topology, opts BuildOptions) (*Scene, error) {
	if opts.Clock == nil {
		return nil, errors.New("build scene: clock is required")
	}
	if errs := Validate(t); len(errs) > 0 {
		return nil, fmt.Errorf("build scene %q: %w", t.Name, errs[0])
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := t.EngineConfig()
	if opts.InitialSpeed > 0 {
		cfg.InitialSpeed = opts.InitialSpeed
	}
	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Scheduler != nil {
		engineOpts = append(engineOpts, engine.WithScheduler(opts.Scheduler))
	}
	if opts.IDs != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDs))
	}

	scene := &Scene{
		Topology: t,
		Engine:   engine.New(cfg, opts.Clock, engineOpts...),
		Binders:  make(map[string]*render.Binder),
	}

	if opts.Surface != nil {
		renderOpts := []render.Option{render.WithLogger(logger), render.WithSheets(t.Sheets...)}
		if opts.TargetFPS > 0 {
			renderOpts = append(renderOpts, render.WithTargetFPS(opts.TargetFPS))
		}
		scene.Renderer = render.NewRenderer(opts.Surface, opts.Scheduler, renderOpts...)
	}

	machineOpts := []fsm.Option{fsm.WithLogger(logger)}
	if opts.HistoryLimit > 0 {
		machineOpts = append(machineOpts, fsm.WithHistoryLimit(opts.HistoryLimit))
	}

	for _, spec := range t.Components {
		m, err := t.NewMachine(spec.Family, machineOpts...)
		if err != nil {
			return nil, fmt.Errorf("build scene: component %q: %w", spec.ID, err)
		}

		var binding any
		if scene.Renderer != nil {
			binder := scene.bind(spec, m)
			scene.Binders[spec.ID] = binder
			binding = binder
		}

		if _, err := scene.Engine.RegisterComponent(spec.ID, m, binding); err != nil {
			return nil, fmt.Errorf("build scene: %w", err)
		}
	}
	return scene, nil
}

// bind creates the component's scene object styled for its initial state.
func (s *Scene) bind(spec ComponentSpec, m *fsm.Machine) *render.Binder {
	t := s.Topology
	opts := []render.ObjectOption{render.WithZ(spec.Z), render.WithLabel(string(m.State()))}
	if style, ok := t.Styles.Lookup(spec.Family, m.State()); ok {
		speed := style.AnimationSpeed
		if !m.IsAnimating() {
			speed = 0
		}
		opts = append(opts, render.WithSheet(style.Sheet), render.WithAnimationSpeed(speed))
	}
	objectID := s.Renderer.CreateObject(spec.Family, spec.X, spec.Y, opts...)
	return render.NewBinder(s.Renderer, objectID, t.Styles, t.Particles[spec.Family]...)
}

// Start starts the engine loop and, when present, the renderer.
func (s *Scene) Start() error {
	if err := s.Engine.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	if s.Renderer != nil {
		if err := s.Renderer.Start(); err != nil {
			s.Engine.Stop()
			return fmt.Errorf("start renderer: %w", err)
		}
	}
	return nil
}

// Stop stops the engine and renderer.
func (s *Scene) Stop() {
	s.Engine.Stop()
	if s.Renderer != nil {
		s.Renderer.Stop()
	}
}

// LoadScenario loads a topology scenario by name.
func (s *Scene) LoadScenario(name string) ([]string, error) {
	sc, ok := s.Topology.Scenario(name)
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	return s.Engine.LoadScenario(sc)
}

// SetReducedMotion stops the renderer without touching the engine.
func (s *Scene) SetReducedMotion(on bool) {
	if s.Renderer != nil {
		s.Renderer.SetReducedMotion(on)
	}
}

// States returns the current state of every component keyed by id.
func (s *Scene) States() map[string]fsm.State {
	out := make(map[string]fsm.State)
	for _, c := range s.Engine.Components() {
		out[c.ID()] = c.State()
	}
	return out
}

// Destroy stops everything and releases the renderer.
func (s *Scene) Destroy() error {
	s.Stop()
	if s.Renderer != nil {
		return s.Renderer.Destroy()
	}
	return nil
}
