package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/roach88/pipesim/internal/fsm"
	"github.com/roach88/pipesim/internal/scheduler"
)

// Speed bounds and defaults.
const (
	DefaultSpeedMin         = 0.1
	DefaultSpeedMax         = 3.0
	DefaultMaxEventsPerStep = 10000
)

// Config is the explicit engine configuration. There are no process-wide
// registries; everything the engine needs arrives here.
type Config struct {
	// Chains is the dependent-event table. Copied at construction.
	Chains ChainTable

	// SpeedMin and SpeedMax bound SetSpeed. InitialSpeed is clamped into range.
	SpeedMin     float64
	SpeedMax     float64
	InitialSpeed float64

	// MaxEventsPerStep caps how many events one Step processes before the
	// rest are deferred to the next Step.
	MaxEventsPerStep int
}

// DefaultConfig returns a Config with an empty chaining table and the default
// speed range [0.1, 3.0].
func DefaultConfig() Config {
	return Config{
		Chains:           ChainTable{},
		SpeedMin:         DefaultSpeedMin,
		SpeedMax:         DefaultSpeedMax,
		InitialSpeed:     1,
		MaxEventsPerStep: DefaultMaxEventsPerStep,
	}
}

func (c Config) normalized() Config {
	if c.SpeedMin <= 0 {
		c.SpeedMin = DefaultSpeedMin
	}
	if c.SpeedMax <= 0 {
		c.SpeedMax = DefaultSpeedMax
	}
	if c.SpeedMax < c.SpeedMin {
		c.SpeedMax = c.SpeedMin
	}
	if c.InitialSpeed == 0 {
		c.InitialSpeed = 1
	}
	if c.MaxEventsPerStep <= 0 {
		c.MaxEventsPerStep = DefaultMaxEventsPerStep
	}
	if c.Chains == nil {
		c.Chains = ChainTable{}
	} else {
		c.Chains = c.Chains.Clone()
	}
	return c
}

// Engine is the simulation engine.
//
// Not safe for concurrent use: every method must be called from the same
// logical thread that drives Step.
type Engine struct {
	cfg    Config
	clock  TimeSource
	seq    *Sequence
	ids    IDGenerator
	sched  scheduler.Scheduler
	logger *slog.Logger

	components map[string]*Component
	machines   map[*fsm.Machine]string
	queue      *eventQueue
	emitter    *emitter

	speed      float64
	running    bool
	cancelTick func()

	stepping  bool
	stepNow   time.Duration
	resetting bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIDGenerator overrides the event id generator (default UUIDv7).
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithScheduler sets the scheduler used by Start.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(e *Engine) {
		e.sched = s
	}
}

// New creates an Engine reading time from clock.
func New(cfg Config, clock TimeSource, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg.normalized(),
		clock:      clock,
		seq:        NewSequence(),
		ids:        UUIDv7Generator{},
		logger:     slog.Default(),
		components: make(map[string]*Component),
		machines:   make(map[*fsm.Machine]string),
		queue:      newEventQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.emitter = newEmitter(e.logger)
	e.speed = e.clamp(e.cfg.InitialSpeed)
	return e
}

// Now returns the engine's notion of the current time: the timestamp of the
// Step in progress, otherwise the clock.
func (e *Engine) Now() time.Duration {
	if e.stepping {
		return e.stepNow
	}
	return e.clock.Now()
}

// On subscribes h to notifications of type t (or NotifyAll) and returns a
// function that removes exactly that subscription.
func (e *Engine) On(t NotificationType, h Handler) (unsubscribe func()) {
	return e.emitter.on(t, h)
}

// Emit delivers a notification to subscribers synchronously. A panicking
// handler is logged and never propagates.
func (e *Engine) Emit(t NotificationType, data any) {
	e.emitter.emit(Notification{Type: t, At: e.Now(), Data: data})
}

// RegisterComponent binds id to machine and binding.
//
// Returns DuplicateRegistrationError if id is already registered or machine
// is already owned by another component. binding may be nil; if it implements
// StateApplier it receives a Snapshot after every state change.
func (e *Engine) RegisterComponent(id string, machine *fsm.Machine, binding any) (*Component, error) {
	if id == "" {
		return nil, fmt.Errorf("register component: id is required")
	}
	if machine == nil {
		return nil, fmt.Errorf("register component %q: machine is required", id)
	}
	if _, exists := e.components[id]; exists {
		return nil, &DuplicateRegistrationError{ComponentID: id}
	}
	if owner, shared := e.machines[machine]; shared {
		return nil, &DuplicateRegistrationError{
			ComponentID: id,
			Reason:      fmt.Sprintf("machine already owned by %q", owner),
		}
	}

	c := &Component{
		id:         id,
		machine:    machine,
		binding:    binding,
		lastUpdate: e.Now(),
	}
	c.unsubscribe = machine.OnStateChange(func(change fsm.Change) {
		e.handleStateChange(c, change)
	})

	e.components[id] = c
	e.machines[machine] = id

	e.logger.Debug("component registered", "component", id, "family", machine.Family())
	e.Emit(NotifyComponentRegistered, ComponentNotice{ComponentID: id, Family: machine.Family()})
	return c, nil
}

// UnregisterComponent removes id, detaches the engine from its machine and
// cancels pending events targeting it. Returns false if id is unknown.
func (e *Engine) UnregisterComponent(id string) bool {
	c, ok := e.components[id]
	if !ok {
		return false
	}

	c.unsubscribe()
	delete(e.components, id)
	delete(e.machines, c.machine)

	for _, ev := range e.queue.removeWhere(func(ev *ScheduledEvent) bool { return ev.ComponentID == id }) {
		e.Emit(NotifyEventCancelled, EventNotice{Event: *ev})
	}

	e.logger.Debug("component unregistered", "component", id)
	e.Emit(NotifyComponentUnregistered, ComponentNotice{ComponentID: id, Family: c.machine.Family()})
	return true
}

// Component returns the registered component with the given id.
func (e *Engine) Component(id string) (*Component, bool) {
	c, ok := e.components[id]
	return c, ok
}

// Components returns every registered component sorted by id.
func (e *Engine) Components() []*Component {
	out := make([]*Component, 0, len(e.components))
	for _, c := range e.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// ScheduleEvent queues action on componentID to fire after delay, scaled by
// the current speed: fireAt = now + delay/speed. The fire time is fixed here
// and not affected by later SetSpeed calls. Returns the event id.
//
// The target is resolved when the event fires, so scheduling for a component
// that is registered later is allowed.
func (e *Engine) ScheduleEvent(delay time.Duration, componentID string, action fsm.Action, payload fsm.Payload) string {
	if delay < 0 {
		delay = 0
	}
	now := e.Now()
	ev := &ScheduledEvent{
		ID:          e.ids.Generate(),
		Seq:         e.seq.Next(),
		FireAt:      addSaturating(now, e.scale(delay)),
		ScheduledAt: now,
		ComponentID: componentID,
		Action:      action,
		Payload:     payload,
	}
	e.queue.push(ev)

	e.logger.Debug("event scheduled",
		"event_id", ev.ID,
		"component", componentID,
		"action", action,
		"fire_at", ev.FireAt,
	)
	e.Emit(NotifyEventScheduled, EventNotice{Event: *ev})
	return ev.ID
}

// CancelEvent removes a pending event. Returns false if the event already
// fired, was cancelled, or never existed.
func (e *Engine) CancelEvent(eventID string) bool {
	ev, ok := e.queue.remove(eventID)
	if !ok {
		return false
	}
	e.logger.Debug("event cancelled", "event_id", eventID, "component", ev.ComponentID)
	e.Emit(NotifyEventCancelled, EventNotice{Event: *ev})
	return true
}

// Pending returns copies of the queued events in firing order.
func (e *Engine) Pending() []ScheduledEvent {
	return e.queue.snapshot()
}

// QueueLen returns the number of pending events.
func (e *Engine) QueueLen() int {
	return e.queue.len()
}

// Step processes every event with FireAt <= now in ascending (FireAt, Seq)
// order, including events chained during this Step that are already due.
//
// Unknown targets and invalid transitions are reported on the error channel
// and skipped. At most Config.MaxEventsPerStep events are processed; the rest
// remain queued. Step is not re-entrant: a call from inside a handler during
// Step is ignored.
func (e *Engine) Step(now time.Duration) {
	if e.stepping {
		e.logger.Warn("nested step ignored", "now", now)
		return
	}
	e.stepping = true
	e.stepNow = now
	defer func() { e.stepping = false }()

	processed := 0
	for {
		next, ok := e.queue.peek()
		if !ok || next.FireAt > now {
			return
		}
		if processed >= e.cfg.MaxEventsPerStep {
			e.reportError(&QuotaExceededError{
				Processed: processed,
				Limit:     e.cfg.MaxEventsPerStep,
				Pending:   e.dueCount(now),
			}, nil)
			return
		}

		ev, _ := e.queue.popDue(now)
		processed++
		e.process(ev, now)
	}
}

func (e *Engine) process(ev *ScheduledEvent, now time.Duration) {
	c, ok := e.components[ev.ComponentID]
	if !ok {
		e.reportError(&UnknownComponentError{ComponentID: ev.ComponentID, EventID: ev.ID}, ev)
		return
	}

	from := c.machine.State()
	to, err := c.machine.Transition(ev.Action, ev.Payload)
	if err != nil {
		e.reportError(err, ev)
		return
	}
	c.lastUpdate = now

	e.logger.Debug("event processed",
		"event_id", ev.ID,
		"component", ev.ComponentID,
		"action", ev.Action,
		"from", from,
		"to", to,
	)
	e.Emit(NotifyEventProcessed, EventProcessed{Event: *ev, From: from, To: to})
}

// handleStateChange is installed on every registered machine. It runs for
// transitions made by Step as well as direct calls on the machine.
func (e *Engine) handleStateChange(c *Component, change fsm.Change) {
	now := e.Now()
	c.lastUpdate = now

	if applier, ok := c.binding.(StateApplier); ok && applier != nil {
		e.applyBinding(c, applier, c.snapshot(change, now))
	}

	e.Emit(NotifyStateChange, StateChange{
		ComponentID: c.id,
		Family:      c.machine.Family(),
		From:        change.From,
		To:          change.To,
		Action:      change.Action,
		Payload:     change.Payload,
		Animating:   c.machine.IsAnimating(),
	})

	if e.resetting {
		return
	}
	for _, rule := range e.cfg.Chains.Rules(c.machine.Family(), change.To) {
		e.ScheduleEvent(rule.Delay, rule.resolve(c.id), rule.Action, rule.chainPayload(c.id, change.To))
	}
}

func (e *Engine) applyBinding(c *Component, applier StateApplier, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			err := &fsm.ListenerError{Source: "binding", Topic: c.id, Recovered: r}
			e.logger.Error("visual binding failed", "component", c.id, "error", err)
		}
	}()
	applier.ApplyState(snap)
}

// Start begins driving Step from the scheduler. Calling Start while running
// is a no-op.
func (e *Engine) Start() error {
	if e.running {
		return nil
	}
	if e.sched == nil {
		return ErrNoScheduler
	}
	e.running = true
	e.cancelTick = e.sched.Every(e.tick)

	e.logger.Info("simulation started", "speed", e.speed, "pending", e.queue.len())
	e.Emit(NotifySimulationStarted, nil)
	return nil
}

// Stop halts the run loop. Calling Stop while stopped is a no-op.
func (e *Engine) Stop() {
	if !e.running {
		return
	}
	e.running = false
	if e.cancelTick != nil {
		e.cancelTick()
		e.cancelTick = nil
	}

	e.logger.Info("simulation stopped", "pending", e.queue.len())
	e.Emit(NotifySimulationStopped, nil)
}

// Running reports whether the run loop is active.
func (e *Engine) Running() bool { return e.running }

func (e *Engine) tick(now time.Duration) {
	if !e.running {
		return
	}
	e.Step(now)
}

// Reset stops the loop, clears the queue and resets every machine to its
// initial state. Chaining is suppressed for the synthetic RESET changes.
func (e *Engine) Reset() {
	e.Stop()
	e.queue.clear()

	e.resetting = true
	for _, c := range e.Components() {
		c.machine.Reset()
	}
	e.resetting = false

	e.logger.Info("simulation reset", "components", len(e.components))
	e.Emit(NotifySimulationReset, nil)
}

// LoadScenario resets the engine and schedules every scenario event relative
// to now. It does not start the loop. Returns the scheduled event ids.
func (e *Engine) LoadScenario(s Scenario) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	e.Reset()

	ids := make([]string, 0, len(s.Events))
	for _, ev := range s.Events {
		ids = append(ids, e.ScheduleEvent(ev.Delay, ev.Component, ev.Action, clonePayload(ev.Payload)))
	}

	e.logger.Info("scenario loaded", "scenario", s.Name, "events", len(ids))
	e.Emit(NotifyScenarioLoaded, ScenarioLoaded{Name: s.Name, EventIDs: ids})
	return ids, nil
}

// SetSpeed clamps factor into [SpeedMin, SpeedMax] and applies it to future
// ScheduleEvent calls only. Returns the applied speed.
func (e *Engine) SetSpeed(factor float64) float64 {
	old := e.speed
	e.speed = e.clamp(factor)

	e.logger.Info("speed changed", "old", old, "new", e.speed, "requested", factor)
	e.Emit(NotifySpeedChanged, SpeedChanged{Old: old, New: e.speed, Requested: factor})
	return e.speed
}

// Speed returns the current speed factor.
func (e *Engine) Speed() float64 { return e.speed }

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.Chains = e.cfg.Chains.Clone()
	return cfg
}

func (e *Engine) clamp(f float64) float64 {
	if f != f { // NaN
		return e.cfg.SpeedMin
	}
	if f < e.cfg.SpeedMin {
		return e.cfg.SpeedMin
	}
	if f > e.cfg.SpeedMax {
		return e.cfg.SpeedMax
	}
	return f
}

// scale divides d by the current speed, saturating at the largest Duration.
func (e *Engine) scale(d time.Duration) time.Duration {
	scaled := float64(d) / e.speed
	if scaled >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(scaled)
}

// addSaturating returns now+d for d >= 0, capped at the largest Duration.
func addSaturating(now, d time.Duration) time.Duration {
	if now > 0 && d > math.MaxInt64-now {
		return math.MaxInt64
	}
	return now + d
}

func (e *Engine) dueCount(now time.Duration) int {
	n := 0
	for _, ev := range e.queue.events {
		if ev.FireAt > now {
			break
		}
		n++
	}
	return n
}

// reportError logs err and delivers it on the error channel. Engine errors
// are never fatal.
func (e *Engine) reportError(err error, ev *ScheduledEvent) {
	if ev != nil {
		e.logger.Warn("event dropped",
			"error", err,
			"event_id", ev.ID,
			"component", ev.ComponentID,
			"action", ev.Action,
		)
		cp := *ev
		ev = &cp
	} else {
		e.logger.Warn("engine error", "error", err)
	}
	e.Emit(NotifyError, ErrorNotice{Err: err, Event: ev})
}
