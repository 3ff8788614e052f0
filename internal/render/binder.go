package render

import (
	"time"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
)

// StyleKey selects a Style by component family and state. State "*" matches
// any state of the family.
type StyleKey struct {
	Family string
	State  fsm.State
}

// AnyState is the wildcard state in a StyleKey.
const AnyState fsm.State = "*"

// Style is the visual treatment of a state.
type Style struct {
	Sheet          string
	AnimationSpeed float64
}

// StyleTable maps (family, state) to a Style.
type StyleTable map[StyleKey]Style

// Lookup returns the style for (family, state), falling back to the family
// wildcard.
func (t StyleTable) Lookup(family string, state fsm.State) (Style, bool) {
	if s, ok := t[StyleKey{Family: family, State: state}]; ok {
		return s, true
	}
	s, ok := t[StyleKey{Family: family, State: AnyState}]
	return s, ok
}

// ParticleRule spawns short-lived particles when a component enters State.
type ParticleRule struct {
	State   fsm.State
	Sheet   string
	Count   int
	TTL     time.Duration
	VX, VY  float64
	Spacing float64
	Z       int
}

// Binder is the visual binding for one component. It implements
// engine.StateApplier by restyling its object on every state change.
type Binder struct {
	renderer  *Renderer
	objectID  string
	styles    StyleTable
	particles []ParticleRule
	spawned   int
}

var _ engine.StateApplier = (*Binder)(nil)

// NewBinder binds objectID on r to a component's state changes.
func NewBinder(r *Renderer, objectID string, styles StyleTable, particles ...ParticleRule) *Binder {
	return &Binder{renderer: r, objectID: objectID, styles: styles, particles: particles}
}

// ObjectID returns the bound object.
func (b *Binder) ObjectID() string { return b.objectID }

// Spawned returns how many particles this binder created.
func (b *Binder) Spawned() int { return b.spawned }

// ApplyState implements engine.StateApplier.
func (b *Binder) ApplyState(s engine.Snapshot) {
	opts := []ObjectOption{WithLabel(string(s.State))}
	if style, ok := b.styles.Lookup(s.Family, s.State); ok {
		speed := style.AnimationSpeed
		if !s.Animating {
			speed = 0
		}
		opts = append(opts, WithSheet(style.Sheet), WithAnimationSpeed(speed))
	}
	if !b.renderer.UpdateObject(b.objectID, opts...) {
		return
	}

	for _, rule := range b.particles {
		if rule.State == s.State {
			b.spawn(rule)
		}
	}
}

func (b *Binder) spawn(rule ParticleRule) {
	origin, ok := b.renderer.Object(b.objectID)
	if !ok {
		return
	}
	count := rule.Count
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		id := b.renderer.CreateObject("particle",
			origin.X-float64(i)*rule.Spacing, origin.Y,
			WithSheet(rule.Sheet),
			WithVelocity(rule.VX, rule.VY),
			WithTTL(rule.TTL),
			WithZ(rule.Z),
		)
		if id != "" {
			b.spawned++
		}
	}
}
