package render

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/pipesim/internal/scheduler"
)

// Frame rate bounds.
const (
	DefaultTargetFPS = 8
	MinTargetFPS     = 1
	MaxTargetFPS     = 60
)

var (
	// ErrNoScheduler is returned by Start when the renderer has no scheduler.
	ErrNoScheduler = errors.New("renderer has no scheduler")

	// ErrDestroyed is returned by Start after Destroy.
	ErrDestroyed = errors.New("renderer destroyed")
)

// Stats counts renderer activity. Callbacks is every scheduler callback seen
// while running; Frames is the subset that redrew.
type Stats struct {
	Callbacks     int
	Frames        int
	Expired       int
	PresentErrors int
	Objects       int
}

// Renderer draws scene objects on a Surface at a fixed frame budget.
type Renderer struct {
	surface Surface
	sched   scheduler.Scheduler
	logger  *slog.Logger

	sheets  map[string]SpriteSheet
	objects map[string]*Object
	nextID  uint64

	targetFPS   int
	interval    time.Duration
	accumulated time.Duration
	last        time.Duration
	haveLast    bool

	running       bool
	cancel        func()
	reducedMotion bool
	destroyed     bool

	stats Stats
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the renderer logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTargetFPS sets the initial frame rate.
func WithTargetFPS(fps int) Option {
	return func(r *Renderer) { r.setFPS(fps) }
}

// WithSheets registers sprite sheets up front.
func WithSheets(sheets ...SpriteSheet) Option {
	return func(r *Renderer) {
		for _, s := range sheets {
			r.sheets[s.Name] = s
		}
	}
}

// NewRenderer creates a stopped renderer drawing on surface. sched may be nil
// when the host calls Tick directly.
func NewRenderer(surface Surface, sched scheduler.Scheduler, opts ...Option) *Renderer {
	r := &Renderer{
		surface: surface,
		sched:   sched,
		logger:  slog.Default(),
		sheets:  make(map[string]SpriteSheet),
		objects: make(map[string]*Object),
	}
	r.setFPS(DefaultTargetFPS)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterSheet adds or replaces a sprite sheet.
func (r *Renderer) RegisterSheet(s SpriteSheet) {
	r.sheets[s.Name] = s
}

// Sheet returns the named sprite sheet.
func (r *Renderer) Sheet(name string) (SpriteSheet, bool) {
	s, ok := r.sheets[name]
	return s, ok
}

// CreateObject adds a visible object of kind at (x, y) and returns its id.
// Returns "" after Destroy.
func (r *Renderer) CreateObject(kind string, x, y float64, opts ...ObjectOption) string {
	if r.destroyed {
		r.logger.Warn("create on destroyed renderer", "kind", kind)
		return ""
	}
	r.nextID++
	o := &Object{
		id:             fmt.Sprintf("%s-%d", kind, r.nextID),
		kind:           kind,
		seq:            r.nextID,
		x:              x,
		y:              y,
		scale:          1,
		animationSpeed: 1,
		visible:        true,
	}
	for _, opt := range opts {
		opt(o)
	}
	r.objects[o.id] = o
	return o.id
}

// UpdateObject applies opts to the object. Returns false if id is unknown.
func (r *Renderer) UpdateObject(id string, opts ...ObjectOption) bool {
	o, ok := r.objects[id]
	if !ok {
		return false
	}
	for _, opt := range opts {
		opt(o)
	}
	return true
}

// RemoveObject deletes the object. Returns false if id is unknown.
func (r *Renderer) RemoveObject(id string) bool {
	if _, ok := r.objects[id]; !ok {
		return false
	}
	delete(r.objects, id)
	return true
}

// Object returns a copy of the object's properties.
func (r *Renderer) Object(id string) (ObjectView, bool) {
	o, ok := r.objects[id]
	if !ok {
		return ObjectView{}, false
	}
	return o.view(), true
}

// Objects returns copies of every object in draw order.
func (r *Renderer) Objects() []ObjectView {
	ordered := r.drawOrder()
	out := make([]ObjectView, len(ordered))
	for i, o := range ordered {
		out[i] = o.view()
	}
	return out
}

// Start registers the frame callback. Calling Start while running, or while
// reduced motion is on, is a no-op.
func (r *Renderer) Start() error {
	if r.destroyed {
		return ErrDestroyed
	}
	if r.running || r.reducedMotion {
		return nil
	}
	if r.sched == nil {
		return ErrNoScheduler
	}
	r.running = true
	r.haveLast = false
	r.accumulated = 0
	r.cancel = r.sched.Every(r.Tick)

	r.logger.Debug("renderer started", "fps", r.targetFPS, "interval", r.interval)
	return nil
}

// Stop cancels the frame callback. Calling Stop while stopped is a no-op.
func (r *Renderer) Stop() {
	if !r.running {
		return
	}
	r.running = false
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.logger.Debug("renderer stopped", "frames", r.stats.Frames)
}

// Running reports whether the frame callback is registered.
func (r *Renderer) Running() bool { return r.running }

// Destroy stops the renderer and releases every object and sheet. A surface
// implementing io.Closer is closed.
func (r *Renderer) Destroy() error {
	if r.destroyed {
		return nil
	}
	r.Stop()
	r.destroyed = true
	clear(r.objects)
	clear(r.sheets)

	if c, ok := r.surface.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close surface: %w", err)
		}
	}
	return nil
}

// SetTargetFPS changes the frame rate, clamped to [MinTargetFPS,
// MaxTargetFPS]. Returns the applied rate.
func (r *Renderer) SetTargetFPS(fps int) int {
	r.setFPS(fps)
	if r.accumulated >= r.interval {
		r.accumulated %= r.interval
	}
	r.logger.Debug("renderer fps changed", "fps", r.targetFPS, "interval", r.interval)
	return r.targetFPS
}

// TargetFPS returns the frame rate.
func (r *Renderer) TargetFPS() int { return r.targetFPS }

// Interval returns the render interval, 1s / TargetFPS.
func (r *Renderer) Interval() time.Duration { return r.interval }

// SetReducedMotion toggles reduced motion. Turning it on stops the renderer
// loop; turning it off leaves the renderer stopped until Start.
func (r *Renderer) SetReducedMotion(on bool) {
	r.reducedMotion = on
	if on {
		r.Stop()
	}
}

// ReducedMotion reports whether reduced motion is on.
func (r *Renderer) ReducedMotion() bool { return r.reducedMotion }

// Stats returns the activity counters.
func (r *Renderer) Stats() Stats {
	s := r.stats
	s.Objects = len(r.objects)
	return s
}

// Tick is the scheduler callback. It accumulates elapsed time and redraws
// only when a full render interval has built up; the remainder carries to
// the next callback. Reaching the interval exactly counts as a full interval,
// so a scheduler ticking at the frame rate draws on every callback.
func (r *Renderer) Tick(now time.Duration) {
	r.stats.Callbacks++

	if !r.haveLast || now < r.last {
		r.last = now
		r.haveLast = true
		return
	}
	r.accumulated += now - r.last
	r.last = now

	if r.accumulated < r.interval {
		return
	}

	n := r.accumulated / r.interval
	r.accumulated %= r.interval

	r.advance(n*r.interval, float64(n))
	r.draw()
}

// Redraw draws the current scene without advancing animation. Hosts use it
// to show a static frame while reduced motion is on.
func (r *Renderer) Redraw() error {
	return r.present()
}

func (r *Renderer) advance(elapsed time.Duration, frames float64) {
	for id, o := range r.objects {
		count := 1
		if sheet, ok := r.sheets[o.sheet]; ok {
			count = sheet.FrameCount()
		}
		if !o.advance(elapsed, frames, count) {
			delete(r.objects, id)
			r.stats.Expired++
		}
	}
}

func (r *Renderer) draw() {
	r.stats.Frames++
	if err := r.present(); err != nil {
		r.stats.PresentErrors++
		r.logger.Warn("present failed", "frame", r.stats.Frames, "error", err)
	}
}

func (r *Renderer) present() error {
	r.surface.Clear()
	for _, o := range r.drawOrder() {
		if !o.visible {
			continue
		}
		sheet := r.sheets[o.sheet]
		r.surface.DrawSprite(Sprite{
			ObjectID: o.id,
			Sheet:    o.sheet,
			Frame:    o.frame,
			Glyph:    sheet.Glyph(o.frame),
			Label:    o.label,
			X:        o.x,
			Y:        o.y,
			Rotation: o.rotation,
			Scale:    o.scale,
			Z:        o.z,
		})
	}
	return r.surface.Present()
}

// drawOrder sorts by z, then creation order.
func (r *Renderer) drawOrder() []*Object {
	out := make([]*Object, 0, len(r.objects))
	for _, o := range r.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].z != out[j].z {
			return out[i].z < out[j].z
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func (r *Renderer) setFPS(fps int) {
	if fps < MinTargetFPS {
		fps = MinTargetFPS
	}
	if fps > MaxTargetFPS {
		fps = MaxTargetFPS
	}
	r.targetFPS = fps
	r.interval = time.Second / time.Duration(fps)
}
