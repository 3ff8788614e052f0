package render

import "time"

// Object is a drawable scene object.
type Object struct {
	id   string
	kind string
	seq  uint64

	x, y     float64
	vx, vy   float64
	rotation float64
	scale    float64
	z        int

	sheet          string
	frame          int
	frameProgress  float64
	animationSpeed float64

	label   string
	visible bool

	ttl time.Duration
	age time.Duration
}

// ObjectView is a read-only copy of an object's properties.
type ObjectView struct {
	ID             string
	Kind           string
	X, Y           float64
	VX, VY         float64
	Rotation       float64
	Scale          float64
	Z              int
	Sheet          string
	Frame          int
	AnimationSpeed float64
	Label          string
	Visible        bool
	TTL            time.Duration
	Age            time.Duration
}

// ObjectOption sets object properties on create or update.
type ObjectOption func(*Object)

// WithSheet sets the sprite sheet and restarts the animation at frame 0.
func WithSheet(name string) ObjectOption {
	return func(o *Object) {
		if o.sheet != name {
			o.sheet = name
			o.frame = 0
			o.frameProgress = 0
		}
	}
}

// WithAnimationSpeed sets how many frames advance per render interval.
// Zero freezes the animation.
func WithAnimationSpeed(f float64) ObjectOption {
	return func(o *Object) {
		if f < 0 {
			f = 0
		}
		o.animationSpeed = f
	}
}

// WithFrame jumps to a specific animation frame.
func WithFrame(n int) ObjectOption {
	return func(o *Object) {
		o.frame = n
		o.frameProgress = 0
	}
}

// WithPosition moves the object.
func WithPosition(x, y float64) ObjectOption {
	return func(o *Object) { o.x, o.y = x, y }
}

// WithVelocity sets the drift in units per second.
func WithVelocity(vx, vy float64) ObjectOption {
	return func(o *Object) { o.vx, o.vy = vx, vy }
}

// WithRotation sets the rotation in radians.
func WithRotation(r float64) ObjectOption {
	return func(o *Object) { o.rotation = r }
}

// WithScale sets the draw scale.
func WithScale(s float64) ObjectOption {
	return func(o *Object) { o.scale = s }
}

// WithZ sets the draw order; higher draws later.
func WithZ(z int) ObjectOption {
	return func(o *Object) { o.z = z }
}

// WithLabel sets the caption drawn with the object.
func WithLabel(label string) ObjectOption {
	return func(o *Object) { o.label = label }
}

// WithVisible shows or hides the object.
func WithVisible(v bool) ObjectOption {
	return func(o *Object) { o.visible = v }
}

// WithTTL makes the object expire after d of rendered time. Zero means
// the object lives until removed.
func WithTTL(d time.Duration) ObjectOption {
	return func(o *Object) {
		o.ttl = d
		o.age = 0
	}
}

func (o *Object) view() ObjectView {
	return ObjectView{
		ID:             o.id,
		Kind:           o.kind,
		X:              o.x,
		Y:              o.y,
		VX:             o.vx,
		VY:             o.vy,
		Rotation:       o.rotation,
		Scale:          o.scale,
		Z:              o.z,
		Sheet:          o.sheet,
		Frame:          o.frame,
		AnimationSpeed: o.animationSpeed,
		Label:          o.label,
		Visible:        o.visible,
		TTL:            o.ttl,
		Age:            o.age,
	}
}

// advance moves the object forward by elapsed, where frames is elapsed
// measured in render intervals. Returns false once the TTL has run out.
func (o *Object) advance(elapsed time.Duration, frames float64, frameCount int) bool {
	if o.ttl > 0 {
		o.age += elapsed
		if o.age >= o.ttl {
			return false
		}
	}

	secs := elapsed.Seconds()
	o.x += o.vx * secs
	o.y += o.vy * secs

	if o.animationSpeed > 0 && frameCount > 1 {
		o.frameProgress += o.animationSpeed * frames
		whole := int(o.frameProgress)
		o.frameProgress -= float64(whole)
		o.frame = (o.frame + whole) % frameCount
	}
	return true
}
