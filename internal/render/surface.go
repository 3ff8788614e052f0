package render

// Sprite is one draw call: a frame of a sprite sheet at a position.
type Sprite struct {
	ObjectID string
	Sheet    string
	Frame    int
	Glyph    string
	Label    string
	X, Y     float64
	Rotation float64
	Scale    float64
	Z        int
}

// Surface is the minimal drawable backend.
type Surface interface {
	// Clear starts a new frame.
	Clear()
	// DrawSprite draws s on the pending frame.
	DrawSprite(s Sprite)
	// Present displays the pending frame.
	Present() error
}

// SpriteSheet is a named animation strip. Glyphs holds one text glyph per
// frame for character surfaces; Frames may exceed len(Glyphs), in which case
// glyphs repeat.
type SpriteSheet struct {
	Name   string
	Frames int
	Glyphs []string
}

// Glyph returns the glyph for frame, or "?" when the sheet has none.
func (s SpriteSheet) Glyph(frame int) string {
	if len(s.Glyphs) == 0 {
		return "?"
	}
	if frame < 0 {
		frame = 0
	}
	return s.Glyphs[frame%len(s.Glyphs)]
}

// FrameCount returns the number of animation frames, at least 1.
func (s SpriteSheet) FrameCount() int {
	if s.Frames > 0 {
		return s.Frames
	}
	if len(s.Glyphs) > 0 {
		return len(s.Glyphs)
	}
	return 1
}
