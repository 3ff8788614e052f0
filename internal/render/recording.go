package render

// RecordingSurface keeps every presented frame in memory.
type RecordingSurface struct {
	pending []Sprite
	frames  [][]Sprite
	clears  int

	// Err, when set, is returned by Present and the frame is discarded.
	Err error
}

// NewRecordingSurface creates an empty recording surface.
func NewRecordingSurface() *RecordingSurface {
	return &RecordingSurface{}
}

// Clear implements Surface.
func (s *RecordingSurface) Clear() {
	s.clears++
	s.pending = s.pending[:0]
}

// DrawSprite implements Surface.
func (s *RecordingSurface) DrawSprite(sp Sprite) {
	s.pending = append(s.pending, sp)
}

// Present implements Surface.
func (s *RecordingSurface) Present() error {
	if s.Err != nil {
		return s.Err
	}
	frame := make([]Sprite, len(s.pending))
	copy(frame, s.pending)
	s.frames = append(s.frames, frame)
	return nil
}

// Frames returns every presented frame.
func (s *RecordingSurface) Frames() [][]Sprite { return s.frames }

// Last returns the most recent frame, or nil.
func (s *RecordingSurface) Last() []Sprite {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Clears returns how many times Clear was called.
func (s *RecordingSurface) Clears() int { return s.clears }
