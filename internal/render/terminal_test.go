package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalSurface_DrawsGlyphsAndLabels(t *testing.T) {
	var buf bytes.Buffer
	s := NewTerminalSurface(&buf, 6, 2, map[string]lipgloss.Style{"actor": lipgloss.NewStyle().Bold(true)})

	s.Clear()
	s.DrawSprite(Sprite{ObjectID: "actor-1", Sheet: "actor", Glyph: "@", Label: "RUNNING", X: 2, Y: 1})
	s.DrawSprite(Sprite{ObjectID: "off", Glyph: "X", X: -1, Y: 0})
	s.DrawSprite(Sprite{ObjectID: "far", Glyph: "X", X: 100, Y: 0})
	require.NoError(t, s.Present())

	out := buf.String()
	assert.Contains(t, out, "@")
	assert.NotContains(t, out, "X")
	assert.Contains(t, out, "actor-1 RUNNING")
	assert.Equal(t, 1, s.Frames())
}

func TestTerminalSurface_ClearResetsGrid(t *testing.T) {
	var buf bytes.Buffer
	s := NewTerminalSurface(&buf, 4, 1, nil)

	s.DrawSprite(Sprite{Glyph: "#", X: 0, Y: 0})
	s.Clear()
	require.NoError(t, s.Present())

	assert.NotContains(t, buf.String(), "#")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestTerminalSurface_WriteError(t *testing.T) {
	s := NewTerminalSurface(failingWriter{}, 2, 2, nil)
	err := s.Present()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write frame 1")
}
