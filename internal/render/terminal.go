package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	frameStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	defaultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// TerminalSurface draws sprites on a fixed character grid and writes one
// bordered block per frame. One grid cell is one world unit.
type TerminalSurface struct {
	w             io.Writer
	width, height int
	styles        map[string]lipgloss.Style

	cells  [][]string
	labels []string
	frames int
}

// NewTerminalSurface creates a width x height grid writing to w. styles maps
// sheet names to glyph styles.
func NewTerminalSurface(w io.Writer, width, height int, styles map[string]lipgloss.Style) *TerminalSurface {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	s := &TerminalSurface{w: w, width: width, height: height, styles: styles}
	s.Clear()
	return s
}

// Clear implements Surface.
func (s *TerminalSurface) Clear() {
	s.cells = make([][]string, s.height)
	for y := range s.cells {
		row := make([]string, s.width)
		for x := range row {
			row[x] = " "
		}
		s.cells[y] = row
	}
	s.labels = s.labels[:0]
}

// DrawSprite implements Surface. Sprites outside the grid are clipped.
func (s *TerminalSurface) DrawSprite(sp Sprite) {
	x := int(math.Round(sp.X))
	y := int(math.Round(sp.Y))
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return
	}

	style, ok := s.styles[sp.Sheet]
	if !ok {
		style = defaultStyle
	}
	s.cells[y][x] = style.Render(sp.Glyph)

	if sp.Label != "" {
		name := sp.ObjectID
		s.labels = append(s.labels, labelStyle.Render(fmt.Sprintf("%s %s", name, sp.Label)))
	}
}

// Present implements Surface.
func (s *TerminalSurface) Present() error {
	s.frames++

	rows := make([]string, len(s.cells))
	for i, row := range s.cells {
		rows[i] = strings.Join(row, "")
	}
	grid := frameStyle.Render(strings.Join(rows, "\n"))
	block := lipgloss.JoinVertical(lipgloss.Left, grid, strings.Join(s.labels, "\n"))

	if _, err := fmt.Fprintf(s.w, "\x1b[H\x1b[2J%s\n", block); err != nil {
		return fmt.Errorf("write frame %d: %w", s.frames, err)
	}
	return nil
}

// Frames returns how many frames were presented.
func (s *TerminalSurface) Frames() int { return s.frames }
