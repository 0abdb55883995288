package render

import "github.com/openscope/wavescope/internal/core/wave"

// Mode is the drawing mode the builder picked for a frame.
type Mode int

const (
	// ModeLines connects individual samples with straight segments; used when
	// the view is zoomed in past native resolution (at most one sample per
	// pixel column).
	ModeLines Mode = iota
	// ModeBars draws one vertical min/max bar per pixel column; used when
	// multiple raw samples map to a column.
	ModeBars
)

// Point is one sample mapped to a pixel column in line mode.
type Point struct {
	X int
	V float64
}

// Column is one merged min/max bar in bar mode.
type Column struct {
	X   int
	Min float64
	Max float64
}

// Set is the drawable output for one channel and one frame. Exactly one of
// Points/Columns is populated, according to Mode; Columns is ordered by X and
// holds at most one entry per pixel column.
type Set struct {
	Channel wave.ChannelID
	Mode    Mode
	Points  []Point
	Columns []Column
}

// Empty reports whether there is nothing to draw.
func (s *Set) Empty() bool {
	return s == nil || (len(s.Points) == 0 && len(s.Columns) == 0)
}
