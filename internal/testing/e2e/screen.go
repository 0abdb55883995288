package e2e

import (
	"regexp"
	"strings"
)

var ansiEscape = regexp.MustCompile(`\x1b\[\??[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences from terminal output.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Screen is a small virtual terminal for asserting on rendered viewer
// output. It understands the sequences the display emits: cursor home,
// erase to end of line, erase below, and the alternate-screen and cursor
// visibility toggles (which it ignores).
type Screen struct {
	rows    int
	cols    int
	buffer  [][]rune
	cursorX int
	cursorY int
}

// NewScreen creates a rows x cols virtual screen.
func NewScreen(rows, cols int) *Screen {
	buffer := make([][]rune, rows)
	for i := range buffer {
		buffer[i] = blankRow(cols)
	}
	return &Screen{rows: rows, cols: cols, buffer: buffer}
}

// Feed applies terminal output to the screen.
func (s *Screen) Feed(output string) {
	runes := []rune(output)
	for i := 0; i < len(runes); {
		switch {
		case runes[i] == '\x1b':
			i = s.escape(runes, i)
		case runes[i] == '\r':
			s.cursorX = 0
			i++
		case runes[i] == '\n':
			s.cursorX = 0
			if s.cursorY < s.rows-1 {
				s.cursorY++
			}
			i++
		default:
			if s.cursorY < s.rows && s.cursorX < s.cols {
				s.buffer[s.cursorY][s.cursorX] = runes[i]
			}
			s.cursorX++
			i++
		}
	}
}

// Row returns one screen row with trailing spaces trimmed.
func (s *Screen) Row(y int) string {
	if y < 0 || y >= s.rows {
		return ""
	}
	return strings.TrimRight(string(s.buffer[y]), " ")
}

// Rows returns every screen row, trailing spaces trimmed.
func (s *Screen) Rows() []string {
	rows := make([]string, s.rows)
	for y := range rows {
		rows[y] = s.Row(y)
	}
	return rows
}

// Contains reports whether any row contains text.
func (s *Screen) Contains(text string) bool {
	for y := 0; y < s.rows; y++ {
		if strings.Contains(s.Row(y), text) {
			return true
		}
	}
	return false
}

// FindRow returns the index of the first row containing text, or -1.
func (s *Screen) FindRow(text string) int {
	for y := 0; y < s.rows; y++ {
		if strings.Contains(s.Row(y), text) {
			return y
		}
	}
	return -1
}

// escape consumes one escape sequence starting at i and applies it.
func (s *Screen) escape(runes []rune, i int) int {
	if i+1 >= len(runes) || runes[i+1] != '[' {
		return i + 1
	}
	j := i + 2
	for j < len(runes) && !isFinal(runes[j]) {
		j++
	}
	if j >= len(runes) {
		return len(runes)
	}
	params := string(runes[i+2 : j])
	switch runes[j] {
	case 'H':
		// Bare home only; the display never addresses other cells.
		if params == "" {
			s.cursorX, s.cursorY = 0, 0
		}
	case 'K':
		if s.cursorY < s.rows {
			for x := s.cursorX; x < s.cols; x++ {
				s.buffer[s.cursorY][x] = ' '
			}
		}
	case 'J':
		if s.cursorY < s.rows {
			for x := s.cursorX; x < s.cols; x++ {
				s.buffer[s.cursorY][x] = ' '
			}
		}
		for y := s.cursorY + 1; y < s.rows; y++ {
			s.buffer[y] = blankRow(s.cols)
		}
	}
	return j + 1
}

func isFinal(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func blankRow(cols int) []rune {
	row := make([]rune, cols)
	for i := range row {
		row[i] = ' '
	}
	return row
}
