package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/openscope/wavescope/internal/core/render"
	"github.com/openscope/wavescope/internal/core/scope"
	"github.com/openscope/wavescope/internal/core/viewport"
	"github.com/openscope/wavescope/internal/util"
)

const (
	defaultCols = 80
	defaultRows = 24
	labelWidth  = 18
	// Rows reserved outside the waveform bands: header, marker line, status.
	chromeRows = 3
)

// TerminalDisplay rasterizes frames onto the terminal. It is one consumer of
// the render output interface; the core hands it primitive sequences and
// never draws anything itself.
type TerminalDisplay struct {
	out               io.Writer
	inAlternateScreen bool
}

// NewTerminalDisplay creates a display writing to stdout.
func NewTerminalDisplay() *TerminalDisplay {
	return &TerminalDisplay{out: os.Stdout}
}

// NewTerminalDisplayWriter creates a display writing to w, used by tests.
func NewTerminalDisplayWriter(w io.Writer) *TerminalDisplay {
	return &TerminalDisplay{out: w}
}

// Size returns the terminal size in cells, with a sane fallback when stdout
// is not a terminal.
func (d *TerminalDisplay) Size() (cols, rows int) {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		return defaultCols, defaultRows
	}
	return cols, rows
}

// PixelWidth returns the waveform pixel width for the current terminal size:
// two braille dots per cell, minus the label gutter.
func (d *TerminalDisplay) PixelWidth() int {
	cols, _ := d.Size()
	w := (cols - labelWidth) * 2
	if w < 2 {
		w = 2
	}
	return w
}

// EnterAlternateScreen switches to the alternate screen and hides the cursor.
func (d *TerminalDisplay) EnterAlternateScreen() {
	if !d.inAlternateScreen {
		fmt.Fprint(d.out, "\x1b[?1049h\x1b[?25l")
		d.inAlternateScreen = true
	}
}

// ExitAlternateScreen restores the normal screen and cursor.
func (d *TerminalDisplay) ExitAlternateScreen() {
	if d.inAlternateScreen {
		fmt.Fprint(d.out, "\x1b[?25h\x1b[?1049l")
		d.inAlternateScreen = false
	}
}

// Render draws one frame. The frame's channels all share one viewport, so
// every band lines up on the same time axis; each band gets an equal share
// of the rows below the header.
func (d *TerminalDisplay) Render(frame *scope.Frame, status string) {
	cols, rows := d.Size()
	var b strings.Builder
	b.WriteString("\x1b[H")

	vp := frame.Viewport
	header := fmt.Sprintf(" wavescope  %s .. %s  span %s",
		util.FormatNano(vp.Start), util.FormatNano(vp.End), util.FormatNano(vp.Span()))
	writeLine(&b, header, cols)

	bandRows := 0
	if n := len(frame.Channels); n > 0 {
		bandRows = (rows - chromeRows) / n
	}
	if bandRows < 2 {
		bandRows = 2
	}
	waveCells := cols - labelWidth
	if waveCells < 1 {
		waveCells = 1
	}

	for _, cf := range frame.Channels {
		d.renderBand(&b, cf, frame, waveCells, bandRows, cols)
	}

	writeLine(&b, markerLine(frame), cols)
	writeLine(&b, " "+status, cols)
	b.WriteString("\x1b[J")
	fmt.Fprint(d.out, b.String())
}

// renderBand draws one channel: a label gutter on the left and a braille
// canvas on the right. The canvas height is bandRows-1 cell rows; one row is
// the per-channel caption.
func (d *TerminalDisplay) renderBand(b *strings.Builder, cf scope.ChannelFrame, frame *scope.Frame, waveCells, bandRows, cols int) {
	caption := fmt.Sprintf(" %s  %s .. %s",
		cf.Meta.Label,
		util.FormatValue(cf.Scale.ValueMin, cf.Meta.Unit),
		util.FormatValue(cf.Scale.ValueMax, cf.Meta.Unit))
	writeLine(b, caption, cols)

	canvas := NewCanvas(waveCells, bandRows-1)
	scale := viewport.VerticalScale{
		ValueMin:    cf.Scale.ValueMin,
		ValueMax:    cf.Scale.ValueMax,
		PixelHeight: canvas.PixelHeight(),
	}
	drawSet(canvas, cf.Set, scale)
	for _, m := range frame.Markers {
		canvas.MarkColumn(m.PixelX)
	}

	gutter := runewidth.FillRight(runewidth.Truncate(" "+string(cf.ID), labelWidth, "…"), labelWidth)
	blank := strings.Repeat(" ", labelWidth)
	for i, row := range canvas.Rows() {
		if i == 0 {
			b.WriteString(gutter)
		} else {
			b.WriteString(blank)
		}
		b.WriteString(row)
		b.WriteString("\x1b[K\r\n")
	}
}

// drawSet rasterizes one primitive sequence: bars become vertical dot runs,
// points become connected segments.
func drawSet(canvas *Canvas, set *render.Set, scale viewport.VerticalScale) {
	if set.Empty() {
		return
	}
	switch set.Mode {
	case render.ModeBars:
		for _, col := range set.Columns {
			canvas.VLine(col.X, scale.ValueToPixel(col.Max), scale.ValueToPixel(col.Min))
		}
	case render.ModeLines:
		prev := false
		var px, py int
		for _, p := range set.Points {
			y := scale.ValueToPixel(p.V)
			if prev {
				canvas.Line(px, py, p.X, y)
			} else {
				canvas.Set(p.X, y)
			}
			px, py = p.X, y
			prev = true
		}
	}
}

func markerLine(frame *scope.Frame) string {
	if len(frame.Markers) == 0 {
		return " markers: none"
	}
	parts := make([]string, 0, len(frame.Markers))
	for _, m := range frame.Markers {
		parts = append(parts, m.Text)
	}
	return " markers: " + strings.Join(parts, "  ")
}

// writeLine emits one full terminal row, truncated to the terminal width.
func writeLine(b *strings.Builder, s string, cols int) {
	b.WriteString(runewidth.Truncate(s, cols, "…"))
	b.WriteString("\x1b[K\r\n")
}
