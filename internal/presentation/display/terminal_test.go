package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscope/wavescope/internal/core/measure"
	"github.com/openscope/wavescope/internal/core/render"
	"github.com/openscope/wavescope/internal/core/scope"
	"github.com/openscope/wavescope/internal/core/viewport"
	"github.com/openscope/wavescope/internal/core/wave"
	"github.com/openscope/wavescope/internal/testing/e2e"
)

func renderToScreen(t *testing.T, frame *scope.Frame, status string) *e2e.Screen {
	t.Helper()
	var buf bytes.Buffer
	d := NewTerminalDisplayWriter(&buf)
	d.Render(frame, status)

	// Tests run without a terminal, so Size falls back to 80x24.
	screen := e2e.NewScreen(24, 80)
	screen.Feed(buf.String())
	return screen
}

func testFrame(t *testing.T) *scope.Frame {
	t.Helper()
	vp, err := viewport.New(0, 1_000_000, 124)
	require.NoError(t, err)
	return &scope.Frame{
		Viewport: vp,
		Channels: []scope.ChannelFrame{{
			ID:    "sig",
			Meta:  wave.ChannelMeta{ID: "sig", Label: "Signal A", Unit: "V"},
			Scale: viewport.VerticalScale{ValueMin: -1, ValueMax: 1},
			Set: &render.Set{
				Channel: "sig",
				Mode:    render.ModeLines,
				Points:  []render.Point{{X: 0, V: -1}, {X: 60, V: 0}, {X: 123, V: 1}},
			},
		}},
	}
}

func TestRenderHeaderAndStatus(t *testing.T) {
	screen := renderToScreen(t, testFrame(t), "ready")

	assert.Contains(t, screen.Row(0), "wavescope")
	assert.Contains(t, screen.Row(0), "0ns .. 1ms")
	assert.Contains(t, screen.Row(0), "span 1ms")
	assert.True(t, screen.Contains("ready"), "the status line is drawn")
}

func TestRenderChannelBand(t *testing.T) {
	screen := renderToScreen(t, testFrame(t), "")

	caption := screen.FindRow("Signal A")
	require.GreaterOrEqual(t, caption, 1, "each band starts with its caption")
	assert.Contains(t, screen.Row(caption), "-1 V .. 1 V")

	gutter := screen.Row(caption + 1)
	assert.Contains(t, gutter, "sig", "the gutter names the channel")

	// The band below the caption holds braille dots.
	found := false
	for y := caption + 1; y < 23 && !found; y++ {
		for _, r := range screen.Row(y) {
			if r >= 0x2800 && r <= 0x28ff {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "the waveform was rasterized")
}

func TestRenderMarkerLine(t *testing.T) {
	frame := testFrame(t)
	screen := renderToScreen(t, frame, "")
	assert.True(t, screen.Contains("markers: none"))

	frame.Markers = []measure.MarkerLabel{
		{ID: 1, PixelX: 10, Text: "M1 100µs"},
		{ID: 2, PixelX: 40, Text: "M2 400µs"},
	}
	screen = renderToScreen(t, frame, "")
	row := screen.FindRow("markers:")
	require.GreaterOrEqual(t, row, 0)
	assert.Contains(t, screen.Row(row), "M1 100µs")
	assert.Contains(t, screen.Row(row), "M2 400µs")
}

func TestRenderBarsMode(t *testing.T) {
	frame := testFrame(t)
	frame.Channels[0].Set = &render.Set{
		Channel: "sig",
		Mode:    render.ModeBars,
		Columns: []render.Column{
			{X: 0, Min: -1, Max: 1},
			{X: 1, Min: -0.5, Max: 0.5},
		},
	}
	screen := renderToScreen(t, frame, "")

	caption := screen.FindRow("Signal A")
	require.GreaterOrEqual(t, caption, 1)

	// Column 0 spans the full value range, so the leftmost wave cell of
	// every band row carries dots.
	for y := caption + 1; y < caption+3; y++ {
		row := []rune(screen.Row(y))
		require.Greater(t, len(row), labelWidth)
		r := row[labelWidth]
		assert.True(t, r >= 0x2800 && r <= 0x28ff, "row %d leftmost wave cell", y)
	}
}

func TestRenderEmptySetLeavesBandBlank(t *testing.T) {
	frame := testFrame(t)
	frame.Channels[0].Set = &render.Set{Channel: "sig", Mode: render.ModeLines}
	screen := renderToScreen(t, frame, "")

	for _, row := range screen.Rows() {
		for _, r := range row {
			assert.False(t, r >= 0x2800 && r <= 0x28ff, "no dots for an empty set")
		}
	}
}

func TestAlternateScreenToggle(t *testing.T) {
	var buf bytes.Buffer
	d := NewTerminalDisplayWriter(&buf)

	d.EnterAlternateScreen()
	d.EnterAlternateScreen()
	assert.Equal(t, "\x1b[?1049h\x1b[?25l", buf.String(), "entering twice emits once")

	buf.Reset()
	d.ExitAlternateScreen()
	d.ExitAlternateScreen()
	assert.Equal(t, "\x1b[?25h\x1b[?1049l", buf.String())
}
