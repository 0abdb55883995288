package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscope/wavescope/internal/core/wave"
)

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name       string
		start, end int64
		width      int
	}{
		{"inverted range", 100, 50, 10},
		{"empty range", 100, 100, 10},
		{"zero width", 0, 100, 0},
		{"negative width", 0, 100, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.start, tt.end, tt.width)
			assert.ErrorIs(t, err, wave.ErrInvalidViewport)
		})
	}
}

func TestPixelTimeRoundTrip(t *testing.T) {
	vp, err := New(1_000_000, 9_000_000, 640)
	require.NoError(t, err)

	for x := 0; x < vp.Width; x++ {
		back := vp.TimeToPixel(int64(vp.PixelToTime(float64(x))))
		assert.Equal(t, x, back, "pixel %d", x)
	}
}

func TestPixelToTimeIsContinuous(t *testing.T) {
	vp, err := New(0, 1000, 100)
	require.NoError(t, err)

	assert.Equal(t, 0.0, vp.PixelToTime(0))
	assert.Equal(t, 500.0, vp.PixelToTime(50))
	assert.Equal(t, 505.0, vp.PixelToTime(50.5), "fractional pixels map without quantization")
	assert.Equal(t, 1000.0, vp.PixelToTime(100))
}

func TestZoomKeepsAnchorFixed(t *testing.T) {
	vp, err := New(0, 8000, 800)
	require.NoError(t, err)

	anchor := 200
	anchorTime := vp.PixelToTime(float64(anchor))

	in := vp.Zoom(anchor, 0.5)
	assert.Equal(t, int64(4000), in.Span())
	assert.InDelta(t, anchorTime, in.PixelToTime(float64(anchor)), 1.0,
		"the time under the anchor pixel survives the zoom")

	out := vp.Zoom(anchor, 2.0)
	assert.Equal(t, int64(16000), out.Span())
	assert.InDelta(t, anchorTime, out.PixelToTime(float64(anchor)), 1.0)
}

func TestZoomNeverCollapses(t *testing.T) {
	vp, err := New(0, 10, 100)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		vp = vp.Zoom(50, 0.5)
		require.NoError(t, vp.Validate())
	}
	assert.GreaterOrEqual(t, vp.Span(), int64(1))
}

func TestZoomIgnoresBadFactor(t *testing.T) {
	vp, err := New(0, 1000, 100)
	require.NoError(t, err)
	assert.Equal(t, vp, vp.Zoom(50, 0))
	assert.Equal(t, vp, vp.Zoom(50, -2))
}

func TestPan(t *testing.T) {
	vp, err := New(0, 1000, 100)
	require.NoError(t, err)

	right := vp.Pan(10)
	assert.Equal(t, int64(100), right.Start)
	assert.Equal(t, int64(1100), right.End)

	left := right.Pan(-10)
	assert.Equal(t, vp.Start, left.Start)
	assert.Equal(t, vp.End, left.End)
}

func TestClampStopsPanAtBounds(t *testing.T) {
	vp, err := New(0, 1000, 100)
	require.NoError(t, err)
	vp = vp.WithClamp(0, 2000)

	past := vp.Pan(1000)
	assert.Equal(t, int64(1000), past.Start)
	assert.Equal(t, int64(2000), past.End)
	assert.Equal(t, int64(1000), past.Span(), "span survives the clamp")

	before := vp.Pan(-1000)
	assert.Equal(t, int64(0), before.Start)
	assert.Equal(t, int64(1000), before.End)
}

func TestClampShrinksOversizedWindow(t *testing.T) {
	vp, err := New(0, 1000, 100)
	require.NoError(t, err)
	vp = vp.WithClamp(100, 400)

	out := vp.Zoom(50, 10)
	assert.Equal(t, int64(100), out.Start)
	assert.Equal(t, int64(400), out.End)
}

func TestWithRangeRejectsInvalid(t *testing.T) {
	vp, err := New(0, 1000, 100)
	require.NoError(t, err)

	same := vp.WithRange(500, 500)
	assert.Equal(t, vp, same, "invalid range keeps the receiver")

	moved := vp.WithRange(2000, 3000)
	assert.Equal(t, int64(2000), moved.Start)
}

func TestWithVerticalScaleIsCopyOnWrite(t *testing.T) {
	vp, err := New(0, 1000, 100)
	require.NoError(t, err)

	a := vp.WithVerticalScale("ch", VerticalScale{ValueMin: -1, ValueMax: 1, PixelHeight: 40})
	_, ok := vp.VerticalFor("ch")
	assert.False(t, ok, "the original viewport is untouched")

	vs, ok := a.VerticalFor("ch")
	require.True(t, ok)
	assert.Equal(t, 40, vs.PixelHeight)

	b := a.WithVerticalScale("ch", VerticalScale{ValueMin: 0, ValueMax: 10, PixelHeight: 20})
	vs, _ = a.VerticalFor("ch")
	assert.Equal(t, 40, vs.PixelHeight, "updates never mutate prior snapshots")
	vs, _ = b.VerticalFor("ch")
	assert.Equal(t, 20, vs.PixelHeight)
}

func TestValueToPixel(t *testing.T) {
	vs := VerticalScale{ValueMin: -1, ValueMax: 1, PixelHeight: 11}

	assert.Equal(t, 0, vs.ValueToPixel(1), "ValueMax maps to the top row")
	assert.Equal(t, 10, vs.ValueToPixel(-1), "ValueMin maps to the bottom row")
	assert.Equal(t, 5, vs.ValueToPixel(0))

	// Out-of-range values clamp to the band.
	assert.Equal(t, 0, vs.ValueToPixel(99))
	assert.Equal(t, 10, vs.ValueToPixel(-99))
}
