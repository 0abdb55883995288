package viewport

import (
	"math"

	"github.com/openscope/wavescope/internal/core/wave"
)

// VerticalScale maps a channel's value range onto its pixel band.
type VerticalScale struct {
	ValueMin    float64
	ValueMax    float64
	PixelHeight int
	PixelOffset int
}

// ValueToPixel maps an amplitude to a y coordinate inside the band, with
// ValueMax at the top row.
func (v VerticalScale) ValueToPixel(val float64) int {
	if v.ValueMax == v.ValueMin || v.PixelHeight <= 0 {
		return v.PixelOffset
	}
	frac := (v.ValueMax - val) / (v.ValueMax - v.ValueMin)
	y := v.PixelOffset + int(math.Round(frac*float64(v.PixelHeight-1)))
	if y < v.PixelOffset {
		y = v.PixelOffset
	}
	if max := v.PixelOffset + v.PixelHeight - 1; y > max {
		y = max
	}
	return y
}

// Viewport is the visible time window and its horizontal pixel mapping, plus
// the per-channel vertical scales. It is an immutable value: every mutation
// returns a new Viewport, and the synchronizer swaps the current one
// atomically, so render readers never need a lock mid-frame.
type Viewport struct {
	Start int64 // visible range start, ns
	End   int64 // visible range end, ns (exclusive edge of the last column)
	Width int   // pixel columns

	// Pan/zoom clamp bounds; both zero means unclamped.
	ClampStart int64
	ClampEnd   int64

	vertical map[wave.ChannelID]VerticalScale
}

// New creates a viewport over [start, end) that is width pixels wide.
func New(start, end int64, width int) (Viewport, error) {
	vp := Viewport{Start: start, End: end, Width: width}
	if err := vp.Validate(); err != nil {
		return Viewport{}, err
	}
	return vp, nil
}

// Validate rejects inverted time ranges and non-positive widths.
func (vp Viewport) Validate() error {
	if vp.Start >= vp.End || vp.Width <= 0 {
		return wave.ErrInvalidViewport
	}
	return nil
}

// Span returns the visible duration in nanoseconds.
func (vp Viewport) Span() int64 {
	return vp.End - vp.Start
}

// TimeToPixel maps a time to its pixel column. The result may fall outside
// [0, Width) for times outside the visible range.
func (vp Viewport) TimeToPixel(t int64) int {
	return int(math.Round(float64(t-vp.Start) / float64(vp.Span()) * float64(vp.Width)))
}

// PixelToTime is the exact continuous inverse of the forward map: no pixel
// quantization, so repeated zoom/pan arithmetic does not drift.
func (vp Viewport) PixelToTime(x float64) float64 {
	return float64(vp.Start) + x/float64(vp.Width)*float64(vp.Span())
}

// VerticalFor returns the vertical scale configured for a channel.
func (vp Viewport) VerticalFor(id wave.ChannelID) (VerticalScale, bool) {
	vs, ok := vp.vertical[id]
	return vs, ok
}

// WithVerticalScale returns a copy with one channel's vertical scale
// replaced. Scales are independent per channel.
func (vp Viewport) WithVerticalScale(id wave.ChannelID, vs VerticalScale) Viewport {
	next := make(map[wave.ChannelID]VerticalScale, len(vp.vertical)+1)
	for k, v := range vp.vertical {
		next[k] = v
	}
	next[id] = vs
	vp.vertical = next
	return vp
}

// WithClamp returns a copy that disallows panning or zooming past
// [start, end].
func (vp Viewport) WithClamp(start, end int64) Viewport {
	vp.ClampStart = start
	vp.ClampEnd = end
	return vp
}

// Zoom rescales the visible range by factor, keeping the time under
// anchorPixel fixed. Factors below 1 zoom in. The result is clamped and the
// span never collapses below one nanosecond.
func (vp Viewport) Zoom(anchorPixel int, factor float64) Viewport {
	if factor <= 0 {
		return vp
	}
	anchor := vp.PixelToTime(float64(anchorPixel))
	span := float64(vp.Span()) * factor
	if span < 1 {
		span = 1
	}
	start := anchor - (anchor-float64(vp.Start))*factor
	next := vp
	next.Start = int64(math.Round(start))
	next.End = int64(math.Round(start + span))
	if next.End <= next.Start {
		next.End = next.Start + 1
	}
	return next.clamped()
}

// Pan shifts the visible range by deltaPixels columns; positive deltas move
// the window toward later times.
func (vp Viewport) Pan(deltaPixels int) Viewport {
	dt := int64(math.Round(float64(deltaPixels) / float64(vp.Width) * float64(vp.Span())))
	next := vp
	next.Start += dt
	next.End += dt
	return next.clamped()
}

// WithRange returns a copy showing [start, end); invalid ranges keep the
// receiver unchanged.
func (vp Viewport) WithRange(start, end int64) Viewport {
	next := vp
	next.Start = start
	next.End = end
	if next.Validate() != nil {
		return vp
	}
	return next.clamped()
}

// WithWidth returns a copy with a new pixel width; non-positive widths keep
// the receiver unchanged.
func (vp Viewport) WithWidth(width int) Viewport {
	if width <= 0 {
		return vp
	}
	vp.Width = width
	return vp
}

// clamped slides the window back inside the clamp bounds, shrinking it when
// it is wider than the bounds themselves.
func (vp Viewport) clamped() Viewport {
	if vp.ClampStart == 0 && vp.ClampEnd == 0 {
		return vp
	}
	span := vp.Span()
	if bound := vp.ClampEnd - vp.ClampStart; span > bound {
		vp.Start = vp.ClampStart
		vp.End = vp.ClampEnd
		return vp
	}
	if vp.Start < vp.ClampStart {
		vp.Start = vp.ClampStart
		vp.End = vp.ClampStart + span
	}
	if vp.End > vp.ClampEnd {
		vp.End = vp.ClampEnd
		vp.Start = vp.ClampEnd - span
	}
	return vp
}
