package render

import (
	"context"
	"errors"

	"github.com/openscope/wavescope/internal/core/pyramid"
	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/viewport"
	"github.com/openscope/wavescope/internal/core/wave"
)

// cancelCheck is how many blocks or samples are processed between context
// checks, so a stale frame can be abandoned promptly without paying a check
// per element.
const cancelCheck = 256

// Builder turns one channel's data into the primitive sequence for one
// frame. It holds no per-frame state; every Build reads a fresh snapshot of
// the store and pyramid, so nothing needs invalidating when the viewport
// changes.
type Builder struct {
	channel *store.Channel
	pyr     *pyramid.Pyramid
}

// NewBuilder creates a builder over one channel and its pyramid.
func NewBuilder(channel *store.Channel, pyr *pyramid.Pyramid) *Builder {
	return &Builder{channel: channel, pyr: pyr}
}

// SamplesPerPixel computes the mode threshold for a viewport: how many raw
// samples land on one pixel column. It uses the channel's nominal spacing
// when known and falls back to the actual in-range sample count otherwise.
func (b *Builder) SamplesPerPixel(vp viewport.Viewport) float64 {
	if spacing := b.channel.Meta().NominalSpacing(); spacing > 0 {
		return float64(vp.Span()) / float64(vp.Width) / float64(spacing)
	}
	return float64(b.channel.CountRange(vp.Start, vp.End)) / float64(vp.Width)
}

// Build produces the render set for the visible range. The single threshold
// rule is the entire level-of-detail policy: at most one sample per column
// draws connected line segments from raw samples, anything denser draws
// merged min/max bars from the pyramid. ctx cancellation abandons the frame
// with ctx's error; the partial result is discarded.
func (b *Builder) Build(ctx context.Context, vp viewport.Viewport) (*Set, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	set := &Set{Channel: b.channel.Meta().ID}
	if b.SamplesPerPixel(vp) <= 1 {
		set.Mode = ModeLines
		return b.buildLines(ctx, vp, set)
	}
	set.Mode = ModeBars
	return b.buildBars(ctx, vp, set)
}

// buildLines maps each visible raw sample to a point; the drawing surface
// connects consecutive points with straight segments (linear interpolation
// between samples, no curve fitting).
func (b *Builder) buildLines(ctx context.Context, vp viewport.Viewport, set *Set) (*Set, error) {
	samples, err := b.channel.RangeQuery(vp.Start, vp.End)
	if err != nil {
		if errors.Is(err, wave.ErrEmptyRange) || errors.Is(err, wave.ErrEmptyChannel) {
			return set, nil
		}
		return nil, err
	}
	set.Points = make([]Point, 0, len(samples))
	for i, s := range samples {
		if i%cancelCheck == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		set.Points = append(set.Points, Point{X: vp.TimeToPixel(s.T), V: s.V})
	}
	return set, nil
}

// buildBars asks the pyramid for one block per pixel column and merges the
// blocks that land on the same column (min of mins, max of maxes), so the
// output length never exceeds the pixel width and no extremum is lost.
func (b *Builder) buildBars(ctx context.Context, vp viewport.Viewport, set *Set) (*Set, error) {
	blocks, err := b.pyr.QueryRange(vp.Start, vp.End, vp.Width)
	if err != nil {
		if errors.Is(err, wave.ErrEmptyRange) {
			return set, nil
		}
		return nil, err
	}

	merged := make([]Column, vp.Width)
	filled := make([]bool, vp.Width)
	for i, blk := range blocks {
		if i%cancelCheck == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		x := vp.TimeToPixel(blk.Start + (blk.End-blk.Start)/2)
		if x < 0 {
			x = 0
		}
		if x >= vp.Width {
			x = vp.Width - 1
		}
		if !filled[x] {
			merged[x] = Column{X: x, Min: blk.Min, Max: blk.Max}
			filled[x] = true
			continue
		}
		if blk.Min < merged[x].Min {
			merged[x].Min = blk.Min
		}
		if blk.Max > merged[x].Max {
			merged[x].Max = blk.Max
		}
	}

	set.Columns = make([]Column, 0, len(blocks))
	for x, ok := range filled {
		if ok {
			set.Columns = append(set.Columns, merged[x])
		}
	}
	return set, nil
}
