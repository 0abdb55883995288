package render

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscope/wavescope/internal/core/pyramid"
	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/viewport"
	"github.com/openscope/wavescope/internal/core/wave"
)

func newTestBuilder(t *testing.T, meta wave.ChannelMeta, samples []wave.Sample) (*Builder, *store.Channel) {
	t.Helper()
	ch := store.New().CreateChannel(meta)
	for _, s := range samples {
		require.NoError(t, ch.Append(s))
	}
	return NewBuilder(ch, pyramid.Build(ch, 16)), ch
}

func evenSamples(n int, spacing int64) []wave.Sample {
	rng := rand.New(rand.NewSource(11))
	samples := make([]wave.Sample, n)
	for i := range samples {
		samples[i] = wave.Sample{T: int64(i) * spacing, V: rng.Float64()*20 - 10}
	}
	return samples
}

func TestBuildDenseWindowProducesBars(t *testing.T) {
	// 1000 samples squeezed into 500 columns: two samples per column.
	samples := evenSamples(1000, 1000)
	b, ch := newTestBuilder(t, wave.ChannelMeta{ID: "dense"}, samples)

	vp, err := viewport.New(0, 1000*1000, 500)
	require.NoError(t, err)

	set, err := b.Build(context.Background(), vp)
	require.NoError(t, err)
	assert.Equal(t, ModeBars, set.Mode)
	assert.Empty(t, set.Points)
	assert.LessOrEqual(t, len(set.Columns), 500, "never more columns than pixels")
	assert.NotEmpty(t, set.Columns)

	// The envelope must reproduce the true extrema of the window.
	raw, err := ch.RangeQuery(vp.Start, vp.End)
	require.NoError(t, err)
	wantMin, wantMax := raw[0].V, raw[0].V
	for _, s := range raw {
		if s.V < wantMin {
			wantMin = s.V
		}
		if s.V > wantMax {
			wantMax = s.V
		}
	}
	gotMin, gotMax := set.Columns[0].Min, set.Columns[0].Max
	for _, c := range set.Columns {
		if c.Min < gotMin {
			gotMin = c.Min
		}
		if c.Max > gotMax {
			gotMax = c.Max
		}
		assert.GreaterOrEqual(t, c.Max, c.Min)
		assert.GreaterOrEqual(t, c.X, 0)
		assert.Less(t, c.X, vp.Width)
	}
	assert.Equal(t, wantMin, gotMin)
	assert.Equal(t, wantMax, gotMax)

	// Columns come out in pixel order.
	for i := 1; i < len(set.Columns); i++ {
		assert.Greater(t, set.Columns[i].X, set.Columns[i-1].X)
	}
}

func TestBuildSparseWindowProducesLines(t *testing.T) {
	samples := evenSamples(10, 1000)
	b, _ := newTestBuilder(t, wave.ChannelMeta{ID: "sparse"}, samples)

	// 10 samples across 100 columns: well under one sample per column.
	vp, err := viewport.New(0, 10*1000, 100)
	require.NoError(t, err)

	set, err := b.Build(context.Background(), vp)
	require.NoError(t, err)
	assert.Equal(t, ModeLines, set.Mode)
	assert.Empty(t, set.Columns)
	require.Len(t, set.Points, 10, "every raw sample becomes a point")
	for i, p := range set.Points {
		assert.Equal(t, vp.TimeToPixel(samples[i].T), p.X)
		assert.Equal(t, samples[i].V, p.V)
	}
}

func TestModeSwitchesWithZoom(t *testing.T) {
	// Nominal rate 1 MHz: spacing 1000ns. At width 100 the mode flips when
	// the span crosses 100 samples' worth of time.
	meta := wave.ChannelMeta{ID: "rated", NominalRate: 1e6}
	samples := evenSamples(10000, 1000)
	b, _ := newTestBuilder(t, meta, samples)

	wide, err := viewport.New(0, 10000*1000, 100)
	require.NoError(t, err)
	set, err := b.Build(context.Background(), wide)
	require.NoError(t, err)
	assert.Equal(t, ModeBars, set.Mode)

	narrow, err := viewport.New(0, 100*1000, 100)
	require.NoError(t, err)
	set, err = b.Build(context.Background(), narrow)
	require.NoError(t, err)
	assert.Equal(t, ModeLines, set.Mode, "exactly one sample per pixel renders as lines")
}

func TestSamplesPerPixelFallsBackToCount(t *testing.T) {
	// No nominal rate: the threshold uses the actual in-range count.
	samples := evenSamples(400, 1000)
	b, _ := newTestBuilder(t, wave.ChannelMeta{ID: "unrated"}, samples)

	vp, err := viewport.New(0, 400*1000, 100)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, b.SamplesPerPixel(vp), 0.01)
}

func TestBuildEmptyWindowDegradesToEmptySet(t *testing.T) {
	samples := evenSamples(100, 1000)
	b, _ := newTestBuilder(t, wave.ChannelMeta{ID: "ch"}, samples)

	// A valid window past the data renders empty rather than failing.
	vp, err := viewport.New(1_000_000_000, 2_000_000_000, 100)
	require.NoError(t, err)

	set, err := b.Build(context.Background(), vp)
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

func TestBuildRejectsInvalidViewport(t *testing.T) {
	samples := evenSamples(10, 1000)
	b, _ := newTestBuilder(t, wave.ChannelMeta{ID: "ch"}, samples)

	_, err := b.Build(context.Background(), viewport.Viewport{Start: 10, End: 5, Width: 100})
	assert.ErrorIs(t, err, wave.ErrInvalidViewport)
}

func TestBuildHonorsCancellation(t *testing.T) {
	samples := evenSamples(50000, 1000)
	b, _ := newTestBuilder(t, wave.ChannelMeta{ID: "ch"}, samples)

	vp, err := viewport.New(0, 50000*1000, 500)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Build(ctx, vp)
	assert.ErrorIs(t, err, context.Canceled)
}
