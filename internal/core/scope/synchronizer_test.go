package scope

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscope/wavescope/internal/core/measure"
	"github.com/openscope/wavescope/internal/core/pyramid"
	"github.com/openscope/wavescope/internal/core/render"
	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/viewport"
	"github.com/openscope/wavescope/internal/core/wave"
)

func newTestScope(t *testing.T, ids ...wave.ChannelID) (*Synchronizer, *store.Store) {
	t.Helper()
	st := store.New()
	vp, err := viewport.New(0, 1000*1000, 100)
	require.NoError(t, err)

	s, err := NewSynchronizer(vp, measure.NewEngine(st, measure.ValueNearest))
	require.NoError(t, err)

	for _, id := range ids {
		ch := st.CreateChannel(wave.ChannelMeta{ID: id})
		pyr := pyramid.New(ch, 16)
		for i := 0; i < 1000; i++ {
			s := wave.Sample{T: int64(i) * 1000, V: float64(i % 50)}
			require.NoError(t, ch.Append(s))
			pyr.Extend(s)
		}
		s.AddChannel(ch, pyr)
	}
	return s, st
}

func TestNewSynchronizerRejectsInvalidViewport(t *testing.T) {
	_, err := NewSynchronizer(viewport.Viewport{Start: 5, End: 5, Width: 10}, nil)
	assert.ErrorIs(t, err, wave.ErrInvalidViewport)
}

func TestBuildFrameSharesOneViewport(t *testing.T) {
	s, _ := newTestScope(t, "a", "b", "c")

	frame, err := s.BuildFrame(context.Background())
	require.NoError(t, err)
	require.Len(t, frame.Channels, 3)

	// Every channel was built against the same snapshot: the frame carries
	// exactly one viewport and the channel order is registration order.
	assert.Equal(t, s.Viewport(), frame.Viewport)
	assert.Equal(t, wave.ChannelID("a"), frame.Channels[0].ID)
	assert.Equal(t, wave.ChannelID("c"), frame.Channels[2].ID)
	for _, cf := range frame.Channels {
		assert.False(t, cf.Set.Empty())
	}
}

func TestSetViewportRejectsInvalidKeepsPrior(t *testing.T) {
	s, _ := newTestScope(t, "a")
	prior := s.Viewport()

	err := s.SetViewport(viewport.Viewport{Start: 10, End: 5, Width: 100})
	assert.ErrorIs(t, err, wave.ErrInvalidViewport)
	assert.Equal(t, prior, s.Viewport(), "the prior viewport stays in effect")
}

func TestUpdateDiscardsInvalidResult(t *testing.T) {
	s, _ := newTestScope(t, "a")
	prior := s.Viewport()

	got := s.Update(func(vp viewport.Viewport) viewport.Viewport {
		return viewport.Viewport{}
	})
	assert.Equal(t, prior, got)
	assert.Equal(t, prior, s.Viewport())

	got = s.Update(func(vp viewport.Viewport) viewport.Viewport {
		return vp.Pan(10)
	})
	assert.NotEqual(t, prior, got)
	assert.Equal(t, got, s.Viewport())
}

func TestSetVisible(t *testing.T) {
	s, _ := newTestScope(t, "a", "b")

	require.NoError(t, s.SetVisible("b", false))
	frame, err := s.BuildFrame(context.Background())
	require.NoError(t, err)
	require.Len(t, frame.Channels, 1)
	assert.Equal(t, wave.ChannelID("a"), frame.Channels[0].ID)

	assert.ErrorIs(t, s.SetVisible("missing", true), wave.ErrUnknownChannel)
}

func TestBuildFrameCancelled(t *testing.T) {
	s, _ := newTestScope(t, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.BuildFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled,
		"a cancelled frame is abandoned, never partially delivered")
}

func TestBuildFrameEmptyChannelDegrades(t *testing.T) {
	st := store.New()
	vp, err := viewport.New(0, 1000, 100)
	require.NoError(t, err)
	s, err := NewSynchronizer(vp, measure.NewEngine(st, measure.ValueNearest))
	require.NoError(t, err)

	ch := st.CreateChannel(wave.ChannelMeta{ID: "empty"})
	s.AddChannel(ch, pyramid.New(ch, 16))

	frame, err := s.BuildFrame(context.Background())
	require.NoError(t, err)
	require.Len(t, frame.Channels, 1)
	assert.True(t, frame.Channels[0].Set.Empty(), "an empty channel renders empty, not an error")
}

func TestBuildFrameCarriesMarkers(t *testing.T) {
	s, _ := newTestScope(t, "a")
	s.Engine().AddMarker(500 * 1000)
	s.Engine().AddMarker(5_000_000_000) // outside the window

	frame, err := s.BuildFrame(context.Background())
	require.NoError(t, err)
	require.Len(t, frame.Markers, 1, "only visible markers reach the frame")
}

func TestBuildFrameReusesCachedSets(t *testing.T) {
	s, _ := newTestScope(t, "a")

	first, err := s.BuildFrame(context.Background())
	require.NoError(t, err)
	second, err := s.BuildFrame(context.Background())
	require.NoError(t, err)

	assert.Same(t, first.Channels[0].Set, second.Channels[0].Set,
		"identical viewport over unchanged data reuses the built set")
}

func TestBuildFrameRebuildsAfterIngest(t *testing.T) {
	s, st := newTestScope(t, "a")

	first, err := s.BuildFrame(context.Background())
	require.NoError(t, err)

	ch, err := st.Channel("a")
	require.NoError(t, err)
	require.NoError(t, ch.Append(wave.Sample{T: 2_000_000, V: 1}))

	second, err := s.BuildFrame(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first.Channels[0].Set, second.Channels[0].Set,
		"new data invalidates the cached set")
}

func TestAutoScalePadsExtremes(t *testing.T) {
	set := &render.Set{
		Mode: render.ModeBars,
		Columns: []render.Column{
			{X: 0, Min: -10, Max: 10},
			{X: 1, Min: -2, Max: 30},
		},
	}
	vs := autoScale(set)
	assert.Less(t, vs.ValueMin, -10.0)
	assert.Greater(t, vs.ValueMax, 30.0)

	flat := &render.Set{Mode: render.ModeLines, Points: []render.Point{{X: 0, V: 7}}}
	vs = autoScale(flat)
	assert.Less(t, vs.ValueMin, 7.0)
	assert.Greater(t, vs.ValueMax, 7.0, "a flat trace still gets a non-degenerate scale")

	vs = autoScale(&render.Set{})
	assert.Less(t, vs.ValueMin, vs.ValueMax)
}

func TestConcurrentViewportSwapDuringBuild(t *testing.T) {
	s, _ := newTestScope(t, "a", "b")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.Update(func(vp viewport.Viewport) viewport.Viewport {
				return vp.Pan(1)
			})
		}
	}()

	deadline := time.After(5 * time.Second)
	for i := 0; i < 50; i++ {
		select {
		case <-deadline:
			t.Fatal("frame building stalled")
		default:
		}
		frame, err := s.BuildFrame(context.Background())
		require.NoError(t, err)
		// The frame is internally consistent regardless of concurrent swaps.
		require.NoError(t, frame.Viewport.Validate())
	}
	<-done
}
