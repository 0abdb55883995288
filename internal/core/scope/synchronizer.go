package scope

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/openscope/wavescope/internal/core/cache"
	"github.com/openscope/wavescope/internal/core/measure"
	"github.com/openscope/wavescope/internal/core/pyramid"
	"github.com/openscope/wavescope/internal/core/render"
	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/viewport"
	"github.com/openscope/wavescope/internal/core/wave"
	"github.com/openscope/wavescope/internal/util"
)

// ChannelFrame is one channel's slice of a frame.
type ChannelFrame struct {
	ID    wave.ChannelID
	Meta  wave.ChannelMeta
	Scale viewport.VerticalScale
	Set   *render.Set
}

// Frame is the complete drawable output for one render pass. Every channel
// in it was built against the same viewport snapshot, which is what keeps
// the channels visually time-aligned.
type Frame struct {
	Viewport viewport.Viewport
	Channels []ChannelFrame
	Markers  []measure.MarkerLabel
}

type slot struct {
	id      wave.ChannelID
	channel *store.Channel
	builder *render.Builder
	visible bool
}

// Synchronizer owns the shared time axis. It holds the current viewport as
// an atomically swapped immutable snapshot, fans each frame out to every
// visible channel's builder, and keeps markers channel-agnostic via the
// measurement engine. The lower layers are stateless per frame, so a
// viewport change invalidates nothing; the next BuildFrame simply reads the
// new snapshot.
type Synchronizer struct {
	vp     atomic.Pointer[viewport.Viewport]
	engine *measure.Engine
	sets   *cache.RenderCache

	mu    sync.RWMutex
	slots []*slot
}

// NewSynchronizer creates a synchronizer starting at vp.
func NewSynchronizer(vp viewport.Viewport, engine *measure.Engine) (*Synchronizer, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	s := &Synchronizer{
		engine: engine,
		sets:   cache.NewRenderCache(0),
	}
	s.vp.Store(&vp)
	return s, nil
}

// AddChannel registers a channel and its pyramid; channels render in
// registration order.
func (s *Synchronizer) AddChannel(ch *store.Channel, pyr *pyramid.Pyramid) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots = append(s.slots, &slot{
		id:      ch.Meta().ID,
		channel: ch,
		builder: render.NewBuilder(ch, pyr),
		visible: true,
	})
}

// SetVisible toggles whether a channel renders.
func (s *Synchronizer) SetVisible(id wave.ChannelID, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sl := range s.slots {
		if sl.id == id {
			sl.visible = visible
			return nil
		}
	}
	return wave.ErrUnknownChannel
}

// Viewport returns the current viewport snapshot.
func (s *Synchronizer) Viewport() viewport.Viewport {
	return *s.vp.Load()
}

// SetViewport validates and swaps in a new viewport. An invalid viewport is
// rejected and the prior one stays in effect.
func (s *Synchronizer) SetViewport(vp viewport.Viewport) error {
	if err := vp.Validate(); err != nil {
		return err
	}
	s.vp.Store(&vp)
	return nil
}

// Update applies fn to the current viewport and swaps in the result if it is
// valid, returning the viewport now in effect. Interaction runs on a single
// goroutine, so load-modify-store here does not race with itself; renders on
// other goroutines just keep whichever snapshot they loaded.
func (s *Synchronizer) Update(fn func(viewport.Viewport) viewport.Viewport) viewport.Viewport {
	cur := *s.vp.Load()
	next := fn(cur)
	if next.Validate() != nil {
		return cur
	}
	s.vp.Store(&next)
	return next
}

// Engine returns the measurement engine sharing this time axis.
func (s *Synchronizer) Engine() *measure.Engine {
	return s.engine
}

// BuildFrame renders every visible channel against one viewport snapshot.
// A channel that fails to build degrades to an empty set for this frame; a
// cancelled context abandons the whole frame so no stale output reaches the
// display.
func (s *Synchronizer) BuildFrame(ctx context.Context) (*Frame, error) {
	vp := *s.vp.Load()

	s.mu.RLock()
	slots := make([]*slot, len(s.slots))
	copy(slots, s.slots)
	s.mu.RUnlock()

	frame := &Frame{Viewport: vp}
	for _, sl := range slots {
		if !sl.visible {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// The key carries the channel's length and base, so any ingestion or
		// retention change makes prior entries unreachable.
		key := fmt.Sprintf("%s|%d|%d|%d|%d|%d",
			sl.id, vp.Start, vp.End, vp.Width, sl.channel.Len(), sl.channel.Base())
		set, ok := s.sets.Get(key)
		if !ok {
			var err error
			set, err = sl.builder.Build(ctx, vp)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				util.LogWarnf("render %s: %v", sl.id, err)
				set = &render.Set{Channel: sl.id}
			} else {
				s.sets.Put(key, set)
			}
		}
		scale, ok := vp.VerticalFor(sl.id)
		if !ok {
			scale = autoScale(set)
		}
		frame.Channels = append(frame.Channels, ChannelFrame{
			ID:    sl.id,
			Meta:  sl.channel.Meta(),
			Scale: scale,
			Set:   set,
		})
	}
	if s.engine != nil {
		frame.Markers = s.engine.Labels(vp)
	}
	return frame, nil
}

// autoScale fits the vertical range to the frame's own extremes with a small
// headroom. The pixel band is left for the display to assign.
func autoScale(set *render.Set) viewport.VerticalScale {
	if set.Empty() {
		return viewport.VerticalScale{ValueMin: -1, ValueMax: 1}
	}
	var lo, hi float64
	first := true
	for _, p := range set.Points {
		if first || p.V < lo {
			lo = p.V
		}
		if first || p.V > hi {
			hi = p.V
		}
		first = false
	}
	for _, c := range set.Columns {
		if first || c.Min < lo {
			lo = c.Min
		}
		if first || c.Max > hi {
			hi = c.Max
		}
		first = false
	}
	if lo == hi {
		lo--
		hi++
	}
	pad := (hi - lo) * 0.05
	return viewport.VerticalScale{ValueMin: lo - pad, ValueMax: hi + pad}
}
