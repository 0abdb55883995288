package store

import (
	"sync"

	"github.com/openscope/wavescope/internal/core/wave"
)

// Store owns the per-channel sample sequences. It is the single ingestion
// sink: channels grow only by append, plus head truncation under a configured
// retention bound for streaming sources.
type Store struct {
	mu       sync.RWMutex
	channels map[wave.ChannelID]*Channel
	order    []wave.ChannelID
}

// New creates an empty store.
func New() *Store {
	return &Store{
		channels: make(map[wave.ChannelID]*Channel),
	}
}

// CreateChannel registers a channel. Registering an existing id updates its
// metadata and returns the existing channel, so a source may re-announce a
// channel without losing data.
func (s *Store) CreateChannel(meta wave.ChannelMeta) *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.channels[meta.ID]; ok {
		ch.setMeta(meta)
		return ch
	}

	ch := &Channel{meta: meta}
	s.channels[meta.ID] = ch
	s.order = append(s.order, meta.ID)
	return ch
}

// Channel looks up a channel by id.
func (s *Store) Channel(id wave.ChannelID) (*Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[id]
	if !ok {
		return nil, wave.ErrUnknownChannel
	}
	return ch, nil
}

// Channels returns all channels in registration order.
func (s *Store) Channels() []*Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Channel, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.channels[id])
	}
	return out
}

// Span returns the union time span across all non-empty channels.
func (s *Store) Span() (t0, t1 int64, ok bool) {
	for _, ch := range s.Channels() {
		c0, c1, err := ch.Span()
		if err != nil {
			continue
		}
		if !ok || c0 < t0 {
			t0 = c0
		}
		if !ok || c1 > t1 {
			t1 = c1
		}
		ok = true
	}
	return t0, t1, ok
}
