package ingest

import (
	"sync"
	"sync/atomic"

	"github.com/openscope/wavescope/internal/core/pyramid"
	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/wave"
)

// Config tunes the pipeline.
type Config struct {
	// Branch is the pyramid branching factor; 0 selects the default.
	Branch int
	// Retention bounds retained samples per channel; 0 keeps everything.
	Retention int
}

// channelWriter pairs a channel with its pyramid. Writes to one channel all
// go through its writer, which keeps ingestion single-writer per channel;
// different channels ingest independently.
type channelWriter struct {
	mu      sync.Mutex
	channel *store.Channel
	pyr     *pyramid.Pyramid
	base    int64
}

// Pipeline is the ingestion sink the file/format parsers feed. Every
// accepted sample lands in the store and extends the channel's pyramid; a
// rejected sample reports its error to the caller and leaves the channel
// usable, so a malformed source file fails record by record instead of
// aborting the stream.
type Pipeline struct {
	cfg   Config
	store *store.Store

	mu      sync.RWMutex
	writers map[wave.ChannelID]*channelWriter

	accepted atomic.Int64
	rejected atomic.Int64
}

// NewPipeline creates a pipeline over st.
func NewPipeline(st *store.Store, cfg Config) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		writers: make(map[wave.ChannelID]*channelWriter),
	}
}

// Store returns the underlying sample store.
func (p *Pipeline) Store() *store.Store {
	return p.store
}

// BeginChannel announces a channel before its samples arrive. Re-announcing
// an existing channel updates the metadata and keeps its data.
func (p *Pipeline) BeginChannel(id wave.ChannelID, nominalRate float64) {
	p.BeginChannelMeta(wave.ChannelMeta{ID: id, Label: string(id), NominalRate: nominalRate})
}

// BeginChannelMeta is BeginChannel with full metadata.
func (p *Pipeline) BeginChannelMeta(meta wave.ChannelMeta) {
	ch := p.store.CreateChannel(meta)
	if p.cfg.Retention > 0 {
		ch.SetRetention(p.cfg.Retention)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.writers[meta.ID]; !ok {
		p.writers[meta.ID] = &channelWriter{
			channel: ch,
			pyr:     pyramid.New(ch, p.cfg.Branch),
			base:    ch.Base(),
		}
	}
}

func (p *Pipeline) writer(id wave.ChannelID) (*channelWriter, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	w, ok := p.writers[id]
	if !ok {
		return nil, wave.ErrUnknownChannel
	}
	return w, nil
}

// Append ingests one sample. Out-of-order timestamps are rejected with
// wave.ErrOutOfOrderSample; unknown channels with wave.ErrUnknownChannel.
func (p *Pipeline) Append(id wave.ChannelID, t int64, v float64) error {
	w, err := p.writer(id)
	if err != nil {
		p.rejected.Add(1)
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	s := wave.Sample{T: t, V: v}
	if err := w.channel.Append(s); err != nil {
		p.rejected.Add(1)
		return err
	}
	w.pyr.Extend(s)
	if base := w.channel.Base(); base != w.base {
		w.base = base
		w.pyr.TrimBefore(base)
	}
	p.accepted.Add(1)
	return nil
}

// EndOfStream marks a channel complete.
func (p *Pipeline) EndOfStream(id wave.ChannelID) error {
	w, err := p.writer(id)
	if err != nil {
		return err
	}
	w.channel.MarkComplete()
	return nil
}

// Pyramid returns the decimation pyramid for a channel.
func (p *Pipeline) Pyramid(id wave.ChannelID) (*pyramid.Pyramid, error) {
	w, err := p.writer(id)
	if err != nil {
		return nil, err
	}
	return w.pyr, nil
}

// Channel returns the store channel for an id.
func (p *Pipeline) Channel(id wave.ChannelID) (*store.Channel, error) {
	return p.store.Channel(id)
}

// Stats reports accepted and rejected sample counts across all channels.
func (p *Pipeline) Stats() (accepted, rejected int64) {
	return p.accepted.Load(), p.rejected.Load()
}
