package store

import (
	"sort"
	"sync"

	"github.com/openscope/wavescope/internal/core/wave"
)

// Channel is one append-only sample sequence guarded by a reader-writer lock.
// There is a single writer per channel (the ingestion pipeline); renders and
// measurements read concurrently and always copy results out, so no caller
// ever aliases the guarded slice.
//
// Indices handed out by IndexRange/Samples are absolute: they keep their
// meaning across head truncation. base is the absolute index of samples[0].
type Channel struct {
	mu       sync.RWMutex
	meta     wave.ChannelMeta
	samples  []wave.Sample
	base     int64
	retain   int
	complete bool
}

func (c *Channel) setMeta(meta wave.ChannelMeta) {
	c.mu.Lock()
	c.meta = meta
	c.mu.Unlock()
}

// Meta returns the channel metadata.
func (c *Channel) Meta() wave.ChannelMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta
}

// SetRetention bounds the number of retained samples; 0 means unlimited.
// When the bound is exceeded the oldest samples roll over in whole batches.
func (c *Channel) SetRetention(n int) {
	c.mu.Lock()
	c.retain = n
	c.mu.Unlock()
}

// MarkComplete records that the source reached end of stream.
func (c *Channel) MarkComplete() {
	c.mu.Lock()
	c.complete = true
	c.mu.Unlock()
}

// Complete reports whether end of stream was seen.
func (c *Channel) Complete() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.complete
}

// Append adds one sample. Timestamps must be non-decreasing; equal timestamps
// are kept in arrival order. A violating sample is rejected with
// wave.ErrOutOfOrderSample and the channel stays usable.
func (c *Channel) Append(s wave.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.samples); n > 0 && s.T < c.samples[n-1].T {
		return wave.ErrOutOfOrderSample
	}
	c.samples = append(c.samples, s)

	// Roll over in batches of retain/4 so the copy amortizes to O(1).
	if c.retain > 0 && len(c.samples) > c.retain+c.retain/4 {
		drop := len(c.samples) - c.retain
		kept := make([]wave.Sample, len(c.samples)-drop, c.retain+c.retain/4+1)
		copy(kept, c.samples[drop:])
		c.samples = kept
		c.base += int64(drop)
	}
	return nil
}

// Len returns the absolute number of samples ever accepted, including any
// that rolled over.
func (c *Channel) Len() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base + int64(len(c.samples))
}

// Base returns the absolute index of the oldest retained sample.
func (c *Channel) Base() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base
}

// Span returns the timestamps of the oldest and newest retained samples.
func (c *Channel) Span() (t0, t1 int64, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.samples) == 0 {
		return 0, 0, wave.ErrEmptyChannel
	}
	return c.samples[0].T, c.samples[len(c.samples)-1].T, nil
}

// RangeQuery returns a copy of all samples with t0 <= T <= t1 in timestamp
// order. Both binary searches are O(log N); the copy is O(K).
func (c *Channel) RangeQuery(t0, t1 int64) ([]wave.Sample, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lo, hi := c.indexRangeLocked(t0, t1)
	if lo >= hi {
		return nil, wave.ErrEmptyRange
	}
	out := make([]wave.Sample, hi-lo)
	copy(out, c.samples[lo-c.base:hi-c.base])
	return out, nil
}

// CountRange returns the number of samples with t0 <= T <= t1.
func (c *Channel) CountRange(t0, t1 int64) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lo, hi := c.indexRangeLocked(t0, t1)
	if lo >= hi {
		return 0
	}
	return hi - lo
}

// IndexRange returns the absolute half-open index range [lo, hi) of samples
// with t0 <= T <= t1.
func (c *Channel) IndexRange(t0, t1 int64) (lo, hi int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexRangeLocked(t0, t1)
}

func (c *Channel) indexRangeLocked(t0, t1 int64) (lo, hi int64) {
	if t0 > t1 {
		return 0, 0
	}
	i := sort.Search(len(c.samples), func(i int) bool { return c.samples[i].T >= t0 })
	j := sort.Search(len(c.samples), func(i int) bool { return c.samples[i].T > t1 })
	return c.base + int64(i), c.base + int64(j)
}

// Samples returns a copy of the samples at absolute indices [lo, hi),
// clipped to the retained window.
func (c *Channel) Samples(lo, hi int64) []wave.Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if lo < c.base {
		lo = c.base
	}
	if max := c.base + int64(len(c.samples)); hi > max {
		hi = max
	}
	if lo >= hi {
		return nil
	}
	out := make([]wave.Sample, hi-lo)
	copy(out, c.samples[lo-c.base:hi-c.base])
	return out
}

// Nearest returns the retained sample whose timestamp is closest to t.
// An exact halfway tie breaks toward the later sample.
func (c *Channel) Nearest(t int64) (wave.Sample, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nearestLocked(t)
}

// NearestAll resolves every time to its closest retained sample under one
// lock acquisition, so a multi-point measurement observes a single store
// state: no append can land between the reads.
func (c *Channel) NearestAll(ts ...int64) ([]wave.Sample, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]wave.Sample, len(ts))
	for i, t := range ts {
		s, err := c.nearestLocked(t)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (c *Channel) nearestLocked(t int64) (wave.Sample, error) {
	if len(c.samples) == 0 {
		return wave.Sample{}, wave.ErrEmptyChannel
	}
	i := sort.Search(len(c.samples), func(i int) bool { return c.samples[i].T >= t })
	if i == len(c.samples) {
		return c.samples[i-1], nil
	}
	if i == 0 {
		return c.samples[0], nil
	}
	if c.samples[i].T-t <= t-c.samples[i-1].T {
		return c.samples[i], nil
	}
	return c.samples[i-1], nil
}

// Bracket returns the two samples surrounding t for interpolation: the last
// sample at or before t and the first at or after it. Outside the retained
// span both ends are the boundary sample.
func (c *Channel) Bracket(t int64) (before, after wave.Sample, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bracketLocked(t)
}

// BracketAll resolves the bracketing pair for every time under one lock
// acquisition; the consistency contract matches NearestAll.
func (c *Channel) BracketAll(ts ...int64) (befores, afters []wave.Sample, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	befores = make([]wave.Sample, len(ts))
	afters = make([]wave.Sample, len(ts))
	for i, t := range ts {
		b, a, err := c.bracketLocked(t)
		if err != nil {
			return nil, nil, err
		}
		befores[i], afters[i] = b, a
	}
	return befores, afters, nil
}

func (c *Channel) bracketLocked(t int64) (before, after wave.Sample, err error) {
	if len(c.samples) == 0 {
		return wave.Sample{}, wave.Sample{}, wave.ErrEmptyChannel
	}
	i := sort.Search(len(c.samples), func(i int) bool { return c.samples[i].T >= t })
	switch {
	case i == len(c.samples):
		last := c.samples[i-1]
		return last, last, nil
	case i == 0 || c.samples[i].T == t:
		return c.samples[i], c.samples[i], nil
	default:
		return c.samples[i-1], c.samples[i], nil
	}
}
