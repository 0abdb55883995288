package pyramid

import (
	"sync"

	"github.com/openscope/wavescope/internal/core/wave"
)

// DefaultBranch is the branching factor used when none is configured.
// Wider blocks keep the tree shallow and the per-sample extend cost low at
// the price of a slightly larger fringe recomputation per query.
const DefaultBranch = 16

// rebuildChunk is the batch size for pulling raw samples during Rebuild.
const rebuildChunk = 4096

// RawSource is the raw-sample view the pyramid summarizes. *store.Channel
// implements it; any other source format only needs these three calls.
type RawSource interface {
	// IndexRange returns the absolute half-open index range of samples with
	// t0 <= T <= t1.
	IndexRange(t0, t1 int64) (lo, hi int64)
	// Samples copies out the samples at absolute indices [lo, hi), clipped
	// to what is retained.
	Samples(lo, hi int64) []wave.Sample
	// Base is the absolute index of the oldest retained sample.
	Base() int64
	// Len is the absolute number of samples ever accepted.
	Len() int64
}

// level is one decimation tier. A finalized block at this level summarizes
// exactly span raw samples; block i (counting from the pyramid origin) covers
// absolute raw indices [origin + i*span, origin + (i+1)*span). The open block
// is the still-filling tail and is the only block ever updated in place.
type level struct {
	span   int64
	base   int64 // block index of blocks[0], counting from the origin
	blocks []wave.Block
	open   wave.Block
}

// Pyramid is the per-channel min/max decimation hierarchy. It is maintained
// incrementally as samples stream in: each new sample touches only the single
// open chain of blocks from leaf to root, so the amortized cost per sample is
// O(log_B N) and O(1) in the typical case.
//
// The pyramid is never ahead of its source: summaries cover a prefix of the
// accepted samples, and QueryRange fills whatever the summaries do not yet
// cover from raw samples.
type Pyramid struct {
	mu       sync.RWMutex
	branch   int64
	source   RawSource
	origin   int64 // absolute raw index where the block grid starts
	consumed int64 // absolute raw index consumed so far
	levels   []*level
}

// New creates an empty pyramid over source. branch <= 1 selects
// DefaultBranch. The factor is fixed for the life of the instance.
func New(source RawSource, branch int) *Pyramid {
	if branch <= 1 {
		branch = DefaultBranch
	}
	p := &Pyramid{
		branch: int64(branch),
		source: source,
	}
	p.reset()
	return p
}

// Build constructs a fully populated pyramid over the source's current
// contents in one pass.
func Build(source RawSource, branch int) *Pyramid {
	p := New(source, branch)
	p.Rebuild()
	return p
}

func (p *Pyramid) reset() {
	p.origin = p.source.Base()
	p.consumed = p.origin
	p.levels = []*level{{span: p.branch}}
}

// Branch returns the branching factor.
func (p *Pyramid) Branch() int {
	return int(p.branch)
}

// Consumed returns the absolute raw index the summaries cover up to.
func (p *Pyramid) Consumed() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.consumed
}

// Depth returns the number of levels currently allocated.
func (p *Pyramid) Depth() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.levels)
}

// Rebuild discards all summaries and rebuilds them from the source. The
// result is block-for-block identical to what incremental Extend calls on the
// same sample sequence produce.
func (p *Pyramid) Rebuild() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset()
	for {
		chunk := p.source.Samples(p.consumed, p.consumed+rebuildChunk)
		if len(chunk) == 0 {
			return
		}
		for _, s := range chunk {
			p.extendLocked(s)
		}
	}
}

// Extend folds newly appended samples into the summaries. Samples must be
// handed over in append order, once each; the ingestion pipeline is the
// single caller per channel.
func (p *Pyramid) Extend(newSamples ...wave.Sample) {
	if len(newSamples) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range newSamples {
		p.extendLocked(s)
	}
}

func (p *Pyramid) extendLocked(s wave.Sample) {
	lvl := p.levels[0]
	lvl.open.Absorb(s)
	p.consumed++
	if int64(lvl.open.Count) == lvl.span {
		p.finalizeLocked(0)
	}
}

// finalizeLocked seals the open block at level k and propagates it upward,
// growing the tree by one level when the root fills.
func (p *Pyramid) finalizeLocked(k int) {
	lvl := p.levels[k]
	blk := lvl.open
	lvl.blocks = append(lvl.blocks, blk)
	lvl.open = wave.Block{}

	if k+1 == len(p.levels) {
		p.levels = append(p.levels, &level{span: lvl.span * p.branch})
	}
	parent := p.levels[k+1]
	parent.open.AbsorbBlock(blk)
	if int64(parent.open.Count) == parent.span {
		p.finalizeLocked(k + 1)
	}
}

// TrimBefore drops finalized blocks that lie entirely below the absolute raw
// index base, tracking head truncation in the source. Blocks straddling base
// stay; queries exclude them and recompute the fringe from raw samples.
func (p *Pyramid) TrimBefore(base int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rel := base - p.origin
	for _, lvl := range p.levels {
		for len(lvl.blocks) > 0 && (lvl.base+1)*lvl.span <= rel {
			lvl.blocks = lvl.blocks[1:]
			lvl.base++
		}
	}
}
