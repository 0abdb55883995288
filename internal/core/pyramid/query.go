package pyramid

import (
	"github.com/openscope/wavescope/internal/core/wave"
)

// QueryRange returns a block sequence whose union covers exactly the samples
// with t0 <= T <= t1, using the coarsest level whose per-block span is at
// most len(range)/targetBlockCount samples. Boundary blocks that only partly
// overlap the range are replaced by exact summaries recomputed from raw
// samples, so the result never hides an extremum and never shows one from
// outside the range: min/max across the returned blocks equals min/max over
// every raw sample in [t0, t1].
//
// Cost is proportional to the number of returned blocks plus a bounded
// fringe, never to the total sample count.
func (p *Pyramid) QueryRange(t0, t1 int64, targetBlockCount int) ([]wave.Block, error) {
	if t0 >= t1 {
		return nil, wave.ErrEmptyRange
	}
	lo, hi := p.source.IndexRange(t0, t1)
	if lo >= hi {
		return nil, wave.ErrEmptyRange
	}
	if targetBlockCount <= 0 {
		targetBlockCount = 1
	}
	want := (hi - lo) / int64(targetBlockCount)

	summaries, covLo, covHi := p.summaries(lo, hi, want)
	if len(summaries) == 0 {
		return p.rawBlocks(lo, hi, targetBlockCount), nil
	}

	out := make([]wave.Block, 0, len(summaries)+2)
	if head := p.source.Samples(lo, covLo); len(head) > 0 {
		out = append(out, wave.Summarize(head))
	}
	out = append(out, summaries...)
	if tail := p.source.Samples(covHi, hi); len(tail) > 0 {
		out = append(out, wave.Summarize(tail))
	}
	return out, nil
}

// summaries copies out the run of finalized blocks (plus the open block when
// it fits) fully inside the absolute raw index range [lo, hi) at the coarsest
// level whose span is <= want. It returns the covered sub-range [covLo,
// covHi); the caller fills the rest from raw samples.
func (p *Pyramid) summaries(lo, hi, want int64) (blocks []wave.Block, covLo, covHi int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Start at the coarsest qualifying level; an unaligned or trimmed range
	// may hold no whole block there, in which case the next finer level is
	// tried before giving up to the raw fallback.
	for k := len(p.levels) - 1; k >= 0; k-- {
		if p.levels[k].span > want {
			continue
		}
		if blocks, covLo, covHi = p.levelRun(p.levels[k], lo, hi); len(blocks) > 0 {
			return blocks, covLo, covHi
		}
	}
	return nil, 0, 0
}

// levelRun selects the run of blocks at one level fully inside [lo, hi).
func (p *Pyramid) levelRun(lvl *level, lo, hi int64) (blocks []wave.Block, covLo, covHi int64) {
	rel0 := lo - p.origin
	rel1 := hi - p.origin
	span := lvl.span

	// Finalized blocks fully inside [rel0, rel1).
	iStart := (rel0 + span - 1) / span
	iEnd := rel1 / span
	if iStart < lvl.base {
		iStart = lvl.base
	}
	if max := lvl.base + int64(len(lvl.blocks)); iEnd > max {
		iEnd = max
	}
	if iStart < iEnd {
		blocks = make([]wave.Block, iEnd-iStart)
		copy(blocks, lvl.blocks[iStart-lvl.base:iEnd-lvl.base])
		covLo = p.origin + iStart*span
		covHi = p.origin + iEnd*span
	}

	// The open block sits right after the finalized run; include it when it
	// is contiguous with the run and fully inside the range.
	openStart := (lvl.base + int64(len(lvl.blocks))) * span
	if lvl.open.Count > 0 && openStart+int64(lvl.open.Count) <= rel1 {
		switch {
		case len(blocks) > 0 && covHi == p.origin+openStart:
			blocks = append(blocks, lvl.open)
			covHi = p.origin + openStart + int64(lvl.open.Count)
		case len(blocks) == 0 && openStart >= rel0:
			blocks = []wave.Block{lvl.open}
			covLo = p.origin + openStart
			covHi = covLo + int64(lvl.open.Count)
		}
	}
	return blocks, covLo, covHi
}

// rawBlocks is the fallback when even the finest level is too coarse for the
// requested density: group the raw samples directly into exact summaries of
// roughly equal size. The sample count here is below branch*targetBlockCount,
// so the cost stays proportional to the result size.
func (p *Pyramid) rawBlocks(lo, hi int64, targetBlockCount int) []wave.Block {
	samples := p.source.Samples(lo, hi)
	if len(samples) == 0 {
		return nil
	}
	group := (len(samples) + targetBlockCount - 1) / targetBlockCount
	if group < 1 {
		group = 1
	}
	out := make([]wave.Block, 0, (len(samples)+group-1)/group)
	for i := 0; i < len(samples); i += group {
		j := i + group
		if j > len(samples) {
			j = len(samples)
		}
		out = append(out, wave.Summarize(samples[i:j]))
	}
	return out
}
