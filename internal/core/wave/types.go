package wave

import "time"

// Sample is a single timestamped amplitude value. T is in nanoseconds on the
// shared time axis; the axis origin is whatever the ingesting source chose
// (usually the start of the recording).
type Sample struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

// ChannelID identifies a channel on the shared time axis.
type ChannelID string

// ChannelMeta describes a channel independent of its sample data.
type ChannelMeta struct {
	ID          ChannelID `json:"id"`
	Label       string    `json:"label,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	NominalRate float64   `json:"nominalRate,omitempty"` // samples per second, 0 = unknown
}

// NominalSpacing returns the nominal inter-sample spacing in nanoseconds,
// or 0 when the rate is unknown. Actual spacing may be irregular.
func (m ChannelMeta) NominalSpacing() int64 {
	if m.NominalRate <= 0 {
		return 0
	}
	return int64(float64(time.Second) / m.NominalRate)
}

// Block is one decimation summary unit: exact min/max/sum plus first/last over
// the raw samples it covers. Start and End are the timestamps of the first and
// last covered sample (inclusive on both ends).
type Block struct {
	Start int64
	End   int64
	Min   float64
	Max   float64
	Sum   float64
	First float64
	Last  float64
	Count int
}

// Mean returns the exact mean of the covered raw samples, or 0 for an empty
// block.
func (b Block) Mean() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.Sum / float64(b.Count)
}

// Absorb folds a single raw sample into the block summary.
func (b *Block) Absorb(s Sample) {
	if b.Count == 0 {
		b.Start = s.T
		b.Min = s.V
		b.Max = s.V
		b.First = s.V
	} else {
		if s.V < b.Min {
			b.Min = s.V
		}
		if s.V > b.Max {
			b.Max = s.V
		}
	}
	b.End = s.T
	b.Last = s.V
	b.Sum += s.V
	b.Count++
}

// AbsorbBlock folds a finished child block into the block summary. Children
// must be absorbed in time order. Min/max commute under nested grouping, so
// the result is exact over all raw samples covered.
func (b *Block) AbsorbBlock(c Block) {
	if c.Count == 0 {
		return
	}
	if b.Count == 0 {
		b.Start = c.Start
		b.Min = c.Min
		b.Max = c.Max
		b.First = c.First
	} else {
		if c.Min < b.Min {
			b.Min = c.Min
		}
		if c.Max > b.Max {
			b.Max = c.Max
		}
	}
	b.End = c.End
	b.Last = c.Last
	b.Sum += c.Sum
	b.Count += c.Count
}

// Summarize builds one exact block over a run of raw samples.
func Summarize(samples []Sample) Block {
	var b Block
	for _, s := range samples {
		b.Absorb(s)
	}
	return b
}
