package fixtures

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"

	"github.com/openscope/wavescope/internal/core/wave"
	"github.com/openscope/wavescope/internal/data/loader"
)

// SignalGenerator writes synthetic capture files for tests.
type SignalGenerator struct {
	baseDir string
}

// NewSignalGenerator creates a generator writing under baseDir.
func NewSignalGenerator(baseDir string) *SignalGenerator {
	return &SignalGenerator{baseDir: baseDir}
}

// Sine returns n samples of a sine wave: amplitude amp, frequency hz, sampled
// every spacing nanoseconds starting at start.
func Sine(start, spacing int64, n int, amp, hz float64) []wave.Sample {
	samples := make([]wave.Sample, n)
	for i := range samples {
		t := start + int64(i)*spacing
		seconds := float64(t) / float64(time.Second)
		samples[i] = wave.Sample{T: t, V: amp * math.Sin(2*math.Pi*hz*seconds)}
	}
	return samples
}

// Square returns n samples of a square wave alternating between -amp and amp
// every half-period samples.
func Square(start, spacing int64, n, halfPeriod int, amp float64) []wave.Sample {
	samples := make([]wave.Sample, n)
	for i := range samples {
		v := amp
		if (i/halfPeriod)%2 == 1 {
			v = -amp
		}
		samples[i] = wave.Sample{T: start + int64(i)*spacing, V: v}
	}
	return samples
}

// Ramp returns n samples climbing linearly from 0 to (n-1)*step.
func Ramp(start, spacing int64, n int, step float64) []wave.Sample {
	samples := make([]wave.Sample, n)
	for i := range samples {
		samples[i] = wave.Sample{T: start + int64(i)*spacing, V: float64(i) * step}
	}
	return samples
}

// CaptureChannel is one channel of a generated capture file.
type CaptureChannel struct {
	Meta    wave.ChannelMeta
	Samples []wave.Sample
}

// WriteCapture writes channels as a JSONL capture: a begin record per
// channel, the interleaved samples in time order, then end records. Returns
// the file path.
func (g *SignalGenerator) WriteCapture(name string, channels ...CaptureChannel) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return path, writeRecords(f, captureRecords(channels))
}

// WriteGzipCapture is WriteCapture with gzip compression; name should end in
// .jsonl.gz.
func (g *SignalGenerator) WriteGzipCapture(name string, channels ...CaptureChannel) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := writeRecords(zw, captureRecords(channels)); err != nil {
		zw.Close()
		return "", err
	}
	return path, zw.Close()
}

// WriteRawLines writes the given lines verbatim, for corrupt-capture tests.
func (g *SignalGenerator) WriteRawLines(name string, lines ...string) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return "", err
		}
	}
	return path, nil
}

// AppendSamples appends sample records to an existing capture, for tail tests.
func (g *SignalGenerator) AppendSamples(name string, id wave.ChannelID, samples []wave.Sample) error {
	f, err := os.OpenFile(filepath.Join(g.baseDir, name), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	records := make([]loader.Record, len(samples))
	for i, s := range samples {
		records[i] = loader.Record{Ch: string(id), T: s.T, V: s.V}
	}
	return writeRecords(f, records)
}

// captureRecords flattens channels into begin records, time-ordered samples,
// and end records.
func captureRecords(channels []CaptureChannel) []loader.Record {
	var records []loader.Record
	for _, ch := range channels {
		records = append(records, loader.Record{
			Type:  "begin",
			Ch:    string(ch.Meta.ID),
			Rate:  ch.Meta.NominalRate,
			Label: ch.Meta.Label,
			Unit:  ch.Meta.Unit,
		})
	}

	// Merge the channel sample streams in time order so multi-channel
	// captures ingest the way a real recorder writes them.
	cursors := make([]int, len(channels))
	for {
		best := -1
		for i, ch := range channels {
			if cursors[i] >= len(ch.Samples) {
				continue
			}
			if best < 0 || ch.Samples[cursors[i]].T < channels[best].Samples[cursors[best]].T {
				best = i
			}
		}
		if best < 0 {
			break
		}
		s := channels[best].Samples[cursors[best]]
		records = append(records, loader.Record{Ch: string(channels[best].Meta.ID), T: s.T, V: s.V})
		cursors[best]++
	}

	for _, ch := range channels {
		records = append(records, loader.Record{Type: "end", Ch: string(ch.Meta.ID)})
	}
	return records
}

func writeRecords(w io.Writer, records []loader.Record) error {
	for _, rec := range records {
		line, err := sonic.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}
