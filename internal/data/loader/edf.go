package loader

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/edf"

	"github.com/openscope/wavescope/internal/core/wave"
	"github.com/openscope/wavescope/internal/util"
)

// edfReadChunk is how many samples are pulled per signal read.
const edfReadChunk = 4096

// edfLayout is the slice of the EDF header the loader needs to lay signals
// out on the time axis. The edf package decodes the sample data (including
// the digital-to-physical calibration); it does not expose the parsed
// header, so these few fields are scanned here.
type edfLayout struct {
	signalCount      int
	dataRecords      int
	recordDuration   time.Duration
	labels           []string
	dimensions       []string
	samplesPerRecord []int
}

// loadEDF ingests an EDF/EDF+ recording, one wavescope channel per signal.
// Timestamps are synthesized from the record duration: EDF signals are
// evenly spaced within a record, with sample j of a signal at
// j * recordDuration / samplesPerRecord from the start of the recording.
func (l *Loader) loadEDF(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	layout, err := scanEDFLayout(f)
	if err != nil {
		return nil, fmt.Errorf("parsing EDF header of %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	er, err := edf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("opening EDF %s: %w", path, err)
	}

	res := &Result{Path: path}
	for i := 0; i < layout.signalCount; i++ {
		id := channelIDForSignal(layout.labels[i], i)
		rate := 0.0
		if layout.recordDuration > 0 {
			rate = float64(layout.samplesPerRecord[i]) / layout.recordDuration.Seconds()
		}
		l.pipeline.BeginChannelMeta(wave.ChannelMeta{
			ID:          id,
			Label:       layout.labels[i],
			Unit:        layout.dimensions[i],
			NominalRate: rate,
		})
		res.Channels = append(res.Channels, id)

		if err := l.loadEDFSignal(er, layout, i, id, res); err != nil {
			return res, err
		}
		if err := l.pipeline.EndOfStream(id); err != nil {
			return res, err
		}
	}
	util.LogDebugf("loaded %s: %d signals, %d records, %d rejected",
		path, layout.signalCount, res.Records, res.Rejected)
	return res, nil
}

func (l *Loader) loadEDFSignal(er *edf.Reader, layout *edfLayout, idx int, id wave.ChannelID, res *Result) error {
	sr, err := er.Signal(idx)
	if err != nil {
		return fmt.Errorf("signal %d: %w", idx, err)
	}

	spr := int64(layout.samplesPerRecord[idx])
	recNs := layout.recordDuration.Nanoseconds()
	buf := make([]float64, edfReadChunk)
	var j int64
	for {
		n, err := sr.Read(buf)
		for k := 0; k < n; k++ {
			// Split the division so the timestamp math stays exact for
			// arbitrarily long recordings.
			t := (j/spr)*recNs + (j%spr)*recNs/spr
			j++
			res.Records++
			if aerr := l.pipeline.Append(id, t, buf[k]); aerr != nil {
				res.recordError(&wave.RecordError{Source: res.Path, Line: int(j), Err: aerr})
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading signal %d: %w", idx, err)
		}
	}
}

func channelIDForSignal(label string, idx int) wave.ChannelID {
	label = strings.TrimSpace(label)
	if label == "" {
		return wave.ChannelID(fmt.Sprintf("signal-%d", idx))
	}
	return wave.ChannelID(label)
}

// scanEDFLayout reads the header fields the loader needs. EDF headers are
// fixed-width ASCII: 256 bytes of file-level fields, then per-field arrays
// for the signals.
func scanEDFLayout(r io.Reader) (*edfLayout, error) {
	fixed := make([]byte, 256)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, err
	}

	layout := &edfLayout{}
	var err error
	if layout.dataRecords, err = strconv.Atoi(strings.TrimSpace(string(fixed[236:244]))); err != nil {
		return nil, fmt.Errorf("data record count: %w", err)
	}
	durSec, err := strconv.ParseFloat(strings.TrimSpace(string(fixed[244:252])), 64)
	if err != nil {
		return nil, fmt.Errorf("record duration: %w", err)
	}
	layout.recordDuration = time.Duration(durSec * float64(time.Second))
	if layout.signalCount, err = strconv.Atoi(strings.TrimSpace(string(fixed[252:256]))); err != nil {
		return nil, fmt.Errorf("signal count: %w", err)
	}
	ns := layout.signalCount
	if ns <= 0 {
		return nil, fmt.Errorf("no signals in header")
	}

	readColumn := func(width int) ([]string, error) {
		buf := make([]byte, width*ns)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		out := make([]string, ns)
		for i := 0; i < ns; i++ {
			out[i] = strings.TrimSpace(string(buf[i*width : (i+1)*width]))
		}
		return out, nil
	}

	if layout.labels, err = readColumn(16); err != nil {
		return nil, fmt.Errorf("signal labels: %w", err)
	}
	if _, err = readColumn(80); err != nil { // transducer types
		return nil, err
	}
	if layout.dimensions, err = readColumn(8); err != nil {
		return nil, fmt.Errorf("signal dimensions: %w", err)
	}
	for _, width := range []int{8, 8, 8, 8, 80} { // phys/dig min/max, prefiltering
		if _, err = readColumn(width); err != nil {
			return nil, err
		}
	}
	counts, err := readColumn(8)
	if err != nil {
		return nil, fmt.Errorf("samples per record: %w", err)
	}
	layout.samplesPerRecord = make([]int, ns)
	for i, c := range counts {
		if layout.samplesPerRecord[i], err = strconv.Atoi(c); err != nil {
			return nil, fmt.Errorf("samples per record for signal %d: %w", i, err)
		}
		if layout.samplesPerRecord[i] <= 0 {
			return nil, fmt.Errorf("signal %d has no samples per record", i)
		}
	}
	return layout, nil
}
