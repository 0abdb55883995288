package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openscope/wavescope/internal/core/wave"
	"github.com/openscope/wavescope/internal/data/ingest"
)

// maxReportedErrors caps how many per-record errors a Result carries; the
// counter keeps the true total.
const maxReportedErrors = 100

// Result summarizes one load: which channels arrived and what failed.
type Result struct {
	Path       string
	Channels   []wave.ChannelID
	Records    int
	Rejected   int
	RecordErrs []*wave.RecordError
}

func (r *Result) recordError(err *wave.RecordError) {
	r.Rejected++
	if len(r.RecordErrs) < maxReportedErrors {
		r.RecordErrs = append(r.RecordErrs, err)
	}
}

// Loader feeds capture files into the ingestion pipeline. Formats are
// external collaborators behind one uniform sink interface; the loader only
// picks the decoder by file extension.
type Loader struct {
	pipeline *ingest.Pipeline
}

// New creates a loader feeding p.
func New(p *ingest.Pipeline) *Loader {
	return &Loader{pipeline: p}
}

// Load ingests one capture file, choosing the decoder from the extension:
// .edf for EDF/EDF+ recordings, .jsonl/.ndjson (optionally .gz or .zst
// compressed) for line-delimited JSON captures.
func (l *Loader) Load(path string) (*Result, error) {
	switch {
	case strings.EqualFold(filepath.Ext(path), ".edf"):
		return l.loadEDF(path)
	case isJSONL(path):
		return l.loadJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported capture format: %s", filepath.Base(path))
	}
}

func isJSONL(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, ext := range []string{".gz", ".zst"} {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.HasSuffix(base, ".jsonl") || strings.HasSuffix(base, ".ndjson")
}
