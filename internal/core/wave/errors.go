package wave

import (
	"errors"
	"fmt"
)

// Recoverable error kinds of the core pipeline. All of them are call-boundary
// errors: the caller handles them (skip a record, draw nothing, keep the prior
// viewport) and the process keeps running.
var (
	// ErrOutOfOrderSample rejects an append whose timestamp precedes the last
	// accepted sample of the channel. The store is left unchanged.
	ErrOutOfOrderSample = errors.New("sample timestamp precedes last appended sample")

	// ErrEmptyChannel is returned by point queries against a channel with no
	// samples.
	ErrEmptyChannel = errors.New("channel has no samples")

	// ErrEmptyRange is returned by range queries over an inverted range or a
	// range intersecting no data.
	ErrEmptyRange = errors.New("no samples in time range")

	// ErrZeroPeriod rejects a frequency or slew measurement between two
	// markers at the same instant.
	ErrZeroPeriod = errors.New("marker interval has zero duration")

	// ErrInvalidViewport rejects a viewport with a non-positive pixel width
	// or an inverted time range. The prior viewport stays in effect.
	ErrInvalidViewport = errors.New("viewport has non-positive width or inverted time range")

	// ErrUnknownChannel is returned for operations against a channel id that
	// was never registered.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrUnknownMarker is returned for measurements against a removed or
	// never-created marker id.
	ErrUnknownMarker = errors.New("unknown marker")
)

// RecordError reports a single failed ingestion record with its position in
// the source, so a malformed file pinpoints exactly which record failed while
// the rest of the stream continues.
type RecordError struct {
	Source string
	Line   int
	Err    error
}

func (e *RecordError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("record %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
