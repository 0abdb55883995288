package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/wave"
	"github.com/openscope/wavescope/internal/data/ingest"
	"github.com/openscope/wavescope/internal/data/loader"
	"github.com/openscope/wavescope/internal/testing/fixtures"
)

const tailWait = 10 * time.Second

func newTailerFixture(t *testing.T) (*fixtures.SignalGenerator, *loader.Loader, *store.Store) {
	t.Helper()
	st := store.New()
	return fixtures.NewSignalGenerator(t.TempDir()), loader.New(ingest.NewPipeline(st, ingest.Config{})), st
}

func channelLen(t *testing.T, st *store.Store, id wave.ChannelID) int64 {
	t.Helper()
	ch, err := st.Channel(id)
	require.NoError(t, err)
	return ch.Len()
}

// waitForLen polls until the channel reaches want samples. Filesystem events
// arrive on the watcher's schedule, so the test waits rather than counting
// update signals.
func waitForLen(t *testing.T, st *store.Store, id wave.ChannelID, want int64) {
	t.Helper()
	deadline := time.Now().Add(tailWait)
	for time.Now().Before(deadline) {
		if ch, err := st.Channel(id); err == nil && ch.Len() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("channel %s never reached %d samples", id, want)
}

func TestTailerDrainsExistingContents(t *testing.T) {
	gen, l, st := newTailerFixture(t)
	path, err := gen.WriteCapture("live.jsonl", fixtures.CaptureChannel{
		Meta:    wave.ChannelMeta{ID: "sig", NominalRate: 1000},
		Samples: fixtures.Ramp(0, 1000, 50, 1),
	})
	require.NoError(t, err)

	tl, err := NewTailer(l, path)
	require.NoError(t, err)
	defer tl.Close()

	assert.Equal(t, int64(50), channelLen(t, st, "sig"),
		"existing contents are ingested before watching starts")
	assert.Equal(t, 0, tl.Result().Rejected)
}

func TestTailerIngestsAppendedSamples(t *testing.T) {
	gen, l, st := newTailerFixture(t)
	path, err := gen.WriteCapture("live.jsonl", fixtures.CaptureChannel{
		Meta:    wave.ChannelMeta{ID: "sig", NominalRate: 1000},
		Samples: fixtures.Ramp(0, 1000, 10, 1),
	})
	require.NoError(t, err)

	tl, err := NewTailer(l, path)
	require.NoError(t, err)
	defer tl.Close()
	require.Equal(t, int64(10), channelLen(t, st, "sig"))

	require.NoError(t, gen.AppendSamples("live.jsonl", "sig", fixtures.Ramp(10_000, 1000, 5, 1)))
	waitForLen(t, st, "sig", 15)

	select {
	case <-tl.Updates():
	case <-time.After(tailWait):
		t.Fatal("no update signal after append")
	}
}

func TestTailerRereadsAfterTruncation(t *testing.T) {
	gen, l, st := newTailerFixture(t)
	path, err := gen.WriteCapture("live.jsonl", fixtures.CaptureChannel{
		Meta:    wave.ChannelMeta{ID: "sig", NominalRate: 1000},
		Samples: fixtures.Ramp(0, 1000, 20, 1),
	})
	require.NoError(t, err)

	tl, err := NewTailer(l, path)
	require.NoError(t, err)
	defer tl.Close()
	require.Equal(t, int64(20), channelLen(t, st, "sig"))

	// A rotated capture starts over with a shorter file. Its samples carry
	// later timestamps, so they extend the channel rather than collide.
	_, err = gen.WriteRawLines("live.jsonl",
		`{"ch":"sig","t":100000,"v":1}`,
		`{"ch":"sig","t":101000,"v":2}`,
	)
	require.NoError(t, err)
	waitForLen(t, st, "sig", 22)
}

func TestTailerRejectsCompressedCaptures(t *testing.T) {
	_, l, _ := newTailerFixture(t)

	_, err := NewTailer(l, "capture.jsonl.gz")
	assert.ErrorContains(t, err, "cannot follow compressed capture")

	_, err = NewTailer(l, "capture.jsonl.zst")
	assert.Error(t, err)
}

func TestTailerClose(t *testing.T) {
	gen, l, _ := newTailerFixture(t)
	path, err := gen.WriteRawLines("live.jsonl", `{"ch":"sig","t":0,"v":1}`)
	require.NoError(t, err)

	tl, err := NewTailer(l, path)
	require.NoError(t, err)
	require.NoError(t, tl.Close(), "close stops the watch goroutine cleanly")
}
