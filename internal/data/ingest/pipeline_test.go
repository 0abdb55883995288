package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscope/wavescope/internal/core/store"
	"github.com/openscope/wavescope/internal/core/wave"
)

func TestAppendFlowsToStoreAndPyramid(t *testing.T) {
	p := NewPipeline(store.New(), Config{Branch: 4})
	p.BeginChannel("sig", 1000)

	for i := 0; i < 20; i++ {
		require.NoError(t, p.Append("sig", int64(i)*1000, float64(i)))
	}

	ch, err := p.Channel("sig")
	require.NoError(t, err)
	assert.Equal(t, int64(20), ch.Len())

	pyr, err := p.Pyramid("sig")
	require.NoError(t, err)
	assert.Equal(t, int64(20), pyr.Consumed(), "the pyramid tracks every accepted sample")

	accepted, rejected := p.Stats()
	assert.Equal(t, int64(20), accepted)
	assert.Equal(t, int64(0), rejected)
}

func TestAppendUnknownChannel(t *testing.T) {
	p := NewPipeline(store.New(), Config{})

	err := p.Append("ghost", 100, 1)
	assert.ErrorIs(t, err, wave.ErrUnknownChannel)

	_, rejected := p.Stats()
	assert.Equal(t, int64(1), rejected)
}

func TestAppendOutOfOrderRejectedStreamContinues(t *testing.T) {
	p := NewPipeline(store.New(), Config{})
	p.BeginChannel("sig", 0)

	require.NoError(t, p.Append("sig", 200, 1))
	assert.ErrorIs(t, p.Append("sig", 100, 2), wave.ErrOutOfOrderSample)
	require.NoError(t, p.Append("sig", 300, 3), "one bad sample costs one sample")

	ch, err := p.Channel("sig")
	require.NoError(t, err)
	assert.Equal(t, int64(2), ch.Len())

	pyr, err := p.Pyramid("sig")
	require.NoError(t, err)
	assert.Equal(t, int64(2), pyr.Consumed(), "rejected samples never reach the pyramid")
}

func TestRetentionTrimsPyramid(t *testing.T) {
	p := NewPipeline(store.New(), Config{Branch: 4, Retention: 64})
	p.BeginChannel("sig", 0)

	for i := 0; i < 500; i++ {
		require.NoError(t, p.Append("sig", int64(i)*1000, float64(i%10)))
	}

	ch, err := p.Channel("sig")
	require.NoError(t, err)
	require.Greater(t, ch.Base(), int64(0))

	// The retained span still answers queries exactly.
	t0, t1, serr := ch.Span()
	require.NoError(t, serr)
	pyr, err := p.Pyramid("sig")
	require.NoError(t, err)
	blocks, qerr := pyr.QueryRange(t0, t1, 8)
	require.NoError(t, qerr)

	total := 0
	for _, b := range blocks {
		total += b.Count
	}
	assert.Equal(t, int(ch.Len()-ch.Base()), total)
}

func TestBeginChannelIdempotent(t *testing.T) {
	p := NewPipeline(store.New(), Config{})
	p.BeginChannel("sig", 100)
	require.NoError(t, p.Append("sig", 100, 1))

	p.BeginChannelMeta(wave.ChannelMeta{ID: "sig", Label: "Signal", NominalRate: 200})

	ch, err := p.Channel("sig")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ch.Len(), "re-announcing keeps the data")
	assert.Equal(t, "Signal", ch.Meta().Label)
	assert.Equal(t, 200.0, ch.Meta().NominalRate)
}

func TestEndOfStream(t *testing.T) {
	p := NewPipeline(store.New(), Config{})
	p.BeginChannel("sig", 0)

	require.NoError(t, p.EndOfStream("sig"))
	ch, err := p.Channel("sig")
	require.NoError(t, err)
	assert.True(t, ch.Complete())

	assert.ErrorIs(t, p.EndOfStream("ghost"), wave.ErrUnknownChannel)
}
