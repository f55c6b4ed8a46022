package sgengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave-audio/sgengine/config"
	"github.com/tidewave-audio/sgengine/processors"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(config.EngineConfig{SampleRate: 48000}, PanicErrorHandler{})
	t.Cleanup(e.Close)
	return e
}

func whiteNoiseGraph(t *testing.T) *sound.Graph {
	t.Helper()
	g := sound.NewGraph()
	_, outIn, err := processors.NewOutput(g, "out")
	require.NoError(t, err)
	noise, err := processors.NewWhiteNoise(g, "noise", 0.2)
	require.NoError(t, err)
	require.NoError(t, g.SetTarget(outIn.ID, &noise.ID))
	return g
}

func TestSubmitGraphThenRunBlockProducesAudio(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SubmitGraph(whiteNoiseGraph(t)))

	// SubmitGraph blocks until its edit batch is already queued, so the
	// very next RunBlock call is guaranteed to pick it up.
	var dst rt.Chunk
	e.RunBlock(&dst, 0)
	require.Equal(t, 1, e.RootCount())

	nonZero := false
	for _, v := range dst.L {
		if v != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero)
}

func TestSubmitGraphIsIdempotentUnderIncrementalStrategy(t *testing.T) {
	e := newTestEngine(t)
	g := whiteNoiseGraph(t)
	require.NoError(t, e.SubmitGraph(g))

	var dst rt.Chunk
	e.RunBlock(&dst, 0)
	firstGen := e.Generation()

	require.NoError(t, e.SubmitGraph(g))
	e.RunBlock(&dst, rt.ChunkSize)
	assert.NotEqual(t, firstGen, e.Generation()) // generation always advances...
	assert.Equal(t, 1, e.RootCount())            // ...but the compiled root is reused, not duplicated
}

func TestSubmitGraphRemovesProcessorOnNextBlock(t *testing.T) {
	e := newTestEngine(t)
	g := whiteNoiseGraph(t)
	require.NoError(t, e.SubmitGraph(g))

	var dst rt.Chunk
	e.RunBlock(&dst, 0)
	require.Equal(t, 1, e.RootCount())

	empty := sound.NewGraph()
	require.NoError(t, e.SubmitGraph(empty))
	e.RunBlock(&dst, rt.ChunkSize)
	assert.Equal(t, 0, e.RootCount())
	for _, v := range dst.L {
		assert.Zero(t, v)
	}
}

func TestSubmitGraphRejectsInvalidGraph(t *testing.T) {
	e := NewEngine(config.EngineConfig{SampleRate: 48000}, DefaultErrorHandler{})
	t.Cleanup(e.Close)
	g := sound.NewGraph()
	owner := g.AddProcessor(processors.Definitions{}, "owner")
	in, err := g.AddInput(owner.ID, rt.Aniso, 2, nil)
	require.NoError(t, err)
	require.NoError(t, g.SetTarget(in.ID, &owner.ID)) // self-cycle

	err = e.SubmitGraph(g)
	assert.Error(t, err)
	assert.Equal(t, 0, e.RootCount())
}

func TestReportTracksLiveProcessorsOnly(t *testing.T) {
	e := newTestEngine(t)
	g := whiteNoiseGraph(t)
	require.NoError(t, e.SubmitGraph(g))

	var dst rt.Chunk
	e.RunBlock(&dst, 0)
	e.RunBlock(&dst, rt.ChunkSize)

	report := e.Report()
	assert.Len(t, report, 2) // Output root + WhiteNoise reached through it
	for _, counts := range report {
		require.Len(t, counts, 1)
		assert.Equal(t, int64(2*rt.ChunkSize), counts[0])
	}

	require.NoError(t, e.SubmitGraph(sound.NewGraph()))
	e.RunBlock(&dst, 2*rt.ChunkSize)
	assert.Empty(t, e.Report())
}
