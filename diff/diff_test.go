package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave-audio/sgengine/compiler"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/jit"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

type fakeKind struct{ static bool }

func (f fakeKind) IsStatic() bool { return f.static }
func (f fakeKind) Compile(ident.ProcessorID, rt.Compiler) rt.CompiledProcessor { return passthrough{} }

type passthrough struct{}

func (passthrough) ProcessAudio(dst *rt.Chunk, _ rt.Context, _ []*rt.CompiledInputSlot, _ []*rt.CompiledExpressionSlot) rt.StreamStatus {
	dst.Silence()
	return rt.Playing
}

func oneStaticGraph(label string) *sound.Graph {
	g := sound.NewGraph()
	g.AddProcessor(fakeKind{static: true}, label)
	return g
}

func TestComputeFirstSubmitAddsEveryStaticProcessor(t *testing.T) {
	g := oneStaticGraph("root")
	c := compiler.New(44100, jit.NewCache())

	edits, fps, err := Compute(nil, g, c, Incremental)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, AddStaticProcessor, edits[0].Kind)
	assert.NotNil(t, edits[0].Shared)
	assert.Len(t, fps, 1)
}

func TestComputeIdentityGraphIsEmptyBatch(t *testing.T) {
	g := oneStaticGraph("root")
	c := compiler.New(44100, jit.NewCache())

	_, fps, err := Compute(nil, g, c, Incremental)
	require.NoError(t, err)

	// Same graph object, same declared shape: the second diff against
	// its own fingerprints must find nothing changed.
	edits, fps2, err := Compute(fps, g, c, Incremental)
	require.NoError(t, err)
	assert.Empty(t, edits)
	assert.Equal(t, fps, fps2)
}

func TestComputeChangedSubtreeRecompilesOnlyThatRoot(t *testing.T) {
	g := sound.NewGraph()
	unrelated := g.AddProcessor(fakeKind{static: true}, "unrelated")
	changing := g.AddProcessor(fakeKind{static: true}, "changing")
	c := compiler.New(44100, jit.NewCache())

	_, fps, err := Compute(nil, g, c, Incremental)
	require.NoError(t, err)

	require.NoError(t, g.Edit(func(clone *sound.Graph) error {
		p, _ := clone.Processor(changing.ID)
		p.Label = "changed-label"
		return nil
	}))

	edits, fps2, err := Compute(fps, g, c, Incremental)
	require.NoError(t, err)
	require.Len(t, edits, 2) // remove-then-add for `changing` only
	for _, e := range edits {
		assert.Equal(t, changing.ID, e.ProcessorID)
	}
	assert.Equal(t, fps[unrelated.ID], fps2[unrelated.ID])
	assert.NotEqual(t, fps[changing.ID], fps2[changing.ID])
}

func TestComputeRemovedProcessorEmitsRemoveOnly(t *testing.T) {
	g := sound.NewGraph()
	p := g.AddProcessor(fakeKind{static: true}, "gone-soon")
	c := compiler.New(44100, jit.NewCache())

	_, fps, err := Compute(nil, g, c, Incremental)
	require.NoError(t, err)

	require.NoError(t, g.RemoveProcessor(p.ID))

	edits, fps2, err := Compute(fps, g, c, Incremental)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, RemoveStaticProcessor, edits[0].Kind)
	assert.Empty(t, fps2)
}

func TestComputeFullReplaceAlwaysRemovesAndReadds(t *testing.T) {
	g := oneStaticGraph("root")
	c := compiler.New(44100, jit.NewCache())

	_, fps, err := Compute(nil, g, c, FullReplace)
	require.NoError(t, err)

	edits, _, err := Compute(fps, g, c, FullReplace)
	require.NoError(t, err)
	require.Len(t, edits, 2)
	assert.Equal(t, RemoveStaticProcessor, edits[0].Kind)
	assert.Equal(t, AddStaticProcessor, edits[1].Kind)
}

func TestComputeRejectsInvalidGraph(t *testing.T) {
	g := sound.NewGraph()
	owner := g.AddProcessor(fakeKind{static: false}, "owner")
	in, _ := g.AddInput(owner.ID, rt.Aniso, 1, nil)
	src := g.AddProcessor(fakeKind{static: true}, "src")
	require.NoError(t, g.SetTarget(in.ID, &src.ID))

	c := compiler.New(44100, jit.NewCache())
	_, _, err := Compute(nil, g, c, Incremental)
	require.Error(t, err)
}
