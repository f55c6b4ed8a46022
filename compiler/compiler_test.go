package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave-audio/sgengine/execgraph"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/jit"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

type fakeKind struct {
	static bool
}

func (f fakeKind) IsStatic() bool { return f.static }
func (f fakeKind) Compile(ident.ProcessorID, rt.Compiler) rt.CompiledProcessor { return passthrough{} }

type passthrough struct{}

func (passthrough) ProcessAudio(dst *rt.Chunk, _ rt.Context, _ []*rt.CompiledInputSlot, _ []*rt.CompiledExpressionSlot) rt.StreamStatus {
	dst.Silence()
	return rt.Playing
}

func TestCompileSharesOneInstancePerStaticProcessor(t *testing.T) {
	g := sound.NewGraph()
	source := g.AddProcessor(fakeKind{static: true}, "source")
	consumerA := g.AddProcessor(fakeKind{static: true}, "a")
	consumerB := g.AddProcessor(fakeKind{static: true}, "b")

	ia, err := g.AddInput(consumerA.ID, rt.Iso, 1, nil)
	require.NoError(t, err)
	require.NoError(t, g.SetTarget(ia.ID, &source.ID))
	ib, err := g.AddInput(consumerB.ID, rt.Iso, 1, nil)
	require.NoError(t, err)
	require.NoError(t, g.SetTarget(ib.ID, &source.ID))

	c := New(44100, jit.NewCache())
	out, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, 3, out.RootCount())

	rootA, _ := out.Root(consumerA.ID)
	rootB, _ := out.Root(consumerB.ID)
	sharedFromA := rootA.Node.Inputs[0].Branches[0].Target
	sharedFromB := rootB.Node.Inputs[0].Branches[0].Target
	assert.Same(t, sharedFromA, sharedFromB)

	sourceShared, ok := sharedFromA.(*execgraph.Shared)
	require.True(t, ok)
	assert.Equal(t, 3, sourceShared.Refs())
}

func TestCompileClonesDynamicProcessorPerBranch(t *testing.T) {
	g := sound.NewGraph()
	dyn := g.AddProcessor(fakeKind{static: false}, "dyn")
	owner := g.AddProcessor(fakeKind{static: true}, "owner")

	in, err := g.AddInput(owner.ID, rt.Iso, 1, nil)
	require.NoError(t, err)
	require.NoError(t, g.SetTarget(in.ID, &dyn.ID))

	c := New(44100, jit.NewCache())
	out, err := c.Compile(g)
	require.NoError(t, err)

	root, ok := out.Root(owner.ID)
	require.True(t, ok)
	target := root.Node.Inputs[0].Branches[0].Target
	_, isUnique := target.(*execgraph.Unique)
	require.True(t, isUnique)
}

func TestCompileRejectsInvalidGraph(t *testing.T) {
	g := sound.NewGraph()
	src := g.AddProcessor(fakeKind{static: true}, "src")
	owner := g.AddProcessor(fakeKind{static: false}, "owner")
	in, _ := g.AddInput(owner.ID, rt.Aniso, 1, nil)
	require.NoError(t, g.SetTarget(in.ID, &src.ID))

	c := New(44100, jit.NewCache())
	_, err := c.Compile(g)
	require.Error(t, err)
}
