package execgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

type constProcessor struct{ v float32 }

func (c constProcessor) ProcessAudio(dst *rt.Chunk, _ rt.Context, _ []*rt.CompiledInputSlot, _ []*rt.CompiledExpressionSlot) rt.StreamStatus {
	for i := range dst.L {
		dst.L[i] = c.v
		dst.R[i] = c.v
	}
	return rt.Playing
}

func TestSharedCachesWithinBlock(t *testing.T) {
	calls := 0
	node := &Node{Kind: countingProcessor(&calls)}
	s := &Shared{Node: node}

	var dst rt.Chunk
	s.Evaluate(&dst, rt.Context{}, 1)
	s.Evaluate(&dst, rt.Context{}, 1)
	assert.Equal(t, 1, calls)

	s.Evaluate(&dst, rt.Context{}, 2)
	assert.Equal(t, 2, calls)
}

type countingKind struct{ calls *int }

func (c countingKind) ProcessAudio(dst *rt.Chunk, _ rt.Context, _ []*rt.CompiledInputSlot, _ []*rt.CompiledExpressionSlot) rt.StreamStatus {
	*c.calls++
	dst.Silence()
	return rt.Playing
}

func countingProcessor(calls *int) rt.CompiledProcessor { return countingKind{calls: calls} }

func TestStepIteratesRootsInInsertionOrder(t *testing.T) {
	g := NewGraph()
	var order []int
	for i := 0; i < 3; i++ {
		idx := i
		node := &Node{Kind: orderRecorder(&order, idx)}
		id := ident.FromValue[ident.ProcessorKind](uint64(i + 1))
		g.AddRoot(id, &Shared{Node: node})
	}

	g.Step(rt.Context{}, func(ident.ProcessorID, *rt.Chunk, rt.StreamStatus) {})
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, uint64(1), g.BlockNum())
}

type orderKind struct {
	order *[]int
	idx   int
}

func (o orderKind) ProcessAudio(dst *rt.Chunk, _ rt.Context, _ []*rt.CompiledInputSlot, _ []*rt.CompiledExpressionSlot) rt.StreamStatus {
	*o.order = append(*o.order, o.idx)
	dst.Silence()
	return rt.Playing
}

func orderRecorder(order *[]int, idx int) rt.CompiledProcessor { return orderKind{order: order, idx: idx} }

func TestRemoveRootDetachesAndReturnsIt(t *testing.T) {
	g := NewGraph()
	id := ident.FromValue[ident.ProcessorKind](42)
	s := &Shared{Node: &Node{Kind: constProcessor{v: 1}}}
	g.AddRoot(id, s)
	require.Equal(t, 1, g.RootCount())

	removed, ok := g.RemoveRoot(id)
	require.True(t, ok)
	assert.Same(t, s, removed)
	assert.Equal(t, 0, g.RootCount())

	_, ok = g.RemoveRoot(id)
	assert.False(t, ok)
}

func TestUniqueEvaluateDelegatesToNode(t *testing.T) {
	u := &Unique{Node: &Node{Kind: constProcessor{v: 0.25}}}
	var dst rt.Chunk
	status := u.Evaluate(&dst, rt.Context{}, 9)
	assert.Equal(t, rt.Playing, status)
	assert.Equal(t, float32(0.25), dst.L[0])
}
