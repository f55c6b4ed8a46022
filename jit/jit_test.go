package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave-audio/sgengine/expr"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

type constNode struct{ v float32 }

func (c constNode) Compile([]rt.SampleFunc) rt.SampleFunc {
	v := c.v
	return func(int, rt.Context) float32 { return v }
}
func (c constNode) KindTag() string { return "const" }

type addNode struct{}

func (addNode) Compile(inputs []rt.SampleFunc) rt.SampleFunc {
	a, b := inputs[0], inputs[1]
	return func(i int, ctx rt.Context) float32 { return a(i, ctx) + b(i, ctx) }
}
func (addNode) KindTag() string { return "add" }

func buildAddGraph(t *testing.T) (*expr.Graph, ident.ResultID) {
	t.Helper()
	g := expr.NewGraph()
	a := g.AddNode(constNode{v: 1.5}, 0, "a")
	b := g.AddNode(constNode{v: 2.5}, 0, "b")
	sum := g.AddNode(addNode{}, 2, "sum")
	require.NoError(t, g.ConnectNodeInput(sum.Inputs[0].ID, expr.NodeSource(a.ID)))
	require.NoError(t, g.ConnectNodeInput(sum.Inputs[1].ID, expr.NodeSource(b.ID)))
	r := g.AddResult(0, "out")
	require.NoError(t, g.ConnectResult(r.ID, expr.NodeSource(sum.ID)))
	return g, r.ID
}

func TestCompileAndEvalConstant(t *testing.T) {
	g, resultID := buildAddGraph(t)
	c := NewCache()
	h, err := c.Request(CompileRequest{
		Location: ident.FromValue[ident.ExpressionKind](1),
		Graph:    g,
		Result:   resultID,
	})
	require.NoError(t, err)

	dst := make([]float32, 8)
	h.Eval(dst, rt.Constant, rt.Context{})
	for _, v := range dst {
		assert.InDelta(t, 4.0, v, 1e-6)
	}
}

func TestCacheReusesHandleForSameFingerprint(t *testing.T) {
	g, resultID := buildAddGraph(t)
	c := NewCache()
	req := CompileRequest{Location: ident.FromValue[ident.ExpressionKind](7), Graph: g, Result: resultID}

	h1, err := c.Request(req)
	require.NoError(t, err)
	h2, err := c.Request(req)
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, c.Len())
}

func TestFingerprintDiffersWithDifferentConstant(t *testing.T) {
	g1, r1 := buildAddGraph(t)
	g2 := expr.NewGraph()
	a := g2.AddNode(constNode{v: 99}, 0, "a")
	b := g2.AddNode(constNode{v: 2.5}, 0, "b")
	sum := g2.AddNode(addNode{}, 2, "sum")
	require.NoError(t, g2.ConnectNodeInput(sum.Inputs[0].ID, expr.NodeSource(a.ID)))
	require.NoError(t, g2.ConnectNodeInput(sum.Inputs[1].ID, expr.NodeSource(b.ID)))
	r2 := g2.AddResult(0, "out")
	require.NoError(t, g2.ConnectResult(r2.ID, expr.NodeSource(sum.ID)))

	loc := ident.FromValue[ident.ExpressionKind](3)
	fp1 := Fingerprint(CompileRequest{Location: loc, Graph: g1, Result: r1})
	fp2 := Fingerprint(CompileRequest{Location: loc, Graph: g2, Result: r2.ID})
	assert.NotEqual(t, fp1, fp2)
}

func TestReleaseDemotesFromHotToWarm(t *testing.T) {
	g, resultID := buildAddGraph(t)
	c := NewCache()
	req := CompileRequest{Location: ident.FromValue[ident.ExpressionKind](2), Graph: g, Result: resultID}

	h, err := c.Request(req)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	h.Release()
	assert.Equal(t, 0, c.Len())

	h2, err := c.Request(req)
	require.NoError(t, err)
	assert.Same(t, h, h2)
}
