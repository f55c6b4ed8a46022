package exprnodes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave-audio/sgengine/expr"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/jit"
	"github.com/tidewave-audio/sgengine/rt"
)

func evalConst(t *testing.T, g *expr.Graph, result ident.ResultID) []float32 {
	t.Helper()
	c := jit.NewCache()
	h, err := c.Request(jit.CompileRequest{
		Location: ident.FromValue[ident.ExpressionKind](1),
		Graph:    g,
		Result:   result,
	})
	require.NoError(t, err)
	dst := make([]float32, 4)
	h.Eval(dst, rt.Constant, rt.Context{})
	return dst
}

func TestConstReturnsFixedValue(t *testing.T) {
	g := expr.NewGraph()
	n := g.AddNode(Const{Value: 3.25}, 0, "k")
	r := g.AddResult(0, "out")
	require.NoError(t, g.ConnectResult(r.ID, expr.NodeSource(n.ID)))

	for _, v := range evalConst(t, g, r.ID) {
		assert.InDelta(t, 3.25, v, 1e-6)
	}
}

func TestConstKindTagDiffersByValue(t *testing.T) {
	assert.NotEqual(t, Const{Value: 1}.KindTag(), Const{Value: 2}.KindTag())
}

func TestAddSumsInputs(t *testing.T) {
	g := expr.NewGraph()
	a := g.AddNode(Const{Value: 2}, 0, "a")
	b := g.AddNode(Const{Value: 5}, 0, "b")
	sum := g.AddNode(Add{}, 2, "sum")
	require.NoError(t, g.ConnectNodeInput(sum.Inputs[0].ID, expr.NodeSource(a.ID)))
	require.NoError(t, g.ConnectNodeInput(sum.Inputs[1].ID, expr.NodeSource(b.ID)))
	r := g.AddResult(0, "out")
	require.NoError(t, g.ConnectResult(r.ID, expr.NodeSource(sum.ID)))

	for _, v := range evalConst(t, g, r.ID) {
		assert.InDelta(t, 7, v, 1e-6)
	}
}

func TestMulMultipliesInputs(t *testing.T) {
	g := expr.NewGraph()
	a := g.AddNode(Const{Value: 3}, 0, "a")
	b := g.AddNode(Const{Value: 4}, 0, "b")
	prod := g.AddNode(Mul{}, 2, "prod")
	require.NoError(t, g.ConnectNodeInput(prod.Inputs[0].ID, expr.NodeSource(a.ID)))
	require.NoError(t, g.ConnectNodeInput(prod.Inputs[1].ID, expr.NodeSource(b.ID)))
	r := g.AddResult(0, "out")
	require.NoError(t, g.ConnectResult(r.ID, expr.NodeSource(prod.ID)))

	for _, v := range evalConst(t, g, r.ID) {
		assert.InDelta(t, 12, v, 1e-6)
	}
}

func TestSinOfZeroIsZero(t *testing.T) {
	g := expr.NewGraph()
	zero := g.AddNode(Const{Value: 0}, 0, "zero")
	s := g.AddNode(Sin{}, 1, "sin")
	require.NoError(t, g.ConnectNodeInput(s.Inputs[0].ID, expr.NodeSource(zero.ID)))
	r := g.AddResult(0, "out")
	require.NoError(t, g.ConnectResult(r.ID, expr.NodeSource(s.ID)))

	for _, v := range evalConst(t, g, r.ID) {
		assert.InDelta(t, 0, v, 1e-6)
	}
}

func TestSinOfQuarterIsOne(t *testing.T) {
	g := expr.NewGraph()
	q := g.AddNode(Const{Value: 0.25}, 0, "q")
	s := g.AddNode(Sin{}, 1, "sin")
	require.NoError(t, g.ConnectNodeInput(s.Inputs[0].ID, expr.NodeSource(q.ID)))
	r := g.AddResult(0, "out")
	require.NoError(t, g.ConnectResult(r.ID, expr.NodeSource(s.ID)))

	for _, v := range evalConst(t, g, r.ID) {
		assert.InDelta(t, 1, v, 1e-6)
	}
}

func TestTimeAdvancesPerSample(t *testing.T) {
	n := Time{}
	fn := n.Compile(nil)
	ctx := rt.Context{AbsoluteSample: 0, SampleRate: 100}
	assert.InDelta(t, 0, fn(0, ctx), 1e-6)
	assert.InDelta(t, 0.1, fn(10, ctx), 1e-6)
}

func TestSin440HzShapeAtOneSample(t *testing.T) {
	// Mirrors the 440Hz tone scenario: sin(2*pi*t*440) evaluated directly
	// via Compile rather than through the expr graph, as a sanity check on
	// the node composition order (Mul(Time, Const) feeding Sin).
	timeFn := Time{}.Compile(nil)
	freqFn := Const{Value: 440}.Compile(nil)
	mulFn := Mul{}.Compile([]rt.SampleFunc{timeFn, freqFn})
	sinFn := Sin{}.Compile([]rt.SampleFunc{mulFn})

	ctx := rt.Context{AbsoluteSample: 0, SampleRate: 48000}
	got := sinFn(1, ctx)
	want := float32(math.Sin(2 * math.Pi * (1.0 / 48000.0) * 440))
	assert.InDelta(t, want, got, 1e-5)
}
