package processors

import (
	"github.com/tidewave-audio/sgengine/expr"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

// WriteWaveform is a dynamic signal source whose single embedded
// expression fills the left channel, mirrored to the right; the
// expression is evaluated at the slot's discretization (once per chunk
// or once per sample).
type WriteWaveform struct{}

func (WriteWaveform) IsStatic() bool { return false }

func (WriteWaveform) Compile(ident.ProcessorID, rt.Compiler) rt.CompiledProcessor {
	return compiledWriteWaveform{}
}

type compiledWriteWaveform struct{}

func (compiledWriteWaveform) ProcessAudio(dst *rt.Chunk, ctx rt.Context, _ []*rt.CompiledInputSlot, exprs []*rt.CompiledExpressionSlot) rt.StreamStatus {
	if len(exprs) == 0 {
		dst.Silence()
		return rt.Playing
	}
	slot := exprs[0]
	slot.Handle.Eval(dst.L[:], slot.Discretize, ctx)
	copy(dst.R[:], dst.L[:])
	return rt.Playing
}

// NewWriteWaveform declares a WriteWaveform processor and embeds eg,
// producing result as its waveform value, bound and scoped per bindings
// and scope.
func NewWriteWaveform(g *sound.Graph, label string, eg *expr.Graph, result ident.ResultID, bindings map[ident.ParameterID]sound.Binding, disc rt.Discretization, scope []ident.ArgumentID) (*sound.Processor, *sound.ProcessorExpression, error) {
	p := g.AddProcessorPlaceholder(label)
	if err := g.SetKind(p.ID, WriteWaveform{}); err != nil {
		return nil, nil, err
	}
	pe, err := g.AddExpression(p.ID, eg, bindings, result, 0, scope)
	if err != nil {
		return nil, nil, err
	}
	pe.Discretize = disc
	return p, pe, nil
}
