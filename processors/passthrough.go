// Package processors implements the built-in processor kinds: Output
// and Definitions (static/dynamic passthroughs), WhiteNoise and
// WriteWaveform (signal sources), ADSR (an envelope generator driven by
// an input branch's release), MidiControl (a processor argument fed by
// an external MIDI controller), and Oscilloscope (a debug tap).
package processors

import (
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

// passthrough steps its single input's sole branch straight into dst,
// the compiled behavior shared by Output and Definitions.
type passthrough struct{}

func (passthrough) ProcessAudio(dst *rt.Chunk, ctx rt.Context, inputs []*rt.CompiledInputSlot, _ []*rt.CompiledExpressionSlot) rt.StreamStatus {
	if len(inputs) == 0 || len(inputs[0].Branches) == 0 {
		dst.Silence()
		return rt.Playing
	}
	return inputs[0].Branches[0].Step(dst, ctx, ctx.BlockNum)
}

// Output is the static root processor every sound graph needs at least
// one of: the audio thread mixes every Output root's chunk into the
// final device buffer. Silent while its input is unconnected.
type Output struct{}

func (Output) IsStatic() bool { return true }

func (Output) Compile(ident.ProcessorID, rt.Compiler) rt.CompiledProcessor { return passthrough{} }

// NewOutput declares an Output processor with its single Iso, one-branch
// audio input, ready for SetTarget.
func NewOutput(g *sound.Graph, label string) (*sound.Processor, *sound.Input, error) {
	p := g.AddProcessorPlaceholder(label)
	if err := g.SetKind(p.ID, Output{}); err != nil {
		return nil, nil, err
	}
	in, err := g.AddInput(p.ID, rt.Iso, 1, nil)
	if err != nil {
		return nil, nil, err
	}
	return p, in, nil
}

// Definitions is a dynamic passthrough, typically used to reference a
// static processor from several places in the graph: each referencing
// branch compiles its own Definitions clone, but every clone's input
// targets the same Shared static source, so the source's reference count
// (and so its single compiled instance) is shared across them.
type Definitions struct{}

func (Definitions) IsStatic() bool { return false }

func (Definitions) Compile(ident.ProcessorID, rt.Compiler) rt.CompiledProcessor {
	return passthrough{}
}

// NewDefinitions declares a Definitions processor with its single Iso,
// one-branch input.
func NewDefinitions(g *sound.Graph, label string) (*sound.Processor, *sound.Input, error) {
	p := g.AddProcessorPlaceholder(label)
	if err := g.SetKind(p.ID, Definitions{}); err != nil {
		return nil, nil, err
	}
	in, err := g.AddInput(p.ID, rt.Iso, 1, nil)
	if err != nil {
		return nil, nil, err
	}
	return p, in, nil
}
