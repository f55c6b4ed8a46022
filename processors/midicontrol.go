package processors

import (
	"math"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

// MidiControl is a dynamic processor that exposes a single MIDI CC value
// as a processor argument to its downstream input, letting an embedded
// expression read it live. In is the external port to listen on; it may
// be nil (e.g. in tests), in which case the argument stays at zero.
type MidiControl struct {
	In         drivers.In
	Controller uint8
	Argument   ident.ArgumentID
}

func (MidiControl) IsStatic() bool { return false }

func (m MidiControl) Compile(ident.ProcessorID, rt.Compiler) rt.CompiledProcessor {
	c := &compiledMidiControl{controller: m.Controller, argument: m.Argument}
	if m.In != nil {
		stop, err := midi.ListenTo(m.In, func(msg midi.Message, _ int32) {
			var channel, controller, value uint8
			if msg.GetControlChange(&channel, &controller, &value) && controller == c.controller {
				c.value.Store(math.Float32bits(float32(value) / 127))
			}
		})
		if err == nil {
			c.stop = stop
		}
	}
	return c
}

type compiledMidiControl struct {
	controller uint8
	argument   ident.ArgumentID
	value      atomic.Uint32
	stop       func()
}

func (c *compiledMidiControl) ProcessAudio(dst *rt.Chunk, ctx rt.Context, inputs []*rt.CompiledInputSlot, _ []*rt.CompiledExpressionSlot) rt.StreamStatus {
	v := math.Float32frombits(c.value.Load())
	argCtx := ctx.WithArgument(c.argument, rt.ScalarArg(v))
	if len(inputs) == 0 || len(inputs[0].Branches) == 0 {
		dst.Silence()
		return rt.Playing
	}
	return inputs[0].Branches[0].Step(dst, argCtx, ctx.BlockNum)
}

// Drop stops the port listener, picked up by execgraph's Unique/Shared
// Drop delegation when this processor is removed from the compiled
// graph and handed to the chute.
func (c *compiledMidiControl) Drop() {
	if c.stop != nil {
		c.stop()
	}
}

// NewMidiControl declares a MidiControl processor: one f32 argument
// carrying the CC value, and one Iso, one-branch audio input whose
// sub-tree may reference that argument.
func NewMidiControl(g *sound.Graph, label string, in drivers.In, controller uint8) (*sound.Processor, *sound.Input, *sound.ProcessorArgument, error) {
	p := g.AddProcessorPlaceholder(label)
	arg, err := g.AddArgument(p.ID, sound.ArgF32, "cc_value")
	if err != nil {
		return nil, nil, nil, err
	}
	if err := g.SetKind(p.ID, MidiControl{In: in, Controller: controller, Argument: arg.ID}); err != nil {
		return nil, nil, nil, err
	}
	input, err := g.AddInput(p.ID, rt.Iso, 1, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, input, arg, nil
}
