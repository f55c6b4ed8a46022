package processors

import (
	"math/rand"

	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

// DefaultWhiteNoiseAmplitude is used when Amplitude is left at its zero
// value.
const DefaultWhiteNoiseAmplitude = 0.1

// WhiteNoise is a dynamic signal source with no inputs, producing
// uniform noise in [-Amplitude, Amplitude] on both channels.
type WhiteNoise struct {
	Amplitude float32
}

func (WhiteNoise) IsStatic() bool { return false }

// Compile seeds a per-instance generator from the processor ID, so two
// WhiteNoise clones compiled for two different branches never share a
// generator's internal state despite both implementing the same kind
// value.
func (w WhiteNoise) Compile(id ident.ProcessorID, _ rt.Compiler) rt.CompiledProcessor {
	amp := w.Amplitude
	if amp == 0 {
		amp = DefaultWhiteNoiseAmplitude
	}
	return &compiledWhiteNoise{
		amp: amp,
		rng: rand.New(rand.NewSource(int64(id.Value()))),
	}
}

type compiledWhiteNoise struct {
	amp float32
	rng *rand.Rand
}

func (c *compiledWhiteNoise) ProcessAudio(dst *rt.Chunk, _ rt.Context, _ []*rt.CompiledInputSlot, _ []*rt.CompiledExpressionSlot) rt.StreamStatus {
	for i := range dst.L {
		v := (c.rng.Float32()*2 - 1) * c.amp
		dst.L[i] = v
		dst.R[i] = v
	}
	return rt.Playing
}

// NewWhiteNoise declares a WhiteNoise processor with no inputs.
func NewWhiteNoise(g *sound.Graph, label string, amplitude float32) (*sound.Processor, error) {
	p := g.AddProcessorPlaceholder(label)
	if err := g.SetKind(p.ID, WhiteNoise{Amplitude: amplitude}); err != nil {
		return nil, err
	}
	return p, nil
}
