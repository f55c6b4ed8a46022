package processors

import (
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

// ADSR shapes its single audio input with an attack/decay/sustain/release
// gain envelope, driven by the release state of the input branch through
// which this processor itself was reached. A voice reaches Done only
// after its release tail finishes playing, even though the upstream
// branch already requested release.
type ADSR struct {
	AttackSamples  int64
	DecaySamples   int64
	ReleaseSamples int64
	Sustain        float32
}

func (ADSR) IsStatic() bool { return false }

func (a ADSR) Compile(ident.ProcessorID, rt.Compiler) rt.CompiledProcessor {
	return &compiledADSR{cfg: a}
}

type compiledADSR struct {
	cfg ADSR

	elapsed int64

	releasing           bool
	releaseStartElapsed int64
	releaseStartGain    float32
}

func (c *compiledADSR) ProcessAudio(dst *rt.Chunk, ctx rt.Context, inputs []*rt.CompiledInputSlot, _ []*rt.CompiledExpressionSlot) rt.StreamStatus {
	if len(inputs) == 0 || len(inputs[0].Branches) == 0 {
		dst.Silence()
		return rt.Done
	}
	status := inputs[0].Branches[0].Step(dst, ctx, ctx.BlockNum)

	if ctx.BranchRelease.State != rt.NotYet && !c.releasing {
		c.releasing = true
		c.releaseStartElapsed = c.elapsed + int64(ctx.BranchRelease.Offset)
		c.releaseStartGain = c.envelopeAt(c.releaseStartElapsed)
	}

	for i := range dst.L {
		sample := c.elapsed + int64(i)
		var gain float32
		if c.releasing && sample >= c.releaseStartElapsed {
			gain = c.releaseGain(sample)
		} else {
			gain = c.envelopeAt(sample)
		}
		dst.L[i] *= gain
		dst.R[i] *= gain
	}
	c.elapsed += rt.ChunkSize

	if c.releasing && c.elapsed-c.releaseStartElapsed >= c.cfg.ReleaseSamples {
		return rt.Done
	}
	return status
}

// envelopeAt returns the attack/decay/sustain gain at elapsed samples
// since this voice started, ignoring release.
func (c *compiledADSR) envelopeAt(elapsed int64) float32 {
	switch {
	case elapsed < c.cfg.AttackSamples:
		if c.cfg.AttackSamples <= 0 {
			return 1
		}
		return float32(elapsed) / float32(c.cfg.AttackSamples)
	case elapsed < c.cfg.AttackSamples+c.cfg.DecaySamples:
		if c.cfg.DecaySamples <= 0 {
			return c.cfg.Sustain
		}
		t := float32(elapsed-c.cfg.AttackSamples) / float32(c.cfg.DecaySamples)
		return 1 - t*(1-c.cfg.Sustain)
	default:
		return c.cfg.Sustain
	}
}

// releaseGain ramps linearly from the gain observed at release down to
// zero over ReleaseSamples.
func (c *compiledADSR) releaseGain(elapsed int64) float32 {
	if c.cfg.ReleaseSamples <= 0 {
		return 0
	}
	t := float32(elapsed-c.releaseStartElapsed) / float32(c.cfg.ReleaseSamples)
	if t > 1 {
		t = 1
	}
	return c.releaseStartGain * (1 - t)
}

// NewADSR declares an ADSR processor with its single Iso, one-branch
// audio input.
func NewADSR(g *sound.Graph, label string, cfg ADSR) (*sound.Processor, *sound.Input, error) {
	p := g.AddProcessorPlaceholder(label)
	if err := g.SetKind(p.ID, cfg); err != nil {
		return nil, nil, err
	}
	in, err := g.AddInput(p.ID, rt.Iso, 1, nil)
	if err != nil {
		return nil, nil, err
	}
	return p, in, nil
}
