package processors

import (
	"encoding/binary"
	"math"

	"github.com/smallnest/ringbuffer"

	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

// OscilloscopeBufferBytes sizes the ring buffer backing one tap: enough
// for a handful of chunks of left-channel float32 samples, so a slow
// debug reader lags behind by at most that much; samples written while
// the buffer is full are dropped, and the older ones are kept.
const OscilloscopeBufferBytes = 4 * rt.ChunkSize * 4

// Oscilloscope is a dynamic passthrough debug tap: it forwards its
// single input unchanged while mirroring the left channel's raw samples
// into a ring buffer a debug/UI reader can drain independently of the
// audio thread.
type Oscilloscope struct {
	Buf *ringbuffer.RingBuffer
}

func (Oscilloscope) IsStatic() bool { return false }

func (o Oscilloscope) Compile(ident.ProcessorID, rt.Compiler) rt.CompiledProcessor {
	return &compiledOscilloscope{buf: o.Buf}
}

type compiledOscilloscope struct {
	buf     *ringbuffer.RingBuffer
	scratch [rt.ChunkSize * 4]byte
}

func (c *compiledOscilloscope) ProcessAudio(dst *rt.Chunk, ctx rt.Context, inputs []*rt.CompiledInputSlot, exprs []*rt.CompiledExpressionSlot) rt.StreamStatus {
	status := passthrough{}.ProcessAudio(dst, ctx, inputs, exprs)
	if c.buf != nil {
		for i, v := range dst.L {
			binary.LittleEndian.PutUint32(c.scratch[i*4:], math.Float32bits(v))
		}
		// Best-effort: a full buffer means a slow reader, and dropping this
		// chunk's samples is preferable to blocking the audio thread.
		_, _ = c.buf.Write(c.scratch[:])
	}
	return status
}

// NewOscilloscope declares an Oscilloscope processor backed by a fresh
// ring buffer, with its single Iso, one-branch input.
func NewOscilloscope(g *sound.Graph, label string) (*sound.Processor, *sound.Input, *ringbuffer.RingBuffer, error) {
	buf := ringbuffer.New(OscilloscopeBufferBytes)
	p := g.AddProcessorPlaceholder(label)
	if err := g.SetKind(p.ID, Oscilloscope{Buf: buf}); err != nil {
		return nil, nil, nil, err
	}
	in, err := g.AddInput(p.ID, rt.Iso, 1, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, in, buf, nil
}
