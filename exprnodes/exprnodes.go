// Package exprnodes provides the built-in expression node kinds every
// processor's embedded expression graphs are composed from — e.g. a
// plain sine oscillator is Sin(Mul(Time{}, Const{440})). Each kind
// implements rt.ExpressionNodeKind's Compile, closure-composing its
// already-compiled inputs, and jit.FingerprintableNode's KindTag so the
// JIT's content-addressed cache distinguishes node kinds (and, for
// Const, its own value) without needing a type switch.
package exprnodes

import (
	"fmt"
	"math"

	"github.com/tidewave-audio/sgengine/rt"
)

// Const always returns Value, independent of inputs or time.
type Const struct {
	Value float32
}

func (c Const) Compile(_ []rt.SampleFunc) rt.SampleFunc {
	v := c.Value
	return func(int, rt.Context) float32 { return v }
}

// KindTag folds Value into the tag: two Const nodes with different
// values must fingerprint differently even though their Go type is the
// same.
func (c Const) KindTag() string { return fmt.Sprintf("const:%g", c.Value) }

// Time returns the current absolute sample position in seconds, reading
// ctx.AbsoluteSample/ctx.SampleRate at evaluation time rather than at
// compile time, so the same compiled handle advances correctly across
// blocks.
type Time struct{}

func (Time) Compile(_ []rt.SampleFunc) rt.SampleFunc {
	return func(i int, ctx rt.Context) float32 {
		sample := ctx.AbsoluteSample + int64(i)
		return float32(sample) / float32(ctx.SampleRate)
	}
}

func (Time) KindTag() string { return "time" }

// Add sums its two inputs.
type Add struct{}

func (Add) Compile(inputs []rt.SampleFunc) rt.SampleFunc {
	a, b := inputs[0], inputs[1]
	return func(i int, ctx rt.Context) float32 { return a(i, ctx) + b(i, ctx) }
}

func (Add) KindTag() string { return "add" }

// Mul multiplies its two inputs.
type Mul struct{}

func (Mul) Compile(inputs []rt.SampleFunc) rt.SampleFunc {
	a, b := inputs[0], inputs[1]
	return func(i int, ctx rt.Context) float32 { return a(i, ctx) * b(i, ctx) }
}

func (Mul) KindTag() string { return "mul" }

// Sin computes sin(2*pi*x) of its single input, so wiring Sin after a
// Mul of Time and a frequency Const produces a plain sine oscillator.
type Sin struct{}

func (Sin) Compile(inputs []rt.SampleFunc) rt.SampleFunc {
	in := inputs[0]
	return func(i int, ctx rt.Context) float32 {
		return float32(math.Sin(2 * math.Pi * float64(in(i, ctx))))
	}
}

func (Sin) KindTag() string { return "sin" }
