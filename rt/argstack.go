package rt

import "github.com/tidewave-audio/sgengine/ident"

// ArgumentValue is the translated value of a processor argument pushed
// onto the argument stack. It is a tagged union rather than interface{}
// so that pushing a scalar never boxes it onto the heap — the audio
// thread must not allocate.
type ArgumentValue struct {
	Scalar float32
	Array  []float32 // non-nil for array-kind arguments; Scalar is unused then
}

// ScalarArg wraps a single f32 value.
func ScalarArg(v float32) ArgumentValue { return ArgumentValue{Scalar: v} }

// ArrayArg wraps an f32-array value. The backing slice is owned by the
// caller (typically scratch-arena memory) and must outlive the push.
func ArrayArg(v []float32) ArgumentValue { return ArgumentValue{Array: v} }

// argFrame is one entry in the argument stack's backing array.
type argFrame struct {
	id    ident.ArgumentID
	value ArgumentValue
}

// ArgumentStack is a lifetime-scoped, append-only view over a
// pre-allocated backing array of (argument-id, value) pairs. Pushing
// returns a new stack view sharing the same backing array; as
// long as the backing array is at least as deep as the deepest nesting
// of pushes, Push never allocates on the audio thread.
type ArgumentStack struct {
	frames []argFrame
}

// NewArgumentStack preallocates a stack with room for `depth` nested
// pushes. NewContext passes the depth it is given; the engine uses
// EngineConfig.ArgumentStackDepth.
func NewArgumentStack(depth int) ArgumentStack {
	return ArgumentStack{frames: make([]argFrame, 0, depth)}
}

// Push returns a stack view with one additional frame visible. Does not
// mutate the receiver.
func (s ArgumentStack) Push(id ident.ArgumentID, v ArgumentValue) ArgumentStack {
	return ArgumentStack{frames: append(s.frames, argFrame{id: id, value: v})}
}

// Lookup searches from the most-recently-pushed frame outward (shadowing
// semantics: a nearer push of the same argument ID wins).
func (s ArgumentStack) Lookup(id ident.ArgumentID) (ArgumentValue, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].id == id {
			return s.frames[i].value, true
		}
	}
	return ArgumentValue{}, false
}

// Depth reports how many frames are currently pushed, for capacity
// planning and assertions.
func (s ArgumentStack) Depth() int { return len(s.frames) }
