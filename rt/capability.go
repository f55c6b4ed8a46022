package rt

import "github.com/tidewave-audio/sgengine/ident"

// ProcessorKind is the capability every sound processor's behavior value
// must implement. It deliberately carries no knowledge of the
// processor's declared inputs, expressions, or arguments: those are held
// directly by the owning sound.Processor record and compiled generically
// by the compiler, so a kind only needs to say whether it is static and
// produce whatever private audio-thread state it needs.
type ProcessorKind interface {
	// IsStatic reports whether this processor is shared (at most one
	// live instance, referenced by every branch that targets it) rather
	// than cloned per referencing branch.
	IsStatic() bool

	// Compile builds this kind's private compiled-audio-thread state.
	// The generic compiled input branches and expression handles for
	// this processor are assembled separately by the compiler and
	// handed to CompiledProcessor.ProcessAudio at call time.
	Compile(id ident.ProcessorID, c Compiler) CompiledProcessor
}

// Compiler is the capability a ProcessorKind's Compile method receives,
// giving it just enough read access to the compilation environment to
// build kind-private state (e.g. a fixed sample rate baked into a filter
// coefficient) without depending on the compiler package directly.
type Compiler interface {
	SampleRate() int
}

// CompiledProcessor is the capability every processor's compiled,
// audio-thread-resident counterpart implements. inputs and exprs are
// the generically compiled
// children of this processor, in declaration order, assembled by the
// compiler and execgraph — a kind implementation indexes into them by
// the same order it declared them in the sound graph.
type CompiledProcessor interface {
	ProcessAudio(dst *Chunk, ctx Context, inputs []*CompiledInputSlot, exprs []*CompiledExpressionSlot) StreamStatus
}

// CompiledTarget is the downstream endpoint a CompiledInputBranch steps
// into: either a uniquely-owned compiled sub-tree (dynamic processor) or
// a reference to a shared, ref-counted one (static processor), both
// implemented in package execgraph.
type CompiledTarget interface {
	Evaluate(dst *Chunk, ctx Context, blockNum uint64) StreamStatus
}

// CompiledInputSlot bundles one declared input's compiled branches,
// handed to CompiledProcessor.ProcessAudio.
type CompiledInputSlot struct {
	InputID  ident.InputID
	Branches []*CompiledInputBranch
}

// CompiledExpressionSlot bundles one declared expression's compiled
// callable handle, handed to CompiledProcessor.ProcessAudio.
type CompiledExpressionSlot struct {
	ExpressionID ident.ExpressionID
	Handle       CompiledExpression
	Discretize   Discretization
}

// CompiledInputBranch is the audio-thread state of one branch of one
// input: its timing state machine and the compiled sub-tree it
// currently targets.
type CompiledInputBranch struct {
	Location   InputLocation
	Chronicity Chronicity
	Timing     InputTiming
	Target     CompiledTarget // nil if the input is declared but unconnected
}

// Step runs one block through this branch: a Done branch yields silence;
// otherwise it clears a pending start-over flag, evaluates its target
// with the branch's release state in Context.BranchRelease, and then
// marks a pending release as consumed. Clearing the start-over flag does
// not reset the target sub-tree's state, and the chunk is not split at
// the release offset.
func (b *CompiledInputBranch) Step(dst *Chunk, ctx Context, blockNum uint64) StreamStatus {
	if b.Timing.IsDone {
		dst.Silence()
		return Done
	}
	if b.Timing.NeedStartOver {
		b.Timing.ConsumeStartOver()
	}
	if b.Target == nil {
		dst.Silence()
		b.Timing.Advance(ChunkSize)
		return Playing
	}

	branchCtx := ctx.WithRelease(b.Timing.Release)
	status := b.Target.Evaluate(dst, branchCtx, blockNum)

	if b.Timing.Release.State == Pending {
		b.Timing.ConsumeRelease()
	}
	b.Timing.Advance(ChunkSize)
	if status == Done {
		b.Timing.MarkDone()
	}
	return status
}

// ExpressionNodeKind is the capability every expression node's behavior
// value implements. Compile is called once per node, bottom-up over the
// already-compiled inputs, and returns this node's own compiled form — a
// closure-composition strategy standing in for true native-code JIT
// compilation.
type ExpressionNodeKind interface {
	Compile(inputs []SampleFunc) SampleFunc
}

// SampleFunc is a compiled expression (sub)tree's per-sample evaluator:
// given the index of the sample within the current chunk and the active
// context, it returns that sample's value. Composing these bottom-up is
// the engine's "JIT": each node's Compile wraps its already-compiled
// input SampleFuncs in a new closure, so evaluating the whole expression
// is one direct call chain rather than a re-walk of the DAG every
// sample.
type SampleFunc func(i int, ctx Context) float32

// CompiledExpression is the cached, reference-counted callable handle
// produced by the jit package for one expression graph, keyed by its
// semantic fingerprint.
type CompiledExpression interface {
	// Eval fills dst according to disc: once per sample
	// (SamplewiseTemporal), once broadcast across the whole chunk
	// (ChunkwiseTemporal), or once as a scalar constant (Constant).
	Eval(dst []float32, disc Discretization, ctx Context)
}
