package rt

import (
	"github.com/tidewave-audio/sgengine/arena"
	"github.com/tidewave-audio/sgengine/ident"
)

// InputLocation identifies one branch of one declared input on one
// processor — the unit that timing, time-warp lookups, and the edit
// protocol address.
type InputLocation struct {
	Processor ident.ProcessorID
	Input     ident.InputID
	Branch    int
}

// Chronicity is whether an input's branches share the owning processor's
// sense of time (Iso) or run their own independent clock (Aniso).
type Chronicity int

const (
	Iso Chronicity = iota
	Aniso
)

func (c Chronicity) String() string {
	if c == Aniso {
		return "Aniso"
	}
	return "Iso"
}

// TimeLookup resolves the time offset and playback speed observed at a
// given input branch, as of the current block. Supplied by execgraph
// when it builds a Context for a block.
type TimeLookup func(InputLocation) (offset float32, speed float32)

// ProcessorTimeLookup is the processor-addressed counterpart of
// TimeLookup, used when a processor (rather than one specific input
// branch) needs its own apparent time, e.g. for telemetry.
type ProcessorTimeLookup func(ident.ProcessorID) (offset float32, speed float32)

// Context is the per-block, per-call evaluation context threaded through
// every ProcessAudio and expression Eval call. It is a small value
// type, copied — never heap-allocated — as
// evaluation descends into sub-trees, picking up a narrower
// BranchRelease and a deeper ArgumentStack at each level.
type Context struct {
	AbsoluteSample int64
	SampleRate     int
	Scratch        *arena.Arena
	Args           ArgumentStack

	// BlockNum is the execution graph's current block counter (set by
	// execgraph.Shared.Evaluate / execgraph.Unique.Evaluate just before
	// dispatching into a Node's kind). A ProcessorKind that owns input
	// branches threads it back into CompiledInputBranch.Step, which needs
	// it to let any Shared target nested further down decide whether its
	// one-chunk cache is still valid for this block.
	BlockNum uint64

	// BranchRelease carries the release state of the input branch through
	// which the processor currently being evaluated was reached, so a
	// dynamic processor like an envelope generator can shape its output
	// around the release point without the generic branch-stepping code
	// needing to know about envelopes.
	BranchRelease Release

	timeline     TimeLookup
	procTimeline ProcessorTimeLookup
}

// NewContext constructs the root per-block context. timeline and
// procTimeline may be nil if no input branch has diverging time yet.
func NewContext(absSample int64, sampleRate int, scratch *arena.Arena, argDepth int, timeline TimeLookup, procTimeline ProcessorTimeLookup) Context {
	return Context{
		AbsoluteSample: absSample,
		SampleRate:     sampleRate,
		Scratch:        scratch,
		Args:           NewArgumentStack(argDepth),
		timeline:       timeline,
		procTimeline:   procTimeline,
	}
}

// WithRelease returns a copy of ctx scoped to the given branch release
// state, for the duration of one branch's downstream evaluation.
func (ctx Context) WithRelease(r Release) Context {
	ctx.BranchRelease = r
	return ctx
}

// WithArgument returns a copy of ctx with one more argument frame pushed,
// for descending into a processor argument's scope.
func (ctx Context) WithArgument(id ident.ArgumentID, v ArgumentValue) Context {
	ctx.Args = ctx.Args.Push(id, v)
	return ctx
}

// TimeAtInput reports the time offset and speed observed at loc, as of
// this block.
func (ctx Context) TimeAtInput(loc InputLocation) (float32, float32) {
	if ctx.timeline == nil {
		return 0, 1
	}
	return ctx.timeline(loc)
}

// TimeAtProcessor reports the time offset and speed a processor
// currently observes, for telemetry and debug reporting.
func (ctx Context) TimeAtProcessor(id ident.ProcessorID) (float32, float32) {
	if ctx.procTimeline == nil {
		return 0, 1
	}
	return ctx.procTimeline(id)
}
