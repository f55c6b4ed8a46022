package rt

import "fmt"

// ReleaseState is the release sub-state of an input branch's timing.
type ReleaseState int

const (
	// NotYet: no release has been requested.
	NotYet ReleaseState = iota
	// Pending: a release was requested at Offset, not yet consumed by a step.
	Pending
	// Released: the release has been consumed; downstream evaluation is
	// in its release regime.
	Released
)

func (r ReleaseState) String() string {
	switch r {
	case Pending:
		return "Pending"
	case Released:
		return "Released"
	default:
		return "NotYet"
	}
}

// Release pairs a ReleaseState with the sample offset it applies to. The
// offset is meaningful only in the Pending state.
type Release struct {
	State  ReleaseState
	Offset int
}

// InputTiming is the per-branch audio-thread timing state of one
// CompiledInputBranch.
type InputTiming struct {
	SampleOffset   int // in [0, ChunkSize)
	TimeSpeed      float32
	NeedStartOver  bool
	IsDone         bool
	Release        Release
	elapsedSamples int64 // total samples produced since the last start-over, for telemetry/time derivation
}

// NewInputTiming returns timing in its initial, never-stepped state, with
// NeedStartOver already set; Step evaluates such a branch from its first
// block without waiting for a StartOverAt.
func NewInputTiming() InputTiming {
	return InputTiming{TimeSpeed: 1.0, NeedStartOver: true}
}

// StartOverAt transitions the branch to Active at the given sample
// offset, resetting it to a fresh, not-yet-done state.
func (t *InputTiming) StartOverAt(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= ChunkSize {
		offset = ChunkSize - 1
	}
	t.SampleOffset = offset
	t.NeedStartOver = true
	t.IsDone = false
	t.Release = Release{State: NotYet}
	t.elapsedSamples = 0
}

// ConsumeStartOver clears the NeedStartOver flag. Step calls it on the
// branch's next step; nothing in the sub-tree is visited or reset.
func (t *InputTiming) ConsumeStartOver() {
	t.NeedStartOver = false
}

// RequestRelease transitions Active -> ReleasePending at the given
// sample offset. A release requested while already pending or released
// is a protocol error; callers on the control thread must not
// double-request.
func (t *InputTiming) RequestRelease(offset int) error {
	if t.Release.State != NotYet {
		return fmt.Errorf("rt: release already requested (state=%s)", t.Release.State)
	}
	if offset < 0 || offset >= ChunkSize {
		return fmt.Errorf("rt: release offset %d out of [0,%d)", offset, ChunkSize)
	}
	t.Release = Release{State: Pending, Offset: offset}
	return nil
}

// ConsumeRelease transitions Pending -> Released. Step calls it after the
// block in which the target saw the pending release through
// Context.BranchRelease.
func (t *InputTiming) ConsumeRelease() {
	if t.Release.State == Pending {
		t.Release.State = Released
	}
}

// MarkDone transitions to the terminal Done state.
func (t *InputTiming) MarkDone() {
	t.IsDone = true
}

// Advance moves the sample offset forward by n samples, wrapping modulo
// ChunkSize, and accumulates elapsed-sample telemetry.
func (t *InputTiming) Advance(n int) {
	t.SampleOffset = (t.SampleOffset + n) % ChunkSize
	t.elapsedSamples += int64(n)
}

// ElapsedSamples returns the total number of samples produced since the
// last StartOverAt, used to derive the processor's apparent current time
// for telemetry reporting.
func (t *InputTiming) ElapsedSamples() int64 { return t.elapsedSamples }
