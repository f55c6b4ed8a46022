// Package diff compares the sound graph most recently compiled onto the
// audio thread against a newly-validated one and produces a minimal
// sequence of edits that brings the compiled execution graph in line,
// preserving unchanged static processors' compiled state (and so their
// input timing and cached chunks) wherever their declared sub-graph
// hasn't changed.
package diff

import (
	"github.com/tidewave-audio/sgengine/compiler"
	"github.com/tidewave-audio/sgengine/execgraph"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/sound"
)

// EditKind enumerates the edit messages crossing to the audio thread.
type EditKind int

const (
	AddStaticProcessor EditKind = iota
	RemoveStaticProcessor
	DebugInspect
)

// Edit is one entry of the edit batch applied atomically at the start of
// a block, so no partial application is ever visible to audio
// evaluation.
type Edit struct {
	Kind        EditKind
	ProcessorID ident.ProcessorID
	// Shared is the newly-compiled root, set for AddStaticProcessor.
	Shared *execgraph.Shared
	// Inspect runs on the audio thread between blocks, set for
	// DebugInspect, a development aid for dumping live compiled state.
	Inspect func(*execgraph.Graph)
}

// Strategy selects how much of the diff algorithm to apply.
type Strategy int

const (
	// FullReplace is the minimal behavior: remove every
	// currently-compiled static processor, then compile and add back the
	// entire new set, regardless of whether any individual sub-tree is
	// actually unchanged.
	FullReplace Strategy = iota
	// Incremental additionally detects unchanged sub-trees (by processor
	// ID + semantic fingerprint of its declared sub-graph) and skips
	// their removal/re-addition, preserving their compiled state —
	// including input timing and cached chunks — across the edit, for
	// audio continuity across a live swap.
	Incremental
)

// Compute diffs prevFingerprints (the fingerprints of the static
// processors last applied to the audio thread, as returned by a prior
// call to Compute) against next, a freshly-edited sound graph. It
// validates next, compiles whichever static processors need a fresh
// compiled instance, and returns the edit batch plus the fingerprint map
// to retain for the following call.
//
// next is not retained; only its processors' declared shapes are read
// during this call, via comp (which must share a JIT cache across calls
// so an unchanged expression still hits the JIT's own cache even when
// its owning processor's fingerprint did change for an unrelated
// reason).
func Compute(prevFingerprints map[ident.ProcessorID]string, next *sound.Graph, comp *compiler.Compiler, strategy Strategy) ([]Edit, map[ident.ProcessorID]string, error) {
	if err := next.Validate(); err != nil {
		return nil, nil, err
	}

	nextStatics := make(map[ident.ProcessorID]*sound.Processor)
	for _, p := range next.Processors() {
		if p.Static {
			nextStatics[p.ID] = p
		}
	}

	nextFingerprints := make(map[ident.ProcessorID]string, len(nextStatics))
	if strategy == Incremental {
		for id, p := range nextStatics {
			nextFingerprints[id] = Fingerprint(next, p)
		}
	}

	var edits []Edit

	// Remove every previously-compiled static processor that either no
	// longer exists, or (Incremental only) whose fingerprint changed.
	for id := range prevFingerprints {
		p, stillExists := nextStatics[id]
		if !stillExists {
			edits = append(edits, Edit{Kind: RemoveStaticProcessor, ProcessorID: id})
			continue
		}
		if strategy == FullReplace || nextFingerprints[id] != prevFingerprints[id] {
			edits = append(edits, Edit{Kind: RemoveStaticProcessor, ProcessorID: id})
		}
		_ = p
	}

	comp.BeginPass()
	for id, p := range nextStatics {
		if strategy == Incremental {
			if prevFP, existed := prevFingerprints[id]; existed && prevFP == nextFingerprints[id] {
				// Unchanged: the audio thread already has a live compiled
				// instance for this processor; skip recompilation and
				// leave it exactly as it is.
				continue
			}
		}
		shared, err := comp.CompileRoot(next, p)
		if err != nil {
			return nil, nil, err
		}
		edits = append(edits, Edit{Kind: AddStaticProcessor, ProcessorID: id, Shared: shared})
		if strategy == FullReplace {
			nextFingerprints[id] = Fingerprint(next, p)
		}
	}

	return edits, nextFingerprints, nil
}
