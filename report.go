package sgengine

import (
	"github.com/tidewave-audio/sgengine/execgraph"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

// Report copies out, per processor, one current-sample-position count
// per live compiled instance reachable from the current execution
// graph. It is regenerated fresh on every call by walking the live
// graph rather than maintained incrementally, so a processor removed by
// an earlier edit is naturally absent — and a processor present in two
// live generations at once (during a live incremental swap) never
// reports stale counts left over from a generation no longer compiled.
func (e *Engine) Report() map[ident.ProcessorID][]int64 {
	out := make(map[ident.ProcessorID][]int64)
	visited := make(map[*execgraph.Node]bool)

	var walkBranch func(b *rt.CompiledInputBranch)
	walkBranch = func(b *rt.CompiledInputBranch) {
		if b == nil || b.Target == nil {
			return
		}
		node, ok := compiledNode(b.Target)
		if !ok || visited[node] {
			return
		}
		visited[node] = true
		out[node.ProcessorID] = append(out[node.ProcessorID], b.Timing.ElapsedSamples())
		for _, slot := range node.Inputs {
			for _, branch := range slot.Branches {
				walkBranch(branch)
			}
		}
	}

	blockElapsed := int64(e.exec.BlockNum()) * rt.ChunkSize
	for _, root := range e.exec.Roots() {
		if visited[root.Node] {
			continue
		}
		visited[root.Node] = true
		// A root has no upstream branch of its own to read elapsed time
		// from; the block counter is the closest equivalent, since every
		// root is stepped exactly once per block for as long as it's live.
		out[root.Node.ProcessorID] = append(out[root.Node.ProcessorID], blockElapsed)
		for _, slot := range root.Node.Inputs {
			for _, branch := range slot.Branches {
				walkBranch(branch)
			}
		}
	}
	return out
}

// compiledNode extracts the underlying execgraph.Node from whichever
// concrete rt.CompiledTarget implementation t is, so Report can walk the
// tree generically without execgraph needing to expose this itself.
func compiledNode(t rt.CompiledTarget) (*execgraph.Node, bool) {
	switch v := t.(type) {
	case *execgraph.Shared:
		return v.Node, true
	case *execgraph.Unique:
		return v.Node, true
	default:
		return nil, false
	}
}
