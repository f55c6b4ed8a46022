// Package execgraph implements the compiled execution graph: the
// audio-thread-resident structure built by package compiler from a
// validated sound graph, stepped once per block by the engine driver.
package execgraph

import (
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

// Node bundles one processor's kind-private compiled state with its
// generically-compiled children (input branches and expression handles),
// implementing rt.CompiledProcessor's ProcessAudio dispatch.
type Node struct {
	ProcessorID ident.ProcessorID
	Kind        rt.CompiledProcessor
	Inputs      []*rt.CompiledInputSlot
	Exprs       []*rt.CompiledExpressionSlot
}

func (n *Node) processAudio(dst *rt.Chunk, ctx rt.Context) rt.StreamStatus {
	return n.Kind.ProcessAudio(dst, ctx, n.Inputs, n.Exprs)
}

// Unique is a uniquely-owned compiled sub-tree: the compiled form of one
// dynamic-processor clone, reachable from exactly the one
// CompiledInputBranch that owns it.
type Unique struct {
	Node *Node
}

var _ rt.CompiledTarget = (*Unique)(nil)

func (u *Unique) Evaluate(dst *rt.Chunk, ctx rt.Context, blockNum uint64) rt.StreamStatus {
	ctx.BlockNum = blockNum
	return u.Node.processAudio(dst, ctx)
}

// Drop satisfies chute.Garbage by duck typing, without execgraph needing
// to import package chute. A uniquely-owned node has no further state to
// release beyond normal GC once it's unreachable, except whatever its own
// kind-private state needs (e.g. a MidiControl unregistering its port
// listener), which it delegates to if present.
func (u *Unique) Drop() {
	if d, ok := u.Node.Kind.(interface{ Drop() }); ok {
		d.Drop()
	}
}

// Shared is a reference-counted compiled node plus a one-block output
// cache, used for static processors and potentially for explicitly-shared
// dynamic processors.
type Shared struct {
	Node *Node
	// id duplicates Node.ProcessorID for Step's deterministic iteration
	// without needing a reverse lookup from the roots slice.
	id ident.ProcessorID

	refs       int
	lastBlock  uint64
	haveCache  bool
	cache      rt.Chunk
	lastStatus rt.StreamStatus
}

var _ rt.CompiledTarget = (*Shared)(nil)

// Evaluate returns the cached result if this node's output is already
// stamped with the current block number; otherwise it evaluates once
// and caches the result.
func (s *Shared) Evaluate(dst *rt.Chunk, ctx rt.Context, blockNum uint64) rt.StreamStatus {
	if s.haveCache && s.lastBlock == blockNum {
		*dst = s.cache
		return s.lastStatus
	}
	ctx.BlockNum = blockNum
	status := s.Node.processAudio(&s.cache, ctx)
	s.lastBlock = blockNum
	s.haveCache = true
	s.lastStatus = status
	*dst = s.cache
	return status
}

// Acquire increments the shared node's reference count, called by the
// compiler each time another input branch is compiled to target the same
// static (or explicitly-shared dynamic) processor.
func (s *Shared) Acquire() { s.refs++ }

// Release drops one reference, returning the remaining count. A
// returned count of zero means the node has no more referencing
// branches and is a candidate for removal by the diff/edit protocol.
func (s *Shared) Release() int {
	s.refs--
	return s.refs
}

// Refs reports the current reference count, for telemetry and tests.
func (s *Shared) Refs() int { return s.refs }

// Drop delegates to the node's own kind-private teardown, the same way
// Unique.Drop does, for a shared node whose kind owns an external
// resource (e.g. an open MIDI port).
func (s *Shared) Drop() {
	if d, ok := s.Node.Kind.(interface{ Drop() }); ok {
		d.Drop()
	}
}

// Graph is the audio-thread-resident list of root Shared processors (the
// static processors), stepped once per block.
type Graph struct {
	roots    []*Shared
	byID     map[ident.ProcessorID]*Shared
	blockNum uint64
}

func NewGraph() *Graph {
	return &Graph{byID: make(map[ident.ProcessorID]*Shared)}
}

// AddRoot appends a newly-compiled static processor root. Roots are
// evaluated in insertion order every block, so ordering is deterministic
// across edits.
func (g *Graph) AddRoot(id ident.ProcessorID, s *Shared) {
	s.id = id
	g.roots = append(g.roots, s)
	g.byID[id] = s
}

// RemoveRoot detaches a static processor root, returning it so the
// caller can push it into the garbage chute.
func (g *Graph) RemoveRoot(id ident.ProcessorID) (*Shared, bool) {
	s, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	delete(g.byID, id)
	for i, r := range g.roots {
		if r == s {
			g.roots = append(g.roots[:i], g.roots[i+1:]...)
			break
		}
	}
	return s, true
}

func (g *Graph) Root(id ident.ProcessorID) (*Shared, bool) { s, ok := g.byID[id]; return s, ok }

// Roots returns the current root list, in insertion order. Callers must
// not retain the returned slice across an edit.
func (g *Graph) Roots() []*Shared { return g.roots }

// RootCount reports how many static processors are currently live.
func (g *Graph) RootCount() int { return len(g.roots) }

// Step runs one block: advances the block counter, evaluates every root
// (each root's own Evaluate no-ops if already stamped this block by a
// shared reference further down the tree), and hands each root's output
// chunk to mix.
func (g *Graph) Step(ctx rt.Context, mix func(ident.ProcessorID, *rt.Chunk, rt.StreamStatus)) {
	g.blockNum++
	var scratch rt.Chunk
	for _, s := range g.roots {
		status := s.Evaluate(&scratch, ctx, g.blockNum)
		mix(s.id, &scratch, status)
	}
}

// BlockNum reports the current block counter, for telemetry and for
// constructing the Context passed into Step.
func (g *Graph) BlockNum() uint64 { return g.blockNum }
