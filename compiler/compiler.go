// Package compiler turns a validated sound.Graph into an
// execgraph.Graph, sharing exactly one compiled instance per static
// processor and cloning a fresh instance per consuming branch for
// dynamic processors.
package compiler

import (
	"fmt"

	"github.com/tidewave-audio/sgengine/execgraph"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/jit"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

// Compiler holds the per-pass compilation state: the JIT cache
// (long-lived, shared across compiles) and a static-processor
// memoization map (scoped to one Compile call). It satisfies
// rt.Compiler, so a ProcessorKind's own Compile method can read the
// sample rate it's being compiled for.
type Compiler struct {
	sampleRate int
	jitCache   *jit.Cache

	static map[ident.ProcessorID]*execgraph.Shared
}

var _ rt.Compiler = (*Compiler)(nil)

func New(sampleRate int, jitCache *jit.Cache) *Compiler {
	return &Compiler{sampleRate: sampleRate, jitCache: jitCache}
}

func (c *Compiler) SampleRate() int { return c.sampleRate }

// BeginPass resets the static-processor memoization map, starting a
// fresh compilation pass. Compile calls this itself; callers that need
// to compile individual roots one at a time (package diff, for partial
// recompilation) call it once up front and then use CompileRoot
// repeatedly so that static processors shared across those roots still
// memoize to one instance within the pass.
func (c *Compiler) BeginPass() {
	c.static = make(map[ident.ProcessorID]*execgraph.Shared)
}

// Compile validates g and produces its compiled execution graph. It
// walks depth-first from each static processor (the roots), memoizing
// static processors it has already compiled in this pass and cloning a
// fresh instance for every dynamic processor it reaches.
func (c *Compiler) Compile(g *sound.Graph) (*execgraph.Graph, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	c.BeginPass()

	out := execgraph.NewGraph()
	for _, p := range g.Processors() {
		if !p.Static {
			continue
		}
		shared, err := c.compileStatic(g, p)
		if err != nil {
			return nil, err
		}
		out.AddRoot(p.ID, shared)
	}
	return out, nil
}

// CompileRoot compiles a single static processor within the current pass
// (started by BeginPass), reusing any already-compiled shared nodes. g
// must already be validated by the caller.
func (c *Compiler) CompileRoot(g *sound.Graph, p *sound.Processor) (*execgraph.Shared, error) {
	if c.static == nil {
		c.BeginPass()
	}
	return c.compileStatic(g, p)
}

// compileStatic returns the one Shared compiled node for a static
// processor, compiling it the first time it's reached and reusing the
// same instance (with an incremented reference count) on every
// subsequent reference within this pass, regardless of how many inputs
// reference it.
func (c *Compiler) compileStatic(g *sound.Graph, p *sound.Processor) (*execgraph.Shared, error) {
	if s, ok := c.static[p.ID]; ok {
		s.Acquire()
		return s, nil
	}
	node, err := c.compileNode(g, p)
	if err != nil {
		return nil, err
	}
	s := &execgraph.Shared{Node: node}
	s.Acquire()
	c.static[p.ID] = s
	return s, nil
}

// compileNode builds one processor's compiled Node: its kind-private
// state, its generically-compiled input slots, and its compiled
// expression handles.
func (c *Compiler) compileNode(g *sound.Graph, p *sound.Processor) (*execgraph.Node, error) {
	if p.Kind == nil {
		return nil, fmt.Errorf("compiler: processor %s has no kind set", p.ID)
	}

	inputs := make([]*rt.CompiledInputSlot, 0, len(p.Inputs))
	for _, in := range p.Inputs {
		slot, err := c.compileInput(g, p, in)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, slot)
	}

	exprs := make([]*rt.CompiledExpressionSlot, 0, len(p.Expressions))
	for _, pe := range p.Expressions {
		slot, err := c.compileExpression(g, p, pe)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, slot)
	}

	node := &execgraph.Node{ProcessorID: p.ID, Inputs: inputs, Exprs: exprs}
	node.Kind = p.Kind.Compile(p.ID, c)
	return node, nil
}

func (c *Compiler) compileInput(g *sound.Graph, owner *sound.Processor, in *sound.Input) (*rt.CompiledInputSlot, error) {
	slot := &rt.CompiledInputSlot{InputID: in.ID}
	for branch := 0; branch < in.Branches; branch++ {
		cb := &rt.CompiledInputBranch{
			Location:   rt.InputLocation{Processor: owner.ID, Input: in.ID, Branch: branch},
			Chronicity: in.Chronicity,
			Timing:     rt.NewInputTiming(),
		}
		if in.Target != nil {
			target, ok := g.Processor(*in.Target)
			if !ok {
				return nil, fmt.Errorf("compiler: input %s targets missing processor %s", in.ID, *in.Target)
			}
			var err error
			cb.Target, err = c.compileTarget(g, target)
			if err != nil {
				return nil, err
			}
		}
		slot.Branches = append(slot.Branches, cb)
	}
	return slot, nil
}

// compileTarget compiles (or reuses) the downstream processor an input
// branch targets: a shared reference for a static processor, a fresh
// clone for a dynamic one. Dynamic processors are always cloned
// per-branch; sharing them is not supported.
func (c *Compiler) compileTarget(g *sound.Graph, target *sound.Processor) (rt.CompiledTarget, error) {
	if target.Static {
		return c.compileStatic(g, target)
	}
	node, err := c.compileNode(g, target)
	if err != nil {
		return nil, err
	}
	return &execgraph.Unique{Node: node}, nil
}

func (c *Compiler) compileExpression(g *sound.Graph, owner *sound.Processor, pe *sound.ProcessorExpression) (*rt.CompiledExpressionSlot, error) {
	req := jit.CompileRequest{
		Location: pe.ID,
		Graph:    pe.Graph,
		Result:   pe.Result,
		Params:   make(map[ident.ParameterID]jit.ParamSource, len(pe.Bindings)),
		ArgKinds: make(map[ident.ArgumentID]int),
	}
	for paramID, binding := range pe.Bindings {
		switch binding.Kind {
		case sound.BindTime:
			req.Params[paramID] = jit.ParamSource{Kind: jit.ParamTime}
		case sound.BindSampleRate:
			req.Params[paramID] = jit.ParamSource{Kind: jit.ParamSampleRate}
		case sound.BindArgument:
			req.Params[paramID] = jit.ParamSource{Kind: jit.ParamArgument, Argument: binding.Argument}
			if kind, ok := g.ArgumentKindOf(binding.Argument); ok {
				req.ArgKinds[binding.Argument] = int(kind)
			}
		}
	}

	handle, err := c.jitCache.Request(req)
	if err != nil {
		return nil, fmt.Errorf("compiler: compiling expression %s on processor %s: %w", pe.ID, owner.ID, err)
	}
	return &rt.CompiledExpressionSlot{ExpressionID: pe.ID, Handle: handle, Discretize: pe.Discretize}, nil
}
