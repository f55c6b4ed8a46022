// Package sound implements the declarative sound graph: processors,
// their inputs, embedded expressions, and arguments, plus the
// structural validation that must pass before the graph can be compiled
// (package compiler).
package sound

import (
	"github.com/tidewave-audio/sgengine/expr"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

// ArgumentKind is the translated value shape of a processor argument: a
// typed value channel (e.g. f32, f32-array).
type ArgumentKind int

const (
	ArgF32 ArgumentKind = iota
	ArgF32Array
)

// ProcessorArgument is a typed value channel a processor exposes for
// expressions in its downstream inputs to read.
type ProcessorArgument struct {
	ID    ident.ArgumentID
	Owner ident.ProcessorID
	Kind  ArgumentKind
	Label string
}

// BindingKind is what an expression parameter is bound to at compile
// time.
type BindingKind int

const (
	BindTime BindingKind = iota
	BindSampleRate
	BindArgument
)

// Binding names the engine-provided quantity or sibling argument an
// expression graph parameter reads.
type Binding struct {
	Kind     BindingKind
	Argument ident.ArgumentID
}

// ProcessorExpression is an embedded expression graph plus the parameter
// mapping, default, and scope it is compiled against.
type ProcessorExpression struct {
	ID       ident.ExpressionID
	Owner    ident.ProcessorID
	Graph    *expr.Graph
	Bindings map[ident.ParameterID]Binding
	// Result designates which of Graph's results is the value this
	// processor expression ultimately produces.
	Result ident.ResultID
	// Discretize selects how the compiled expression batches its
	// evaluation over a chunk.
	Discretize rt.Discretization
	Default    float32
	// Scope lists the argument IDs legal to reference from this
	// expression's location, independent of whether a unique sound path
	// to each one currently exists (that's checked separately by
	// Graph.Validate via checkScopes).
	Scope []ident.ArgumentID
}

// Input belongs to exactly one processor and optionally targets another
// processor.
type Input struct {
	ID         ident.InputID
	Owner      ident.ProcessorID
	Chronicity rt.Chronicity
	Branches   int
	Target     *ident.ProcessorID
	Options    map[string]string
}

// Processor is one node of the sound graph. Kind is nil between
// AddProcessorPlaceholder and SetKind — this two-phase construction is
// needed because a kind's own constructor may itself want to declare
// this processor's inputs/arguments, which requires the processor's ID
// to already exist.
type Processor struct {
	ID          ident.ProcessorID
	Kind        rt.ProcessorKind
	Static      bool
	Label       string
	Inputs      []*Input
	Expressions []*ProcessorExpression
	Arguments   []*ProcessorArgument
}

// Graph is the pure in-memory container for one sound graph.
// Single-threaded, owned by the control thread.
type Graph struct {
	processors map[ident.ProcessorID]*Processor

	procIDs  ident.Allocator[ident.ProcessorKind]
	inputIDs ident.Allocator[ident.InputKind]
	exprIDs  ident.Allocator[ident.ExpressionKind]
	argIDs   ident.Allocator[ident.ArgumentKind]
}

func NewGraph() *Graph {
	return &Graph{processors: make(map[ident.ProcessorID]*Processor)}
}

// AddProcessorPlaceholder allocates a processor ID with no kind yet.
func (g *Graph) AddProcessorPlaceholder(label string) *Processor {
	p := &Processor{ID: g.procIDs.Next(), Label: label}
	g.processors[p.ID] = p
	return p
}

// SetKind completes two-phase construction: binds the processor's
// behavior and derives its staticness.
func (g *Graph) SetKind(id ident.ProcessorID, kind rt.ProcessorKind) error {
	p, ok := g.processors[id]
	if !ok {
		return &Error{Kind: ProcessorNotFound, Processor: id}
	}
	p.Kind = kind
	p.Static = kind.IsStatic()
	return nil
}

// AddProcessor is the one-phase convenience form for kinds with no
// self-referential construction needs.
func (g *Graph) AddProcessor(kind rt.ProcessorKind, label string) *Processor {
	p := g.AddProcessorPlaceholder(label)
	_ = g.SetKind(p.ID, kind)
	return p
}

func (g *Graph) RemoveProcessor(id ident.ProcessorID) error {
	if _, ok := g.processors[id]; !ok {
		return &Error{Kind: ProcessorNotFound, Processor: id}
	}
	delete(g.processors, id)
	for _, p := range g.processors {
		for _, in := range p.Inputs {
			if in.Target != nil && *in.Target == id {
				in.Target = nil
			}
		}
	}
	return nil
}

func (g *Graph) Processor(id ident.ProcessorID) (*Processor, bool) {
	p, ok := g.processors[id]
	return p, ok
}

func (g *Graph) Processors() []*Processor {
	out := make([]*Processor, 0, len(g.processors))
	for _, p := range g.processors {
		out = append(out, p)
	}
	return out
}

// ArgumentKindOf looks up the declared kind of an argument, for the
// compiler to fold into the JIT fingerprint.
func (g *Graph) ArgumentKindOf(id ident.ArgumentID) (ArgumentKind, bool) {
	for _, p := range g.processors {
		for _, a := range p.Arguments {
			if a.ID == id {
				return a.Kind, true
			}
		}
	}
	return 0, false
}

// Label returns a processor's friendly label, or its ID's string form if
// unknown, for use in human-readable error explanations.
func (g *Graph) Label(id ident.ProcessorID) string {
	if p, ok := g.processors[id]; ok && p.Label != "" {
		return p.Label
	}
	return id.String()
}

// AddInput declares a new input on owner.
func (g *Graph) AddInput(owner ident.ProcessorID, chronicity rt.Chronicity, branches int, opts map[string]string) (*Input, error) {
	p, ok := g.processors[owner]
	if !ok {
		return nil, &Error{Kind: ProcessorNotFound, Processor: owner}
	}
	if branches < 1 {
		branches = 1
	}
	in := &Input{ID: g.inputIDs.Next(), Owner: owner, Chronicity: chronicity, Branches: branches, Options: opts}
	p.Inputs = append(p.Inputs, in)
	return in, nil
}

func (g *Graph) findInput(id ident.InputID) (*Processor, *Input, bool) {
	for _, p := range g.processors {
		for _, in := range p.Inputs {
			if in.ID == id {
				return p, in, true
			}
		}
	}
	return nil, nil, false
}

// SetTarget connects (target != nil) or disconnects (target == nil) an
// input.
func (g *Graph) SetTarget(inputID ident.InputID, target *ident.ProcessorID) error {
	_, in, ok := g.findInput(inputID)
	if !ok {
		return &Error{Kind: InputNotFound, Input: inputID}
	}
	if target != nil {
		if _, ok := g.processors[*target]; !ok {
			return &Error{Kind: ProcessorNotFound, Processor: *target}
		}
	}
	in.Target = target
	return nil
}

// AddExpression embeds a new expression graph into owner. result names
// which of eg's graph results this expression ultimately produces.
func (g *Graph) AddExpression(owner ident.ProcessorID, eg *expr.Graph, bindings map[ident.ParameterID]Binding, result ident.ResultID, def float32, scope []ident.ArgumentID) (*ProcessorExpression, error) {
	p, ok := g.processors[owner]
	if !ok {
		return nil, &Error{Kind: ProcessorNotFound, Processor: owner}
	}
	pe := &ProcessorExpression{ID: g.exprIDs.Next(), Owner: owner, Graph: eg, Bindings: bindings, Result: result, Default: def, Scope: scope}
	p.Expressions = append(p.Expressions, pe)
	return pe, nil
}

// AddArgument declares a new argument channel on owner.
func (g *Graph) AddArgument(owner ident.ProcessorID, kind ArgumentKind, label string) (*ProcessorArgument, error) {
	p, ok := g.processors[owner]
	if !ok {
		return nil, &Error{Kind: ProcessorNotFound, Processor: owner}
	}
	arg := &ProcessorArgument{ID: g.argIDs.Next(), Owner: owner, Kind: kind, Label: label}
	p.Arguments = append(p.Arguments, arg)
	return arg, nil
}

// Clone deep-copies the graph for apply-validate-or-rollback edits.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		processors: make(map[ident.ProcessorID]*Processor, len(g.processors)),
		procIDs:    g.procIDs,
		inputIDs:   g.inputIDs,
		exprIDs:    g.exprIDs,
		argIDs:     g.argIDs,
	}
	for id, p := range g.processors {
		np := &Processor{ID: p.ID, Kind: p.Kind, Static: p.Static, Label: p.Label}
		for _, in := range p.Inputs {
			cp := *in
			if in.Target != nil {
				t := *in.Target
				cp.Target = &t
			}
			if in.Options != nil {
				cp.Options = make(map[string]string, len(in.Options))
				for k, v := range in.Options {
					cp.Options[k] = v
				}
			}
			np.Inputs = append(np.Inputs, &cp)
		}
		for _, pe := range p.Expressions {
			cpe := *pe
			if pe.Graph != nil {
				cpe.Graph = pe.Graph.Clone()
			}
			cpe.Bindings = make(map[ident.ParameterID]Binding, len(pe.Bindings))
			for k, v := range pe.Bindings {
				cpe.Bindings[k] = v
			}
			np.Expressions = append(np.Expressions, &cpe)
		}
		for _, a := range p.Arguments {
			ca := *a
			np.Arguments = append(np.Arguments, &ca)
		}
		clone.processors[id] = np
	}
	return clone
}

// Edit applies fn to a clone of the graph, validates the clone, and only
// on success swaps it in for g: apply tentatively, validate, and roll
// back on failure.
func (g *Graph) Edit(fn func(*Graph) error) error {
	clone := g.Clone()
	if err := fn(clone); err != nil {
		return err
	}
	if err := clone.Validate(); err != nil {
		return err
	}
	*g = *clone
	return nil
}
