// Package expr implements the declarative expression graph: a pure
// numeric DAG of expression nodes, graph parameters, and graph results,
// embedded inside a sound processor's ProcessorExpression (package
// sound) and compiled to a callable by package jit.
package expr

import (
	"fmt"
	"sort"

	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

// SourceKind is what a node input or graph result is wired to.
type SourceKind int

const (
	// SourceNone: unconnected — uses the owning NodeInput/Result's default.
	SourceNone SourceKind = iota
	// SourceNode: wired to another node's single output.
	SourceNode
	// SourceParameter: wired to a graph parameter.
	SourceParameter
)

// Source is the thing one node input (or graph result) reads from.
type Source struct {
	Kind  SourceKind
	Node  ident.NodeID
	Param ident.ParameterID
}

func NoSource() Source                         { return Source{Kind: SourceNone} }
func NodeSource(id ident.NodeID) Source         { return Source{Kind: SourceNode, Node: id} }
func ParamSource(id ident.ParameterID) Source   { return Source{Kind: SourceParameter, Param: id} }

// NodeInput is one of an expression node's own input slots.
type NodeInput struct {
	ID      ident.NodeInputID
	Source  Source
	Default float32
}

// Node is one expression-node instance: an ID, a polymorphic kind
// (the ExpressionNodeKind capability, compiled by package jit), and its
// own declared input slots.
type Node struct {
	ID     ident.NodeID
	Kind   rt.ExpressionNodeKind
	Inputs []*NodeInput
	Label  string
}

// Parameter is an input to the enclosing expression, resolved at compile
// time to an engine-provided value (time, sample rate, an argument).
type Parameter struct {
	ID    ident.ParameterID
	Label string
}

// Result is an output the owning sound processor reads after evaluation.
type Result struct {
	ID      ident.ResultID
	Source  Source
	Default float32
	Label   string
}

// Graph is the pure in-memory container for one expression DAG.
// Single-threaded, owned by the control thread.
type Graph struct {
	nodes      map[ident.NodeID]*Node
	parameters map[ident.ParameterID]*Parameter
	results    map[ident.ResultID]*Result

	nodeIDs      ident.Allocator[ident.NodeKind]
	nodeInputIDs ident.Allocator[ident.NodeInputKind]
	paramIDs     ident.Allocator[ident.ParameterKind]
	resultIDs    ident.Allocator[ident.ResultKind]
}

func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[ident.NodeID]*Node),
		parameters: make(map[ident.ParameterID]*Parameter),
		results:    make(map[ident.ResultID]*Result),
	}
}

// AddNode allocates a fresh node with no inputs wired yet (two-phase
// construction: attach input sources afterward via ConnectNodeInput).
func (g *Graph) AddNode(kind rt.ExpressionNodeKind, numInputs int, label string) *Node {
	id := g.nodeIDs.Next()
	n := &Node{ID: id, Kind: kind, Label: label}
	for i := 0; i < numInputs; i++ {
		n.Inputs = append(n.Inputs, &NodeInput{ID: g.nodeInputIDs.Next()})
	}
	g.nodes[id] = n
	return n
}

func (g *Graph) RemoveNode(id ident.NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return &Error{Kind: NodeNotFound, Node: id}
	}
	delete(g.nodes, id)
	for _, n := range g.nodes {
		for _, in := range n.Inputs {
			if in.Source.Kind == SourceNode && in.Source.Node == id {
				in.Source = NoSource()
			}
		}
	}
	for _, r := range g.results {
		if r.Source.Kind == SourceNode && r.Source.Node == id {
			r.Source = NoSource()
		}
	}
	return nil
}

func (g *Graph) AddParameter(label string) *Parameter {
	id := g.paramIDs.Next()
	p := &Parameter{ID: id, Label: label}
	g.parameters[id] = p
	return p
}

func (g *Graph) AddResult(defaultValue float32, label string) *Result {
	id := g.resultIDs.Next()
	r := &Result{ID: id, Default: defaultValue, Label: label}
	g.results[id] = r
	return r
}

func (g *Graph) Node(id ident.NodeID) (*Node, bool)           { n, ok := g.nodes[id]; return n, ok }
func (g *Graph) Parameter(id ident.ParameterID) (*Parameter, bool) { p, ok := g.parameters[id]; return p, ok }
func (g *Graph) Result(id ident.ResultID) (*Result, bool)     { r, ok := g.results[id]; return r, ok }

func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

func (g *Graph) Results() []*Result {
	out := make([]*Result, 0, len(g.results))
	for _, r := range g.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Value() < out[j].ID.Value() })
	return out
}

func (g *Graph) findNodeInput(id ident.NodeInputID) (*Node, *NodeInput, bool) {
	for _, n := range g.nodes {
		for _, in := range n.Inputs {
			if in.ID == id {
				return n, in, true
			}
		}
	}
	return nil, nil, false
}

// ConnectNodeInput wires a node input to src, validating that src exists.
func (g *Graph) ConnectNodeInput(nodeInput ident.NodeInputID, src Source) error {
	if err := g.checkSource(src); err != nil {
		return err
	}
	_, in, ok := g.findNodeInput(nodeInput)
	if !ok {
		return &Error{Kind: NodeInputNotFound, NodeInput: nodeInput}
	}
	in.Source = src
	return nil
}

func (g *Graph) DisconnectNodeInput(nodeInput ident.NodeInputID) error {
	_, in, ok := g.findNodeInput(nodeInput)
	if !ok {
		return &Error{Kind: NodeInputNotFound, NodeInput: nodeInput}
	}
	in.Source = NoSource()
	return nil
}

func (g *Graph) ConnectResult(id ident.ResultID, src Source) error {
	if err := g.checkSource(src); err != nil {
		return err
	}
	r, ok := g.results[id]
	if !ok {
		return &Error{Kind: ResultNotFound, Result: id}
	}
	r.Source = src
	return nil
}

func (g *Graph) checkSource(src Source) error {
	switch src.Kind {
	case SourceNode:
		if _, ok := g.nodes[src.Node]; !ok {
			return &Error{Kind: NodeNotFound, Node: src.Node}
		}
	case SourceParameter:
		if _, ok := g.parameters[src.Param]; !ok {
			return &Error{Kind: ParameterNotFound, Parameter: src.Param}
		}
	}
	return nil
}

// ListTopologically returns node IDs in dependency order (each node after
// all nodes its inputs read from), for the JIT compiler. Returns
// CircularDependency if the graph is not acyclic.
func (g *Graph) ListTopologically() ([]ident.NodeID, error) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[ident.NodeID]int, len(g.nodes))
	order := make([]ident.NodeID, 0, len(g.nodes))
	var stack []ident.NodeID

	var visit func(id ident.NodeID) error
	visit = func(id ident.NodeID) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return &Error{Kind: CircularDependency, Cycle: append(append([]ident.NodeID{}, stack...), id)}
		}
		color[id] = gray
		stack = append(stack, id)
		n := g.nodes[id]
		for _, in := range n.Inputs {
			if in.Source.Kind == SourceNode {
				if err := visit(in.Source.Node); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		order = append(order, id)
		return nil
	}

	ids := make([]ident.NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Value() < ids[j].Value() })
	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Validate checks every structural invariant of the graph: every node
// input and result either names a default or an existing node/parameter,
// and the graph is acyclic.
func (g *Graph) Validate() error {
	for _, n := range g.nodes {
		for _, in := range n.Inputs {
			if err := g.checkSource(in.Source); err != nil {
				return err
			}
		}
	}
	for _, r := range g.results {
		if err := g.checkSource(r.Source); err != nil {
			return err
		}
	}
	_, err := g.ListTopologically()
	return err
}

// Clone deep-copies the graph for apply-validate-or-rollback edits.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		nodes:        make(map[ident.NodeID]*Node, len(g.nodes)),
		parameters:   make(map[ident.ParameterID]*Parameter, len(g.parameters)),
		results:      make(map[ident.ResultID]*Result, len(g.results)),
		nodeIDs:      g.nodeIDs,
		nodeInputIDs: g.nodeInputIDs,
		paramIDs:     g.paramIDs,
		resultIDs:    g.resultIDs,
	}
	for id, n := range g.nodes {
		nn := &Node{ID: n.ID, Kind: n.Kind, Label: n.Label}
		for _, in := range n.Inputs {
			cp := *in
			nn.Inputs = append(nn.Inputs, &cp)
		}
		clone.nodes[id] = nn
	}
	for id, p := range g.parameters {
		cp := *p
		clone.parameters[id] = &cp
	}
	for id, r := range g.results {
		cp := *r
		clone.results[id] = &cp
	}
	return clone
}

// Edit applies fn to a clone of the graph, validates the clone, and only
// on success swaps it in for g; on failure g is left untouched.
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

// ErrorKind enumerates the expression-graph error taxonomy.
type ErrorKind int

const (
	NodeNotFound ErrorKind = iota
	NodeInputNotFound
	ParameterNotFound
	ResultNotFound
	CircularDependency
)

// Error is the expression-graph error type. Exactly one of the ID fields
// is meaningful, selected by Kind.
type Error struct {
	Kind      ErrorKind
	Node      ident.NodeID
	NodeInput ident.NodeInputID
	Parameter ident.ParameterID
	Result    ident.ResultID
	Cycle     []ident.NodeID
}

func (e *Error) Error() string {
	switch e.Kind {
	case NodeNotFound:
		return fmt.Sprintf("expr: node %s not found", e.Node)
	case NodeInputNotFound:
		return fmt.Sprintf("expr: node input %s not found", e.NodeInput)
	case ParameterNotFound:
		return fmt.Sprintf("expr: parameter %s not found", e.Parameter)
	case ResultNotFound:
		return fmt.Sprintf("expr: result %s not found", e.Result)
	case CircularDependency:
		return fmt.Sprintf("expr: circular dependency through %v", e.Cycle)
	default:
		return "expr: unknown error"
	}
}
