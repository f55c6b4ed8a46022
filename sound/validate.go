package sound

import (
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

// Validate checks every structural invariant of the graph: targets
// reference existing processors, no cycles, static processors are fed
// only by synchronous (iso, branch-count-1) inputs, and every expression
// parameter binding names an in-scope argument reachable by a unique
// sound path.
func (g *Graph) Validate() error {
	for _, p := range g.processors {
		for _, in := range p.Inputs {
			if in.Target != nil {
				if _, ok := g.processors[*in.Target]; !ok {
					return &Error{Kind: ProcessorNotFound, Processor: *in.Target}
				}
			}
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return err
	}
	if err := g.checkStaticSynchrony(); err != nil {
		return err
	}
	if err := g.checkScopes(); err != nil {
		return err
	}
	return nil
}

func (g *Graph) checkAcyclic() error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[ident.ProcessorID]int, len(g.processors))
	var stack []ident.ProcessorID

	var visit func(id ident.ProcessorID) error
	visit = func(id ident.ProcessorID) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return &Error{Kind: CircularDependency, Cycle: append(append([]ident.ProcessorID{}, stack...), id)}
		}
		color[id] = gray
		stack = append(stack, id)
		p := g.processors[id]
		for _, in := range p.Inputs {
			if in.Target != nil {
				if err := visit(*in.Target); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for id := range g.processors {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// checkStaticSynchrony enforces that a static processor is only fed by
// iso inputs with branch count 1.
func (g *Graph) checkStaticSynchrony() error {
	for _, p := range g.processors {
		if !p.Static {
			continue
		}
		for _, owner := range g.processors {
			for _, in := range owner.Inputs {
				if in.Target == nil || *in.Target != p.ID {
					continue
				}
				if in.Chronicity != rt.Iso {
					return &Error{Kind: StaticNotSynchronous, Processor: p.ID}
				}
				if in.Branches != 1 {
					return &Error{Kind: StaticNotOneState, Processor: p.ID}
				}
			}
		}
	}
	return nil
}

// checkScopes enforces that every expression parameter binding names an
// argument that is in scope: an argument binding is only unambiguous if
// exactly one sound path connects its owning processor down to the
// expression's owning processor.
func (g *Graph) checkScopes() error {
	for _, p := range g.processors {
		for _, pe := range p.Expressions {
			for _, b := range pe.Bindings {
				if b.Kind != BindArgument {
					continue
				}
				owner, ok := g.argumentOwner(b.Argument)
				if !ok {
					continue // dangling binding is a compile-time error, not a scope error
				}
				if !containsArg(pe.Scope, b.Argument) {
					return &Error{Kind: StateNotInScope, Argument: b.Argument, Consumer: p.ID, Owner: owner, PathCount: 0}
				}
				paths := g.argumentPaths(owner, p.ID)
				if len(paths) != 1 {
					return &Error{Kind: StateNotInScope, Argument: b.Argument, Consumer: p.ID, Owner: owner, PathCount: len(paths)}
				}
			}
		}
	}
	return nil
}

func (g *Graph) argumentOwner(arg ident.ArgumentID) (ident.ProcessorID, bool) {
	for _, p := range g.processors {
		for _, a := range p.Arguments {
			if a.ID == arg {
				return p.ID, true
			}
		}
	}
	return ident.ProcessorID{}, false
}

func containsArg(scope []ident.ArgumentID, id ident.ArgumentID) bool {
	for _, a := range scope {
		if a == id {
			return true
		}
	}
	return false
}

// ArgumentPath is the chain of inputs traversed from an argument's
// owning processor down to the processor consuming it.
type ArgumentPath []ident.InputID

// TrimUntilInput returns the suffix of path after the given input (not
// including it), for checking scope relative to a point nested below the
// argument's own processor rather than from the processor's root. Ok is
// false if after is not on the path.
func TrimUntilInput(path ArgumentPath, after ident.InputID) (ArgumentPath, bool) {
	for i, in := range path {
		if in == after {
			return path[i+1:], true
		}
	}
	return nil, false
}

// argumentPaths enumerates every acyclic chain of Input->Target edges
// from the argument owner's own inputs down to consumer. An owner always
// "sees" its own processor with the empty path — if consumer == owner,
// there's exactly one (trivial) path.
func (g *Graph) argumentPaths(owner, consumer ident.ProcessorID) []ArgumentPath {
	if owner == consumer {
		return []ArgumentPath{{}}
	}
	var paths []ArgumentPath
	var walk func(current ident.ProcessorID, path ArgumentPath, visited map[ident.ProcessorID]bool)
	walk = func(current ident.ProcessorID, path ArgumentPath, visited map[ident.ProcessorID]bool) {
		p, ok := g.processors[current]
		if !ok {
			return
		}
		for _, in := range p.Inputs {
			if in.Target == nil {
				continue
			}
			next := *in.Target
			nextPath := append(append(ArgumentPath{}, path...), in.ID)
			if next == consumer {
				paths = append(paths, nextPath)
				continue
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			walk(next, nextPath, visited)
			delete(visited, next)
		}
	}
	walk(owner, ArgumentPath{}, map[ident.ProcessorID]bool{owner: true})
	return paths
}
