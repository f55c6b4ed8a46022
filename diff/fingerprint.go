package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"reflect"
	"sort"

	"github.com/tidewave-audio/sgengine/expr"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/sound"
)

// Fingerprint computes a semantic fingerprint of root's declared
// sub-graph within g: its own kind, staticness, and declared
// inputs/expressions/arguments, walked recursively through every input's
// target. Two calls over structurally identical sub-graphs produce the
// same fingerprint regardless of unrelated processors elsewhere in g.
//
// A processor reached a second time within the same walk (shared by two
// paths, e.g. a static processor fed through two different consumers)
// folds in only its ID, not its content again — recursing into it twice
// would be both wasteful and, for a graph where two distinct static
// processors happen to reference each other indirectly through a shared
// leaf, is unnecessary: the shared leaf's own fingerprint was already
// mixed in the first time it was visited.
func Fingerprint(g *sound.Graph, root *sound.Processor) string {
	h := sha256.New()
	visited := make(map[ident.ProcessorID]bool)
	walkProcessor(h, g, root, visited)
	return hex.EncodeToString(h.Sum(nil))
}

func walkProcessor(h io.Writer, g *sound.Graph, p *sound.Processor, visited map[ident.ProcessorID]bool) {
	if visited[p.ID] {
		fmt.Fprintf(h, "ref:%d", p.ID.Value())
		return
	}
	visited[p.ID] = true

	fmt.Fprintf(h, "proc:%d:%s:%v:%s", p.ID.Value(), kindTag(p.Kind), p.Static, p.Label)

	for _, in := range p.Inputs {
		fmt.Fprintf(h, ":input:%d:%d:%d", in.ID.Value(), in.Chronicity, in.Branches)
		if in.Target == nil {
			fmt.Fprintf(h, ":target:none")
			continue
		}
		fmt.Fprintf(h, ":target:%d", in.Target.Value())
		if target, ok := g.Processor(*in.Target); ok {
			walkProcessor(h, g, target, visited)
		}
	}

	for _, pe := range p.Expressions {
		fmt.Fprintf(h, ":expr:%d:%d:%f:%d", pe.ID.Value(), pe.Result.Value(), pe.Default, pe.Discretize)
		params := make([]ident.ParameterID, 0, len(pe.Bindings))
		for param := range pe.Bindings {
			params = append(params, param)
		}
		sort.Slice(params, func(i, j int) bool { return params[i].Value() < params[j].Value() })
		for _, param := range params {
			b := pe.Bindings[param]
			fmt.Fprintf(h, ":bind:%d:%d:%d", param.Value(), b.Kind, b.Argument.Value())
		}
		fmt.Fprint(h, exprGraphTag(pe))
	}

	for _, a := range p.Arguments {
		fmt.Fprintf(h, ":arg:%d:%d:%s", a.ID.Value(), a.Kind, a.Label)
	}
}

// kindTag names a ProcessorKind's dynamic type for the fingerprint. A
// kind could implement a Tag() string method to fold in its own
// parameters (e.g. a fixed oscillator frequency), the same opt-in
// FingerprintableNode does for expression node kinds in package jit;
// none of the built-in processors need that precision today.
func kindTag(k interface{}) string {
	if k == nil {
		return "nil"
	}
	if t, ok := k.(interface{ Tag() string }); ok {
		return t.Tag()
	}
	return reflect.TypeOf(k).String()
}

// exprGraphTag folds in the embedded expression graph's own topology so
// that editing the expression inside a processor (without touching the
// sound graph's shape around it) still changes the fingerprint.
func exprGraphTag(pe *sound.ProcessorExpression) string {
	order, err := pe.Graph.ListTopologically()
	if err != nil {
		return fmt.Sprintf(":invalid:%v", err)
	}
	s := ""
	for _, id := range order {
		n, _ := pe.Graph.Node(id)
		tag := reflect.TypeOf(n.Kind).String()
		if t, ok := n.Kind.(interface{ KindTag() string }); ok {
			tag = t.KindTag()
		}
		s += fmt.Sprintf(":node:%d:%s", id.Value(), tag)
		for _, in := range n.Inputs {
			s += fmt.Sprintf(":src:%d:%d:%f", in.Source.Kind, sourceRef(in.Source), in.Default)
		}
	}
	for _, r := range pe.Graph.Results() {
		s += fmt.Sprintf(":result:%d:%d:%d:%f", r.ID.Value(), r.Source.Kind, sourceRef(r.Source), r.Default)
	}
	return s
}

// sourceRef extracts whichever ID a node input's or result's Source
// names, so two sources that point at different upstream nodes or
// parameters fingerprint differently even though their Kind matches.
func sourceRef(src expr.Source) uint64 {
	switch src.Kind {
	case expr.SourceNode:
		return src.Node.Value()
	case expr.SourceParameter:
		return src.Param.Value()
	default:
		return 0
	}
}
