package jit

import (
	"fmt"

	"github.com/tidewave-audio/sgengine/expr"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

// compile builds a Handle from req by walking its expression graph in
// topological order and composing each node's rt.SampleFunc from its
// already-compiled inputs. Each expression node kind supplies its own
// emission rule given its inputs' already-compiled closures, so compile
// itself knows nothing about any particular node kind.
func compile(req CompileRequest, fp string) (*Handle, error) {
	order, err := req.Graph.ListTopologically()
	if err != nil {
		return nil, fmt.Errorf("jit: %w", err)
	}

	compiled := make(map[ident.NodeID]rt.SampleFunc, len(order))
	for _, id := range order {
		n, _ := req.Graph.Node(id)
		inputs := make([]rt.SampleFunc, len(n.Inputs))
		for i, in := range n.Inputs {
			fn, err := req.resolveSource(in.Source, in.Default, compiled)
			if err != nil {
				return nil, err
			}
			inputs[i] = fn
		}
		if n.Kind == nil {
			return nil, fmt.Errorf("jit: node %s has no kind", id)
		}
		compiled[id] = n.Kind.Compile(inputs)
	}

	result, ok := req.Graph.Result(req.Result)
	if !ok {
		return nil, fmt.Errorf("jit: result %s not found", req.Result)
	}
	top, err := req.resolveSource(result.Source, result.Default, compiled)
	if err != nil {
		return nil, err
	}

	return &Handle{fp: fp, eval: top}, nil
}

// resolveSource turns one node input's or result's Source into a
// SampleFunc: an unconnected source is a compile-time constant, a node
// source reuses the already-compiled function for that node (DAG order
// guarantees it exists), and a parameter source reads from the engine
// context via req's parameter mapping.
func (req CompileRequest) resolveSource(src expr.Source, def float32, compiled map[ident.NodeID]rt.SampleFunc) (rt.SampleFunc, error) {
	switch src.Kind {
	case expr.SourceNone:
		v := def
		return func(int, rt.Context) float32 { return v }, nil
	case expr.SourceNode:
		fn, ok := compiled[src.Node]
		if !ok {
			return nil, fmt.Errorf("jit: node %s compiled out of order", src.Node)
		}
		return fn, nil
	case expr.SourceParameter:
		binding, ok := req.Params[src.Param]
		if !ok {
			return nil, fmt.Errorf("jit: unbound parameter %s", src.Param)
		}
		return paramSampleFunc(binding), nil
	default:
		return nil, fmt.Errorf("jit: unknown source kind %d", src.Kind)
	}
}

// paramSampleFunc turns a resolved parameter binding into a SampleFunc
// reading the appropriate engine-provided quantity from Context.
func paramSampleFunc(p ParamSource) rt.SampleFunc {
	switch p.Kind {
	case ParamTime:
		return func(i int, ctx rt.Context) float32 {
			if ctx.SampleRate <= 0 {
				return float32(ctx.AbsoluteSample)
			}
			return float32(ctx.AbsoluteSample+int64(i)) / float32(ctx.SampleRate)
		}
	case ParamSampleRate:
		return func(_ int, ctx rt.Context) float32 { return float32(ctx.SampleRate) }
	case ParamArgument:
		arg := p.Argument
		return func(_ int, ctx rt.Context) float32 {
			v, ok := ctx.Args.Lookup(arg)
			if !ok {
				return 0
			}
			return v.Scalar
		}
	default:
		return func(int, rt.Context) float32 { return 0 }
	}
}

