package jit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"

	"github.com/tidewave-audio/sgengine/expr"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

// Fingerprint computes the semantic fingerprint of a compile request: a
// content hash of the expression graph's topology and node kinds, its
// parameter mapping, and the translation rules of any argument it reads.
// Two requests that differ only in location hash identically; the cache
// key folds location back in separately so that per-location caching
// still applies.
func Fingerprint(req CompileRequest) string {
	h := sha256.New()

	order, err := req.Graph.ListTopologically()
	if err != nil {
		// An invalid graph shouldn't reach the JIT (the sound graph's own
		// validate() rejects it first); fold the error text in so an
		// accidental request still fingerprints deterministically rather
		// than panicking.
		fmt.Fprintf(h, "invalid:%v", err)
		return hex.EncodeToString(h.Sum(nil))
	}

	for _, id := range order {
		n, _ := req.Graph.Node(id)
		fmt.Fprintf(h, "node:%d:%s", id.Value(), kindTag(n.Kind))
		for _, in := range n.Inputs {
			fmt.Fprintf(h, ":in:%d:%d:%d:%f", in.ID.Value(), in.Source.Kind, sourceValue(in.Source), in.Default)
		}
	}

	for _, r := range req.Graph.Results() {
		fmt.Fprintf(h, "result:%d:%d:%d:%f", r.ID.Value(), r.Source.Kind, sourceValue(r.Source), r.Default)
	}
	fmt.Fprintf(h, "primary-result:%d", req.Result.Value())

	paramIDs := make([]uint64, 0, len(req.Params))
	for pid := range req.Params {
		paramIDs = append(paramIDs, pid.Value())
	}
	sort.Slice(paramIDs, func(i, j int) bool { return paramIDs[i] < paramIDs[j] })
	for _, pv := range paramIDs {
		src := req.Params[ident.FromValue[ident.ParameterKind](pv)]
		fmt.Fprintf(h, "param:%d:%d:%d", pv, src.Kind, src.Argument.Value())
	}

	argIDs := make([]uint64, 0, len(req.ArgKinds))
	for aid := range req.ArgKinds {
		argIDs = append(argIDs, aid.Value())
	}
	sort.Slice(argIDs, func(i, j int) bool { return argIDs[i] < argIDs[j] })
	for _, av := range argIDs {
		fmt.Fprintf(h, "arg:%d:%d", av, req.ArgKinds[ident.FromValue[ident.ArgumentKind](av)])
	}

	return hex.EncodeToString(h.Sum(nil))
}

func kindTag(k rt.ExpressionNodeKind) string {
	if k == nil {
		return "nil"
	}
	if fp, ok := k.(FingerprintableNode); ok {
		return fp.KindTag()
	}
	return reflect.TypeOf(k).String()
}

// sourceValue extracts whichever ID a Source names, for folding into the
// hash; the Kind field already disambiguates node vs parameter vs none.
func sourceValue(src expr.Source) uint64 {
	switch src.Kind {
	case expr.SourceNode:
		return src.Node.Value()
	case expr.SourceParameter:
		return src.Param.Value()
	default:
		return 0
	}
}
