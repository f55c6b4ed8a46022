package jit

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/tidewave-audio/sgengine/rt"
)

// lane is the stride Eval processes in one pass. It has no effect on
// the result (each lane is still evaluated independently and
// sequentially — this is Go, not hand-written SIMD), but it keeps the
// hot loop's instruction stream in uniform chunks sized to the host's
// vector width, matching the stride cpuid reports, instead of always
// assuming 1 or a fixed 8.
var lane = func() int {
	switch {
	case cpuid.CPU.Has(cpuid.AVX512F):
		return 16
	case cpuid.CPU.Has(cpuid.AVX2):
		return 8
	case cpuid.CPU.Has(cpuid.SSE2):
		return 4
	default:
		return 1
	}
}()

// Handle is the JIT's reference-counted callable. It implements
// rt.CompiledExpression.
type Handle struct {
	fp    string
	eval  rt.SampleFunc
	entry *entry
	cache *Cache
}

var _ rt.CompiledExpression = (*Handle)(nil)

// Eval fills dst according to disc.
func (h *Handle) Eval(dst []float32, disc rt.Discretization, ctx rt.Context) {
	switch disc {
	case rt.Constant, rt.ChunkwiseTemporal:
		v := h.eval(0, ctx)
		for i := range dst {
			dst[i] = v
		}
	default: // SamplewiseTemporal
		n := len(dst)
		i := 0
		for ; i+lane <= n; i += lane {
			for j := 0; j < lane; j++ {
				dst[i+j] = h.eval(i+j, ctx)
			}
		}
		for ; i < n; i++ {
			dst[i] = h.eval(i, ctx)
		}
	}
}

// Fingerprint returns the semantic fingerprint this handle was compiled
// for.
func (h *Handle) Fingerprint() string { return h.fp }

// Acquire increments the handle's reference count, for a second consumer
// of the same compiled artefact (e.g. two branches sharing a static
// processor's expression).
func (h *Handle) Acquire() {
	if h.entry == nil {
		return
	}
	h.entry.mu.Lock()
	h.entry.refs++
	h.entry.mu.Unlock()
}

// Release drops one reference. When the last reference goes away, the
// cache demotes the entry to its warm layer rather than recompiling it
// away entirely — the cache never invalidates a live handle; once
// unreferenced, it's merely eligible for eviction.
func (h *Handle) Release() {
	if h.entry == nil {
		return
	}
	h.entry.mu.Lock()
	h.entry.refs--
	dead := h.entry.refs == 0
	h.entry.mu.Unlock()
	if dead && h.cache != nil {
		h.cache.release(h.entry)
	}
}
