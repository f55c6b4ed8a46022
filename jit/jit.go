// Package jit implements the expression JIT and its cache: compiling an
// expr.Graph into a reference-counted callable handle
// (rt.CompiledExpression), memoized by (expression location, semantic
// fingerprint) so that recompiling an unchanged expression reuses the
// already-compiled artefact. "JIT" here means bottom-up closure
// composition (package rt's SampleFunc), not native machine-code
// generation.
package jit

import (
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/tidewave-audio/sgengine/expr"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/rt"
)

// warmTTL is how long a zero-reference compiled artefact is kept around
// in case the same (location, fingerprint) is requested again shortly
// after (e.g. an edit that's immediately undone).
const warmTTL = 5 * time.Minute

// ParamKind is what an expression graph parameter resolves to at compile
// time, expressed independently of the sound package's own Binding type
// so jit has no dependency on sound.
type ParamKind int

const (
	ParamTime ParamKind = iota
	ParamSampleRate
	ParamArgument
)

// ParamSource is the compiler's resolved binding for one graph
// parameter.
type ParamSource struct {
	Kind     ParamKind
	Argument ident.ArgumentID
}

// CompileRequest is everything the compiler supplies to (re)compile one
// processor expression.
type CompileRequest struct {
	Location ident.ExpressionID
	Graph    *expr.Graph
	Params   map[ident.ParameterID]ParamSource
	Result   ident.ResultID
	// ArgKinds maps each argument this expression may read to a small
	// stable tag for its translation rule, folded into the fingerprint
	// so a change in how an argument is translated invalidates the
	// cache entry even if the expression graph itself is unchanged.
	ArgKinds map[ident.ArgumentID]int
}

// FingerprintableNode lets an expression node kind contribute a stable,
// content-sensitive tag to the semantic fingerprint (e.g. "const:440",
// "sin", "add"). Kinds that don't implement it fall back to their Go
// type name, which is coarser (two differently-parameterized instances
// of the same Go type would fingerprint identically).
type FingerprintableNode interface {
	rt.ExpressionNodeKind
	KindTag() string
}

// entry is one cached compiled artefact.
type entry struct {
	mu       sync.Mutex
	refs     int
	handle   *Handle
	location ident.ExpressionID
	fp       string
}

// Cache is the JIT's compiled-artefact cache. Live entries (refs > 0)
// are held in a hot map; the cache never evicts a
// live handle. Entries that have dropped to zero references are demoted
// into a time-expiring warm layer (patrickmn/go-cache) so a brief
// edit-storm that repeatedly drops and re-requests the same fingerprint
// doesn't recompile every time, without holding dead artefacts forever.
type Cache struct {
	mu  sync.Mutex
	hot map[string]*entry
	cc  *cache.Cache
}

func NewCache() *Cache {
	return &Cache{
		hot: make(map[string]*entry),
		cc:  cache.New(warmTTL, 2*warmTTL),
	}
}

func cacheKey(loc ident.ExpressionID, fp string) string {
	return fmt.Sprintf("%d:%s", loc.Value(), fp)
}

// Request returns a live callable handle for req, compiling it if no
// cached artefact exists for (req.Location, fingerprint(req)).
func (c *Cache) Request(req CompileRequest) (*Handle, error) {
	fp := Fingerprint(req)
	key := cacheKey(req.Location, fp)

	c.mu.Lock()
	if e, ok := c.hot[key]; ok {
		e.mu.Lock()
		e.refs++
		e.mu.Unlock()
		c.mu.Unlock()
		return e.handle, nil
	}
	if cached, ok := c.cc.Get(key); ok {
		e := cached.(*entry)
		e.mu.Lock()
		e.refs++
		e.mu.Unlock()
		c.hot[key] = e
		c.cc.Delete(key)
		c.mu.Unlock()
		return e.handle, nil
	}
	c.mu.Unlock()

	h, err := compile(req, fp)
	if err != nil {
		return nil, err
	}
	e := &entry{refs: 1, handle: h, location: req.Location, fp: fp}
	h.entry = e
	h.cache = c

	c.mu.Lock()
	c.hot[key] = e
	c.mu.Unlock()
	return h, nil
}

// release is called by Handle.Release when a handle's last reference
// goes away: it demotes the entry from the hot map into the
// time-expiring warm layer instead of deleting it outright, since
// expired entries are only eligible for eviction, not immediately
// dropped.
func (c *Cache) release(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hot, cacheKey(e.location, e.fp))
	c.cc.Set(cacheKey(e.location, e.fp), e, cache.DefaultExpiration)
}

// Len reports the number of live (hot) cache entries, for telemetry.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hot)
}
