// Package sgengine is the engine driver: it owns the last-submitted
// sound graph's compiled state, the JIT cache, the compiler, the
// audio-thread-resident execution graph, the edit batch queue crossing
// from the control thread to the audio thread, and the garbage chute
// disposing of everything an edit displaces.
package sgengine

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tidewave-audio/sgengine/arena"
	"github.com/tidewave-audio/sgengine/chute"
	"github.com/tidewave-audio/sgengine/compiler"
	"github.com/tidewave-audio/sgengine/config"
	"github.com/tidewave-audio/sgengine/diff"
	"github.com/tidewave-audio/sgengine/execgraph"
	"github.com/tidewave-audio/sgengine/ident"
	"github.com/tidewave-audio/sgengine/jit"
	"github.com/tidewave-audio/sgengine/rt"
	"github.com/tidewave-audio/sgengine/sound"
)

// Engine is the control+audio thread driver. SubmitGraph runs on the
// control thread; RunBlock runs on the audio thread. Everything else
// (diff computation, compilation, metrics) happens on the control
// thread's dispatcher goroutine, off the audio thread's allocation-free
// path.
type Engine struct {
	cfg    config.EngineConfig
	logger *log.Logger
	errs   ErrorHandler

	dispatch *dispatcher

	mu               sync.Mutex
	lastFingerprints map[ident.ProcessorID]string
	strategy         diff.Strategy
	generation       uuid.UUID

	jitCache *jit.Cache
	comp     *compiler.Compiler
	exec     *execgraph.Graph
	garbage  *chute.Chute
	edits    chan []diff.Edit

	scratch *arena.Arena

	metrics engineMetrics
}

// NewEngine constructs an Engine from cfg (resolved via config.Resolve),
// starting its chute disposer goroutines and its submission dispatcher.
// errs may be nil, defaulting to DefaultErrorHandler.
func NewEngine(cfg config.EngineConfig, errs ErrorHandler) *Engine {
	cfg = config.Resolve(cfg)
	logger := log.Default().With("component", "engine")
	switch cfg.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	if errs == nil {
		errs = DefaultErrorHandler{}
	}

	jitCache := jit.NewCache()
	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		errs:     errs,
		strategy: diff.Incremental,
		jitCache: jitCache,
		comp:     compiler.New(cfg.SampleRate, jitCache),
		exec:     execgraph.NewGraph(),
		garbage:  chute.New(cfg.ChuteCapacity, logger.With("subcomponent", "chute")),
		edits:    make(chan []diff.Edit, cfg.EditQueueCapacity),
		scratch:  arena.New(),
		metrics:  newEngineMetrics(cfg.MetricsNamespace),
	}
	e.garbage.StartDisposer(cfg.DisposerGoroutines)
	e.dispatch = newDispatcher(e.computeAndQueue)
	return e
}

// Strategy reports the diff strategy SubmitGraph currently uses
// (diff.Incremental by default).
func (e *Engine) Strategy() diff.Strategy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strategy
}

// SetStrategy changes the diff strategy applied by future SubmitGraph
// calls (e.g. diff.FullReplace to force a clean recompile of everything,
// discarding incremental reuse).
func (e *Engine) SetStrategy(s diff.Strategy) {
	e.mu.Lock()
	e.strategy = s
	e.mu.Unlock()
}

// Generation returns the UUID tagging the most recently applied graph
// submission.
func (e *Engine) Generation() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// SubmitGraph validates g, diffs it against the engine's last applied
// graph, compiles whichever static processors changed, and enqueues the
// resulting edit batch for RunBlock to apply at the next block boundary.
// Concurrent callers serialize through one dispatcher goroutine.
func (e *Engine) SubmitGraph(g *sound.Graph) error {
	return e.dispatch.submit(g)
}

func (e *Engine) computeAndQueue(g *sound.Graph) error {
	e.mu.Lock()
	prev := e.lastFingerprints
	strategy := e.strategy
	e.mu.Unlock()

	edits, fps, err := diff.Compute(prev, g, e.comp, strategy)
	if err != nil {
		e.errs.HandleError("diff", err)
		return err
	}

	e.metrics.editBatchSize.Observe(float64(len(edits)))

	select {
	case e.edits <- edits:
		e.metrics.generations.Inc()
	default:
		fullErr := fmt.Errorf("sgengine: edit queue full (capacity %d)", cap(e.edits))
		e.errs.HandleError("dispatch", fullErr)
		return fullErr
	}

	gen := uuid.New()
	e.mu.Lock()
	e.lastFingerprints = fps
	e.generation = gen
	e.mu.Unlock()
	e.logger.Debug("submitted graph", "edits", len(edits), "generation", gen)
	return nil
}

// RunBlock drains every queued edit batch, applies it to the compiled
// execution graph, and steps one block, mixing every live root's output
// into dst. Called once per audio-thread callback; allocates nothing
// steady-state.
func (e *Engine) RunBlock(dst *rt.Chunk, absoluteSample int64) {
	e.applyQueuedEdits()

	dst.Silence()
	ctx := rt.NewContext(absoluteSample, e.cfg.SampleRate, e.scratch, e.cfg.ArgumentStackDepth, nil, nil)
	e.exec.Step(ctx, func(_ ident.ProcessorID, chunk *rt.Chunk, status rt.StreamStatus) {
		if status == rt.Done {
			return
		}
		for i := range dst.L {
			dst.L[i] += chunk.L[i]
			dst.R[i] += chunk.R[i]
		}
	})
}

func (e *Engine) applyQueuedEdits() {
	for {
		select {
		case batch := <-e.edits:
			e.applyEdits(batch)
		default:
			return
		}
	}
}

func (e *Engine) applyEdits(batch []diff.Edit) {
	for _, ed := range batch {
		switch ed.Kind {
		case diff.AddStaticProcessor:
			e.exec.AddRoot(ed.ProcessorID, ed.Shared)
		case diff.RemoveStaticProcessor:
			shared, ok := e.exec.RemoveRoot(ed.ProcessorID)
			if !ok {
				continue
			}
			if shared.Release() == 0 {
				if err := e.garbage.TrySend(shared); err != nil {
					e.metrics.chuteFull.Inc()
					e.errs.HandleError("chute", err)
				}
			}
		case diff.DebugInspect:
			if ed.Inspect != nil {
				ed.Inspect(e.exec)
			}
		}
	}
}

// Close stops the dispatcher goroutine and the chute's disposer
// goroutines, draining whatever garbage is already queued. Not safe to
// call concurrently with RunBlock.
func (e *Engine) Close() {
	e.dispatch.close()
	e.garbage.Close()
}

// RootCount reports how many static processors are currently live in the
// compiled execution graph, for tests and diagnostics.
func (e *Engine) RootCount() int {
	return e.exec.RootCount()
}

type engineMetrics struct {
	generations   prometheus.Counter
	editBatchSize prometheus.Histogram
	chuteFull     prometheus.Counter
}

func newEngineMetrics(namespace string) engineMetrics {
	return engineMetrics{
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_generations_total",
			Help:      "Number of sound graphs successfully submitted to the engine.",
		}),
		editBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "edit_batch_size",
			Help:      "Size of each edit batch computed by SubmitGraph.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		}),
		chuteFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chute_full_total",
			Help:      "Number of times a garbage send found the chute full.",
		}),
	}
}

// RegisterMetrics exposes the engine's Prometheus collectors on reg, for
// a caller (typically cmd/sgenginectl) to serve over /metrics.
func (e *Engine) RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{e.metrics.generations, e.metrics.editBatchSize, e.metrics.chuteFull} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
