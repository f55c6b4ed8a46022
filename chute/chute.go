// Package chute implements the garbage chute: a bounded channel carrying
// heap-owning values off the audio thread for deferred destruction on a
// dedicated disposer goroutine.
package chute

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Garbage is anything the audio thread needs to stop owning without
// running its destructor itself. Drop is called on the disposer
// goroutine, never on the audio thread.
type Garbage interface {
	Drop()
}

// Func adapts a plain function into Garbage.
type Func func()

func (f Func) Drop() { f() }

// MinCapacity is the minimum channel capacity accepted by New.
const MinCapacity = 1024

// Chute is a bounded, multi-producer multi-consumer channel of Garbage.
// Sends from the audio thread are non-blocking (TrySend); a full chute
// is a protocol error the control thread must react to by throttling
// edits.
type Chute struct {
	ch     chan Garbage
	logger *log.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a chute with the given capacity, which is raised to
// MinCapacity if lower.
func New(capacity int, logger *log.Logger) *Chute {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Chute{
		ch:     make(chan Garbage, capacity),
		logger: logger.With("component", "chute"),
	}
}

// TrySend enqueues g without blocking. It returns ErrFull if the chute's
// buffer is exhausted — in practice a sizing bug (the chute must be
// sized for peak edit rate), not a condition the audio thread can
// usefully recover from beyond logging and dropping a telemetry counter
// — but it never panics or blocks.
func (c *Chute) TrySend(g Garbage) error {
	select {
	case c.ch <- g:
		return nil
	default:
		return ErrFull
	}
}

// ErrFull is returned by TrySend when the chute's bounded buffer is
// exhausted.
var ErrFull = fmt.Errorf("chute: buffer full")

// Len reports the number of items currently queued, for telemetry.
func (c *Chute) Len() int { return len(c.ch) }

// Cap reports the chute's fixed capacity.
func (c *Chute) Cap() int { return cap(c.ch) }

// StartDisposer launches n disposer goroutines draining the chute and
// calling Drop on each item. Safe to call once; subsequent calls are a
// no-op.
func (c *Chute) StartDisposer(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	if n < 1 {
		n = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	for i := 0; i < n; i++ {
		c.wg.Add(1)
		go c.disposeLoop(ctx)
	}
}

func (c *Chute) disposeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Drain whatever is already queued, best effort, then exit.
			for {
				select {
				case g := <-c.ch:
					c.drop(g)
				default:
					return
				}
			}
		case g := <-c.ch:
			c.drop(g)
		}
	}
}

func (c *Chute) drop(g Garbage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("garbage destructor panicked", "recovered", r)
		}
	}()
	g.Drop()
}

// Close stops all disposer goroutines after draining outstanding items.
func (c *Chute) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}
