// Package arena provides a per-thread pool of reusable float32 buffers
// used as per-block scratch space by processor and expression
// evaluation. A single Arena is owned by exactly one goroutine — the
// audio thread — and must not be shared.
package arena

import "math/bits"

// Buffer is a scratch allocation borrowed from an Arena. Its content is
// not zeroed on borrow; callers must treat it as uninitialized.
type Buffer struct {
	data []float32
	slot int // power-of-two bucket index this came from
	a    *Arena
}

// Slice returns the usable portion of the buffer, exactly the requested
// length (the backing slot may be larger).
func (b *Buffer) Slice() []float32 { return b.data }

// Release returns the buffer to its arena's pool. Calling it again on
// the same Buffer is a no-op.
func (b *Buffer) Release() {
	if b == nil || b.a == nil {
		return
	}
	b.a.release(b)
	b.a = nil
}

// Arena is a size-bucketed pool of []float32 slabs. Buckets are sized in
// powers of two; borrowing `size` samples returns a buffer backed by the
// smallest bucket >= size. The arena never shrinks within a block: slabs
// returned via Release go back onto their bucket's free list rather than
// being discarded, so steady-state operation after a warm-up period never
// allocates.
type Arena struct {
	buckets [][]([]float32) // buckets[slot] is a free list of backing slabs for 1<<slot samples
}

// New creates an empty arena. Buckets are created lazily on first borrow
// of a given size class.
func New() *Arena {
	return &Arena{buckets: make([][]([]float32), 32)}
}

func slotFor(size int) int {
	if size <= 1 {
		return 0
	}
	return bits.Len(uint(size - 1))
}

// Borrow returns a Buffer of length size, backed by the arena's pool.
// The caller must call Release when done with it, ordinarily via defer,
// before the end of the current block.
func (a *Arena) Borrow(size int) *Buffer {
	if size < 0 {
		size = 0
	}
	slot := slotFor(size)
	free := a.buckets[slot]
	var backing []float32
	if n := len(free); n > 0 {
		backing = free[n-1]
		a.buckets[slot] = free[:n-1]
	} else {
		backing = make([]float32, 1<<slot)
	}
	return &Buffer{data: backing[:size], slot: slot, a: a}
}

func (a *Arena) release(b *Buffer) {
	full := b.data[:cap(b.data)]
	a.buckets[b.slot] = append(a.buckets[b.slot], full)
}

// Reset empties every bucket's free list, for use between test cases:
// the slabs on those lists are dropped, and later borrows allocate fresh
// ones. It does not reclaim buffers that are still borrowed; doing so is
// a caller bug.
func (a *Arena) Reset() {
	for i := range a.buckets {
		a.buckets[i] = a.buckets[i][:0]
	}
}
