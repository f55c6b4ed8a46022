// Package ident provides opaque, phantom-typed identifiers and the
// monotonic per-kind allocators that mint them.
//
// Every entity in the sound graph and expression graph (processors,
// inputs, expressions, arguments, expression nodes, graph parameters,
// graph results) is identified by one of these. IDs are never negative,
// never reused within a graph's lifetime, and compare by their
// underlying integer.
package ident

import "fmt"

// Kind tags an ID with the entity kind it identifies, so that e.g. a
// ProcessorID and an ExpressionID can never be confused even though both
// wrap the same underlying integer type.
type Kind interface {
	kindName() string
}

// ID is a monotonically-allocated, never-reused, phantom-tagged integer.
// The zero value is not a valid ID; allocators start at 1.
type ID[K Kind] struct {
	value uint64
}

// Value returns the underlying integer. Use only for debugging, logging,
// and serialization; never for arithmetic.
func (id ID[K]) Value() uint64 { return id.value }

// Valid reports whether id was produced by an Allocator (as opposed to
// being the zero value of ID[K]).
func (id ID[K]) Valid() bool { return id.value != 0 }

func (id ID[K]) String() string {
	var k K
	return fmt.Sprintf("%s#%d", k.kindName(), id.value)
}

// MarshalJSON encodes the ID as a bare integer, so that a round-tripped
// graph preserves IDs exactly.
func (id ID[K]) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", id.value)), nil
}

// UnmarshalJSON decodes the ID from a bare integer.
func (id *ID[K]) UnmarshalJSON(data []byte) error {
	var v uint64
	if _, err := fmt.Sscanf(string(data), "%d", &v); err != nil {
		return fmt.Errorf("ident: decode %s: %w", string(data), err)
	}
	id.value = v
	return nil
}

// FromValue reconstructs an ID from a previously observed integer. Used
// by tests and by package jit when it renumbers expression nodes for a
// fingerprint; application code should treat IDs as opaque.
func FromValue[K Kind](v uint64) ID[K] {
	return ID[K]{value: v}
}

// Allocator mints monotonically increasing IDs of kind K, starting at 1.
// Not safe for concurrent use without external synchronization; both the
// sound graph and the expression graph are single-threaded (§4.D, §4.E),
// so each graph owns one allocator per ID kind.
type Allocator[K Kind] struct {
	next uint64
}

// NewAllocator returns an allocator ready to mint its first ID.
func NewAllocator[K Kind]() *Allocator[K] {
	return &Allocator[K]{next: 1}
}

// Next mints and returns the next ID. A zero-value Allocator behaves like
// one from NewAllocator.
func (a *Allocator[K]) Next() ID[K] {
	if a.next == 0 {
		a.next = 1
	}
	id := ID[K]{value: a.next}
	a.next++
	return id
}

// Peek returns the value that Next would allocate, without allocating it.
// Used by tests asserting allocation counts.
func (a *Allocator[K]) Peek() uint64 {
	if a.next == 0 {
		return 1
	}
	return a.next
}
