package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAllocatorMonotonicAndUnique(t *testing.T) {
	alloc := NewAllocator[ProcessorKind]()

	seen := map[uint64]bool{}
	var prev ID[ProcessorKind]
	for i := 0; i < 100; i++ {
		id := alloc.Next()
		require.True(t, id.Valid())
		assert.False(t, seen[id.Value()], "ID %v allocated twice", id)
		seen[id.Value()] = true
		if i > 0 {
			assert.Greater(t, id.Value(), prev.Value())
		}
		prev = id
	}
}

func TestZeroValueIsInvalid(t *testing.T) {
	var id ProcessorID
	assert.False(t, id.Valid())
}

func TestAllocatorNeverReusesAcrossManyDraws(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 500).Draw(t, "n")
		alloc := NewAllocator[InputKind]()
		seen := make(map[uint64]struct{}, n)
		for i := 0; i < n; i++ {
			id := alloc.Next()
			if _, dup := seen[id.Value()]; dup {
				t.Fatalf("duplicate id %v at draw %d", id, i)
			}
			seen[id.Value()] = struct{}{}
		}
	})
}

func TestJSONRoundTrip(t *testing.T) {
	alloc := NewAllocator[ExpressionKind]()
	id := alloc.Next()
	id = alloc.Next()

	data, err := id.MarshalJSON()
	require.NoError(t, err)

	var decoded ExpressionID
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, id, decoded)
}
