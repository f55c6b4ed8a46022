package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBorrowExactLength(t *testing.T) {
	a := New()
	buf := a.Borrow(37)
	assert.Len(t, buf.Slice(), 37)
	buf.Release()
}

func TestReleasedSlabIsReused(t *testing.T) {
	a := New()
	buf := a.Borrow(64)
	backing := buf.Slice()
	backing[0] = 0xBEEF // distinguishable marker value (48879.0)
	buf.Release()

	buf2 := a.Borrow(64)
	// Same bucket, LIFO free list => same backing slab came back.
	assert.Equal(t, float32(0xBEEF), buf2.Slice()[0])
	buf2.Release()
}

func TestSmallerBorrowAfterLargerReleaseHasRequestedLength(t *testing.T) {
	a := New()
	big := a.Borrow(100)
	big.Release()

	small := a.Borrow(10)
	assert.Len(t, small.Slice(), 10)
	small.Release()
}

func TestBorrowLengthMatchesRequestForAnySize(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(0, 1<<20).Draw(t, "size")
		a := New()
		buf := a.Borrow(size)
		if len(buf.Slice()) != size {
			t.Fatalf("requested %d, got %d", size, len(buf.Slice()))
		}
		buf.Release()
	})
}

func TestDoubleReleaseIsSafe(t *testing.T) {
	a := New()
	buf := a.Borrow(16)
	buf.Release()
	require.NotPanics(t, func() { buf.Release() })
}
