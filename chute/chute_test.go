package chute

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisposerDropsEveryItem(t *testing.T) {
	c := New(0, nil) // below MinCapacity, should be raised
	assert.Equal(t, MinCapacity, c.Cap())

	var dropped int64
	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, c.TrySend(Func(func() { atomic.AddInt64(&dropped, 1) })))
	}
	c.StartDisposer(4)
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&dropped) == n
	}, time.Second, time.Millisecond)
	c.Close()
}

func TestTrySendNonBlockingWhenFull(t *testing.T) {
	c := &Chute{ch: make(chan Garbage, 2)}
	require.NoError(t, c.TrySend(Func(func() {})))
	require.NoError(t, c.TrySend(Func(func() {})))
	assert.ErrorIs(t, c.TrySend(Func(func() {})), ErrFull)
}

func TestPanicInDropDoesNotStopDisposer(t *testing.T) {
	c := New(0, nil)
	var after int64
	require.NoError(t, c.TrySend(Func(func() { panic("boom") })))
	require.NoError(t, c.TrySend(Func(func() { atomic.AddInt64(&after, 1) })))
	c.StartDisposer(1)
	require.Eventually(t, func() bool { return atomic.LoadInt64(&after) == 1 }, time.Second, time.Millisecond)
	c.Close()
}
