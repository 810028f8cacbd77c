package triplebuffer

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockFreeStateLayout(t *testing.T) {
	c := newLockFree()
	s := c.state.Load()
	require.Equal(t, initialRotation, stateRotation(s))
	require.Zero(t, stateReads(s))
	require.Zero(t, stateWrites(s))

	_, err := c.beginWrite()
	require.NoError(t, err)
	_, err = c.beginWrite()
	require.NoError(t, err)
	_, _, _, err = c.beginRead()
	require.NoError(t, err)

	s = c.state.Load()
	require.Equal(t, uint64(2), stateWrites(s))
	require.Equal(t, uint64(1), stateReads(s))
	require.True(t, stateRotation(s).valid())
}

func TestLockFreeCounterOverflow(t *testing.T) {
	c := newLockFree()
	c.state.Store(uint64(initialRotation) | maxOpenAccess<<readsShift)
	_, _, _, err := c.beginRead()
	require.ErrorIs(t, err, ErrTooManyAccesses)

	c.state.Store(uint64(initialRotation) | maxOpenAccess<<writesShift)
	_, err = c.beginWrite()
	require.ErrorIs(t, err, ErrTooManyAccesses)

	// the other role is unaffected
	_, _, _, err = c.beginRead()
	require.NoError(t, err)
}

func TestLockFreeOverflowPanicsThroughIndex(t *testing.T) {
	x := NewIndex()
	x.c.(*lockFree).state.Store(uint64(initialRotation) | maxOpenAccess<<writesShift)
	err := recoverError(t, func() { x.BeginWrite() })
	require.ErrorIs(t, err, ErrTooManyAccesses)
}

// Concurrent test: many writers, many readers. Every value a reader sees was
// fully written and reader sequences never go backwards.
func TestLockFreeConcurrent(t *testing.T) {
	const (
		N       = 200_000
		readers = 4
	)

	var slots [numSlots]int
	x := NewIndex(WithPolicy(LockFree))
	var done atomic.Bool

	var wg sync.WaitGroup
	wg.Add(readers)
	for r := 0; r < readers; r++ {
		go func() {
			defer wg.Done()
			last := 0
			for !done.Load() {
				s := x.BeginRead()
				v := slots[s]
				x.EndRead()
				if v < last {
					t.Errorf("reader: %d after %d", v, last)
					return
				}
				last = v
				runtime.Gosched()
			}
		}()
	}

	for i := 1; i <= N; i++ {
		s := x.BeginWrite()
		slots[s] = i
		x.EndWrite()
	}
	done.Store(true)
	wg.Wait()

	s := x.BeginRead()
	require.Equal(t, N, slots[s])
	x.EndRead()
}

// Benchmark: single producer, single consumer.
func BenchmarkLockFree_1W1R(b *testing.B) {
	x := NewIndex(WithPolicy(LockFree))
	done := make(chan struct{})

	go func() {
		for i := 0; i < b.N; i++ {
			x.BeginRead()
			x.EndRead()
		}
		close(done)
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x.BeginWrite()
		x.EndWrite()
	}
	<-done
	b.StopTimer()
}

// Benchmark: many writers, many readers.
func BenchmarkLockFree_MWMR(b *testing.B) {
	x := NewIndex(WithPolicy(LockFree))
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%2 == 0 {
				x.BeginWrite()
				x.EndWrite()
			} else {
				x.BeginRead()
				x.EndRead()
			}
			i++
		}
	})
}
