package triplebuffer

import (
	"sync/atomic"
)

// spsc serves exactly one reader and one writer. There are no counters: the
// writer is the only goroutine that changes the write index and the reader
// the only one that changes the read index, so a writer's begin is a plain
// load and each rotation races only against the other role's rotation. Both
// rotations go through the same atomic word, which orders slot contents
// before the hand-off.
type spsc struct {
	// Optional padding to avoid false sharing with neighbouring allocations.
	_     [cacheLinePadding]byte
	state atomic.Uint32
	_     [cacheLinePadding]byte

	// reader-owned: true while the open read holds a value it had not seen,
	// stored before the rotation CAS
	fresh atomic.Bool
}

func newSPSC() *spsc {
	c := &spsc{}
	c.state.Store(uint32(initialRotation))
	return c
}

func (c *spsc) beginRead() (int, bool, bool, error) {
	for {
		old := rotation(c.state.Load())
		if old.stale() {
			// a publish landing after this load is left for the next read
			c.fresh.Store(false)
			return old.read(), true, true, nil
		}
		c.fresh.Store(true)
		next, _ := old.consume()
		if c.state.CompareAndSwap(uint32(old), uint32(next)) {
			return next.read(), true, false, nil
		}
		// the writer published again; retry against its middle slot
	}
}

func (c *spsc) endRead() (bool, error) {
	return !c.fresh.Swap(false), nil
}

func (c *spsc) beginWrite() (int, error) {
	return rotation(c.state.Load()).write(), nil
}

func (c *spsc) endWrite() (bool, bool, error) {
	for {
		old := rotation(c.state.Load())
		next, wasStale := old.publish()
		if c.state.CompareAndSwap(uint32(old), uint32(next)) {
			return wasStale, true, nil
		}
	}
}

func (c *spsc) snapshot() (rotation, bool) {
	return rotation(c.state.Load()), c.fresh.Load()
}
