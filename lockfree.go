package triplebuffer

import (
	"runtime"
	"sync/atomic"
)

// The lock-free state word packs the rotation and both open counters:
//
//	bits  0-6   rotation
//	bit   7     stale flag seen by the current read rotation
//	bits  8-35  open reads
//	bits 36-63  open writes
const (
	counterBits   = 28
	counterMask   = 1<<counterBits - 1
	readsShift    = 8
	writesShift   = readsShift + counterBits
	oneRead       = uint64(1) << readsShift
	oneWrite      = uint64(1) << writesShift
	goschedEvery  = 64 // reduce runtime.Gosched() frequency in hot loops
	maxOpenAccess = counterMask
	claimStaleBit = uint64(1) << 7
)

type lockFree struct {
	// Optional padding to avoid false sharing with neighbouring allocations.
	_     [cacheLinePadding]byte
	state atomic.Uint64
	_     [cacheLinePadding]byte
}

func newLockFree() *lockFree {
	c := &lockFree{}
	c.state.Store(uint64(initialRotation))
	return c
}

func stateRotation(s uint64) rotation { return rotation(s) & rotationMask }
func stateReads(s uint64) uint64      { return (s >> readsShift) & counterMask }
func stateWrites(s uint64) uint64     { return (s >> writesShift) & counterMask }

func withRotation(s uint64, r rotation) uint64 {
	return s&^uint64(rotationMask) | uint64(r)
}

// The counter increment, the read rotation and the slot lookup happen in one
// CAS, so a reader never joins a slot that is being rotated away.
func (c *lockFree) beginRead() (int, bool, bool, error) {
	var spins uint32
	for {
		old := c.state.Load()
		n := stateReads(old)
		if n == maxOpenAccess {
			return 0, false, false, overflow(roleRead, n)
		}
		next := old + oneRead
		var wasStale bool
		if n == 0 {
			var r rotation
			r, wasStale = stateRotation(next).consume()
			next = withRotation(next, r)
			if wasStale {
				next |= claimStaleBit
			} else {
				next &^= claimStaleBit
			}
		}
		if c.state.CompareAndSwap(old, next) {
			return stateRotation(next).read(), n == 0, wasStale, nil
		}
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

func (c *lockFree) endRead() (bool, error) {
	var spins uint32
	for {
		old := c.state.Load()
		if stateReads(old) == 0 {
			return false, unbalanced(roleRead)
		}
		if c.state.CompareAndSwap(old, old-oneRead) {
			return old&claimStaleBit != 0, nil
		}
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

func (c *lockFree) beginWrite() (int, error) {
	var spins uint32
	for {
		old := c.state.Load()
		if n := stateWrites(old); n == maxOpenAccess {
			return 0, overflow(roleWrite, n)
		}
		if c.state.CompareAndSwap(old, old+oneWrite) {
			return stateRotation(old).write(), nil
		}
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// The CAS that publishes the new middle slot is sequentially consistent, so
// a reader that later observes stale == false also observes every store the
// writers made to that slot before their release.
func (c *lockFree) endWrite() (bool, bool, error) {
	var spins uint32
	for {
		old := c.state.Load()
		n := stateWrites(old)
		if n == 0 {
			return false, false, unbalanced(roleWrite)
		}
		next := old - oneWrite
		var wasStale bool
		if n == 1 {
			var r rotation
			r, wasStale = stateRotation(next).publish()
			next = withRotation(next, r)
		}
		if c.state.CompareAndSwap(old, next) {
			return wasStale, n == 1, nil
		}
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

func (c *lockFree) snapshot() (rotation, bool) {
	s := c.state.Load()
	return stateRotation(s), stateReads(s) > 0 && s&claimStaleBit == 0
}
