// Package triplebuffer implements a rotating triple buffer: one logical
// "current value" that producers update and consumers read at independent
// rates, without either side blocking on the other's payload work and
// without a reader ever seeing a partially written value.
//
// Three slots are owned by the buffer and addressed through three role
// indices (write, middle, read). A completed write hands its slot over to the
// middle role; the next read to start claims the middle slot. Writes that
// complete between two reads coalesce: the reader only ever sees the latest
// one (latest value wins, intermediate values are dropped).
//
// The same rotation state machine is shared by three policies:
//
//   - LockFree: many readers and many writers, atomic counters, no locks.
//   - Exclusive: many readers and many writers, short mutex-guarded bookkeeping.
//   - SingleReaderWriter: exactly one reader and one writer, no counters.
//
// Buffer owns the storage; Index exposes only the slot indices for callers
// that keep their own three-way storage (for example parallel arrays).
//
// Writers rotate on the last concurrent release, readers on the first
// concurrent acquire; overlapping accesses of one role share one slot.
//
// Known limitation: an access that is never released blocks every future
// rotation of its role. Readers (or writers) that overlap continuously never
// leave their slot and therefore never rotate either.
package triplebuffer

// Layout of the packed rotation state (bit 0 is the least significant):
//
//	bits 0-1  write slot
//	bits 2-3  middle slot
//	bits 4-5  read slot
//	bit  6    stale
const (
	slotMask         = 0b11
	rotWriteShift    = 0
	rotMiddleShift   = 2
	rotReadShift     = 4
	staleBit         = rotation(1 << 6)
	rotationMask     = rotation(1<<7 - 1)
	initialRotation  = rotation(0<<rotWriteShift|1<<rotMiddleShift|2<<rotReadShift) | staleBit
	numSlots         = 3
	cacheLinePadding = 64
)

// rotation is the whole role permutation plus the stale flag in one word, so
// every policy can move it with a single store, exchange or CAS.
type rotation uint32

func makeRotation(write, middle, read int, stale bool) rotation {
	r := rotation(write)<<rotWriteShift |
		rotation(middle)<<rotMiddleShift |
		rotation(read)<<rotReadShift
	if stale {
		r |= staleBit
	}
	return r
}

func (r rotation) write() int  { return int(r>>rotWriteShift) & slotMask }
func (r rotation) middle() int { return int(r>>rotMiddleShift) & slotMask }
func (r rotation) read() int   { return int(r>>rotReadShift) & slotMask }
func (r rotation) stale() bool { return r&staleBit != 0 }

// publish is the last-writer rotation: the just written slot becomes the
// middle one and stale is cleared. wasStale is the flag before the exchange.
func (r rotation) publish() (next rotation, wasStale bool) {
	return makeRotation(r.middle(), r.write(), r.read(), false), r.stale()
}

// consume is the first-reader rotation. With nothing new pending the indices
// stay put and wasStale is true; otherwise read and middle swap.
func (r rotation) consume() (next rotation, wasStale bool) {
	if r.stale() {
		return r, true
	}
	return makeRotation(r.write(), r.read(), r.middle(), true), false
}

// valid reports whether write, middle and read are a permutation of {0,1,2}.
func (r rotation) valid() bool {
	w, m, rd := r.write(), r.middle(), r.read()
	if w >= numSlots || m >= numSlots || rd >= numSlots {
		return false
	}
	return w != m && w != rd && m != rd
}

func (r rotation) slots() Slots {
	return Slots{
		Write:  r.write(),
		Middle: r.middle(),
		Read:   r.read(),
		Stale:  r.stale(),
	}
}

// Slots is a snapshot of the role assignment.
type Slots struct {
	Write  int
	Middle int
	Read   int
	Stale  bool
}
