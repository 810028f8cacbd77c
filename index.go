package triplebuffer

import (
	"log/slog"
)

// Index is the rotation state machine without storage. Callers keep three
// values of their own, indexed 0..2, and bracket every read and write with
// Begin/End:
//
//	slot := idx.BeginWrite()
//	frames[slot] = next
//	idx.EndWrite()
//
//	slot = idx.BeginRead()
//	render(frames[slot])
//	idx.EndRead()
//
// Every method is safe for concurrent use within the limits of the policy.
type Index struct {
	c      coordinator
	policy Policy
	stats  *counters
	logger *slog.Logger
}

// NewIndex creates an Index. It panics if the policy is unknown.
func NewIndex(opts ...Option) *Index {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	x := &Index{policy: o.policy, logger: o.logger}
	c, err := newCoordinator(o.policy)
	if err != nil {
		x.fail(err)
	}
	x.c = c
	if o.stats {
		x.stats = &counters{}
	}
	x.log().Debug("triplebuffer: index created", "policy", o.policy, "stats", o.stats)
	return x
}

func (x *Index) log() *slog.Logger {
	if x.logger != nil {
		return x.logger
	}
	return Logger()
}

// fail reports a usage violation. Callers must not continue: the shared
// rotation state would no longer be trustworthy for anyone.
func (x *Index) fail(err error) {
	x.log().Error("triplebuffer: usage violation", "policy", x.policy, "error", err)
	panic(err)
}

// BeginRead opens a read and returns the slot to read from. The first of a
// group of overlapping reads claims the most recently published value, if
// any; later ones join the same slot. The slot stays fixed until the
// matching EndRead, whatever writers do meanwhile.
func (x *Index) BeginRead() int {
	slot, first, wasStale, err := x.c.beginRead()
	if err != nil {
		x.fail(err)
	}
	if x.stats != nil && first {
		x.stats.claimed(wasStale)
	}
	return slot
}

// EndRead closes a read. It returns true when the value read had already
// been observed, that is nothing was published since the previous read
// rotation. It panics with ErrUnbalancedRelease if no read is open.
func (x *Index) EndRead() bool {
	wasStale, err := x.c.endRead()
	if err != nil {
		x.fail(err)
	}
	if x.stats != nil {
		x.stats.read()
	}
	return wasStale
}

// BeginWrite opens a write and returns the slot to write into. Concurrent
// writers share the same slot.
func (x *Index) BeginWrite() int {
	slot, err := x.c.beginWrite()
	if err != nil {
		x.fail(err)
	}
	return slot
}

// EndWrite closes a write. The last open write publishes its slot as the
// middle one. It returns true if this publish is the first since the last
// read rotation (nothing was overwritten), false if it replaced an unread
// value or other writes are still open. It panics with ErrUnbalancedRelease
// if no write is open.
func (x *Index) EndWrite() bool {
	wasStale, last, err := x.c.endWrite()
	if err != nil {
		x.fail(err)
	}
	if x.stats != nil {
		x.stats.wrote(last, wasStale)
	}
	return last && wasStale
}

// IsStale reports whether no write has been published since the last read
// rotation (or ever). A read that claimed a new value keeps it false until
// that read, and every read overlapping it, has ended.
func (x *Index) IsStale() bool {
	r, claimed := x.c.snapshot()
	return r.stale() && !claimed
}

// Slots returns the current role assignment. Stale matches IsStale. With
// concurrent activity the result may be outdated as soon as it is returned.
func (x *Index) Slots() Slots {
	r, claimed := x.c.snapshot()
	s := r.slots()
	s.Stale = s.Stale && !claimed
	return s
}

// Policy returns the policy the Index was created with.
func (x *Index) Policy() Policy { return x.policy }

// Stats returns a snapshot of the counters, or the zero Stats if the Index
// was created without WithStats.
func (x *Index) Stats() Stats {
	if x.stats == nil {
		return Stats{}
	}
	return x.stats.snapshot()
}
