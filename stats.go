package triplebuffer

import (
	"sync/atomic"
)

type counters struct {
	writes     uint64
	reads      uint64
	published  uint64
	coalesced  uint64
	freshReads uint64
	staleReads uint64
}

// Stats is a snapshot of the operational counters of an Index or Buffer
// created with WithStats.
type Stats struct {
	// Writes and Reads count completed (released) accesses.
	Writes uint64
	Reads  uint64

	// Published counts write rotations; Coalesced is the subset that
	// replaced a value no reader had claimed yet.
	Published uint64
	Coalesced uint64

	// FreshReads counts read rotations that claimed a new value, StaleReads
	// the ones that found nothing new.
	FreshReads uint64
	StaleReads uint64
}

func (c *counters) wrote(last, wasStale bool) {
	atomic.AddUint64(&c.writes, 1)
	if !last {
		return
	}
	atomic.AddUint64(&c.published, 1)
	if !wasStale {
		atomic.AddUint64(&c.coalesced, 1)
	}
}

func (c *counters) read() {
	atomic.AddUint64(&c.reads, 1)
}

func (c *counters) claimed(wasStale bool) {
	if wasStale {
		atomic.AddUint64(&c.staleReads, 1)
	} else {
		atomic.AddUint64(&c.freshReads, 1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Writes:     atomic.LoadUint64(&c.writes),
		Reads:      atomic.LoadUint64(&c.reads),
		Published:  atomic.LoadUint64(&c.published),
		Coalesced:  atomic.LoadUint64(&c.coalesced),
		FreshReads: atomic.LoadUint64(&c.freshReads),
		StaleReads: atomic.LoadUint64(&c.staleReads),
	}
}
