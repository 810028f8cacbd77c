package triplebuffer

import (
	"fmt"
)

// Policy selects how the rotation state is shared between goroutines.
type Policy uint8

const (
	// LockFree supports any number of concurrent readers and writers using
	// atomic read-modify-write only.
	LockFree Policy = iota
	// Exclusive supports any number of concurrent readers and writers and
	// serializes the O(1) bookkeeping with mutexes.
	Exclusive
	// SingleReaderWriter assumes at most one open read and one open write at
	// a time. Misuse is not detected.
	SingleReaderWriter
)

// String returns the name accepted by ParsePolicy.
func (p Policy) String() string {
	switch p {
	case LockFree:
		return "lockfree"
	case Exclusive:
		return "exclusive"
	case SingleReaderWriter:
		return "spsc"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "lockfree":
		return LockFree, nil
	case "exclusive":
		return Exclusive, nil
	case "spsc":
		return SingleReaderWriter, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// coordinator moves the shared rotation state for one policy.
//
// beginRead reports first=true for the acquire that ran the read rotation;
// endRead reports the stale flag that rotation saw, i.e. whether the slot all
// overlapping readers share held nothing new. endWrite reports last=true only
// for the release that rotated, and wasStale is meaningful only then.
// snapshot reports claimed=true while an open read holds the value its
// rotation took from the middle slot.
type coordinator interface {
	beginRead() (slot int, first, wasStale bool, err error)
	endRead() (wasStale bool, err error)
	beginWrite() (slot int, err error)
	endWrite() (wasStale, last bool, err error)
	snapshot() (r rotation, claimed bool)
}

func newCoordinator(p Policy) (coordinator, error) {
	switch p {
	case LockFree:
		return newLockFree(), nil
	case Exclusive:
		return newExclusive(), nil
	case SingleReaderWriter:
		return newSPSC(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, p)
}
