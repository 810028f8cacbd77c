package triplebuffer

import (
	"fmt"
)

var (
	// ErrUnbalancedRelease is raised (wrapped, as a panic value) when a role
	// is released more often than it was acquired.
	ErrUnbalancedRelease = fmt.Errorf("unbalanced release")

	// ErrTooManyAccesses is raised when the lock-free counters would overflow.
	ErrTooManyAccesses = fmt.Errorf("too many concurrent accesses")

	// ErrUnknownPolicy is raised for a Policy value or name that is not defined.
	ErrUnknownPolicy = fmt.Errorf("unknown policy")

	// ErrReleased is raised when a handle is used after Release.
	ErrReleased = fmt.Errorf("access already released")
)

type role uint8

const (
	roleRead role = iota
	roleWrite
)

func (r role) String() string {
	if r == roleWrite {
		return "write"
	}
	return "read"
}

func unbalanced(r role) error {
	return fmt.Errorf("%w: %s released without a matching acquire", ErrUnbalancedRelease, r)
}

func overflow(r role, open uint64) error {
	return fmt.Errorf("%w: %d open %s accesses", ErrTooManyAccesses, open, r)
}
