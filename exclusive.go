package triplebuffer

import (
	"sync"
)

// exclusive guards each role's counter with its own mutex and the rotation
// word with a third one shared by both roles. The rotation mutex is always
// taken after a role mutex, never before. Only integer bookkeeping runs under
// the locks; payload reads and writes happen outside all of them.
type exclusive struct {
	readMu     sync.Mutex
	reads      int
	claimStale bool

	writeMu sync.Mutex
	writes  int

	rotMu sync.Mutex
	rot   rotation
}

func newExclusive() *exclusive {
	return &exclusive{rot: initialRotation}
}

func (c *exclusive) beginRead() (int, bool, bool, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	first := c.reads == 0
	c.reads++
	c.rotMu.Lock()
	if first {
		c.rot, c.claimStale = c.rot.consume()
	}
	slot := c.rot.read()
	c.rotMu.Unlock()
	return slot, first, c.claimStale, nil
}

func (c *exclusive) endRead() (bool, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.reads == 0 {
		return false, unbalanced(roleRead)
	}
	c.reads--
	return c.claimStale, nil
}

func (c *exclusive) beginWrite() (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.writes++
	c.rotMu.Lock()
	slot := c.rot.write()
	c.rotMu.Unlock()
	return slot, nil
}

func (c *exclusive) endWrite() (bool, bool, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writes == 0 {
		return false, false, unbalanced(roleWrite)
	}
	c.writes--
	if c.writes > 0 {
		return false, false, nil
	}

	c.rotMu.Lock()
	var wasStale bool
	c.rot, wasStale = c.rot.publish()
	c.rotMu.Unlock()
	return wasStale, true, nil
}

func (c *exclusive) snapshot() (rotation, bool) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	c.rotMu.Lock()
	r := c.rot
	c.rotMu.Unlock()
	return r, c.reads > 0 && !c.claimStale
}
