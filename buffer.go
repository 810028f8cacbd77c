package triplebuffer

import (
	"fmt"
)

// Buffer owns three values of T and rotates them between one writer role
// and one reader role. The values never move: Value() pointers returned for
// a slot stay the same for the buffer's whole life.
type Buffer[T any] struct {
	slots [numSlots]T
	idx   *Index
}

// New creates a Buffer whose three slots are produced by factory.
func New[T any](factory func() T, opts ...Option) *Buffer[T] {
	return NewIndexed(func(int) T { return factory() }, opts...)
}

// NewIndexed creates a Buffer whose slots are produced by factory(0),
// factory(1) and factory(2).
func NewIndexed[T any](factory func(slot int) T, opts ...Option) *Buffer[T] {
	b := &Buffer[T]{idx: NewIndex(opts...)}
	for i := 0; i < numSlots; i++ {
		b.slots[i] = factory(i)
	}
	return b
}

// NewFromSeed creates a Buffer whose slots are clone(seed). A nil clone
// copies seed by assignment, which shares any memory seed references.
func NewFromSeed[T any](seed T, clone func(T) T, opts ...Option) *Buffer[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return NewIndexed(func(int) T { return clone(seed) }, opts...)
}

// Read opens a read access. The caller must Release it exactly once.
func (b *Buffer[T]) Read() ReadAccess[T] {
	return ReadAccess[T]{buf: b, slot: b.idx.BeginRead()}
}

// Write opens a write access. The caller must Release it exactly once.
func (b *Buffer[T]) Write() WriteAccess[T] {
	return WriteAccess[T]{buf: b, slot: b.idx.BeginWrite()}
}

// View runs fn on the current read value and releases the access even if
// fn panics. It returns the result of the release (see Index.EndRead).
func (b *Buffer[T]) View(fn func(v *T)) (stale bool) {
	a := b.Read()
	defer func() { stale = a.Release() }()
	fn(a.Value())
	return
}

// Update runs fn on the write value and releases the access even if fn
// panics. It returns the result of the release (see Index.EndWrite).
func (b *Buffer[T]) Update(fn func(v *T)) (first bool) {
	a := b.Write()
	defer func() { first = a.Release() }()
	fn(a.Value())
	return
}

// Load returns a copy of the current read value.
func (b *Buffer[T]) Load() T {
	var v T
	b.View(func(p *T) { v = *p })
	return v
}

// Store replaces the write value with v and publishes it.
func (b *Buffer[T]) Store(v T) bool {
	return b.Update(func(p *T) { *p = v })
}

// IsStale reports whether no write has been published since the last read
// rotation (or ever). It stays false while the read that took the latest
// value is still open.
func (b *Buffer[T]) IsStale() bool { return b.idx.IsStale() }

// Policy returns the policy the Buffer was created with.
func (b *Buffer[T]) Policy() Policy { return b.idx.Policy() }

// Stats returns the counters, see WithStats.
func (b *Buffer[T]) Stats() Stats { return b.idx.Stats() }

// ReadAccess is an open read of one slot. It is a small value; do not copy
// it before Release, each copy would release on its own.
type ReadAccess[T any] struct {
	buf      *Buffer[T]
	slot     int
	released bool
	stale    bool
}

// Value returns the value bound to this access. It panics after Release.
func (a *ReadAccess[T]) Value() *T {
	if a.released {
		panic(fmt.Errorf("%w: read of slot %d", ErrReleased, a.slot))
	}
	return &a.buf.slots[a.slot]
}

// Slot returns the slot index bound to this access.
func (a *ReadAccess[T]) Slot() int { return a.slot }

// Release ends the read. Further calls return the first result.
func (a *ReadAccess[T]) Release() bool {
	if !a.released {
		a.released = true
		a.stale = a.buf.idx.EndRead()
	}
	return a.stale
}

// WriteAccess is an open write of one slot. Concurrent writers under a
// multi-writer policy share the slot and must coordinate among themselves.
type WriteAccess[T any] struct {
	buf      *Buffer[T]
	slot     int
	released bool
	first    bool
}

// Value returns the value bound to this access. It panics after Release.
func (a *WriteAccess[T]) Value() *T {
	if a.released {
		panic(fmt.Errorf("%w: write of slot %d", ErrReleased, a.slot))
	}
	return &a.buf.slots[a.slot]
}

// Slot returns the slot index bound to this access.
func (a *WriteAccess[T]) Slot() int { return a.slot }

// Release ends the write. Further calls return the first result.
func (a *WriteAccess[T]) Release() bool {
	if !a.released {
		a.released = true
		a.first = a.buf.idx.EndWrite()
	}
	return a.first
}
