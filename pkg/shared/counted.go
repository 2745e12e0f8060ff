package shared

import (
	"sync/atomic"

	cow "github.com/goliatone/go-cow"
)

// Counted is an atomically reference-counted handle around a heap value.
// CloneRef acquires one reference, Release drops one; when the count reaches
// zero the configured finalizer runs. The target address is stable for the
// lifetime of the whole handle family, and the count is maintained
// atomically, so Counted satisfies the thread-safe capability set.
type Counted[T any] struct {
	inner    *countedInner[T]
	released atomic.Bool
}

type countedInner[T any] struct {
	value     T
	refs      atomic.Int64
	finalizer func(*T)
}

// CountedOption configures a Counted handle family at construction.
type CountedOption[T any] func(*countedInner[T])

// WithFinalizer runs fn over the target when the last reference is released.
func WithFinalizer[T any](fn func(*T)) CountedOption[T] {
	return func(inner *countedInner[T]) {
		inner.finalizer = fn
	}
}

// NewCounted allocates value and returns the first handle, holding one
// reference.
func NewCounted[T any](value T, opts ...CountedOption[T]) *Counted[T] {
	inner := &countedInner[T]{value: value}
	for _, opt := range opts {
		if opt != nil {
			opt(inner)
		}
	}
	inner.refs.Store(1)
	return &Counted[T]{inner: inner}
}

// Deref returns the shared target. The pointer is identical across every
// handle of the family and never changes.
func (c *Counted[T]) Deref() *T {
	return &c.inner.value
}

// CloneRef acquires one reference and returns a new handle. Cloning a
// handle that was already released is a programmer error and panics.
func (c *Counted[T]) CloneRef() cow.SharedRef[T] {
	if c.released.Load() {
		panic("shared: clone of released handle")
	}
	c.inner.refs.Add(1)
	return &Counted[T]{inner: c.inner}
}

// Release drops this handle's reference. Releasing the same handle twice is
// a no-op; the finalizer runs exactly once, when the family count reaches
// zero. Dereferencing any handle after the final release violates the
// SharedRef contract.
func (c *Counted[T]) Release() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	if c.inner.refs.Add(-1) == 0 && c.inner.finalizer != nil {
		c.inner.finalizer(&c.inner.value)
	}
}

// Refs reports the live reference count of the handle family.
func (c *Counted[T]) Refs() int64 {
	return c.inner.refs.Load()
}

// SharedSync marks the handle as safe to reach from multiple goroutines.
func (c *Counted[T]) SharedSync() {}

var (
	_ cow.CloneableRef[int] = (*Counted[int])(nil)
	_ cow.SyncRef[int]      = (*Counted[int])(nil)
)
