// Package shared provides reference implementations of the capability
// interfaces a container's Shared state accepts: a plain heap box and an
// atomically reference-counted handle. Both keep their target at a stable
// address for the whole lifetime of the backing, which is the one contract
// every SharedRef must honour.
package shared

import (
	cow "github.com/goliatone/go-cow"
)

// Box holds a value on the heap behind a pointer that never changes for the
// box's lifetime. Duplication shares the box rather than copying the value.
type Box[T any] struct {
	ptr *T
}

// NewBox boxes value on the heap.
func NewBox[T any](value T) *Box[T] {
	return &Box[T]{ptr: &value}
}

// FromPtr wraps an existing pointer. The caller keeps responsibility for the
// pointee's lifetime. A nil pointer is a programmer error and panics.
func FromPtr[T any](ptr *T) *Box[T] {
	if ptr == nil {
		panic("shared: boxed pointer is nil")
	}
	return &Box[T]{ptr: ptr}
}

// Deref returns the boxed target.
func (b *Box[T]) Deref() *T {
	return b.ptr
}

// CloneRef duplicates the handle; both handles share the same target.
func (b *Box[T]) CloneRef() cow.SharedRef[T] {
	return &Box[T]{ptr: b.ptr}
}

var _ cow.CloneableRef[int] = (*Box[int])(nil)
