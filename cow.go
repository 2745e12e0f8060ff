// Package cow implements a polymorphic reference container that holds, at
// any moment, exactly one of three backings (an owned value, a borrowed
// pointer, or a shared capability wrapper) behind one uniform dereference,
// with copy-on-write promotion to an owned value when mutable access is
// requested. It lets APIs accept maybe-owned data without forcing callers to
// allocate or clone, and without the branching leaking into client code.
package cow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-cow/internal/snapmap"
)

// Cow is the ownership container. The zero value behaves as an Owned
// container around the zero value of T.
//
// Containers must not be copied by value once in use; Clone is the supported
// duplication path. A container is not safe for concurrent use unless every
// concurrent access is a read and the backing is a SyncRef.
type Cow[T any] struct {
	noCopy noCopy

	state    state
	owned    T
	borrowed *T
	shared   SharedRef[T]

	ref resolvedRef[T]
	cfg cowConfig[T]

	id         string
	guardOpen  bool
	promotions []Promotion
	releasedRC bool
	pendingErr error
}

// Owned builds a container that directly and exclusively owns value.
func Owned[T any](value T, opts ...Option[T]) *Cow[T] {
	c := &Cow[T]{
		state: stateOwned,
		owned: value,
		cfg:   applyOptions(opts),
	}
	c.recompute()
	c.emitCreated()
	return c
}

// Borrowed builds a container around a non-owning pointer supplied by the
// caller.
//
// Contract: the pointee must outlive the container and must not be mutated
// or invalidated by the caller while the container is live. Violations are
// unspecified behaviour, not errors. A nil pointer is a programmer error and
// panics.
func Borrowed[T any](ptr *T, opts ...Option[T]) *Cow[T] {
	if ptr == nil {
		panic("cow: borrowed pointer is nil")
	}
	c := &Cow[T]{
		state:    stateBorrowed,
		borrowed: ptr,
		cfg:      applyOptions(opts),
	}
	c.recompute()
	c.emitCreated()
	return c
}

// Shared builds a container holding one unit of shared ownership through the
// supplied capability wrapper. A nil wrapper is a programmer error and
// panics.
func Shared[T any](ref SharedRef[T], opts ...Option[T]) *Cow[T] {
	if ref == nil {
		panic("cow: shared backing is nil")
	}
	c := &Cow[T]{
		state:  stateShared,
		shared: ref,
		cfg:    applyOptions(opts),
	}
	c.recompute()
	c.emitCreated()
	return c
}

// FromMap rehydrates an Owned container from a weakly typed payload, such as
// one carried over transport or loaded from a checkpoint store. Field names
// follow the target's JSON tags.
func FromMap[T any](payload map[string]any, opts ...Option[T]) (*Cow[T], error) {
	value, err := snapmap.Decode[T](payload)
	if err != nil {
		return nil, fmt.Errorf("cow: rehydrate target: %w", err)
	}
	return Owned(value, opts...), nil
}

// Get dereferences the container, yielding read-only access to the target in
// O(1) regardless of which state is active. The returned pointer must not be
// used to mutate the target; use ToMut or Mutate for that.
//
// While a mutation guard is open Get serves the registered placeholder value
// instead, and panics for types that have none. Get panics after IntoInner
// or TakeOwnership consumed the container.
func (c *Cow[T]) Get() *T {
	switch c.ref.mode {
	case modeInline:
		return &c.owned
	case modeExternal:
		return c.ref.ptr
	case modePending:
		return c.placeholderRef()
	default:
		panic("cow: use of consumed container")
	}
}

// Value returns a shallow copy of the dereferenced target.
func (c *Cow[T]) Value() T {
	return *c.Get()
}

// Clone duplicates the container: Owned state deep-copies the value,
// Borrowed state copies the pointer, and Shared state duplicates the wrapper
// when it supports duplication, falling back to a deep owned copy otherwise.
func (c *Cow[T]) Clone() *Cow[T] {
	c.ensureLive("Clone")
	out := &Cow[T]{cfg: c.cfg}
	switch c.state {
	case stateOwned:
		out.state = stateOwned
		out.owned = c.cloneTarget(c.owned)
	case stateBorrowed:
		out.state = stateBorrowed
		out.borrowed = c.borrowed
	case stateShared:
		if cr, ok := c.shared.(CloneableRef[T]); ok {
			out.state = stateShared
			out.shared = cr.CloneRef()
			break
		}
		out.state = stateOwned
		out.owned = c.cloneTarget(*c.shared.Deref())
	}
	out.recompute()
	out.emitCreated()
	return out
}

// TakeOwnership converts the container into a fresh Owned-only container,
// copying the target when it is not already owned. The receiver is consumed:
// any later use panics.
func (c *Cow[T]) TakeOwnership() *Cow[T] {
	c.ensureLive("TakeOwnership")
	var value T
	switch c.state {
	case stateOwned:
		value = c.owned
	case stateBorrowed:
		value = c.cloneTarget(*c.borrowed)
	case stateShared:
		value = c.cloneTarget(*c.shared.Deref())
	}
	cfg := c.cfg
	c.consume()
	out := &Cow[T]{state: stateOwned, owned: value, cfg: cfg}
	out.recompute()
	out.emitCreated()
	return out
}

// IntoInner extracts the owned value, copying from Borrowed or Shared state
// when needed. The container is consumed: any later use panics.
func (c *Cow[T]) IntoInner() T {
	c.ensureLive("IntoInner")
	var value T
	switch c.state {
	case stateOwned:
		value = c.owned
	case stateBorrowed:
		value = c.cloneTarget(*c.borrowed)
	case stateShared:
		value = c.cloneTarget(*c.shared.Deref())
	}
	c.emitExtracted(value)
	c.consume()
	return value
}

// Release drops the container's unit of shared ownership when the Shared
// backing supports explicit release. It is a no-op for Owned and Borrowed
// state and idempotent for Shared state. The container remains dereferencable
// only until the last holder releases; using it afterwards violates the
// SharedRef contract.
func (c *Cow[T]) Release() {
	if c.state != stateShared || c.releasedRC {
		return
	}
	c.releasedRC = true
	if r, ok := c.shared.(interface{ Release() }); ok {
		r.Release()
	}
	c.emitReleased()
}

// Validate invokes the Validate method on the dereferenced target when
// present.
func (c *Cow[T]) Validate() error {
	return validateValue(*c.Get())
}

// ID returns the container's identity used in activity events, checkpoints,
// and traces. It is assigned lazily on first use.
func (c *Cow[T]) ID() string {
	return c.ident()
}

func (c *Cow[T]) ident() string {
	if c.id == "" {
		c.id = uuid.NewString()
	}
	return c.id
}

// cloneTarget runs the owned-equivalent conversion for value.
func (c *Cow[T]) cloneTarget(value T) T {
	if c.cfg.cloner != nil {
		return c.cfg.cloner(value)
	}
	if cl, ok := any(value).(interface{ Clone() T }); ok {
		return cl.Clone()
	}
	return deepCloneValue(value)
}

func (c *Cow[T]) ensureLive(op string) {
	if c.state == stateSpent {
		panic("cow: " + op + " on consumed container")
	}
	if c.guardOpen {
		panic("cow: " + op + " while mutation guard is open")
	}
}

func (c *Cow[T]) consume() {
	var zero T
	c.state = stateSpent
	c.owned = zero
	c.borrowed = nil
	c.shared = nil
	c.recompute()
}

func validateValue[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if v, ok := any(&value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// noCopy triggers go vet's copylocks check when a container is copied by
// value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
