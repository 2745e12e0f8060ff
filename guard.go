package cow

import (
	"errors"
	"time"
)

// Guard is an exclusive, scoped handle into a container that is guaranteed
// to be in Owned state for its whole duration. It owns no data itself; on
// release it triggers recomputation of the parent's resolved-reference
// metadata.
//
// Only one guard may be open per container, and the container must not be
// read through Get while the guard is open unless the target type has a
// placeholder. Both are programmer errors enforced by panics.
type Guard[T any] struct {
	parent   *Cow[T]
	released bool
}

// ToMut grants exclusive mutable access, promoting Borrowed or Shared state
// to a fresh Owned copy first. A container produced by cloning another and
// then mutated through ToMut never affects the original or its siblings.
func (c *Cow[T]) ToMut() *Guard[T] {
	if c.state == stateSpent {
		panic("cow: ToMut on consumed container")
	}
	if c.guardOpen {
		panic("cow: mutation guard already open")
	}

	switch c.state {
	case stateBorrowed:
		c.promote(*c.borrowed)
		c.borrowed = nil
	case stateShared:
		target := *c.shared.Deref()
		c.promote(target)
		c.dropShared()
	}

	c.guardOpen = true
	c.ref = resolvedRef[T]{mode: modePending}
	return &Guard[T]{parent: c}
}

// Mutate opens a guard, applies fn to the owned value, and commits. It is
// the convenience path for single mutations.
func (c *Cow[T]) Mutate(fn func(*T)) error {
	g := c.ToMut()
	if fn != nil {
		fn(g.Value())
	}
	return g.Commit()
}

// Value returns mutable access to the owned value. It panics after the guard
// was released.
func (g *Guard[T]) Value() *T {
	if g.released {
		panic("cow: use of released mutation guard")
	}
	return &g.parent.owned
}

// Set replaces the owned value wholesale.
func (g *Guard[T]) Set(value T) {
	*g.Value() = value
}

// Release closes the guard without running invariant checks. The parent's
// resolved-reference metadata is recomputed from the possibly relocated
// owned value. Release is idempotent.
func (g *Guard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	parent := g.parent
	parent.guardOpen = false
	parent.recompute()
	parent.emitMutated()
}

// Commit runs the target's Validate method and any registered invariants
// against the mutated value, then releases the guard. Checkpoint failures
// recorded during promotion surface here as well.
func (g *Guard[T]) Commit() error {
	if g.released {
		return nil
	}
	err := g.parent.checkMutation()
	if pending := g.parent.pendingErr; pending != nil {
		g.parent.pendingErr = nil
		err = errors.Join(pending, err)
	}
	g.Release()
	return err
}

// promote replaces the current state with Owned(copy of target). The
// checkpoint store, when configured, receives the pre-copy target first.
func (c *Cow[T]) promote(target T) {
	from := c.state
	snapshotID := c.checkpoint(from, target)
	c.owned = c.cloneTarget(target)
	c.state = stateOwned
	c.promotions = append(c.promotions, Promotion{
		From:       from.String(),
		SnapshotID: snapshotID,
		OccurredAt: time.Now(),
	})
	c.emitPromoted(from, snapshotID)
}

// dropShared releases the container's unit of shared ownership after a
// promotion replaced it with an owned copy.
func (c *Cow[T]) dropShared() {
	if c.shared == nil {
		return
	}
	if !c.releasedRC {
		if r, ok := c.shared.(interface{ Release() }); ok {
			r.Release()
		}
	}
	c.shared = nil
	c.releasedRC = false
}
