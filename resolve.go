package cow

import (
	"reflect"

	"github.com/goliatone/go-cow/internal/deepclone"
)

// refMode records how the resolved-reference metadata is interpreted.
// inline means the target lives inside the container (Owned state) and the
// live address is re-derived from the container itself; external means the
// target lives outside (Borrowed and Shared state) and the cached pointer is
// authoritative; pending means a mutation guard is open and no cached
// reference may be exposed; spent means the container was consumed.
type refMode uint8

const (
	modeInline refMode = iota
	modeExternal
	modePending
	modeSpent
)

func (m refMode) String() string {
	switch m {
	case modeInline:
		return "inline"
	case modeExternal:
		return "external"
	case modePending:
		return "pending"
	case modeSpent:
		return "spent"
	default:
		return "unknown"
	}
}

// resolvedRef is the metadata every dereference is answered from, without
// inspecting which logical state is active. It is recomputed after
// construction, after any state replacement (copy-on-write promotion,
// UnmarshalJSON), and after a mutation guard is released.
type resolvedRef[T any] struct {
	mode refMode
	ptr  *T
}

func (c *Cow[T]) recompute() {
	switch c.state {
	case stateOwned:
		c.ref = resolvedRef[T]{mode: modeInline}
	case stateBorrowed:
		c.ref = resolvedRef[T]{mode: modeExternal, ptr: c.borrowed}
	case stateShared:
		c.ref = resolvedRef[T]{mode: modeExternal, ptr: c.shared.Deref()}
	default:
		c.ref = resolvedRef[T]{mode: modeSpent}
	}
}

// placeholderRef implements the safe-borrow-replacement protocol: while a
// mutation guard is open the true target address cannot be trusted, so reads
// are served from a type-specific placeholder. Types without one cannot be
// read during a mutation window.
func (c *Cow[T]) placeholderRef() *T {
	if c.cfg.placeholder != nil {
		return c.cfg.placeholder
	}
	if p, ok := defaultPlaceholder[T](); ok {
		return p
	}
	panic("cow: dereference during open mutation guard, and target type has no placeholder")
}

// defaultPlaceholder yields an empty stand-in for kinds whose zero value is
// self-contained: the empty string, the nil slice, the nil map. Everything
// else opts in through WithPlaceholder.
func defaultPlaceholder[T any]() (*T, bool) {
	var zero T
	switch reflect.TypeOf(&zero).Elem().Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return &zero, true
	}
	return nil, false
}

func deepCloneValue[T any](v T) T {
	return deepclone.Value(v)
}
