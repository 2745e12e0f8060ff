package cow

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/mitchellh/hashstructure/v2"
)

// The delegated trait surface: equality, ordering, hashing, and formatting
// are all defined purely in terms of the dereferenced target, so two
// containers behave identically regardless of which state each is in. This
// lets a container stand in for a plain value or reference in generic
// algorithms and keyed collections.

// Equal reports whether both containers dereference to equal targets. It
// honours a configured Equaler, then an Equal(T) bool method on the target,
// and falls back to reflect.DeepEqual.
func (c *Cow[T]) Equal(other *Cow[T]) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.equalValues(*c.Get(), *other.Get())
}

// EqualValue compares the dereferenced target against a plain value.
func (c *Cow[T]) EqualValue(value T) bool {
	return c.equalValues(*c.Get(), value)
}

func (c *Cow[T]) equalValues(a, b T) bool {
	if c.cfg.equaler != nil {
		return c.cfg.equaler(a, b)
	}
	if eq, ok := any(a).(interface{ Equal(T) bool }); ok {
		return eq.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

// Diff returns a human-readable report of how the two targets diverge, empty
// when they are equal. Options registered through WithDiffOptions are passed
// through to go-cmp; targets with unexported fields need one of cmp's
// exporter options.
func (c *Cow[T]) Diff(other *Cow[T]) string {
	return gocmp.Diff(*c.Get(), *other.Get(), c.cfg.cmpOptions...)
}

// CompareTo orders the two targets using the configured Comparer, or a
// Compare(T) int method on the target. It panics when neither is available;
// for ordered primitives use the package-level Compare instead.
func (c *Cow[T]) CompareTo(other *Cow[T]) int {
	a, b := *c.Get(), *other.Get()
	if c.cfg.comparer != nil {
		return c.cfg.comparer(a, b)
	}
	if cp, ok := any(a).(interface{ Compare(T) int }); ok {
		return cp.Compare(b)
	}
	panic("cow: CompareTo requires WithComparer or a Compare method on the target")
}

// Compare orders two containers of an ordered primitive target by their
// dereferenced values.
func Compare[T cmp.Ordered](a, b *Cow[T]) int {
	return cmp.Compare(*a.Get(), *b.Get())
}

// Hash returns a state-independent hash of the dereferenced target: equal
// targets hash identically whether owned, borrowed, or shared.
func (c *Cow[T]) Hash() (uint64, error) {
	return hashstructure.Hash(*c.Get(), hashstructure.FormatV2, nil)
}

// String formats the dereferenced target.
func (c *Cow[T]) String() string {
	return fmt.Sprint(*c.Get())
}

// Format delegates all fmt verbs to the dereferenced target.
func (c *Cow[T]) Format(f fmt.State, verb rune) {
	fmt.Fprintf(f, fmt.FormatString(f, verb), *c.Get())
}

// MarshalJSON encodes the dereferenced target.
func (c *Cow[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(*c.Get())
}

// UnmarshalJSON decodes into a fresh owned value and replaces the current
// state with it, whatever it was.
func (c *Cow[T]) UnmarshalJSON(data []byte) error {
	c.ensureLive("UnmarshalJSON")
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("cow: unmarshal target: %w", err)
	}
	c.owned = value
	c.borrowed = nil
	c.shared = nil
	c.state = stateOwned
	c.recompute()
	return nil
}

var (
	_ fmt.Stringer     = (*Cow[int])(nil)
	_ fmt.Formatter    = (*Cow[int])(nil)
	_ json.Marshaler   = (*Cow[int])(nil)
	_ json.Unmarshaler = (*Cow[int])(nil)
)
