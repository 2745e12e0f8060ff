package cow

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var errNegativeBalance = errors.New("balance must not be negative")

type testAccount struct {
	Owner   string `json:"owner"`
	Balance int    `json:"balance"`
}

func (a testAccount) Validate() error {
	if a.Balance < 0 {
		return errNegativeBalance
	}
	return nil
}

// fakeRef is a minimal shared backing with a stable target address.
type fakeRef[T any] struct {
	value    T
	clones   int
	releases int
}

func (r *fakeRef[T]) Deref() *T { return &r.value }

func (r *fakeRef[T]) CloneRef() SharedRef[T] {
	r.clones++
	return r
}

func (r *fakeRef[T]) Release() { r.releases++ }

// plainRef implements only the minimum capability, no cloning or release.
type plainRef[T any] struct {
	value T
}

func (r *plainRef[T]) Deref() *T { return &r.value }

func expectPanic(t *testing.T, substr string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", substr)
		}
		msg, ok := r.(string)
		if !ok {
			t.Fatalf("expected string panic, got %T", r)
		}
		if !strings.Contains(msg, substr) {
			t.Fatalf("expected panic containing %q, got %q", substr, msg)
		}
	}()
	fn()
}

func TestConstructorsDereferenceUniformly(t *testing.T) {
	base := 42
	ref := &fakeRef[int]{value: 42}

	containers := map[string]*Cow[int]{
		"owned":    Owned(42),
		"borrowed": Borrowed(&base),
		"shared":   Shared[int](ref),
	}

	for name, c := range containers {
		if got := *c.Get(); got != 42 {
			t.Fatalf("%s: expected 42, got %d", name, got)
		}
		if got := c.Value(); got != 42 {
			t.Fatalf("%s: expected Value 42, got %d", name, got)
		}
	}
}

func TestBorrowedGetReturnsPointee(t *testing.T) {
	base := 7
	c := Borrowed(&base)
	if c.Get() != &base {
		t.Fatalf("expected Get to return the borrowed pointer itself")
	}

	base = 9
	if got := *c.Get(); got != 9 {
		t.Fatalf("expected dereference to observe pointee update, got %d", got)
	}
}

func TestZeroValueBehavesAsOwnedZero(t *testing.T) {
	var c Cow[int]
	if got := *c.Get(); got != 0 {
		t.Fatalf("expected zero value container to yield 0, got %d", got)
	}
}

func TestNilBackingsPanic(t *testing.T) {
	expectPanic(t, "borrowed pointer is nil", func() {
		Borrowed[int](nil)
	})
	expectPanic(t, "shared backing is nil", func() {
		Shared[int](nil)
	})
}

func TestCloneThenMutateLeavesOriginalUntouched(t *testing.T) {
	base := 42
	original := Borrowed(&base)

	clone := original.Clone()
	if err := clone.Mutate(func(v *int) { *v += 14 }); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}

	if got := *clone.Get(); got != 56 {
		t.Fatalf("expected clone to read 56, got %d", got)
	}
	if got := *original.Get(); got != 42 {
		t.Fatalf("expected original to still read 42, got %d", got)
	}
	if base != 42 {
		t.Fatalf("expected pointee to be untouched, got %d", base)
	}
}

func TestOwnedAndBorrowedStringsCompareEqual(t *testing.T) {
	base := "hello"
	owned := Owned("hello")
	borrowed := Borrowed(&base)

	if !owned.Equal(borrowed) {
		t.Fatalf("expected equal targets to compare equal across states")
	}

	clone := borrowed.Clone()
	if err := clone.Mutate(func(s *string) { *s += " world" }); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}
	if got := *clone.Get(); got != "hello world" {
		t.Fatalf("expected mutated clone to read %q, got %q", "hello world", got)
	}
	if got := *borrowed.Get(); got != "hello" {
		t.Fatalf("expected original to still read %q, got %q", "hello", got)
	}
	if base != "hello" {
		t.Fatalf("expected pointee to be untouched, got %q", base)
	}
}

func TestCloneSemanticsPerState(t *testing.T) {
	t.Run("owned deep copies", func(t *testing.T) {
		original := Owned(map[string]int{"a": 1})
		clone := original.Clone()
		(*clone.Get())["a"] = 2
		if got := (*original.Get())["a"]; got != 1 {
			t.Fatalf("expected owned clone to be isolated, got %d", got)
		}
	})

	t.Run("borrowed shares the pointer", func(t *testing.T) {
		base := 5
		original := Borrowed(&base)
		clone := original.Clone()
		if clone.Get() != original.Get() {
			t.Fatalf("expected borrowed clone to alias the same pointee")
		}
	})

	t.Run("shared duplicates the wrapper", func(t *testing.T) {
		ref := &fakeRef[int]{value: 3}
		original := Shared[int](ref)
		clone := original.Clone()
		if ref.clones != 1 {
			t.Fatalf("expected one CloneRef call, got %d", ref.clones)
		}
		if clone.Get() != original.Get() {
			t.Fatalf("expected shared clone to alias the same target")
		}
	})

	t.Run("shared without CloneRef falls back to owned copy", func(t *testing.T) {
		ref := &plainRef[int]{value: 3}
		original := Shared[int](ref)
		clone := original.Clone()
		if clone.Get() == original.Get() {
			t.Fatalf("expected fallback clone to own its copy")
		}
		if got := *clone.Get(); got != 3 {
			t.Fatalf("expected fallback clone to read 3, got %d", got)
		}
	})
}

func TestTakeOwnershipConsumesReceiver(t *testing.T) {
	base := 10
	c := Borrowed(&base)
	owned := c.TakeOwnership()

	if got := *owned.Get(); got != 10 {
		t.Fatalf("expected taken value 10, got %d", got)
	}

	base = 99
	if got := *owned.Get(); got != 10 {
		t.Fatalf("expected taken value to be detached from pointee, got %d", got)
	}

	expectPanic(t, "consumed container", func() {
		c.Get()
	})
	expectPanic(t, "consumed container", func() {
		c.TakeOwnership()
	})
}

func TestIntoInnerExtractsAndConsumes(t *testing.T) {
	ref := &fakeRef[string]{value: "payload"}
	c := Shared[string](ref)

	value := c.IntoInner()
	if value != "payload" {
		t.Fatalf("expected extracted value %q, got %q", "payload", value)
	}

	expectPanic(t, "consumed container", func() {
		c.Get()
	})
}

func TestIntoInnerCopiesFromSharedBacking(t *testing.T) {
	ref := &fakeRef[map[string]int]{value: map[string]int{"a": 1}}
	c := Shared[map[string]int](ref)

	extracted := c.IntoInner()
	extracted["a"] = 2
	if got := ref.value["a"]; got != 1 {
		t.Fatalf("expected extraction to copy the shared target, got %d", got)
	}
}

func TestReleaseDropsSharedOwnershipOnce(t *testing.T) {
	ref := &fakeRef[int]{value: 1}
	c := Shared[int](ref)

	c.Release()
	c.Release()
	if ref.releases != 1 {
		t.Fatalf("expected one Release call, got %d", ref.releases)
	}

	// No-op outside Shared state.
	Owned(1).Release()
}

func TestPlaceholderServesReadsDuringMutation(t *testing.T) {
	c := Owned("hello")
	g := c.ToMut()
	if got := *c.Get(); got != "" {
		t.Fatalf("expected empty placeholder during open guard, got %q", got)
	}
	g.Set("updated")
	if err := g.Commit(); err != nil {
		t.Fatalf("unexpected error from Commit: %v", err)
	}
	if got := *c.Get(); got != "updated" {
		t.Fatalf("expected committed value, got %q", got)
	}
}

func TestPlaceholderConfiguredForScalarTarget(t *testing.T) {
	c := Owned(42, WithPlaceholder(-1))
	g := c.ToMut()
	if got := *c.Get(); got != -1 {
		t.Fatalf("expected configured placeholder -1, got %d", got)
	}
	g.Release()
}

func TestGetPanicsDuringMutationWithoutPlaceholder(t *testing.T) {
	c := Owned(42)
	g := c.ToMut()
	defer g.Release()

	expectPanic(t, "no placeholder", func() {
		c.Get()
	})
}

func TestOperationsPanicWhileGuardOpen(t *testing.T) {
	c := Owned(1)
	g := c.ToMut()
	defer g.Release()

	expectPanic(t, "mutation guard is open", func() {
		c.Clone()
	})
	expectPanic(t, "mutation guard is open", func() {
		c.IntoInner()
	})
}

func TestValidateDelegatesToTarget(t *testing.T) {
	valid := Owned(testAccount{Owner: "ada", Balance: 1})
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	invalid := Owned(testAccount{Owner: "ada", Balance: -1})
	if err := invalid.Validate(); !errors.Is(err, errNegativeBalance) {
		t.Fatalf("expected errNegativeBalance, got %v", err)
	}

	// Targets without a Validate method always pass.
	if err := Owned(42).Validate(); err != nil {
		t.Fatalf("unexpected error for plain target: %v", err)
	}
}

func TestWithClonerOverridesPromotionCopy(t *testing.T) {
	calls := 0
	base := 40
	c := Borrowed(&base, WithCloner(func(v int) int {
		calls++
		return v + 2
	}))

	if err := c.Mutate(nil); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one cloner call, got %d", calls)
	}
	if got := *c.Get(); got != 42 {
		t.Fatalf("expected cloner result 42, got %d", got)
	}
}

type ledgerEntry struct {
	Owner   string
	balance int
}

func TestOwnershipTransferPreservesUnexportedFields(t *testing.T) {
	entry := ledgerEntry{Owner: "ada", balance: 100}
	c := Borrowed(&entry)
	before := *c.Get()

	taken := c.TakeOwnership()
	if got := *taken.Get(); got != before {
		t.Fatalf("expected TakeOwnership to preserve the target, got %+v want %+v", got, before)
	}
	if got := taken.IntoInner(); got != before {
		t.Fatalf("expected IntoInner to preserve the target, got %+v want %+v", got, before)
	}

	promoted := Borrowed(&entry)
	if err := promoted.Mutate(nil); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}
	if got := *promoted.Get(); got != entry {
		t.Fatalf("expected promotion to preserve the target, got %+v want %+v", got, entry)
	}
}

func TestOwnershipTransferPreservesTimestamps(t *testing.T) {
	now := time.Now()
	c := Borrowed(&now)

	if got := c.TakeOwnership().IntoInner(); !got.Equal(now) {
		t.Fatalf("expected extracted timestamp %v to equal %v", got, now)
	}
}

func TestByteSliceTargetsAcrossStates(t *testing.T) {
	base := []byte("hello")
	borrowed := Borrowed(&base)
	owned := Owned([]byte("hello"))

	if !owned.Equal(borrowed) {
		t.Fatalf("expected equal byte targets across states")
	}

	clone := borrowed.Clone()
	if err := clone.Mutate(func(b *[]byte) { *b = append(*b, '!') }); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}
	if string(*clone.Get()) != "hello!" {
		t.Fatalf("expected mutated clone, got %q", *clone.Get())
	}
	if string(base) != "hello" {
		t.Fatalf("expected pointee untouched, got %q", base)
	}
}

func TestFromMapRehydratesOwnedContainer(t *testing.T) {
	c, err := FromMap[testAccount](map[string]any{
		"owner":   "ada",
		"balance": 10,
	})
	if err != nil {
		t.Fatalf("unexpected error from FromMap: %v", err)
	}
	if got := *c.Get(); got != (testAccount{Owner: "ada", Balance: 10}) {
		t.Fatalf("unexpected rehydrated target %+v", got)
	}

	// Rehydrated containers are plain Owned state; mutation needs no
	// promotion.
	if err := c.Mutate(func(a *testAccount) { a.Balance++ }); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}
	_, trace := c.GetWithTrace()
	if len(trace.Promotions) != 0 {
		t.Fatalf("expected no promotions, got %d", len(trace.Promotions))
	}

	if _, err := FromMap[testAccount](nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestIDIsStablePerContainer(t *testing.T) {
	c := Owned(1)
	first := c.ID()
	if first == "" {
		t.Fatalf("expected non-empty container ID")
	}
	if second := c.ID(); second != first {
		t.Fatalf("expected stable ID, got %q then %q", first, second)
	}
	if other := Owned(1).ID(); other == first {
		t.Fatalf("expected distinct containers to have distinct IDs")
	}
}
