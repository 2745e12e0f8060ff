package cow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-cow/pkg/snapshot"
)

type failingStore[T any] struct {
	err error
}

func (s *failingStore[T]) Load(context.Context, snapshot.Ref) (T, snapshot.Meta, bool, error) {
	var zero T
	return zero, snapshot.Meta{}, false, s.err
}

func (s *failingStore[T]) Save(context.Context, snapshot.Ref, T, snapshot.Meta) (snapshot.Meta, error) {
	return snapshot.Meta{}, s.err
}

func TestToMutPromotesBorrowedState(t *testing.T) {
	base := 42
	c := Borrowed(&base)

	g := c.ToMut()
	*g.Value() = 56
	if err := g.Commit(); err != nil {
		t.Fatalf("unexpected error from Commit: %v", err)
	}

	if got := *c.Get(); got != 56 {
		t.Fatalf("expected 56 after commit, got %d", got)
	}
	if base != 42 {
		t.Fatalf("expected pointee to be untouched, got %d", base)
	}

	_, trace := c.GetWithTrace()
	if len(trace.Promotions) != 1 {
		t.Fatalf("expected one promotion, got %d", len(trace.Promotions))
	}
	if trace.Promotions[0].From != "borrowed" {
		t.Fatalf("expected promotion from borrowed, got %q", trace.Promotions[0].From)
	}
	if trace.State != "owned" {
		t.Fatalf("expected owned state after promotion, got %q", trace.State)
	}
}

func TestToMutPromotesSharedStateAndReleasesBacking(t *testing.T) {
	ref := &fakeRef[int]{value: 10}
	c := Shared[int](ref)

	if err := c.Mutate(func(v *int) { *v *= 2 }); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}

	if got := *c.Get(); got != 20 {
		t.Fatalf("expected 20 after mutation, got %d", got)
	}
	if ref.value != 10 {
		t.Fatalf("expected shared target to be untouched, got %d", ref.value)
	}
	if ref.releases != 1 {
		t.Fatalf("expected promotion to release the shared backing once, got %d", ref.releases)
	}
}

func TestPromotionAfterReleaseDropsBackingOnce(t *testing.T) {
	ref := &fakeRef[int]{value: 1}
	c := Shared[int](ref)

	c.Release()
	if err := c.Mutate(func(v *int) { *v = 2 }); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}

	if ref.releases != 1 {
		t.Fatalf("expected exactly one Release call, got %d", ref.releases)
	}
	if got := *c.Get(); got != 2 {
		t.Fatalf("expected promoted value 2, got %d", got)
	}
}

func TestToMutOnOwnedSkipsPromotion(t *testing.T) {
	c := Owned(1)
	if err := c.Mutate(func(v *int) { *v = 2 }); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}

	_, trace := c.GetWithTrace()
	if len(trace.Promotions) != 0 {
		t.Fatalf("expected no promotions for owned mutation, got %d", len(trace.Promotions))
	}
}

func TestSecondGuardPanicsWhileFirstOpen(t *testing.T) {
	c := Owned(1)
	g := c.ToMut()
	defer g.Release()

	expectPanic(t, "mutation guard already open", func() {
		c.ToMut()
	})
}

func TestGuardValuePanicsAfterRelease(t *testing.T) {
	c := Owned(1)
	g := c.ToMut()
	g.Release()
	g.Release()

	expectPanic(t, "released mutation guard", func() {
		g.Value()
	})

	// A new guard can open once the previous one is released.
	next := c.ToMut()
	next.Release()
}

func TestCommitAfterReleaseIsNoop(t *testing.T) {
	c := Owned(1)
	g := c.ToMut()
	g.Release()
	if err := g.Commit(); err != nil {
		t.Fatalf("expected nil from Commit after Release, got %v", err)
	}
}

func TestCommitRunsTargetValidation(t *testing.T) {
	c := Owned(testAccount{Owner: "ada", Balance: 5})
	err := c.Mutate(func(a *testAccount) { a.Balance = -1 })
	if !errors.Is(err, errNegativeBalance) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestCommitChecksInvariants(t *testing.T) {
	c := Owned(map[string]any{"balance": 100},
		WithInvariant[map[string]any]("balance >= 0"),
	)

	if err := c.Mutate(func(m *map[string]any) { (*m)["balance"] = 60 }); err != nil {
		t.Fatalf("unexpected error for legal mutation: %v", err)
	}

	err := c.Mutate(func(m *map[string]any) { (*m)["balance"] = -5 })
	if !errors.Is(err, ErrInvariantViolated) {
		t.Fatalf("expected ErrInvariantViolated, got %v", err)
	}

	var invErr *InvariantError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvariantError, got %T", err)
	}
	if invErr.Expr != "balance >= 0" {
		t.Fatalf("expected offending expression in error, got %q", invErr.Expr)
	}
}

func TestInvariantRequiresBooleanResult(t *testing.T) {
	c := Owned(map[string]any{"balance": 1},
		WithInvariant[map[string]any]("balance + 1"),
	)

	err := c.Mutate(nil)
	var invErr *InvariantError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvariantError for non-boolean result, got %v", err)
	}
	if invErr.Err == nil {
		t.Fatalf("expected wrapped type error, got %+v", invErr)
	}
}

func TestEmptyInvariantExpressionsAreIgnored(t *testing.T) {
	c := Owned(1, WithInvariant[int](""))
	if err := c.Mutate(func(v *int) { *v = 2 }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPromotionCheckpointsPreviousTarget(t *testing.T) {
	store := snapshot.NewMemoryStore[int]()
	base := 42
	c := Borrowed(&base, WithCheckpointStore[int](store))

	if err := c.Mutate(func(v *int) { *v = 56 }); err != nil {
		t.Fatalf("unexpected error from Mutate: %v", err)
	}

	_, trace := c.GetWithTrace()
	if len(trace.Promotions) != 1 || trace.Promotions[0].SnapshotID == "" {
		t.Fatalf("expected promotion with snapshot ID, got %+v", trace.Promotions)
	}

	saved, meta, ok, err := store.Load(context.Background(), snapshot.Ref{
		ContainerID: c.ID(),
		State:       "borrowed",
	})
	if err != nil || !ok {
		t.Fatalf("expected checkpoint to exist, ok=%v err=%v", ok, err)
	}
	if saved != 42 {
		t.Fatalf("expected pre-promotion value 42, got %d", saved)
	}
	if meta.SnapshotID != trace.Promotions[0].SnapshotID {
		t.Fatalf("expected promotion snapshot ID %q, got %q", trace.Promotions[0].SnapshotID, meta.SnapshotID)
	}
}

func TestCheckpointFailureSurfacesOnCommit(t *testing.T) {
	storeErr := fmt.Errorf("disk full")
	base := 1
	c := Borrowed(&base, WithCheckpointStore[int](&failingStore[int]{err: storeErr}))

	g := c.ToMut()
	*g.Value() = 2
	err := g.Commit()
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected checkpoint failure from Commit, got %v", err)
	}

	// The promotion itself still happened.
	if got := *c.Get(); got != 2 {
		t.Fatalf("expected mutation to land despite checkpoint failure, got %d", got)
	}
	_, trace := c.GetWithTrace()
	if len(trace.Promotions) != 1 || trace.Promotions[0].SnapshotID != "" {
		t.Fatalf("expected promotion without snapshot ID, got %+v", trace.Promotions)
	}

	// The failure is reported once.
	if err := c.Mutate(func(v *int) { *v = 3 }); err != nil {
		t.Fatalf("expected later commits to be clean, got %v", err)
	}
}

func TestGuardSetReplacesValue(t *testing.T) {
	c := Owned([]int{1, 2})
	g := c.ToMut()
	g.Set([]int{3})
	if err := g.Commit(); err != nil {
		t.Fatalf("unexpected error from Commit: %v", err)
	}
	got := *c.Get()
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected [3], got %v", got)
	}
}

func TestToMutPanicsOnConsumedContainer(t *testing.T) {
	c := Owned(1)
	_ = c.IntoInner()
	expectPanic(t, "consumed container", func() {
		c.ToMut()
	})
}
