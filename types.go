package cow

import (
	"time"

	gocmp "github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cow/pkg/activity"
	"github.com/goliatone/go-cow/pkg/snapshot"
)

// state identifies which backing a container currently holds.
type state uint8

const (
	stateOwned state = iota
	stateBorrowed
	stateShared
	stateSpent
)

func (s state) String() string {
	switch s {
	case stateOwned:
		return "owned"
	case stateBorrowed:
		return "borrowed"
	case stateShared:
		return "shared"
	case stateSpent:
		return "spent"
	default:
		return "unknown"
	}
}

// SharedRef is the minimum capability a shared backing must provide to be
// held by a container. Implementations are externally supplied
// reference-counted (or otherwise indirect) wrappers around a value of T.
//
// Contract: Deref must return the same pointer for the wrapper object's
// entire lifetime. The container does not and cannot verify this; a backing
// that hands out different pointers across calls produces unspecified
// behaviour, not an error.
type SharedRef[T any] interface {
	Deref() *T
}

// CloneableRef extends SharedRef with duplication: CloneRef yields a new
// wrapper sharing the same target (for reference-counted backings this is
// the acquire operation). Containers use it to clone Shared state without a
// deep copy.
type CloneableRef[T any] interface {
	SharedRef[T]
	CloneRef() SharedRef[T]
}

// SyncRef marks a shared backing whose target may safely be reached from
// multiple goroutines at once. The container adds no synchronization of its
// own; it merely forwards the guarantee.
type SyncRef[T any] interface {
	SharedRef[T]
	SharedSync()
}

// Cloner produces the owned equivalent of a target value. It is the
// conversion run by copy-on-write promotion, TakeOwnership, and IntoInner
// when the container does not already own its target.
type Cloner[T any] func(T) T

// Equaler overrides the delegated equality check between two target values.
type Equaler[T any] func(a, b T) bool

// Comparer orders two target values: negative when a < b, zero when equal,
// positive when a > b.
type Comparer[T any] func(a, b T) int

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression against a
// container's dereferenced target.
type RuleContext struct {
	Target   any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	State    string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) stateLabel() string {
	if ctx.State == "" {
		return "unknown"
	}
	return ctx.State
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Option configures a container at construction time.
type Option[T any] func(*cowConfig[T])

type cowConfig[T any] struct {
	cloner        Cloner[T]
	equaler       Equaler[T]
	comparer      Comparer[T]
	placeholder   *T
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	logger        EvaluatorLogger
	invariants    []string
	activityHooks activity.Hooks
	checkpoints   snapshot.Store[T]
	cmpOptions    []gocmp.Option
	channel       string
}

func applyOptions[T any](opts []Option[T]) cowConfig[T] {
	cfg := cowConfig[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithCloner overrides the owned-equivalent conversion used by copy-on-write
// promotion and extraction.
func WithCloner[T any](cloner Cloner[T]) Option[T] {
	return func(cfg *cowConfig[T]) {
		cfg.cloner = cloner
	}
}

// WithEqualer overrides the delegated equality check.
func WithEqualer[T any](equaler Equaler[T]) Option[T] {
	return func(cfg *cowConfig[T]) {
		cfg.equaler = equaler
	}
}

// WithComparer supplies the ordering used by the Compare method.
func WithComparer[T any](comparer Comparer[T]) Option[T] {
	return func(cfg *cowConfig[T]) {
		cfg.comparer = comparer
	}
}

// WithPlaceholder registers the value exposed by Get while a mutation guard
// is open. Types whose zero value is a safe self-contained stand-in (strings,
// slices, maps) get one automatically; any other type needs this option for
// reads to be legal during a mutation window.
func WithPlaceholder[T any](v T) Option[T] {
	return func(cfg *cowConfig[T]) {
		cfg.placeholder = &v
	}
}

// WithEvaluator configures the expression engine used by Evaluate and
// invariant checks.
func WithEvaluator[T any](e Evaluator) Option[T] {
	return func(cfg *cowConfig[T]) {
		cfg.evaluator = e
	}
}

// WithDiffOptions passes go-cmp options through to the Diff method.
func WithDiffOptions[T any](opts ...gocmp.Option) Option[T] {
	return func(cfg *cowConfig[T]) {
		cfg.cmpOptions = append(cfg.cmpOptions, opts...)
	}
}

func (c *Cow[T]) evaluator() Evaluator {
	return c.cfg.evaluator
}

func (c *Cow[T]) withEvaluator(e Evaluator) {
	c.cfg.evaluator = e
}

func (c *Cow[T]) programCache() ProgramCache {
	return c.cfg.programCache
}

func (c *Cow[T]) functionRegistry() *FunctionRegistry {
	return c.cfg.functions
}

func (c *Cow[T]) evaluatorLogger() EvaluatorLogger {
	if c.cfg.logger != nil {
		return c.cfg.logger
	}
	return noopEvaluatorLogger{}
}
