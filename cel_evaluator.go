package cow

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/goliatone/go-cow/internal/snapmap"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	ctx = ctx.withDefaults()
	target := targetAsMap(ctx.Target)
	program, err := e.loadOrCompile(expression, target)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(e.activation(ctx, target))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, target map[string]any) (*celProgram, error) {
	if target == nil {
		target = map[string]any{}
	}
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(target)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(target map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("state", celgo.StringType),
	}
	if e.registry != nil {
		// cel-go has no var-arg overloads; declare fixed arities that share
		// one binding so `call(name, args...)` type-checks.
		binding := e.callBinding()
		callOverloads := make([]celgo.FunctionOpt, 0, 5)
		argTypes := []*celgo.Type{celgo.StringType}
		for i := 0; i < 5; i++ {
			callOverloads = append(callOverloads, celgo.Overload(
				fmt.Sprintf("call_dyn_%d", i),
				append([]*celgo.Type{}, argTypes...),
				celgo.DynType,
				celgo.FunctionBinding(binding),
			))
			argTypes = append(argTypes, celgo.DynType)
		}
		opts = append(opts, celgo.Function("call", callOverloads...))
	}
	for key := range target {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx RuleContext, target map[string]any) map[string]any {
	activation := map[string]any{}
	for key, value := range target {
		activation[key] = value
	}
	activation["now"] = ctx.timestamp()
	activation["args"] = ctx.Args
	activation["metadata"] = ctx.Metadata
	activation["value"] = ctx.Target
	activation["state"] = ctx.stateLabel()
	if e.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, fmt.Errorf("cel compiled rule missing evaluator")
	}
	ctx = ctx.withDefaults()
	target := targetAsMap(ctx.Target)
	program, err := r.evaluator.loadOrCompile(r.expression, target)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(r.evaluator.activation(ctx, target))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

// targetAsMap flattens struct and map targets so expressions can reference
// fields directly; scalar targets are reachable only through `value`.
func targetAsMap(value any) map[string]any {
	if value == nil {
		return map[string]any{}
	}
	if m, ok := value.(map[string]any); ok {
		return m
	}
	if m, err := snapmap.ToMap(value); err == nil && m != nil {
		return m
	}
	return map[string]any{}
}

func (e *celEvaluator) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("cow: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("cow: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("cow: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr(err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
