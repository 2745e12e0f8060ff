package cow

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("cow: evaluator not configured")

// Evaluate executes expr against the dereferenced target using the
// configured evaluator and wraps the result. The target is bound to the
// `value` variable; struct targets additionally expose their JSON fields as
// top-level variables.
func (c *Cow[T]) Evaluate(expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("expression must not be empty")
	}
	return c.evaluateContext(RuleContext{Target: *c.Get(), State: c.state.String()}, expr)
}

// EvaluateWith executes expr using ctx, falling back to the dereferenced
// target when ctx.Target is nil.
func (c *Cow[T]) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("expression must not be empty")
	}
	if ctx.Target == nil {
		ctx.Target = *c.Get()
	}
	if ctx.State == "" {
		ctx.State = c.state.String()
	}
	return c.evaluateContext(ctx, expr)
}

// evaluateTarget runs expr against an explicit value, bypassing Get. The
// invariant checker uses it while a guard is still open.
func (c *Cow[T]) evaluateTarget(value any, expr string) (any, error) {
	resp, err := c.evaluateContext(RuleContext{Target: value, State: c.state.String()}, expr)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (c *Cow[T]) evaluateContext(ctx RuleContext, expr string) (Response[any], error) {
	evaluator, err := c.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.stateLabel(), evalErr)
	c.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		State:    ctx.stateLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

func (c *Cow[T]) resolveEvaluator() (Evaluator, error) {
	evaluator := c.evaluator()
	if evaluator != nil {
		return evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := c.programCache(); cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := c.functionRegistry(); registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	c.withEvaluator(defaultEvaluator)
	return defaultEvaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*cow.exprEvaluator":
		return "expr"
	case "*cow.celEvaluator":
		return "cel"
	case "*cow.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
