package cow

import (
	"errors"
	"fmt"
)

// ErrInvariantViolated reports a registered invariant that evaluated to
// false over the mutated value.
var ErrInvariantViolated = errors.New("cow: invariant violated")

// InvariantError carries the offending expression and the raw evaluation
// result alongside ErrInvariantViolated.
type InvariantError struct {
	Expr   string
	Result any
	Err    error
}

func (e *InvariantError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("cow: invariant expr=%q: %v", e.Expr, e.Err)
	}
	return fmt.Sprintf("cow: invariant expr=%q violated (result=%v)", e.Expr, e.Result)
}

func (e *InvariantError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Err != nil {
		return e.Err
	}
	return ErrInvariantViolated
}

// WithInvariant registers rule expressions checked by Guard.Commit and
// Mutate after every mutation. Each expression must evaluate to a boolean;
// false fails the commit with an InvariantError.
func WithInvariant[T any](exprs ...string) Option[T] {
	return func(cfg *cowConfig[T]) {
		for _, expr := range exprs {
			if expr == "" {
				continue
			}
			cfg.invariants = append(cfg.invariants, expr)
		}
	}
}

// checkMutation validates the owned value while the guard is still open, so
// it reads the value directly rather than through Get.
func (c *Cow[T]) checkMutation() error {
	var errs []error
	if err := validateValue(c.owned); err != nil {
		errs = append(errs, err)
	}
	for _, expr := range c.cfg.invariants {
		result, err := c.evaluateTarget(c.owned, expr)
		if err != nil {
			errs = append(errs, &InvariantError{Expr: expr, Err: err})
			continue
		}
		ok, isBool := result.(bool)
		if !isBool {
			errs = append(errs, &InvariantError{
				Expr:   expr,
				Result: result,
				Err:    fmt.Errorf("expression result %T is not a boolean", result),
			})
			continue
		}
		if !ok {
			errs = append(errs, &InvariantError{Expr: expr, Result: result})
		}
	}
	return errors.Join(errs...)
}
