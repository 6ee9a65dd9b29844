package gate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoEvaluator = errors.New("gate: evaluator not configured")
	// ErrNotBool is returned when a rule does not evaluate to a boolean.
	ErrNotBool = errors.New("gate: rule result is not a boolean")
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Rule   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	rule := e.Rule
	if rule == "" {
		rule = "<anonymous>"
	}
	return fmt.Sprintf("gate: %s evaluator %s rule=%s: %v", e.Engine, describeExpression(e.Expr), rule, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "gate:") {
		return err
	}
	return fmt.Errorf("gate: %s evaluator: %w", engine, err)
}

// wrapEvaluationError attaches metadata, filling only the blanks of an
// existing EvaluationError.
func wrapEvaluationError(engine, expr, rule string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Rule == "" {
			evalErr.Rule = rule
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Rule:   rule,
		Err:    err,
	}
}
