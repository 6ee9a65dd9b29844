// Package gate decides whether the onboarding wizard may leave a step.
//
// A Gate holds, per step index, the fields that must be filled in and a list
// of boolean rule expressions evaluated against the draft's fields. The draft
// store itself never validates; callers consult the gate before advancing.
package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-wedding-state/pkg/draft"
)

// Rule is a boolean expression that must hold for a step to pass.
type Rule struct {
	Name    string
	Expr    string
	Message string
}

// Step lists the checks for one wizard step.
type Step struct {
	Required []string
	Rules    []Rule
}

// Violation is one failed check. Field is set for missing required fields,
// Rule for failed expressions.
type Violation struct {
	Field   string
	Rule    string
	Message string
}

// Result is the outcome of checking one step.
type Result struct {
	Step       int
	Violations []Violation
}

// OK reports whether the step passed every check.
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Fields returns the names of missing required fields.
func (r Result) Fields() []string {
	var out []string
	for _, v := range r.Violations {
		if v.Field != "" {
			out = append(out, v.Field)
		}
	}
	return out
}

// Option configures a Gate.
type Option func(*Gate)

// WithEvaluator sets the rule engine. The expr engine is used when none is
// given.
func WithEvaluator(evaluator Evaluator) Option {
	return func(g *Gate) {
		g.evaluator = evaluator
	}
}

// WithProgramCache is applied to the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(g *Gate) {
		g.cache = cache
	}
}

// WithFunctionRegistry is applied to the default evaluator on top of the
// field helpers from NewFieldFunctions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(g *Gate) {
		g.registry = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default evaluator.
// A duplicate or invalid registration makes New fail.
func WithCustomFunction(name string, fn Function) Option {
	return func(g *Gate) {
		if g.registry == nil {
			g.registry = NewFunctionRegistry()
		}
		if err := g.registry.Register(name, fn); err != nil && g.optErr == nil {
			g.optErr = err
		}
	}
}

// WithEvaluatorLogger records every rule evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(g *Gate) {
		if logger == nil {
			g.logger = noopEvaluatorLogger{}
			return
		}
		g.logger = logger
	}
}

// WithStep configures the checks for step index.
func WithStep(index int, step Step) Option {
	return func(g *Gate) {
		g.steps[index] = step
	}
}

// WithClock overrides the time bound to "now" in rule expressions.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

type compiledRule struct {
	rule     Rule
	compiled CompiledRule
}

// Gate validates wizard steps.
type Gate struct {
	evaluator Evaluator
	cache     ProgramCache
	registry  *FunctionRegistry
	logger    EvaluatorLogger
	now       func() time.Time
	steps     map[int]Step
	rules     map[int][]compiledRule
	optErr    error
}

// New builds a gate and compiles every rule up front so malformed
// expressions fail here rather than mid-wizard.
func New(opts ...Option) (*Gate, error) {
	g := &Gate{
		logger: noopEvaluatorLogger{},
		now:    time.Now,
		steps:  map[int]Step{},
		rules:  map[int][]compiledRule{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.optErr != nil {
		return nil, g.optErr
	}
	for index, step := range g.steps {
		if len(step.Rules) == 0 {
			continue
		}
		evaluator, err := g.resolveEvaluator()
		if err != nil {
			return nil, err
		}
		for _, rule := range step.Rules {
			compiled, err := evaluator.Compile(rule.Expr)
			if err != nil {
				return nil, fmt.Errorf("gate: step %d: %w", index, wrapEvaluationError(engineName(evaluator), rule.Expr, rule.Name, err))
			}
			g.rules[index] = append(g.rules[index], compiledRule{rule: rule, compiled: compiled})
		}
	}
	return g, nil
}

func (g *Gate) resolveEvaluator() (Evaluator, error) {
	if g.evaluator != nil {
		return g.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if g.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(g.cache))
	}
	if g.registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(g.registry))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	g.evaluator = evaluator
	return evaluator, nil
}

// Check runs the checks configured for step against fields. Steps with no
// configuration always pass. The error is reserved for rules that cannot be
// evaluated; failed checks are reported as violations.
func (g *Gate) Check(step int, fields map[string]string) (Result, error) {
	result := Result{Step: step}
	config, ok := g.steps[step]
	if !ok {
		return result, nil
	}

	for _, name := range config.Required {
		if strings.TrimSpace(fields[name]) == "" {
			result.Violations = append(result.Violations, Violation{
				Field:   name,
				Message: fmt.Sprintf("%s is required", name),
			})
		}
	}

	now := g.now()
	ctx := RuleContext{Fields: fields, Step: step, Now: &now}
	engine := engineName(g.evaluator)
	for _, cr := range g.rules[step] {
		start := time.Now()
		value, err := cr.compiled.Evaluate(ctx)
		if err == nil {
			if _, isBool := value.(bool); !isBool {
				err = fmt.Errorf("%w: got %T", ErrNotBool, value)
			}
		}
		err = wrapEvaluationError(engine, cr.rule.Expr, cr.rule.Name, err)
		g.logger.LogEvaluation(EvaluatorLogEvent{
			Engine:   engine,
			Expr:     cr.rule.Expr,
			Rule:     cr.rule.Name,
			Step:     step,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			return result, err
		}
		if !value.(bool) {
			message := cr.rule.Message
			if message == "" {
				message = fmt.Sprintf("rule %q failed", cr.rule.Name)
			}
			result.Violations = append(result.Violations, Violation{Rule: cr.rule.Name, Message: message})
		}
	}
	return result, nil
}

// Advance checks the draft's current step and moves it forward only when the
// step passes.
func (g *Gate) Advance(ctx context.Context, d *draft.Store) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	snapshot := d.Get()
	result, err := g.Check(snapshot.CurrentStep, snapshot.StepData)
	if err != nil || !result.OK() {
		return result, err
	}
	d.NextStep()
	return result, nil
}

type namedEngine interface {
	engine() string
}

func engineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(namedEngine); ok {
		return named.engine()
	}
	return "custom"
}
