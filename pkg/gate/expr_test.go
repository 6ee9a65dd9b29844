package gate

import (
	"errors"
	"strings"
	"testing"
)

func TestExprEvaluatorBindsFields(t *testing.T) {
	eval := NewExprEvaluator()
	ctx := RuleContext{Fields: map[string]string{"venue": "Old Mill"}, Step: 2}

	cases := map[string]any{
		`venue == "Old Mill"`:        true,
		`fields.venue == "Old Mill"`: true,
		`step == 2`:                  true,
		`missing == nil`:             true,
		`len(venue)`:                 8,
	}
	for expression, want := range cases {
		got, err := eval.Evaluate(ctx, expression)
		if err != nil {
			t.Fatalf("%s: %v", expression, err)
		}
		if got != want {
			t.Fatalf("%s: expected %v, got %v", expression, want, got)
		}
	}
}

func TestExprEvaluatorUsesProgramCache(t *testing.T) {
	cache := NewMemoryCache()
	eval := NewExprEvaluator(ExprWithProgramCache(cache))

	for i := 0; i < 3; i++ {
		if _, err := eval.Evaluate(RuleContext{}, `step == 0`); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	if keys := cache.Keys(); len(keys) != 1 || keys[0] != `step == 0` {
		t.Fatalf("expected one cached program, got %v", keys)
	}
}

func TestExprEvaluatorCallsRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("initials", func(args ...any) (any, error) {
		var b strings.Builder
		for _, arg := range args {
			s, _ := arg.(string)
			if s != "" {
				b.WriteByte(s[0])
			}
		}
		return b.String(), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	eval := NewExprEvaluator(ExprWithFunctionRegistry(registry))
	ctx := RuleContext{Fields: map[string]string{"partner1": "Ada", "partner2": "Grace"}}

	got, err := eval.Evaluate(ctx, `initials(partner1, partner2)`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "AG" {
		t.Fatalf("expected AG, got %v", got)
	}
}

func TestExprEvaluatorReportsCompileErrors(t *testing.T) {
	eval := NewExprEvaluator()
	_, err := eval.Compile(`venue ==`)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != "expr" {
		t.Fatalf("expected expr EvaluationError, got %v", err)
	}
}

func TestFunctionRegistryRejectsDuplicates(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(...any) (any, error) { return nil, nil }
	if err := registry.Register("Upper", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("upper", fn); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected error for unknown function")
	}
}
