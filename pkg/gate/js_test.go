//go:build js_eval

package gate

import "testing"

func TestJSEvaluatorFields(t *testing.T) {
	eval := NewJSEvaluator()
	ctx := RuleContext{Fields: map[string]string{"venue": "Old Mill"}, Step: 3}

	got, err := eval.Evaluate(ctx, `venue.length > 3 && fields.venue === venue && step === 3`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %v", got)
	}
}

func TestJSEngineAvailable(t *testing.T) {
	if !JSAvailable() {
		t.Fatalf("expected js engine with js_eval tag")
	}
	if _, err := NewEvaluator(EngineJS, nil, nil); err != nil {
		t.Fatalf("new js evaluator: %v", err)
	}
}

func TestJSEvaluatorBindsFieldFunctions(t *testing.T) {
	eval := NewJSEvaluator()
	ctx := RuleContext{Fields: map[string]string{"venue": "Old Mill"}}

	got, err := eval.Evaluate(ctx, `filled(venue) && minLength(venue, 3) && !isDate(venue)`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %v", got)
	}
}
