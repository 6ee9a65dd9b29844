package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-wedding-state/pkg/draft"
	"github.com/goliatone/go-wedding-state/pkg/gate"
)

func couplesStep() gate.Step {
	return gate.Step{
		Required: []string{"partner1", "partner2"},
		Rules: []gate.Rule{{
			Name:    "distinct-names",
			Expr:    `partner1 != partner2`,
			Message: "partners must have different names",
		}},
	}
}

func TestCheckReportsMissingFields(t *testing.T) {
	g, err := gate.New(gate.WithStep(0, couplesStep()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	result, err := g.Check(0, map[string]string{"partner1": "Ada", "partner2": "  "})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.OK() {
		t.Fatalf("expected violations")
	}
	if fields := result.Fields(); len(fields) != 1 || fields[0] != "partner2" {
		t.Fatalf("unexpected missing fields %v", fields)
	}
}

func TestCheckReportsFailedRules(t *testing.T) {
	g, _ := gate.New(gate.WithStep(0, couplesStep()))
	result, err := g.Check(0, map[string]string{"partner1": "Sam", "partner2": "Sam"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(result.Violations) != 1 || result.Violations[0].Rule != "distinct-names" {
		t.Fatalf("unexpected violations %+v", result.Violations)
	}
	if result.Violations[0].Message != "partners must have different names" {
		t.Fatalf("unexpected message %q", result.Violations[0].Message)
	}
}

func TestUnconfiguredStepPasses(t *testing.T) {
	g, _ := gate.New()
	result, err := g.Check(7, nil)
	if err != nil || !result.OK() {
		t.Fatalf("expected pass, got %+v, %v", result, err)
	}
}

func TestNewRejectsMalformedRules(t *testing.T) {
	_, err := gate.New(gate.WithStep(1, gate.Step{Rules: []gate.Rule{{Name: "broken", Expr: "venue =="}}}))
	var evalErr *gate.EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Rule != "broken" {
		t.Fatalf("expected EvaluationError for broken rule, got %v", err)
	}
}

func TestNonBooleanRuleIsAnError(t *testing.T) {
	g, err := gate.New(gate.WithStep(0, gate.Step{Rules: []gate.Rule{{Name: "venue", Expr: "venue"}}}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = g.Check(0, map[string]string{"venue": "Old Mill"})
	if !errors.Is(err, gate.ErrNotBool) {
		t.Fatalf("expected ErrNotBool, got %v", err)
	}
}

func TestAdvanceMovesDraftOnlyWhenStepPasses(t *testing.T) {
	var events []gate.EvaluatorLogEvent
	g, err := gate.New(
		gate.WithStep(0, couplesStep()),
		gate.WithEvaluatorLogger(gate.EvaluatorLoggerFunc(func(e gate.EvaluatorLogEvent) {
			events = append(events, e)
		})),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	d, _ := draft.New()
	ctx := context.Background()

	d.UpdateDraft(map[string]string{"partner1": "Ada"})
	result, err := g.Advance(ctx, d)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.OK() || d.Step() != 0 {
		t.Fatalf("expected blocked advance, step %d", d.Step())
	}

	d.UpdateDraft(map[string]string{"partner2": "Grace"})
	result, err = g.Advance(ctx, d)
	if err != nil || !result.OK() {
		t.Fatalf("expected pass, got %+v, %v", result, err)
	}
	if d.Step() != 1 {
		t.Fatalf("expected step 1, got %d", d.Step())
	}
	if len(events) != 2 || events[0].Engine != "expr" || events[1].Rule != "distinct-names" {
		t.Fatalf("unexpected log events %+v", events)
	}
}

func TestAdvanceHonoursCancelledContext(t *testing.T) {
	g, _ := gate.New()
	d, _ := draft.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Advance(ctx, d); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if d.Step() != 0 {
		t.Fatalf("draft advanced despite cancellation")
	}
}

func TestCELGate(t *testing.T) {
	evaluator, err := gate.NewEvaluator(gate.EngineCEL, gate.NewMemoryCache(), nil)
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	g, err := gate.New(
		gate.WithEvaluator(evaluator),
		gate.WithStep(1, gate.Step{Rules: []gate.Rule{{Name: "venue", Expr: `has(fields.venue) && size(fields.venue) > 0`}}}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	result, err := g.Check(1, map[string]string{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.OK() {
		t.Fatalf("expected venue rule to fail")
	}
}

func TestNewEvaluatorRejectsUnknownEngine(t *testing.T) {
	if _, err := gate.NewEvaluator("lua", nil, nil); !errors.Is(err, gate.ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
	if !gate.JSAvailable() {
		if _, err := gate.NewEvaluator(gate.EngineJS, nil, nil); !errors.Is(err, gate.ErrNoEvaluator) {
			t.Fatalf("expected ErrNoEvaluator without js_eval, got %v", err)
		}
	}
}

func TestFieldHelpersInStepRules(t *testing.T) {
	now := time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)
	g, err := gate.New(
		gate.WithClock(func() time.Time { return now }),
		gate.WithStep(1, gate.Step{Rules: []gate.Rule{
			{Name: "date-format", Expr: `isDate(wedding_date)`, Message: "use YYYY-MM-DD"},
			{Name: "date-ahead", Expr: `isDate(wedding_date) && daysUntil(wedding_date, now) > 0`, Message: "pick a future date"},
		}}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result, err := g.Check(1, map[string]string{"wedding_date": "2026-06-01"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(result.Violations) != 1 || result.Violations[0].Rule != "date-ahead" {
		t.Fatalf("expected only date-ahead to fail, got %+v", result.Violations)
	}

	result, err = g.Check(1, map[string]string{"wedding_date": "2026-09-12"})
	if err != nil || !result.OK() {
		t.Fatalf("expected future date to pass, got %+v %v", result, err)
	}
}

func TestWithCustomFunctionRejectsDuplicates(t *testing.T) {
	fn := func(...any) (any, error) { return true, nil }
	_, err := gate.New(
		gate.WithCustomFunction("booked", fn),
		gate.WithCustomFunction("Booked", fn),
	)
	if err == nil {
		t.Fatalf("expected duplicate custom function to fail New")
	}
}
