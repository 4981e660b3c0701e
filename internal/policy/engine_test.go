package policy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

type spyRecorder struct {
	mu      sync.Mutex
	calls   int
	applied []string
	steps   int
	err     error
}

func (s *spyRecorder) Record(_ context.Context, trace orchestrator.Trace, policies []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.applied = policies
	s.steps = len(trace)
	return s.err
}

type spyViolations struct {
	names []string
}

func (s *spyViolations) ObserveViolation(policy string) {
	s.names = append(s.names, policy)
}

func step(role string, data any) orchestrator.StepRecord {
	return orchestrator.StepRecord{
		Role:    role,
		Success: true,
		Result:  &orchestrator.StepResult{Data: data},
	}
}

func TestEnforce_ReportsEveryViolation(t *testing.T) {
	trace := orchestrator.Trace{
		step("a", strings.Repeat("x", 50)),
		step("b", "ok"),
		step("c", strings.Repeat("y", 80)),
	}
	spy := &spyViolations{}
	e := NewEngine(WithViolationObserver(spy))

	res, err := e.Enforce(context.Background(), trace, []Policy{Length()}, provider.Options{"max_length": 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatalf("expected failure")
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(res.Violations))
	}
	if res.Violations[0].Role != "a" || res.Violations[1].Role != "c" || res.Violations[1].Step != 2 {
		t.Fatalf("unexpected violations: %+v", res.Violations)
	}
	if len(spy.names) != 2 || spy.names[0] != LengthName {
		t.Fatalf("observer should see both violations, got %v", spy.names)
	}
}

func TestEnforce_AuditRunsOnce(t *testing.T) {
	rec := &spyRecorder{}
	trace := orchestrator.Trace{step("a", "1"), step("b", "2"), step("c", "3"), step("d", "4")}
	policies := []Policy{Length(), Audit(rec), NonEmpty()}

	res, err := Enforce(context.Background(), trace, policies, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res.Violations)
	}
	if rec.calls != 1 {
		t.Fatalf("audit must run once, ran %d times", rec.calls)
	}
	if rec.steps != 4 {
		t.Fatalf("audit should receive the whole trace, got %d steps", rec.steps)
	}
	want := []string{LengthName, AuditName, NonEmptyName}
	if strings.Join(rec.applied, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected applied policies: %v", rec.applied)
	}
	if strings.Join(res.Policies, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected result policies: %v", res.Policies)
	}
}

func TestEnforce_AuditFailureKeepsResult(t *testing.T) {
	rec := &spyRecorder{err: errors.New("disk full")}
	trace := orchestrator.Trace{step("a", "")}

	res, err := Enforce(context.Background(), trace, []Policy{NonEmpty(), Audit(rec)}, nil)
	if !errors.Is(err, ErrAuditFailed) {
		t.Fatalf("expected ErrAuditFailed, got %v", err)
	}
	if res.Success || len(res.Violations) != 1 {
		t.Fatalf("result must still be complete: %+v", res)
	}
}

func TestEnforce_SkipsFailedSteps(t *testing.T) {
	trace := orchestrator.Trace{
		{Role: "broken", Error: "boom"},
		step("fine", "text"),
	}
	res, err := Enforce(context.Background(), trace, []Policy{NonEmpty()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("failed steps carry no data and must not be checked: %+v", res.Violations)
	}
}

func TestEnforce_CheckErrorIsViolation(t *testing.T) {
	failing := Policy{
		Name: "explodes",
		Check: func(any, string, provider.Options) (bool, error) {
			return true, errors.New("cannot evaluate")
		},
	}
	res, err := Enforce(context.Background(), orchestrator.Trace{step("a", 1)}, []Policy{failing}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Error != "cannot evaluate" {
		t.Fatalf("unexpected violations: %+v", res.Violations)
	}
}

func TestEnforce_NoPolicies(t *testing.T) {
	res, err := Enforce(context.Background(), orchestrator.Trace{step("a", 1)}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || len(res.Policies) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}
