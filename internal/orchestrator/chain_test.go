package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

func TestRunChain_FeedsOutputForward(t *testing.T) {
	fp := &fakeProvider{}
	e := newTestEngine(fp)

	res, err := e.RunChain(context.Background(), []string{"a", "b", "c"}, map[string]any{"q": "hi"}, testProvider, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("expected success")
	}
	if got := res.Trace.Roles(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected trace roles: %v", got)
	}

	calls := fp.called()
	if calls[0].prompt != `{"q":"hi"}` {
		t.Fatalf("first step should get the initial payload, got %s", calls[0].prompt)
	}
	prev, _ := json.Marshal(res.Trace[0].Result.Data)
	if calls[1].prompt != string(prev) {
		t.Fatalf("second step should get the first output\nwant %s\ngot  %s", prev, calls[1].prompt)
	}

	if !reflect.DeepEqual(res.FinalOutput, res.Trace[2].Result.Data) {
		t.Fatalf("final output must equal last step data")
	}
}

func TestRunChain_AbortsOnFirstFailure(t *testing.T) {
	fp := &fakeProvider{fail: map[string]string{"b": "boom"}}
	e := newTestEngine(fp)

	res, err := e.RunChain(context.Background(), []string{"a", "b", "c"}, "x", testProvider, nil)
	if res != nil {
		t.Fatalf("expected no result on abort")
	}
	if !errors.Is(err, ErrStepFailed) {
		t.Fatalf("expected ErrStepFailed, got %v", err)
	}

	var sf *StepFailedError
	if !errors.As(err, &sf) {
		t.Fatalf("expected *StepFailedError, got %T", err)
	}
	if sf.Role != "b" || sf.Index != 1 {
		t.Fatalf("unexpected failing step: role=%q index=%d", sf.Role, sf.Index)
	}
	if len(sf.Trace) != 2 {
		t.Fatalf("expected partial trace of 2, got %d", len(sf.Trace))
	}
	if sf.Trace[1].Success || sf.Trace[1].Error != "boom" || sf.Trace[1].Result != nil {
		t.Fatalf("unexpected failing record: %+v", sf.Trace[1])
	}
	if sf.Err == nil || sf.Err.Error() != "boom" {
		t.Fatalf("underlying error not kept: %v", sf.Err)
	}
	if n := len(fp.called()); n != 2 {
		t.Fatalf("role c must not run, got %d calls", n)
	}

	trace, ok := PartialTrace(err)
	if !ok || len(trace) != 2 {
		t.Fatalf("PartialTrace should recover the trace")
	}
}

func TestRunChain_NoRoles(t *testing.T) {
	e := newTestEngine(&fakeProvider{})
	if _, err := e.RunChain(context.Background(), nil, nil, testProvider, nil); !errors.Is(err, ErrNoRoles) {
		t.Fatalf("expected ErrNoRoles, got %v", err)
	}
}

func TestRunChain_UnknownProviderRunsNothing(t *testing.T) {
	fp := &fakeProvider{}
	obs := &spyObserver{}
	e := newTestEngine(fp, WithStepObserver(obs))

	_, err := e.RunChain(context.Background(), []string{"a"}, nil, "nope", nil)
	if !errors.Is(err, provider.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
	if len(fp.called()) != 0 || len(obs.records()) != 0 {
		t.Fatalf("no step may run before the provider resolves")
	}
}

func TestExecuteStep_RecordsFailureWithoutError(t *testing.T) {
	e := newTestEngine(&fakeProvider{fail: map[string]string{"r": "down"}})
	p := &fakeProvider{fail: map[string]string{"r": "down"}}

	rec := e.ExecuteStep(context.Background(), p, "r", 1, nil)
	if rec.Success || rec.Error != "down" || rec.Result != nil {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Timestamp.IsZero() {
		t.Fatalf("timestamp must be set")
	}
}

func TestExecuteStep_UnserializablePayload(t *testing.T) {
	fp := &fakeProvider{}
	e := newTestEngine(fp)

	rec := e.ExecuteStep(context.Background(), fp, "r", make(chan int), nil)
	if rec.Success || rec.Error == "" {
		t.Fatalf("expected failure record, got %+v", rec)
	}
	if len(fp.called()) != 0 {
		t.Fatalf("provider must not be called")
	}
}
