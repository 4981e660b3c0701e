package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/app"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/policy"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

type runnerStub struct {
	chainFn    func(app.ChainRequest) (*app.Report, error)
	parallelFn func(app.ParallelRequest) (*app.Report, error)
	dagFn      func(app.DAGRequest) (*app.Report, error)
}

func (s *runnerStub) RunChain(_ context.Context, req app.ChainRequest) (*app.Report, error) {
	return s.chainFn(req)
}

func (s *runnerStub) RunParallel(_ context.Context, req app.ParallelRequest) (*app.Report, error) {
	return s.parallelFn(req)
}

func (s *runnerStub) RunDAG(_ context.Context, req app.DAGRequest) (*app.Report, error) {
	return s.dagFn(req)
}

func (s *runnerStub) Compile(def orchestrator.GraphDefinition) (*orchestrator.Plan, error) {
	return orchestrator.Compile(def)
}

func (s *runnerStub) Providers() []string { return []string{"mock", "openai"} }
func (s *runnerStub) Policies() []string  { return []string{"length"} }

func serve(t *testing.T, h *Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
		}
	}
	return rr, out
}

func TestHandler_Chain_OK(t *testing.T) {
	var got app.ChainRequest
	h := NewHandler(&runnerStub{chainFn: func(req app.ChainRequest) (*app.Report, error) {
		got = req
		return &app.Report{RunID: "r1", Mode: app.ModeChain, Success: true, FinalOutput: "done"}, nil
	}})

	rr, out := serve(t, h, http.MethodPost, "/v1/chain", `{"roles":["a","b"],"payload":"hi","provider":"mock","policies":["length"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(got.Roles) != 2 || got.Payload != "hi" || got.Provider != "mock" || got.Policies[0] != "length" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if out["run_id"] != "r1" || out["final_output"] != "done" {
		t.Fatalf("unexpected body: %#v", out)
	}
}

func TestHandler_InvalidJSON(t *testing.T) {
	h := NewHandler(&runnerStub{})

	rr, out := serve(t, h, http.MethodPost, "/v1/parallel", "{")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if out["error"] != "invalid json" {
		t.Fatalf("unexpected body: %#v", out)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := NewHandler(&runnerStub{})

	rr, _ := serve(t, h, http.MethodGet, "/v1/chain", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandler_StepFailureReturnsPartialTrace(t *testing.T) {
	trace := orchestrator.Trace{
		{Role: "a", Success: true},
		{Role: "b", Success: false, Error: "boom"},
	}
	h := NewHandler(&runnerStub{chainFn: func(req app.ChainRequest) (*app.Report, error) {
		err := &orchestrator.StepFailedError{Role: "b", Index: 1, Trace: trace, Err: errors.New("boom")}
		return &app.Report{Mode: app.ModeChain, Trace: trace, Error: err.Error()}, err
	}})

	rr, out := serve(t, h, http.MethodPost, "/v1/chain", `{"roles":["a","b","c"]}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rr.Code)
	}
	report, ok := out["report"].(map[string]any)
	if !ok {
		t.Fatalf("expected report in error body: %#v", out)
	}
	if steps, _ := report["trace"].([]any); len(steps) != 2 {
		t.Fatalf("expected partial trace of 2 steps, got %#v", report["trace"])
	}
}

func TestHandler_StrictViolationIs422(t *testing.T) {
	h := NewHandler(&runnerStub{parallelFn: func(req app.ParallelRequest) (*app.Report, error) {
		if !req.Strict || req.Options["max_length"] != float64(3) {
			t.Fatalf("options not forwarded: %+v", req)
		}
		return &app.Report{
			Mode:    app.ModeParallel,
			Strict:  true,
			Success: true,
			Policy:  &policy.Result{Violations: []policy.Violation{{Policy: "length", Role: "a"}}},
		}, nil
	}})

	rr, out := serve(t, h, http.MethodPost, "/v1/parallel", `{"roles":["a"],"strict":true,"options":{"max_length":3}}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
	if out["policy"] == nil {
		t.Fatalf("expected policy result in body: %#v", out)
	}
}

func TestHandler_DAG_AcceptsDOT(t *testing.T) {
	var got orchestrator.GraphDefinition
	h := NewHandler(&runnerStub{dagFn: func(req app.DAGRequest) (*app.Report, error) {
		got = req.Graph
		return &app.Report{Mode: app.ModeDAG, Success: true}, nil
	}})

	body, _ := json.Marshal(map[string]any{"graph_dot": `digraph g { a [role="x"]; b [role="y"]; a -> b }`})
	rr, _ := serve(t, h, http.MethodPost, "/v1/dag", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(got.Nodes) != 2 || len(got.Edges) != 1 {
		t.Fatalf("unexpected graph: %+v", got)
	}
}

func TestHandler_DAG_CycleIs400(t *testing.T) {
	h := NewHandler(&runnerStub{dagFn: func(req app.DAGRequest) (*app.Report, error) {
		_, err := orchestrator.Compile(req.Graph)
		return &app.Report{Mode: app.ModeDAG, Error: err.Error()}, err
	}})

	body := `{"graph":{"nodes":{"a":{"role":"x"},"b":{"role":"y"}},"edges":[{"from":"a","to":"b"},{"from":"b","to":"a"}]}}`
	rr, out := serve(t, h, http.MethodPost, "/v1/dag", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if !strings.Contains(out["details"].(string), "cycle") {
		t.Fatalf("unexpected details: %#v", out)
	}
}

func TestHandler_Run_DispatchesOnMode(t *testing.T) {
	called := false
	h := NewHandler(&runnerStub{parallelFn: func(req app.ParallelRequest) (*app.Report, error) {
		called = true
		return &app.Report{Mode: app.ModeParallel, Success: true}, nil
	}})

	rr, _ := serve(t, h, http.MethodPost, "/v1/run", `{"mode":"parallel","roles":["a"]}`)
	if rr.Code != http.StatusOK || !called {
		t.Fatalf("expected parallel dispatch, got %d", rr.Code)
	}

	rr, _ = serve(t, h, http.MethodPost, "/v1/run", `{"mode":"batch"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown mode, got %d", rr.Code)
	}
}

func TestHandler_UnknownProviderIs400(t *testing.T) {
	h := NewHandler(&runnerStub{chainFn: func(req app.ChainRequest) (*app.Report, error) {
		return nil, provider.ErrProviderNotFound
	}})

	rr, _ := serve(t, h, http.MethodPost, "/v1/chain", `{"roles":["a"],"provider":"nope"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestHandler_Graph(t *testing.T) {
	h := NewHandler(&runnerStub{})

	body := `{"graph":{"nodes":{"a":{"role":"x"},"b":{"role":"y"}},"edges":[{"from":"a","to":"b"}]}}`
	rr, out := serve(t, h, http.MethodPost, "/v1/graph", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.HasPrefix(out["mermaid"].(string), "graph TD") {
		t.Fatalf("unexpected mermaid: %#v", out["mermaid"])
	}
	if sinks := out["sinks"].([]any); len(sinks) != 1 || sinks[0] != "b" {
		t.Fatalf("unexpected sinks: %#v", out["sinks"])
	}

	rr, _ = serve(t, h, http.MethodPost, "/v1/graph", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without a graph, got %d", rr.Code)
	}
}

func TestHandler_Listings(t *testing.T) {
	h := NewHandler(&runnerStub{})

	rr, out := serve(t, h, http.MethodGet, "/v1/providers", "")
	if rr.Code != http.StatusOK || len(out["providers"].([]any)) != 2 {
		t.Fatalf("unexpected providers response: %d %#v", rr.Code, out)
	}
	rr, out = serve(t, h, http.MethodGet, "/v1/policies", "")
	if rr.Code != http.StatusOK || out["policies"].([]any)[0] != "length" {
		t.Fatalf("unexpected policies response: %d %#v", rr.Code, out)
	}
	rr, out = serve(t, h, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("unexpected health response: %d %#v", rr.Code, out)
	}
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_runs_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rr, _ := serve(t, NewHandler(&runnerStub{}, WithMetrics(reg)), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "test_runs_total 1") {
		t.Fatalf("unexpected metrics response: %d %s", rr.Code, rr.Body.String())
	}

	rr, _ = serve(t, NewHandler(&runnerStub{}), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("metrics should not be mounted without a gatherer, got %d", rr.Code)
	}
}
