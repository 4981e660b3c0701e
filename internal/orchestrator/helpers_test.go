package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

const testProvider = "fake"

// fakeProvider returns {"role": role, "prompt": prompt} and fails for the
// roles listed in fail. It remembers every call in order.
type fakeProvider struct {
	fail map[string]string

	mu    sync.Mutex
	calls []fakeCall
}

type fakeCall struct {
	role   string
	prompt string
}

func (f *fakeProvider) Name() string { return testProvider }

func (f *fakeProvider) Call(_ context.Context, prompt, role string, _ provider.Options) (provider.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{role: role, prompt: prompt})
	f.mu.Unlock()

	if msg, ok := f.fail[role]; ok {
		return provider.Response{}, errors.New(msg)
	}
	return provider.Response{
		Data:     map[string]any{"role": role, "prompt": prompt},
		Metadata: provider.Metadata{Provider: testProvider, Latency: 1},
	}, nil
}

func (f *fakeProvider) called() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func newTestEngine(p provider.Provider, opts ...EngineOption) *Engine {
	reg := provider.NewRegistry()
	reg.Register(testProvider, p)
	return NewEngine(reg, opts...)
}

type spyObserver struct {
	mu   sync.Mutex
	recs []StepRecord
}

func (s *spyObserver) ObserveStep(rec StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
}

func (s *spyObserver) records() []StepRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StepRecord(nil), s.recs...)
}

func nodes(pairs ...string) []NodeSpec {
	out := make([]NodeSpec, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, NodeSpec{ID: pairs[i], Role: pairs[i+1]})
	}
	return out
}

func diamond() GraphDefinition {
	return GraphDefinition{
		Nodes: nodes("n1", "plan", "n2", "draft", "n3", "critique", "n4", "merge"),
		Edges: []Edge{
			{From: "n1", To: "n2"},
			{From: "n1", To: "n3"},
			{From: "n2", To: "n4"},
			{From: "n3", To: "n4"},
		},
	}
}
