package app

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/audit"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/cache"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/config"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/metrics"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/policy"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

// Runtime is a fully wired service plus what its host needs to expose
// metrics and shut down cleanly.
type Runtime struct {
	Service  *Service
	Metrics  *prometheus.Registry
	Observer *orchestrator.AsyncStepObserver
}

// Close flushes buffered step observations.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	r.Observer.Close()
}

// Bootstrap builds every collaborator from cfg: the mock provider (and the
// OpenAI provider when a key is set), builtin and file policies, the audit
// log, the plan cache and the metrics registry.
func Bootstrap(cfg config.Runtime, logger *slog.Logger) (*Runtime, error) {
	providers := provider.NewRegistry()
	providers.Register(provider.MockName, provider.NewMock(provider.WithDelay(cfg.MockDelay)))
	if cfg.OpenAIAPIKey != "" {
		oa, err := provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		providers.Register(provider.OpenAIName, oa)
	}

	defaults, err := provider.ParseOptions([]string{cfg.DefaultOptions})
	if err != nil {
		return nil, fmt.Errorf("default options: %w", err)
	}

	policies := policy.Builtins(audit.New(cfg.AuditLogPath))
	if cfg.PolicyFile != "" {
		if err := policies.LoadFile(cfg.PolicyFile); err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	observer := orchestrator.NewAsyncStepObserver(
		orchestrator.MultiObserver{orchestrator.NewStepLogger(logger), recorder},
		cfg.ObsBuffer,
	)

	engine := orchestrator.NewEngine(providers,
		orchestrator.WithLogger(logger),
		orchestrator.WithStepObserver(observer),
	)

	svc := NewService(engine, providers, policies,
		WithLogger(logger),
		WithDefaultProvider(cfg.DefaultProvider),
		WithDefaultOptions(defaults),
		WithPlanCache(cache.NewInMemory[*orchestrator.Plan](cfg.PlanCacheMaxItems)),
		WithPolicyEngine(policy.NewEngine(
			policy.WithLogger(logger),
			policy.WithViolationObserver(recorder),
		)),
	)

	return &Runtime{Service: svc, Metrics: reg, Observer: observer}, nil
}
