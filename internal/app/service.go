package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/graphdef"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/logging"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/policy"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

type PlanCache interface {
	GetOrCompute(key string, fn func() (*orchestrator.Plan, error)) (*orchestrator.Plan, error)
}

type Service struct {
	engine          *orchestrator.Engine
	providers       *provider.Registry
	policies        *policy.Registry
	enforcer        *policy.Engine
	plans           PlanCache
	logger          *slog.Logger
	defaultProvider string
	defaults        provider.Options
	newID           func() string
}

type ServiceOption func(*Service)

func WithPlanCache(c PlanCache) ServiceOption {
	return func(s *Service) {
		s.plans = c
	}
}

func WithPolicyEngine(e *policy.Engine) ServiceOption {
	return func(s *Service) {
		s.enforcer = e
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithDefaultProvider(name string) ServiceOption {
	return func(s *Service) {
		s.defaultProvider = name
	}
}

// WithDefaultOptions sets options every run starts from. Request options
// override them key by key.
func WithDefaultOptions(opts provider.Options) ServiceOption {
	return func(s *Service) {
		s.defaults = opts
	}
}

func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		s.newID = fn
	}
}

func NewService(engine *orchestrator.Engine, providers *provider.Registry, policies *policy.Registry, opts ...ServiceOption) *Service {
	s := &Service{
		engine:          engine,
		providers:       providers,
		policies:        policies,
		defaultProvider: provider.MockName,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.enforcer == nil {
		s.enforcer = policy.NewEngine(policy.WithLogger(s.logger))
	}
	if s.policies == nil {
		s.policies = policy.NewRegistry()
	}
	return s
}

func (s *Service) RunChain(ctx context.Context, req ChainRequest) (*Report, error) {
	rep, policies, err := s.begin(ModeChain, req.RunOptions)
	if err != nil {
		return rep, err
	}
	start := time.Now()
	opts := s.defaults.Merge(req.Options)

	res, err := s.engine.RunChain(ctx, req.Roles, req.Payload, rep.Provider, opts)
	if err != nil {
		return s.fail(rep, err)
	}
	rep.Success = res.Success
	rep.FinalOutput = res.FinalOutput
	rep.Trace = res.Trace

	s.enforce(ctx, rep, policies, opts)
	s.finish(rep, start)
	return rep, nil
}

func (s *Service) RunParallel(ctx context.Context, req ParallelRequest) (*Report, error) {
	rep, policies, err := s.begin(ModeParallel, req.RunOptions)
	if err != nil {
		return rep, err
	}
	start := time.Now()
	opts := s.defaults.Merge(req.Options)

	res, err := s.engine.RunParallel(ctx, req.Roles, req.Payload, rep.Provider, opts)
	if err != nil {
		return s.fail(rep, err)
	}
	rep.Success = res.Success
	rep.Outputs = res.Outputs
	rep.Trace = res.Trace

	s.enforce(ctx, rep, policies, opts)
	s.finish(rep, start)
	return rep, nil
}

func (s *Service) RunDAG(ctx context.Context, req DAGRequest) (*Report, error) {
	rep, policies, err := s.begin(ModeDAG, req.RunOptions)
	if err != nil {
		return rep, err
	}
	start := time.Now()
	opts := s.defaults.Merge(req.Options)

	plan, err := s.compile(req.Graph)
	if err != nil {
		return s.fail(rep, err)
	}

	res, err := s.engine.Executable(plan).Execute(ctx, req.Payload, rep.Provider, opts)
	if err != nil {
		return s.fail(rep, err)
	}
	rep.Success = res.Success
	rep.Outputs = res.Outputs
	rep.Sinks = res.Sinks
	rep.Trace = res.Trace

	s.enforce(ctx, rep, policies, opts)
	s.finish(rep, start)
	return rep, nil
}

// Compile returns the plan for def, from the cache when one is configured.
func (s *Service) Compile(def orchestrator.GraphDefinition) (*orchestrator.Plan, error) {
	return s.compile(def)
}

func (s *Service) Providers() []string { return s.providers.Names() }

func (s *Service) Policies() []string { return s.policies.Names() }

// begin resolves policy names before anything runs so a typo fails fast.
func (s *Service) begin(mode Mode, opts RunOptions) (*Report, []policy.Policy, error) {
	rep := &Report{
		RunID:    s.newID(),
		Mode:     mode,
		Provider: opts.Provider,
		Strict:   opts.Strict,
		Trace:    orchestrator.Trace{},
	}
	if rep.Provider == "" {
		rep.Provider = s.defaultProvider
	}

	policies, err := s.policies.Select(opts.Policies)
	if err != nil {
		rep.Error = err.Error()
		return rep, nil, err
	}

	s.logger.Info("run started", "run_id", rep.RunID, "mode", mode, "provider", rep.Provider)
	return rep, policies, nil
}

func (s *Service) compile(def orchestrator.GraphDefinition) (*orchestrator.Plan, error) {
	if s.plans == nil {
		return orchestrator.Compile(def)
	}
	key, err := graphdef.Hash(def)
	if err != nil {
		return nil, err
	}
	return s.plans.GetOrCompute(key, func() (*orchestrator.Plan, error) {
		return orchestrator.Compile(def)
	})
}

func (s *Service) enforce(ctx context.Context, rep *Report, policies []policy.Policy, opts provider.Options) {
	if len(policies) == 0 {
		return
	}
	res, err := s.enforcer.Enforce(ctx, rep.Trace, policies, opts)
	if err != nil {
		rep.AuditError = err.Error()
		s.logger.Warn("audit failed", "run_id", rep.RunID, "error", err)
	}
	rep.Policy = &res
}

// fail keeps the partial trace of a step failure on the report.
func (s *Service) fail(rep *Report, err error) (*Report, error) {
	rep.Success = false
	rep.Error = err.Error()
	if trace, ok := orchestrator.PartialTrace(err); ok {
		rep.Trace = trace
	}
	s.logger.Warn("run failed", "run_id", rep.RunID, "mode", rep.Mode, "steps", len(rep.Trace), "error", err)
	return rep, err
}

func (s *Service) finish(rep *Report, start time.Time) {
	attrs := []any{
		"run_id", rep.RunID,
		"mode", rep.Mode,
		"success", rep.Success,
		"steps", len(rep.Trace),
		"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if rep.Policy != nil {
		attrs = append(attrs, "violations", len(rep.Policy.Violations))
	}
	s.logger.Info("run finished", attrs...)
}
