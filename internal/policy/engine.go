// Package policy gates a finished trace through named predicates and the
// audit hook.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/logging"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

// ErrAuditFailed wraps a failing audit hook. The policy result is still
// complete when it is returned.
var ErrAuditFailed = errors.New("audit failed")

type Engine struct {
	observer ViolationObserver
	logger   *slog.Logger
}

type EngineOption func(*Engine)

func WithViolationObserver(observer ViolationObserver) EngineOption {
	return func(e *Engine) {
		e.observer = observer
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	return e
}

// Enforce runs policies in order. Predicates see every successful step and
// never stop early; an audit policy runs exactly once. Failed steps carry no
// data and are not checked.
func (e *Engine) Enforce(ctx context.Context, trace orchestrator.Trace, policies []Policy, opts provider.Options) (Result, error) {
	res := Result{Policies: make([]string, 0, len(policies))}
	for _, p := range policies {
		res.Policies = append(res.Policies, p.Name)
	}

	var auditErr error
	for _, p := range policies {
		if p.Audit != nil {
			if err := p.Audit(ctx, trace, res.Policies); err != nil {
				e.logger.Error("audit policy failed", "policy", p.Name, "error", err)
				auditErr = errors.Join(auditErr, fmt.Errorf("%w: %s: %v", ErrAuditFailed, p.Name, err))
			}
			continue
		}
		if p.Check == nil {
			continue
		}

		for i, step := range trace {
			if !step.Success || step.Result == nil {
				continue
			}

			ok, err := p.Check(step.Result.Data, step.Role, opts)
			if ok && err == nil {
				continue
			}

			v := Violation{
				Policy: p.Name,
				Role:   step.Role,
				NodeID: step.NodeID,
				Step:   i,
				Data:   step.Result.Data,
			}
			if err != nil {
				v.Error = err.Error()
			}
			res.Violations = append(res.Violations, v)
			e.observeViolation(v)
		}
	}

	res.Success = len(res.Violations) == 0
	e.logger.Info("policies enforced",
		"policies", len(policies),
		"steps", len(trace),
		"violations", len(res.Violations),
	)
	return res, auditErr
}

func (e *Engine) observeViolation(v Violation) {
	e.logger.Warn("policy violation", "policy", v.Policy, "role", v.Role, "step", v.Step)
	if e.observer == nil {
		return
	}
	e.observer.ObserveViolation(v.Policy)
}

// Enforce runs policies with a default engine.
func Enforce(ctx context.Context, trace orchestrator.Trace, policies []Policy, opts provider.Options) (Result, error) {
	return NewEngine().Enforce(ctx, trace, policies, opts)
}
