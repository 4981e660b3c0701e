package orchestrator

import (
	"context"
	"time"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

// RunChain feeds each role the previous role's output, starting from payload.
// The first failing role aborts the run with a *StepFailedError carrying the
// trace so far. Each role is attempted exactly once.
func (e *Engine) RunChain(ctx context.Context, roles []string, payload any, providerName string, opts provider.Options) (*ChainResult, error) {
	if len(roles) == 0 {
		return nil, ErrNoRoles
	}
	p, err := e.resolve(providerName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	e.logger.Info("chain run started", "roles", len(roles), "provider", providerName)

	trace := make(Trace, 0, len(roles))
	current := payload

	for i, role := range roles {
		rec, stepErr := e.executeStep(ctx, p, role, "", current, opts)
		trace = append(trace, rec)

		if !rec.Success {
			e.logger.Warn("chain run aborted", "role", role, "step", i, "error", rec.Error)
			return nil, &StepFailedError{Role: role, Index: i, Trace: trace, Err: stepErr}
		}
		current = rec.Result.Data
	}

	e.logger.Info("chain run finished", "steps", len(trace), "duration_ms", durationMillis(time.Since(start)))
	return &ChainResult{Success: true, FinalOutput: current, Trace: trace}, nil
}
