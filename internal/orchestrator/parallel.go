package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

// RunParallel invokes every role concurrently against the same payload and
// waits for all of them. Failures stay inside their trace entries; only a
// missing provider or an empty role list is returned as an error.
func (e *Engine) RunParallel(ctx context.Context, roles []string, payload any, providerName string, opts provider.Options) (*ParallelResult, error) {
	if len(roles) == 0 {
		return nil, ErrNoRoles
	}
	p, err := e.resolve(providerName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	e.logger.Info("parallel run started", "roles", len(roles), "provider", providerName)

	trace := make(Trace, len(roles))

	// Workers never return an error, so Wait joins all of them.
	var g errgroup.Group
	for i, role := range roles {
		g.Go(func() error {
			rec, _ := e.executeStep(ctx, p, role, "", payload, opts)
			trace[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	outputs := make([]any, len(trace))
	for i, rec := range trace {
		outputs[i] = rec.Data()
	}
	success := trace.Succeeded()

	e.logger.Info("parallel run finished",
		"steps", len(trace),
		"success", success,
		"duration_ms", durationMillis(time.Since(start)),
	)
	return &ParallelResult{Success: success, Outputs: outputs, Trace: trace}, nil
}
