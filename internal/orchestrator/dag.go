package orchestrator

import (
	"context"
	"time"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

// Executable binds a compiled Plan to the engine that runs it.
type Executable struct {
	engine *Engine
	plan   *Plan
}

// Compile compiles def and binds it to e.
func (e *Engine) Compile(def GraphDefinition) (*Executable, error) {
	plan, err := Compile(def)
	if err != nil {
		return nil, err
	}
	return e.Executable(plan), nil
}

// Executable binds an already compiled plan, e.g. one taken from a cache.
func (e *Engine) Executable(plan *Plan) *Executable {
	return &Executable{engine: e, plan: plan}
}

func (x *Executable) Plan() *Plan { return x.plan }

// Execute runs nodes one at a time in topological order. A node with no
// predecessors receives payload; otherwise it receives the output of the
// predecessor on the last matching edge. The first failing node aborts the
// run with a *StepFailedError.
func (x *Executable) Execute(ctx context.Context, payload any, providerName string, opts provider.Options) (*DAGResult, error) {
	e := x.engine
	p, err := e.resolve(providerName)
	if err != nil {
		return nil, err
	}

	plan := x.plan
	start := time.Now()
	e.logger.Info("dag run started", "nodes", plan.Len(), "provider", providerName)

	outputs := make([]any, plan.Len())
	trace := make(Trace, 0, plan.Len())

	for step, idx := range plan.order {
		node := plan.def.Nodes[idx]

		input := payload
		if preds := plan.preds[idx]; len(preds) > 0 {
			input = outputs[preds[len(preds)-1]]
		}

		rec, stepErr := e.executeStep(ctx, p, node.Role, node.ID, input, opts)
		trace = append(trace, rec)

		if !rec.Success {
			e.logger.Warn("dag run aborted", "node_id", node.ID, "role", node.Role, "error", rec.Error)
			return nil, &StepFailedError{Role: node.Role, NodeID: node.ID, Index: step, Trace: trace, Err: stepErr}
		}
		outputs[idx] = rec.Result.Data
	}

	sinkOutputs := make([]any, len(plan.sinks))
	for i, idx := range plan.sinks {
		sinkOutputs[i] = outputs[idx]
	}

	e.logger.Info("dag run finished", "steps", len(trace), "duration_ms", durationMillis(time.Since(start)))
	return &DAGResult{
		Success: true,
		Outputs: sinkOutputs,
		Sinks:   plan.Sinks(),
		Trace:   trace,
	}, nil
}
