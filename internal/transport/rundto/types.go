// Package rundto holds the wire types shared by the HTTP and Lambda
// transports.
package rundto

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/app"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/graphdef"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/policy"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

var ErrGraphRequired = errors.New("graph or graph_dot is required")

// RunRequest is the body of every run endpoint. Mode is only read by
// transports that have a single entrypoint.
type RunRequest struct {
	Mode     string                        `json:"mode,omitempty"`
	Roles    []string                      `json:"roles,omitempty"`
	Graph    *orchestrator.GraphDefinition `json:"graph,omitempty"`
	GraphDOT string                        `json:"graph_dot,omitempty"`
	Payload  any                           `json:"payload"`
	Provider string                        `json:"provider,omitempty"`
	Policies []string                      `json:"policies,omitempty"`
	Strict   bool                          `json:"strict,omitempty"`
	Options  provider.Options              `json:"options,omitempty"`
}

func (r RunRequest) RunOptions() app.RunOptions {
	return app.RunOptions{
		Provider: r.Provider,
		Policies: r.Policies,
		Strict:   r.Strict,
		Options:  r.Options,
	}
}

func (r RunRequest) Chain() app.ChainRequest {
	return app.ChainRequest{Roles: r.Roles, Payload: r.Payload, RunOptions: r.RunOptions()}
}

func (r RunRequest) Parallel() app.ParallelRequest {
	return app.ParallelRequest{Roles: r.Roles, Payload: r.Payload, RunOptions: r.RunOptions()}
}

// DAG prefers the structured graph over graph_dot when both are present.
func (r RunRequest) DAG() (app.DAGRequest, error) {
	req := app.DAGRequest{Payload: r.Payload, RunOptions: r.RunOptions()}
	switch {
	case r.Graph != nil:
		req.Graph = *r.Graph
	case r.GraphDOT != "":
		def, err := graphdef.ParseDOT(r.GraphDOT)
		if err != nil {
			return req, err
		}
		req.Graph = def
	default:
		return req, ErrGraphRequired
	}
	return req, nil
}

// Dispatch runs req in the given mode.
func Dispatch(ctx context.Context, runner app.Runner, mode app.Mode, req RunRequest) (*app.Report, error) {
	switch mode {
	case app.ModeChain:
		return runner.RunChain(ctx, req.Chain())
	case app.ModeParallel:
		return runner.RunParallel(ctx, req.Parallel())
	case app.ModeDAG:
		dag, err := req.DAG()
		if err != nil {
			return nil, err
		}
		return runner.RunDAG(ctx, dag)
	default:
		return nil, fmt.Errorf("%w: %q", app.ErrUnknownMode, mode)
	}
}

type ErrorBody struct {
	Error   string      `json:"error"`
	Details string      `json:"details"`
	Report  *app.Report `json:"report,omitempty"`
}

// Status maps a run outcome to an HTTP status. Caller mistakes are 400, a
// failed step is 502 (504 when it ran out of time) and a strict policy
// violation is 422.
func Status(report *app.Report, err error) int {
	switch {
	case err == nil:
		if app.ExitCode(report, nil) == app.ExitViolation {
			return http.StatusUnprocessableEntity
		}
		return http.StatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, orchestrator.ErrStepFailed):
		return http.StatusBadGateway
	case isInputError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Response returns the status and body for a run outcome.
func Response(report *app.Report, err error) (int, any) {
	status := Status(report, err)
	if err == nil {
		return status, report
	}
	body := ErrorBody{Error: "run failed", Details: err.Error(), Report: report}
	if status == http.StatusBadRequest {
		body.Error = "invalid request"
	}
	return status, body
}

func isInputError(err error) bool {
	for _, target := range []error{
		app.ErrUnknownMode,
		ErrGraphRequired,
		graphdef.ErrInvalidDOT,
		provider.ErrProviderNotFound,
		policy.ErrPolicyNotFound,
		orchestrator.ErrNoRoles,
		orchestrator.ErrEmptyGraph,
		orchestrator.ErrInvalidGraph,
		orchestrator.ErrDuplicateNode,
		orchestrator.ErrUnknownNode,
		orchestrator.ErrCycleDetected,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
