package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/policy"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

// Runner is what the transports and the CLI drive.
type Runner interface {
	RunChain(ctx context.Context, req ChainRequest) (*Report, error)
	RunParallel(ctx context.Context, req ParallelRequest) (*Report, error)
	RunDAG(ctx context.Context, req DAGRequest) (*Report, error)
	Compile(def orchestrator.GraphDefinition) (*orchestrator.Plan, error)
	Providers() []string
	Policies() []string
}

type Mode string

const (
	ModeChain    Mode = "chain"
	ModeParallel Mode = "parallel"
	ModeDAG      Mode = "dag"
)

var ErrUnknownMode = errors.New("unknown run mode")

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeChain, ModeParallel, ModeDAG:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// RunOptions are shared by every mode. An empty Provider means the service
// default.
type RunOptions struct {
	Provider string
	Policies []string
	Strict   bool
	Options  provider.Options
}

type ChainRequest struct {
	Roles   []string
	Payload any
	RunOptions
}

type ParallelRequest struct {
	Roles   []string
	Payload any
	RunOptions
}

type DAGRequest struct {
	Graph   orchestrator.GraphDefinition
	Payload any
	RunOptions
}

// Report is the single artifact of a run. On a fatal engine error Error is
// set, Trace holds whatever ran, and Policy is nil.
type Report struct {
	RunID       string             `json:"run_id"`
	Mode        Mode               `json:"mode"`
	Provider    string             `json:"provider"`
	Strict      bool               `json:"strict"`
	Success     bool               `json:"success"`
	FinalOutput any                `json:"final_output,omitempty"`
	Outputs     []any              `json:"outputs,omitempty"`
	Sinks       []string           `json:"sinks,omitempty"`
	Trace       orchestrator.Trace `json:"trace"`
	Policy      *policy.Result     `json:"policy,omitempty"`
	AuditError  string             `json:"audit_error,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Violated reports whether policies ran and found at least one violation.
func (r *Report) Violated() bool {
	return r != nil && r.Policy != nil && !r.Policy.Success
}

const (
	ExitOK        = 0
	ExitFatal     = 1
	ExitViolation = 2
)

// ExitCode maps a run outcome to a process exit status. Violations only
// count in strict mode.
func ExitCode(report *Report, err error) int {
	if err != nil {
		return ExitFatal
	}
	if report != nil && report.Strict && report.Violated() {
		return ExitViolation
	}
	return ExitOK
}
