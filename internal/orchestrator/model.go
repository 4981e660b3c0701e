package orchestrator

import (
	"time"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

type StepResult struct {
	Data     any               `json:"data"`
	Metadata provider.Metadata `json:"metadata"`
}

// StepRecord is one trace entry. Exactly one of Result and Error is set,
// according to Success. Records are never modified after creation.
type StepRecord struct {
	Role    string      `json:"role"`
	NodeID  string      `json:"node_id,omitempty"`
	Success bool        `json:"success"`
	Result  *StepResult `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Duration is the wall-clock time around the provider call, in milliseconds.
	Duration  float64   `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}

// Data returns the step output, or nil for a failed step.
func (r StepRecord) Data() any {
	if r.Result == nil {
		return nil
	}
	return r.Result.Data
}

type Trace []StepRecord

// Roles returns the role of every step in trace order.
func (t Trace) Roles() []string {
	out := make([]string, len(t))
	for i, r := range t {
		out[i] = r.Role
	}
	return out
}

// Succeeded reports whether every step succeeded.
func (t Trace) Succeeded() bool {
	for _, r := range t {
		if !r.Success {
			return false
		}
	}
	return true
}

type ChainResult struct {
	Success     bool  `json:"success"`
	FinalOutput any   `json:"final_output"`
	Trace       Trace `json:"trace"`
}

// ParallelResult holds one output and one trace entry per input role, in
// input order. Outputs of failed roles are nil.
type ParallelResult struct {
	Success bool  `json:"success"`
	Outputs []any `json:"outputs"`
	Trace   Trace `json:"trace"`
}

// DAGResult reports the data of every sink node, in declaration order.
type DAGResult struct {
	Success bool     `json:"success"`
	Outputs []any    `json:"outputs"`
	Sinks   []string `json:"sinks"`
	Trace   Trace    `json:"trace"`
}

func durationMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
