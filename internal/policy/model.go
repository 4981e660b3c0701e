package policy

import (
	"context"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

// Func is a per-step predicate. Returning false, or an error, records a
// violation for that step.
type Func func(data any, role string, opts provider.Options) (bool, error)

// AuditFunc runs once per enforcement with the whole trace and the names of
// every policy applied.
type AuditFunc func(ctx context.Context, trace orchestrator.Trace, applied []string) error

// Policy is either a predicate or an audit hook. When both are set only Audit
// is used.
type Policy struct {
	Name  string
	Check Func
	Audit AuditFunc
}

type Violation struct {
	Policy string `json:"policy"`
	Role   string `json:"role"`
	NodeID string `json:"node_id,omitempty"`
	Step   int    `json:"step"`
	Data   any    `json:"data"`
	Error  string `json:"error,omitempty"`
}

type Result struct {
	Success    bool        `json:"success"`
	Violations []Violation `json:"violations,omitempty"`
	Policies   []string    `json:"policies"`
}
