package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRoles is returned when a chain or parallel run receives no roles.
	ErrNoRoles = errors.New("at least one role is required")

	// ErrEmptyGraph is returned when a graph definition declares no nodes.
	ErrEmptyGraph = errors.New("graph has no nodes")

	// ErrInvalidGraph is returned for malformed node declarations.
	ErrInvalidGraph = errors.New("invalid graph definition")

	// ErrDuplicateNode is returned when a node id is declared twice.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrUnknownNode is returned when an edge references an undeclared node.
	ErrUnknownNode = errors.New("edge references unknown node")

	// ErrCycleDetected is returned when the graph cannot be topologically ordered.
	ErrCycleDetected = errors.New("graph has a cycle")

	// ErrStepFailed is matched by every StepFailedError.
	ErrStepFailed = errors.New("step failed")
)

// UnknownNodeError identifies the edge endpoint that was never declared.
type UnknownNodeError struct {
	NodeID string
	Edge   Edge
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("%v: %q (edge %s -> %s)", ErrUnknownNode, e.NodeID, e.Edge.From, e.Edge.To)
}

func (e *UnknownNodeError) Unwrap() error { return ErrUnknownNode }

// CycleError lists the nodes left unordered by the topological sort, in
// declaration order. Every node on a cycle, and everything downstream of one,
// is in the list.
type CycleError struct {
	Unresolved []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: unresolved nodes %v", ErrCycleDetected, e.Unresolved)
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// StepFailedError aborts a chain or DAG run. Trace holds every record produced
// before and including the failing step.
type StepFailedError struct {
	Role   string
	NodeID string
	Index  int
	Trace  Trace
	Err    error
}

func (e *StepFailedError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("node %q (role %q) failed: %v", e.NodeID, e.Role, e.Err)
	}
	return fmt.Sprintf("role %q failed at step %d: %v", e.Role, e.Index, e.Err)
}

func (e *StepFailedError) Is(target error) bool { return target == ErrStepFailed }

func (e *StepFailedError) Unwrap() error { return e.Err }

// PartialTrace returns the trace carried by a StepFailedError anywhere in
// err's chain.
func PartialTrace(err error) (Trace, bool) {
	var sf *StepFailedError
	if errors.As(err, &sf) {
		return sf.Trace, true
	}
	return nil, false
}
