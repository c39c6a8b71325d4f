package pipeline

import (
	"fmt"
	"strings"
)

// ValidationError is a fatal graph construction error with node-level
// detail: a dangling connection, a direction violation, or a pin type
// mismatch discovered against the live block instances.
type ValidationError struct {
	NodeID string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pipeline validation failed at node %q: %s", e.NodeID, e.Detail)
}

// CycleError reports that no topological order exists. Stuck lists the
// nodes left with unsatisfied dependencies; at least one of them is on a
// cycle. The engine never falls back to insertion order.
type CycleError struct {
	Stuck []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("pipeline contains a cycle involving: %s", strings.Join(e.Stuck, ", "))
}

// InitError wraps a node whose construction contract failed. Partial
// pipelines are never run; every already-initialized node has been shut
// down by the time this error is returned.
type InitError struct {
	NodeID string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing node %q: %v", e.NodeID, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
