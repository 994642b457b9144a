package engine

import (
	"fmt"

	"siegelcore/pkg/construction"
)

// MissingPreconditionError reports that a run cannot start because a required
// external condition does not hold, typically an unreachable cache store. It
// is raised before any compute.
type MissingPreconditionError struct {
	Reason string
	Err    error
}

func (e MissingPreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing precondition: %s: %v", e.Reason, e.Err)
	}
	return "missing precondition: " + e.Reason
}

func (e MissingPreconditionError) Unwrap() error { return e.Err }

// NodeError annotates a failure with the construction it occurred on and the
// precision that was being attempted. The cause stays reachable through
// errors.Is and errors.As, so callers can still classify backend sentinels
// such as algebra.ErrInexactDivision.
type NodeError struct {
	Key       construction.Key
	Precision int
	Err       error
}

func (e NodeError) Error() string {
	return fmt.Sprintf("construction %s at precision %d: %v", e.Key, e.Precision, e.Err)
}

func (e NodeError) Unwrap() error { return e.Err }
