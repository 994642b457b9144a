package construction

import "fmt"

// ConfigurationError reports a construction description that can never
// execute: malformed parameters, unknown generators, inconsistent weights.
// It is raised while a graph is being built, before any computation starts.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return "invalid construction: " + e.Reason
}

// UnsupportedCombinationError reports a structurally well-formed description
// for which no computation rule exists. Work that would hit it fails fast and
// is never retried.
type UnsupportedCombinationError struct {
	Detail string
}

func (e UnsupportedCombinationError) Error() string {
	return "unsupported combination: " + e.Detail
}

// IdentityCollisionError reports two distinct identity keys addressing the
// same cache entry. It aborts a batch before any compute or save.
type IdentityCollisionError struct {
	Hash string
	KeyA string
	KeyB string
}

func (e IdentityCollisionError) Error() string {
	return fmt.Sprintf("identity collision on %s: %q vs %q", e.Hash, e.KeyA, e.KeyB)
}

func configErrorf(format string, args ...any) error {
	return ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
