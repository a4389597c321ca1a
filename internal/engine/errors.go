package engine

import "fmt"

// ValidationError means the owner or extension configuration is malformed.
// It aborts a run before any fetch happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
