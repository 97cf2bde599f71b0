package internal

import "fmt"

// ResolutionError means the full matching cascade exhausted for a query.
// Fatal for the current row only.
type ResolutionError struct {
	Kind  RefKind
	Query string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no %s matched %q", e.Kind, e.Query)
}

// ValidationError means a required field is missing from a draft. Fatal for
// the current row only.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps an external API failure. The raw message is kept
// verbatim for operator triage.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("erp %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
