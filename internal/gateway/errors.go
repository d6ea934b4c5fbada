package gateway

import (
	"fmt"
	"strings"
)

// ValidationError reports every problem found in the caller's arguments.
type ValidationError struct {
	Missing     []string
	Conflicting []string
	InvalidEnum []string
	Invalid     []string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 4)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required parameters: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Conflicting) > 0 {
		parts = append(parts, "conflicting parameters: "+strings.Join(e.Conflicting, ", ")+" (supply at most one)")
	}
	if len(e.InvalidEnum) > 0 {
		parts = append(parts, "invalid value for "+strings.Join(e.InvalidEnum, "; "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid parameters: "+strings.Join(e.Invalid, "; "))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Conflicting) == 0 && len(e.InvalidEnum) == 0 && len(e.Invalid) == 0
}

// UnknownOperationError means a name reached the gateway with no registered
// operation behind it.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %s", e.Name)
}

// FailureKind classifies a failed remote call.
type FailureKind string

const (
	FailureTimeout         FailureKind = "timeout"
	FailureTransport       FailureKind = "transport_error"
	FailureAPI             FailureKind = "api_error"
	FailureInvalidResponse FailureKind = "invalid_response"
)

// RemoteError is the only error type returned by Transport.Send.
type RemoteError struct {
	Kind       FailureKind
	Message    string
	StatusCode int
	RawBody    string
}

func (e *RemoteError) Error() string {
	return e.Message
}
