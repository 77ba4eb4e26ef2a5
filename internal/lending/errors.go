package lending

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the loan workflow can surface so the
// orchestrator branches on kind instead of string-matching messages.
type ErrorKind string

const (
	// KindAuth covers authentication and token failures. Fatal for the
	// session until the user resets.
	KindAuth ErrorKind = "auth"
	// KindValidation covers malformed user input. The user is re-prompted
	// for the same step.
	KindValidation ErrorKind = "validation"
	// KindEstimateUnsupported means the upstream rejected the
	// currency/network pair itself, not the request.
	KindEstimateUnsupported ErrorKind = "estimate_unsupported"
	// KindAPI is a generic non-2xx upstream response.
	KindAPI ErrorKind = "api"
	// KindNetwork is a timeout or connection failure; the call may have
	// never reached the upstream.
	KindNetwork ErrorKind = "network"
	// KindState means the event does not match the current workflow step.
	KindState ErrorKind = "state"
)

// Error is the single error type crossing the client/orchestrator
// boundary. Message is safe to show users; Raw keeps the upstream payload
// for logs and is never rendered.
type Error struct {
	Kind    ErrorKind
	Reason  string
	Message string
	Raw     string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewValidation builds a recoverable input error for the given reason.
func NewValidation(reason, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

// NewState builds an out-of-sequence event error.
func NewState(message string) *Error {
	return &Error{Kind: KindState, Message: message}
}

// Classify returns err as a *Error, wrapping unknown errors as KindAPI so
// raw transport errors never escape to the transport layer.
func Classify(err error) *Error {
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	return &Error{Kind: KindAPI, Message: "The lending service returned an unexpected error.", Raw: err.Error()}
}
