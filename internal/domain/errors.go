// Package domain contains the session model and the failure taxonomy of the
// resilience layer.
// Domain errors represent session-level outcomes, NOT HTTP errors.
// They are infrastructure-agnostic and can be mapped to HTTP/gRPC/etc by adapters.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrRateLimited indicates the backend throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthExpired indicates the access token is stale but the session can be renewed.
	ErrAuthExpired = errors.New("access token expired")

	// ErrSessionEnded indicates the session cannot be repaired and the user must sign in again.
	ErrSessionEnded = errors.New("session ended")

	// ErrServerError indicates the backend failed with a 5xx response.
	ErrServerError = errors.New("server error")

	// ErrNetwork indicates no response was received at all.
	ErrNetwork = errors.New("network error")

	// ErrRequestFailed indicates a failure that carries no session consequence.
	ErrRequestFailed = errors.New("request failed")

	// ErrValidation indicates caller input failed validation.
	ErrValidation = errors.New("validation failed")
)

// Kind categorizes a failed request for the resilience layer.
type Kind int

const (
	// KindOther is a failure with no session or throttling consequence.
	KindOther Kind = iota

	// KindRateLimited is a 429 response.
	KindRateLimited

	// KindAuthExpired is a 401 that a token renewal may heal.
	KindAuthExpired

	// KindTerminalAuth is a confirmed invalid session; credentials must be cleared.
	KindTerminalAuth

	// KindServerError is a 5xx response.
	KindServerError

	// KindNetworkError is a connectivity failure without any response.
	KindNetworkError
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthExpired:
		return "auth_expired"
	case KindTerminalAuth:
		return "terminal_auth"
	case KindServerError:
		return "server_error"
	case KindNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// sentinel returns the sentinel error matching the kind.
func (k Kind) sentinel() error {
	switch k {
	case KindRateLimited:
		return ErrRateLimited
	case KindAuthExpired:
		return ErrAuthExpired
	case KindTerminalAuth:
		return ErrSessionEnded
	case KindServerError:
		return ErrServerError
	case KindNetworkError:
		return ErrNetwork
	default:
		return ErrRequestFailed
	}
}

// ClassifiedError is the only error type surfaced by the resilient client.
// Callers switch on Kind: KindTerminalAuth means "send the user to sign in",
// everything else means "show a generic error".
type ClassifiedError struct {
	// Kind is the classification of the failure.
	Kind Kind

	// Status is the upstream HTTP status, or 0 when no response was received.
	Status int

	// Header holds the upstream response headers, if any.
	Header map[string][]string

	// Body holds the upstream response body, if any.
	Body []byte

	// ResetAt is when the rate-limit window ends. Only set for KindRateLimited.
	ResetAt time.Time

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}

	if e.Kind == KindRateLimited && !e.ResetAt.IsZero() {
		msg = fmt.Sprintf("%s until %s", msg, e.ResetAt.UTC().Format(time.RFC3339))
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the kind's sentinel and the underlying cause, so both
// errors.Is(err, ErrSessionEnded) and errors.As on the cause work.
func (e *ClassifiedError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}

	return []error{e.Kind.sentinel(), e.Err}
}

// NewClassifiedError creates a classified error wrapping cause.
func NewClassifiedError(kind Kind, status int, cause error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Status: status, Err: cause}
}

// KindOf returns the kind of err, or KindOther if err is not classified.
func KindOf(err error) Kind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	return KindOther
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsSessionEnded checks if an error ended the session.
func IsSessionEnded(err error) bool {
	return errors.Is(err, ErrSessionEnded)
}

// IsRateLimited checks if an error is a rate-limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
