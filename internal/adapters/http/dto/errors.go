// Package dto holds the relay's HTTP request and response bodies.
package dto

import "net/http"

// ErrorResponse is the envelope of every error the relay produces itself.
// Backend error bodies that are forwarded verbatim keep their own shape.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail is the machine-readable part of an error response.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes. Callers act on SESSION_ENDED by signing in again and on
// RATE_LIMITED by waiting for Retry-After.
const (
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeBadRequest   = "BAD_REQUEST"
	ErrorCodeSessionEnded = "SESSION_ENDED"
	ErrorCodeRateLimited  = "RATE_LIMITED"
	ErrorCodeUnavailable  = "SERVICE_UNAVAILABLE"
	ErrorCodeUpstream     = "UPSTREAM_ERROR"
	ErrorCodeTooLarge     = "PAYLOAD_TOO_LARGE"
	ErrorCodeInternal     = "INTERNAL_ERROR"
)

var codeStatus = map[string]int{
	ErrorCodeValidation:   http.StatusBadRequest,
	ErrorCodeBadRequest:   http.StatusBadRequest,
	ErrorCodeSessionEnded: http.StatusUnauthorized,
	ErrorCodeRateLimited:  http.StatusTooManyRequests,
	ErrorCodeUnavailable:  http.StatusServiceUnavailable,
	ErrorCodeUpstream:     http.StatusBadGateway,
	ErrorCodeTooLarge:     http.StatusRequestEntityTooLarge,
	ErrorCodeInternal:     http.StatusInternalServerError,
}

// NewErrorResponse creates an error response.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// WithDetails attaches field-level details.
func (e *ErrorResponse) WithDetails(details map[string]string) *ErrorResponse {
	if len(details) > 0 {
		e.Error.Details = details
	}

	return e
}

// WithTraceID attaches the request's trace ID.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode maps an error code to its status. Unknown codes are 500.
func HTTPStatusFromCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}
