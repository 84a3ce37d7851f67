// Package clients provides the resilient HTTP client for the marketplace API:
// request issuing, failure classification, rate-limit suppression and
// single-flight token renewal.
package clients

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Client errors represent failures in the HTTP client layer.
// The resilient client translates them into *domain.ClassifiedError.
var (
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrResponseTooLarge is returned when a body exceeds the configured limit.
	ErrResponseTooLarge = errors.New("response body too large")

	// ErrNoRefreshToken is returned by renewal when the store holds no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	errRateLimitWindow = errors.New("backend rate limit window open")
)

// ResponseError is returned by an Issuer for any non-2xx response.
type ResponseError struct {
	Status int
	Header http.Header
	Body   []byte
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if parsed := ParseErrorResponse(e.Body); parsed != nil {
		if code := parsed.GetCode(); code != "" {
			return fmt.Sprintf("upstream status %d: %s", e.Status, code)
		}
	}

	return fmt.Sprintf("upstream status %d", e.Status)
}

// Code returns the machine-readable error code of the body, if any.
func (e *ResponseError) Code() string {
	if parsed := ParseErrorResponse(e.Body); parsed != nil {
		return parsed.GetCode()
	}

	return ""
}

// ErrorResponse is the backend error envelope.
// It supports both nested format (error.code/message) and flat format (code/message).
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorDetail contains error information from the backend.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetCode returns the error code from either nested or top-level format.
func (e *ErrorResponse) GetCode() string {
	if e.Error.Code != "" {
		return e.Error.Code
	}

	return e.Code
}

// GetMessage returns the error message from either nested or top-level format.
func (e *ErrorResponse) GetMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}

	return e.Message
}

// ParseErrorResponse attempts to parse an error response body.
// Returns nil if the body is empty or cannot be parsed.
func ParseErrorResponse(body []byte) *ErrorResponse {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return nil
	}

	if errResp.GetCode() == "" && errResp.GetMessage() == "" {
		return nil
	}

	return &errResp
}
