package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrRateLimited,
		ErrAuthExpired,
		ErrSessionEnded,
		ErrServerError,
		ErrNetwork,
		ErrRequestFailed,
		ErrValidation,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b,
					"sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindOther, "other"},
		{KindRateLimited, "rate_limited"},
		{KindAuthExpired, "auth_expired"},
		{KindTerminalAuth, "terminal_auth"},
		{KindServerError, "server_error"},
		{KindNetworkError, "network_error"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestClassifiedError_Is(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		sentinel error
	}{
		{"rate limited", KindRateLimited, ErrRateLimited},
		{"auth expired", KindAuthExpired, ErrAuthExpired},
		{"terminal", KindTerminalAuth, ErrSessionEnded},
		{"server", KindServerError, ErrServerError},
		{"network", KindNetworkError, ErrNetwork},
		{"other", KindOther, ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewClassifiedError(tt.kind, 0, nil)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestClassifiedError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewClassifiedError(KindNetworkError, 0, cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "network error: connection reset", err.Error())
}

func TestClassifiedError_Message(t *testing.T) {
	resetAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := &ClassifiedError{Kind: KindRateLimited, Status: 429, ResetAt: resetAt}

	assert.Equal(t, "rate limited (status 429) until 2026-01-02T03:04:05Z", err.Error())
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := NewClassifiedError(KindTerminalAuth, 401, nil)
	wrapped := fmt.Errorf("relaying request: %w", inner)

	assert.Equal(t, KindTerminalAuth, KindOf(wrapped))
	assert.True(t, IsSessionEnded(wrapped))
	assert.False(t, IsRateLimited(wrapped))
	assert.Equal(t, KindOther, KindOf(errors.New("plain")))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("accessToken", "is required")

	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "validation failed for accessToken: is required", err.Error())

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "accessToken", ve.Field)

	assert.Equal(t, "validation failed: bad", NewValidationError("", "bad").Error())
}
