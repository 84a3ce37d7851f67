// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/jsamuelsen/session-relay/internal/domain"
)

// CredentialStore persists the session tokens.
// All operations are atomic from the caller's perspective. A missing token is
// reported as an empty string, not an error.
type CredentialStore interface {
	// AccessToken returns the stored access token, or "" if none.
	AccessToken(ctx context.Context) (string, error)

	// RefreshToken returns the stored refresh token, or "" if none.
	RefreshToken(ctx context.Context) (string, error)

	// SetCredentials merges the update into the stored session.
	SetCredentials(ctx context.Context, update domain.CredentialUpdate) error

	// Clear removes every stored credential.
	Clear(ctx context.Context) error

	// Snapshot returns the full stored session.
	Snapshot(ctx context.Context) (domain.Credentials, error)
}

// ReleaseFunc gives up a lock obtained from a RenewalLocker.
type ReleaseFunc func(ctx context.Context) error

// RenewalLocker serializes token renewal across relay instances that share
// one credential store. Stores private to a process do not implement it.
type RenewalLocker interface {
	// AcquireRenewal blocks until the lock is held or ctx ends. An unreleased
	// lock expires after ttl.
	AcquireRenewal(ctx context.Context, ttl time.Duration) (ReleaseFunc, error)
}

// Request describes one outbound call to the marketplace backend.
type Request struct {
	// Method is the HTTP method.
	Method string

	// URL is absolute, or a path resolved against the backend base URL.
	URL string

	// Header holds caller-supplied headers. Authorization is managed by the client.
	Header http.Header

	// Body is the request payload. Kept as bytes so the request can be replayed.
	Body []byte

	// Timeout bounds a single attempt. Zero uses the client default.
	Timeout time.Duration

	// Anonymous marks auth endpoints (sign-in, renewal): no bearer token is
	// attached and a 401 is never a renewal opportunity.
	Anonymous bool
}

// Response is a buffered backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Backend is the caller-facing resilient API.
// Errors returned by Execute are *domain.ClassifiedError.
type Backend interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// ResilienceState exposes the throttling and renewal state for diagnostics.
type ResilienceState interface {
	// RateLimitedUntil returns the end of the current rate-limit window, if any.
	RateLimitedUntil() (time.Time, bool)

	// Renewing reports whether a token renewal is in flight.
	Renewing() bool
}

// TokenInspector reads identity hints from an access token. The token is not
// verified; the relay is not its audience.
type TokenInspector interface {
	// Inspect returns the subject and issued-at claims, zero when absent.
	Inspect(accessToken string) (userID string, issuedAt time.Time)
}
