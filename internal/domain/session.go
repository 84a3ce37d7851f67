package domain

import (
	"encoding/json"
	"time"
)

// Credentials is a snapshot of the stored session.
// A zero value means no session.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	UserData     json.RawMessage
	IssuedAt     time.Time
}

// HasSession reports whether any token is stored.
func (c Credentials) HasSession() bool {
	return c.AccessToken != "" || c.RefreshToken != ""
}

// CredentialUpdate is written to the credential store after sign-in or renewal.
// Empty optional fields leave the stored value untouched.
type CredentialUpdate struct {
	// AccessToken is required.
	AccessToken string

	// RefreshToken replaces the stored refresh token when non-empty.
	RefreshToken string

	// UserID replaces the stored user id when non-empty.
	UserID string

	// UserData replaces the stored user snapshot when non-nil.
	UserData json.RawMessage

	// IssuedAt replaces the stored issue time when non-zero.
	IssuedAt time.Time
}

// Validate checks the update carries an access token.
func (u CredentialUpdate) Validate() error {
	if u.AccessToken == "" {
		return NewValidationError("accessToken", "is required")
	}

	return nil
}

// Apply merges the update into c and returns the result.
func (c Credentials) Apply(u CredentialUpdate) Credentials {
	c.AccessToken = u.AccessToken
	if u.RefreshToken != "" {
		c.RefreshToken = u.RefreshToken
	}

	if u.UserID != "" {
		c.UserID = u.UserID
	}

	if u.UserData != nil {
		c.UserData = u.UserData
	}

	if !u.IssuedAt.IsZero() {
		c.IssuedAt = u.IssuedAt
	}

	return c
}

// SessionStatus describes the session and resilience state for diagnostics.
type SessionStatus struct {
	Authenticated    bool       `json:"authenticated"`
	CanRenew         bool       `json:"canRenew"`
	UserID           string     `json:"userId,omitempty"`
	IssuedAt         *time.Time `json:"issuedAt,omitempty"`
	RateLimited      bool       `json:"rateLimited"`
	RateLimitResetAt *time.Time `json:"rateLimitResetAt,omitempty"`
	Renewing         bool       `json:"renewing"`
}
