package dto

import (
	"encoding/json"
	"time"

	"github.com/jsamuelsen/session-relay/internal/domain"
)

// SessionRequest is the sign-in hand-off body: tokens the login screen
// obtained from the backend.
type SessionRequest struct {
	AccessToken  string          `json:"accessToken" validate:"required,max=8192"`
	RefreshToken string          `json:"refreshToken" validate:"required,max=8192"`
	UserID       string          `json:"userId,omitempty" validate:"omitempty,max=256"`
	User         json.RawMessage `json:"user,omitempty"`
	IssuedAt     *time.Time      `json:"issuedAt,omitempty"`
}

// ToDomain converts the request to a credential update.
func (r *SessionRequest) ToDomain() domain.CredentialUpdate {
	update := domain.CredentialUpdate{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		UserID:       r.UserID,
		UserData:     r.User,
	}

	if r.IssuedAt != nil {
		update.IssuedAt = *r.IssuedAt
	}

	return update
}

// SessionResponse reports the session and resilience state. Tokens are
// never echoed.
type SessionResponse struct {
	Authenticated    bool       `json:"authenticated"`
	CanRenew         bool       `json:"canRenew"`
	UserID           string     `json:"userId,omitempty"`
	IssuedAt         *time.Time `json:"issuedAt,omitempty"`
	RateLimited      bool       `json:"rateLimited"`
	RateLimitResetAt *time.Time `json:"rateLimitResetAt,omitempty"`
	Renewing         bool       `json:"renewing"`
}

// SessionResponseFromDomain converts a session status.
func SessionResponseFromDomain(s *domain.SessionStatus) SessionResponse {
	return SessionResponse{
		Authenticated:    s.Authenticated,
		CanRenew:         s.CanRenew,
		UserID:           s.UserID,
		IssuedAt:         s.IssuedAt,
		RateLimited:      s.RateLimited,
		RateLimitResetAt: s.RateLimitResetAt,
		Renewing:         s.Renewing,
	}
}
