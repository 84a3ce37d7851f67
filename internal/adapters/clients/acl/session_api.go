package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jsamuelsen/session-relay/internal/adapters/clients"
	"github.com/jsamuelsen/session-relay/internal/domain"
	"github.com/jsamuelsen/session-relay/internal/platform/logging"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

// SessionAPIConfig contains configuration for the session API adapter.
type SessionAPIConfig struct {
	// Issuer sends the renewal request. It must not be the resilient client.
	Issuer clients.Issuer

	// RenewalPath is the refresh endpoint, relative to the backend base URL.
	RenewalPath string

	// Timeout bounds the renewal request. Zero uses the issuer default.
	Timeout time.Duration

	// Now stamps renewals whose access token carries no "iat". Defaults to
	// time.Now.
	Now func() time.Time

	// Logger is the structured logger.
	Logger *slog.Logger
}

// SessionAPI implements clients.Renewer and ports.TokenInspector against the
// marketplace auth endpoints.
type SessionAPI struct {
	issuer  clients.Issuer
	path    string
	timeout time.Duration
	parser  *jwt.Parser
	now     func() time.Time
	logger  *slog.Logger
}

var (
	_ clients.Renewer      = (*SessionAPI)(nil)
	_ ports.TokenInspector = (*SessionAPI)(nil)
)

// NewSessionAPI creates a session API adapter.
func NewSessionAPI(cfg SessionAPIConfig) (*SessionAPI, error) {
	if cfg.Issuer == nil {
		return nil, errors.New("issuer is required")
	}

	if cfg.RenewalPath == "" {
		return nil, errors.New("renewal path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SessionAPI{
		issuer:  cfg.Issuer,
		path:    cfg.RenewalPath,
		timeout: cfg.Timeout,
		parser:  jwt.NewParser(),
		now:     now,
		logger:  logger.With(slog.String("component", "acl.SessionAPI")),
	}, nil
}

// renewalRequest is the body of the refresh endpoint.
type renewalRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// renewalResponse is the external DTO of the refresh endpoint.
// This is an internal type - never exposed outside the ACL.
type renewalResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user"`
}

// userDTO holds the only user fields the relay reads.
type userDTO struct {
	ID string `json:"id"`
}

// Renew exchanges refreshToken for new credentials.
// Implements clients.Renewer.
func (a *SessionAPI) Renew(ctx context.Context, refreshToken string) (*domain.CredentialUpdate, error) {
	body, err := json.Marshal(renewalRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("encoding renewal request: %w", err)
	}

	logging.Trace(ctx, "starting renewal request", slog.String("path", a.path))

	resp, err := a.issuer.Send(ctx, &ports.Request{
		Method:    http.MethodPost,
		URL:       a.path,
		Header:    http.Header{"Accept": {"application/json"}},
		Body:      body,
		Timeout:   a.timeout,
		Anonymous: true,
	})
	if err != nil {
		return nil, err
	}

	update, err := a.translate(resp.Body)
	if err != nil {
		a.logger.WarnContext(ctx, "renewal response rejected", slog.Int("status", resp.Status), slog.Any("error", err))
		return nil, err
	}

	return update, nil
}

// translate converts the renewal DTO to a domain update.
func (a *SessionAPI) translate(body []byte) (*domain.CredentialUpdate, error) {
	var ext renewalResponse
	if err := json.Unmarshal(body, &ext); err != nil {
		return nil, fmt.Errorf("%w: decoding renewal response: %w", clients.ErrMalformedResponse, err)
	}

	if ext.AccessToken == "" {
		return nil, fmt.Errorf("%w: renewal response has no access token", clients.ErrMalformedResponse)
	}

	update := &domain.CredentialUpdate{
		AccessToken:  ext.AccessToken,
		RefreshToken: ext.RefreshToken,
	}

	if len(ext.User) > 0 && string(ext.User) != "null" {
		update.UserData = ext.User

		var user userDTO
		if json.Unmarshal(ext.User, &user) == nil {
			update.UserID = user.ID
		}
	}

	subject, issuedAt := a.Inspect(ext.AccessToken)
	if update.UserID == "" {
		update.UserID = subject
	}

	// Opaque tokens carry no issue time; the renewal itself is the best
	// available one.
	if issuedAt.IsZero() {
		issuedAt = a.now()
	}

	update.IssuedAt = issuedAt.UTC()

	return update, nil
}

// Inspect reads the "sub" and "iat" claims of an access token without
// verifying its signature. Opaque tokens yield zero values.
// Implements ports.TokenInspector.
func (a *SessionAPI) Inspect(accessToken string) (string, time.Time) {
	var claims jwt.RegisteredClaims

	if _, _, err := a.parser.ParseUnverified(accessToken, &claims); err != nil {
		return "", time.Time{}
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}

	return claims.Subject, issuedAt
}
