package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jsamuelsen/session-relay/internal/domain"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

// SessionService exposes the session to callers of the relay: it accepts
// tokens from the login screen, reports status, and relays requests through
// the resilient backend.
// It depends on port interfaces, not concrete implementations.
//
// Example usage:
//
//	// In main.go
//	svc := app.NewSessionService(app.SessionServiceConfig{
//	    Store:     credentialStore,
//	    Backend:   resilientClient,
//	    State:     resilientClient,
//	    Inspector: sessionAPI,
//	    Logger:    logger,
//	})
//
//	// In HTTP handler
//	resp, err := svc.Relay(ctx, req)
type SessionService struct {
	store     ports.CredentialStore
	backend   ports.Backend
	state     ports.ResilienceState
	inspector ports.TokenInspector
	logger    *slog.Logger
}

// SessionServiceConfig contains the dependencies of the session service.
type SessionServiceConfig struct {
	Store   ports.CredentialStore
	Backend ports.Backend
	State   ports.ResilienceState

	// Inspector fills user id and issue time from the access token when the
	// caller omits them. Optional.
	Inspector ports.TokenInspector

	Logger *slog.Logger
}

// NewSessionService creates a session service.
// Panics if Store, Backend or State is nil. Defaults logger to slog.Default() if nil.
func NewSessionService(cfg SessionServiceConfig) *SessionService {
	if cfg.Store == nil || cfg.Backend == nil || cfg.State == nil {
		panic("SessionService: Store, Backend and State are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionService{
		store:     cfg.Store,
		backend:   cfg.Backend,
		state:     cfg.State,
		inspector: cfg.Inspector,
		logger:    logger.With(slog.String("component", "app.SessionService")),
	}
}

// SignIn stores credentials obtained by the login screen.
func (s *SessionService) SignIn(ctx context.Context, update domain.CredentialUpdate) (*domain.SessionStatus, error) {
	logger := methodLogger(ctx, s.logger, "SignIn")

	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("validating credentials: %w", err)
	}

	if update.RefreshToken == "" {
		return nil, fmt.Errorf("validating credentials: %w",
			domain.NewValidationError("refreshToken", "is required"))
	}

	if s.inspector != nil {
		userID, issuedAt := s.inspector.Inspect(update.AccessToken)
		if update.UserID == "" {
			update.UserID = userID
		}

		if update.IssuedAt.IsZero() {
			update.IssuedAt = issuedAt
		}
	}

	if err := s.store.SetCredentials(ctx, update); err != nil {
		return nil, fmt.Errorf("storing credentials: %w", err)
	}

	logger.InfoContext(ctx, "session started", slog.String("user_id", update.UserID))

	return s.Status(ctx)
}

// SignOut clears the stored credentials.
func (s *SessionService) SignOut(ctx context.Context) error {
	logger := methodLogger(ctx, s.logger, "SignOut")

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}

	logger.InfoContext(ctx, "session cleared")

	return nil
}

// Status reports the session and resilience state.
func (s *SessionService) Status(ctx context.Context) (*domain.SessionStatus, error) {
	creds, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	status := &domain.SessionStatus{
		Authenticated: creds.AccessToken != "",
		CanRenew:      creds.RefreshToken != "",
		UserID:        creds.UserID,
		Renewing:      s.state.Renewing(),
	}

	if !creds.IssuedAt.IsZero() {
		issuedAt := creds.IssuedAt
		status.IssuedAt = &issuedAt
	}

	if resetAt, active := s.state.RateLimitedUntil(); active {
		status.RateLimited = true
		status.RateLimitResetAt = &resetAt
	}

	return status, nil
}

// Relay sends req to the backend through the resilient client. Only paths
// relative to the configured backend are accepted.
func (s *SessionService) Relay(ctx context.Context, req *ports.Request) (*ports.Response, error) {
	logger := methodLogger(ctx, s.logger, "Relay")

	if err := validateRelay(req); err != nil {
		return nil, fmt.Errorf("validating relay request: %w", err)
	}

	resp, err := s.backend.Execute(ctx, req)
	if err != nil {
		logger.DebugContext(ctx, "relay failed",
			slog.String("path", req.URL),
			slog.String("kind", domain.KindOf(err).String()),
		)

		return nil, err
	}

	return resp, nil
}

func validateRelay(req *ports.Request) error {
	if req == nil {
		return domain.NewValidationError("request", "is required")
	}

	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
	default:
		return domain.NewValidationError("method", fmt.Sprintf("%q is not supported", req.Method))
	}

	if !strings.HasPrefix(req.URL, "/") || strings.HasPrefix(req.URL, "//") {
		return domain.NewValidationError("path", "must be relative to the backend")
	}

	return nil
}
