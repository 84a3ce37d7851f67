package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/session-relay/internal/adapters/http/middleware"
	"github.com/jsamuelsen/session-relay/internal/domain"
	"github.com/jsamuelsen/session-relay/internal/platform/logging"
	"github.com/jsamuelsen/session-relay/internal/platform/telemetry"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

// Config wires a resilient Client.
type Config struct {
	Issuer      Issuer
	Store       ports.CredentialStore
	Classifier  *Classifier
	Breaker     *RateLimitBreaker
	Coordinator *RefreshCoordinator

	Metrics *telemetry.ResilienceMetrics

	// Logger is an optional logger. If nil, a default logger is used.
	Logger *slog.Logger
}

// Client is the resilient marketplace API client. It provides:
//   - Bearer token and request ID decoration
//   - Failure classification
//   - Transparent single-flight token renewal with one retry per request
//   - Rate-limit windowing that suspends renewal while the backend throttles
//
// Every error returned by Execute is a *domain.ClassifiedError.
type Client struct {
	issuer      Issuer
	store       ports.CredentialStore
	classifier  *Classifier
	breaker     *RateLimitBreaker
	coordinator *RefreshCoordinator
	metrics     *telemetry.ResilienceMetrics
	logger      *slog.Logger
}

var (
	_ ports.Backend         = (*Client)(nil)
	_ ports.ResilienceState = (*Client)(nil)
)

// New creates a resilient client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.Issuer == nil || cfg.Store == nil || cfg.Classifier == nil || cfg.Breaker == nil || cfg.Coordinator == nil {
		return nil, errors.New("issuer, store, classifier, breaker and coordinator are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		issuer:      cfg.Issuer,
		store:       cfg.Store,
		classifier:  cfg.Classifier,
		breaker:     cfg.Breaker,
		coordinator: cfg.Coordinator,
		metrics:     cfg.Metrics,
		logger:      logger.With(slog.String("component", "clients.Client")),
	}, nil
}

// Execute sends req, renewing the session and retrying once if the access
// token turns out to be stale. Rate-limited responses are never retried.
func (c *Client) Execute(ctx context.Context, req *ports.Request) (*ports.Response, error) {
	attempt := Attempt{Anonymous: req.Anonymous}

	token, err := c.currentToken(ctx, req)
	if err != nil {
		return nil, err
	}

	for {
		// A request dispatched inside a rate-limit window must not trigger
		// renewal on 401, even if the window closes before it returns.
		throttled := c.breaker.Active()

		resp, err := c.issuer.Send(ctx, c.decorate(req, token))
		if err == nil {
			return resp, nil
		}

		cls := c.classifier.Classify(err, attempt, throttled || c.breaker.Active())
		ce := cls.Error(err)

		c.metrics.Failure(ctx, cls.Kind.String())
		logging.Trace(ctx, "request classified",
			slog.String("kind", cls.Kind.String()),
			slog.Int("status", cls.Status),
			slog.Bool("retried", attempt.Retried),
			slog.Bool("throttled", throttled),
		)

		switch cls.Kind {
		case domain.KindAuthExpired:
			attempt.Retried = true

			token, err = c.renewedToken(ctx, req, token)
			if err != nil {
				return nil, asClassified(err)
			}

			continue

		case domain.KindRateLimited:
			delay, source := c.breaker.ResetDelay(cls.Hints)
			ce.ResetAt = c.breaker.TripFor(delay)
			c.metrics.RateLimitTripped(ctx, delay, source)
			logging.FromContextOr(ctx, c.logger).Warn("backend rate limit window opened",
				slog.Time("reset_at", ce.ResetAt),
				slog.String("source", source),
			)

		case domain.KindTerminalAuth:
			// The retried request was rejected with a terminal code.
			c.coordinator.EndSession(ctx, ce)
		}

		return nil, ce
	}
}

// RateLimitedUntil returns the end of the current rate-limit window, if any.
func (c *Client) RateLimitedUntil() (time.Time, bool) {
	return c.breaker.ResetAt()
}

// Renewing reports whether a token renewal is in flight.
func (c *Client) Renewing() bool {
	return c.coordinator.Renewing()
}

func (c *Client) currentToken(ctx context.Context, req *ports.Request) (string, error) {
	if req.Anonymous {
		return "", nil
	}

	token, err := c.store.AccessToken(ctx)
	if err != nil {
		return "", domain.NewClassifiedError(domain.KindOther, 0, fmt.Errorf("reading access token: %w", err))
	}

	return token, nil
}

// renewedToken returns the token to retry with after sent was rejected as
// expired. If the store already holds a different token, a renewal finished
// while the request was outstanding and that token is reused.
func (c *Client) renewedToken(ctx context.Context, req *ports.Request, sent string) (string, error) {
	stored, err := c.currentToken(ctx, req)
	if err != nil {
		return "", err
	}

	if stored != "" && stored != sent {
		logging.Trace(ctx, "retrying with token renewed meanwhile")
		return stored, nil
	}

	return c.coordinator.RequestRenewal(ctx)
}

// decorate returns a copy of req carrying the bearer token and a fresh
// request ID. The caller's request is never mutated so it can be replayed.
func (c *Client) decorate(req *ports.Request, token string) *ports.Request {
	out := *req
	out.Header = req.Header.Clone()

	if out.Header == nil {
		out.Header = make(http.Header)
	}

	out.Header.Del("Authorization")

	if !req.Anonymous && token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	out.Header.Set(middleware.HeaderRequestID, uuid.NewString())

	return &out
}

// asClassified wraps errors that escaped classification, such as a waiter
// abandoning the renewal queue.
func asClassified(err error) error {
	var ce *domain.ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	return domain.NewClassifiedError(domain.KindOther, 0, err)
}
