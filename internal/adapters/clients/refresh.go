package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/session-relay/internal/domain"
	"github.com/jsamuelsen/session-relay/internal/platform/logging"
	"github.com/jsamuelsen/session-relay/internal/platform/telemetry"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

// defaultRenewalTimeout bounds a renewal call when none is configured.
const defaultRenewalTimeout = 15 * time.Second

// Renewer exchanges a refresh token for new credentials.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (*domain.CredentialUpdate, error)
}

// RefreshConfig configures a RefreshCoordinator.
type RefreshConfig struct {
	Store      ports.CredentialStore
	Renewer    Renewer
	Classifier *Classifier
	Breaker    *RateLimitBreaker

	// Locker serializes renewals with other relay instances sharing Store.
	// Nil means this process is the only renewer.
	Locker ports.RenewalLocker

	// Timeout bounds a single renewal call, lock wait included. It is also
	// the lock's expiry.
	Timeout time.Duration

	// OnSessionEnded is called once each time a terminal auth failure clears
	// the store.
	OnSessionEnded func(ctx context.Context, cause error)

	Metrics *telemetry.ResilienceMetrics
	Logger  *slog.Logger
}

type renewalResult struct {
	token string
	err   error
}

type waiter struct {
	ticket uint64
	ch     chan renewalResult
}

// RefreshCoordinator guarantees at most one renewal call is in flight.
// Callers arriving while one is outstanding queue behind it and all receive
// its result, in arrival order. With a Locker the guarantee spans every
// relay sharing the store.
//
// State machine: Idle → Refreshing → Idle.
type RefreshCoordinator struct {
	mu         sync.Mutex
	inFlight   bool
	waiters    []waiter
	nextTicket uint64

	store      ports.CredentialStore
	renewer    Renewer
	classifier *Classifier
	breaker    *RateLimitBreaker
	locker     ports.RenewalLocker
	timeout    time.Duration
	onEnded    func(ctx context.Context, cause error)
	metrics    *telemetry.ResilienceMetrics
	logger     *slog.Logger

	// onWaiterSettled observes hand-off order. Called with mu held.
	onWaiterSettled func(ticket uint64)
}

// NewRefreshCoordinator creates a coordinator.
func NewRefreshCoordinator(cfg *RefreshConfig) (*RefreshCoordinator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.Store == nil || cfg.Renewer == nil || cfg.Classifier == nil || cfg.Breaker == nil {
		return nil, errors.New("store, renewer, classifier and breaker are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRenewalTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	locker := cfg.Locker
	if locker == nil {
		locker = processLocal{}
	}

	return &RefreshCoordinator{
		store:      cfg.Store,
		locker:     locker,
		renewer:    cfg.Renewer,
		classifier: cfg.Classifier,
		breaker:    cfg.Breaker,
		timeout:    timeout,
		onEnded:    cfg.OnSessionEnded,
		metrics:    cfg.Metrics,
		logger:     logger.With(slog.String("component", "clients.RefreshCoordinator")),
	}, nil
}

// RequestRenewal returns a fresh access token, starting a renewal only if
// none is in flight. ctx bounds the wait of this caller only; an abandoned
// renewal still completes and updates the store.
//
// Errors are *domain.ClassifiedError, or ctx.Err() if the caller gave up.
func (rc *RefreshCoordinator) RequestRenewal(ctx context.Context) (string, error) {
	rc.mu.Lock()

	w := waiter{ticket: rc.nextTicket, ch: make(chan renewalResult, 1)}
	rc.nextTicket++
	rc.waiters = append(rc.waiters, w)

	leader := !rc.inFlight
	rc.inFlight = true

	rc.mu.Unlock()

	if leader {
		go rc.renew(context.WithoutCancel(ctx))
	} else {
		logging.Trace(ctx, "joined in-flight renewal", slog.Uint64("ticket", w.ticket))
	}

	select {
	case res := <-w.ch:
		return res.token, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Renewing reports whether a renewal is in flight.
func (rc *RefreshCoordinator) Renewing() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return rc.inFlight
}

// EndSession clears the store and fires the session-ended callback.
func (rc *RefreshCoordinator) EndSession(ctx context.Context, cause error) {
	if err := rc.store.Clear(ctx); err != nil {
		logging.FromContextOr(ctx, rc.logger).Error("clearing credentials after terminal auth failure",
			slog.Any("error", err),
		)
	}

	rc.metrics.SessionEnded(ctx)
	logging.FromContextOr(ctx, rc.logger).Warn("session ended", slog.Any("cause", cause))

	if rc.onEnded != nil {
		rc.onEnded(ctx, cause)
	}
}

func (rc *RefreshCoordinator) renew(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	start := time.Now()
	token, err := rc.exchange(ctx)
	waiters := rc.settle(renewalResult{token: token, err: err})

	outcome := "success"
	if err != nil {
		outcome = domain.KindOf(err).String()
	}

	rc.metrics.Renewal(ctx, outcome, waiters)

	logger := logging.FromContextOr(ctx, rc.logger).With(
		slog.Int("waiters", waiters),
		slog.Duration("duration", time.Since(start)),
	)
	if err != nil {
		logger.Warn("token renewal failed", slog.String("kind", outcome), slog.Any("error", err))
		return
	}

	logger.Info("token renewed")
}

// exchange performs the renewal call under the renewal lock and writes the
// result to the store before any waiter is released. If another instance
// rotated the refresh token while this one waited for the lock, its access
// token is adopted instead of renewing again.
func (rc *RefreshCoordinator) exchange(ctx context.Context) (string, error) {
	seen, err := rc.refreshToken(ctx)
	if err != nil {
		return "", err
	}

	release, err := rc.locker.AcquireRenewal(ctx, rc.timeout)
	if err != nil {
		return "", domain.NewClassifiedError(domain.KindOther, 0, fmt.Errorf("acquiring renewal lock: %w", err))
	}

	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logging.FromContextOr(ctx, rc.logger).Warn("releasing renewal lock", slog.Any("error", err))
		}
	}()

	refresh, err := rc.refreshToken(ctx)
	if err != nil {
		return "", err
	}

	if refresh != seen {
		access, err := rc.store.AccessToken(ctx)
		if err != nil {
			return "", domain.NewClassifiedError(domain.KindOther, 0, fmt.Errorf("reading access token: %w", err))
		}

		if access != "" {
			logging.Trace(ctx, "adopted renewal by another relay")
			return access, nil
		}
	}

	update, err := rc.renewer.Renew(ctx, refresh)
	if err != nil {
		return "", rc.fail(ctx, err)
	}

	if err := rc.store.SetCredentials(ctx, *update); err != nil {
		return "", domain.NewClassifiedError(domain.KindOther, 0, fmt.Errorf("storing renewed credentials: %w", err))
	}

	return update.AccessToken, nil
}

// refreshToken reads the stored refresh token. A missing one ends the
// session.
func (rc *RefreshCoordinator) refreshToken(ctx context.Context) (string, error) {
	refresh, err := rc.store.RefreshToken(ctx)
	if err != nil {
		return "", domain.NewClassifiedError(domain.KindOther, 0, fmt.Errorf("reading refresh token: %w", err))
	}

	if refresh == "" {
		ce := domain.NewClassifiedError(domain.KindTerminalAuth, 0, ErrNoRefreshToken)
		rc.EndSession(ctx, ce)

		return "", ce
	}

	return refresh, nil
}

// processLocal is the Locker for stores private to this process, where the
// coordinator's own queue already serializes renewals.
type processLocal struct{}

func (processLocal) AcquireRenewal(context.Context, time.Duration) (ports.ReleaseFunc, error) {
	return func(context.Context) error { return nil }, nil
}

// fail classifies a failed renewal call. Only a terminal classification
// touches the store.
func (rc *RefreshCoordinator) fail(ctx context.Context, err error) error {
	cls := rc.classifier.Classify(err, Attempt{Renewal: true, Anonymous: true}, rc.breaker.Active())
	ce := cls.Error(err)

	rc.metrics.Failure(ctx, cls.Kind.String())

	switch cls.Kind {
	case domain.KindRateLimited:
		delay, source := rc.breaker.ResetDelay(cls.Hints)
		ce.ResetAt = rc.breaker.TripFor(delay)
		rc.metrics.RateLimitTripped(ctx, delay, source)
	case domain.KindTerminalAuth:
		rc.EndSession(ctx, ce)
	}

	return ce
}

// settle releases every queued waiter in FIFO order and returns to Idle.
func (rc *RefreshCoordinator) settle(res renewalResult) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	waiters := rc.waiters
	rc.waiters = nil
	rc.inFlight = false

	for _, w := range waiters {
		w.ch <- res

		if rc.onWaiterSettled != nil {
			rc.onWaiterSettled(w.ticket)
		}
	}

	return len(waiters)
}
