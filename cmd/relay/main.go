// Package main is the entry point for the session relay.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen/session-relay/internal/adapters/clients"
	"github.com/jsamuelsen/session-relay/internal/adapters/clients/acl"
	"github.com/jsamuelsen/session-relay/internal/adapters/http"
	"github.com/jsamuelsen/session-relay/internal/adapters/http/handlers"
	"github.com/jsamuelsen/session-relay/internal/adapters/store"
	"github.com/jsamuelsen/session-relay/internal/app"
	"github.com/jsamuelsen/session-relay/internal/platform/config"
	"github.com/jsamuelsen/session-relay/internal/platform/logging"
	"github.com/jsamuelsen/session-relay/internal/platform/telemetry"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "session-relay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	logging.SetDefault(logger)

	logger.Info("starting session relay",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.String("store", cfg.Session.Store.Driver),
	)

	// Cancelled on SIGINT/SIGTERM; background work outlives it until cleanup.
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx := context.WithoutCancel(sigCtx)

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer closeWith(logger, "telemetry shutdown", func() error { return telProvider.Shutdown(ctx) })

	credStore, err := store.New(ctx, &cfg.Session.Store)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer closeWith(logger, "credential store close", credStore.Close)

	client, breaker, sessionAPI, err := newResilientClient(cfg, credStore, telProvider.MeterProvider(), logger)
	if err != nil {
		return err
	}
	defer breaker.Stop()

	if err := telemetry.RegisterStateGauges(prometheus.DefaultRegisterer, client); err != nil {
		return fmt.Errorf("registering state gauges: %w", err)
	}

	// The store gates readiness; the breaker is advisory.
	healthRegistry := ports.NewHealthRegistry()
	for _, checker := range []ports.HealthChecker{credStore, breaker} {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering health check: %w", err)
		}
	}

	sessionService := app.NewSessionService(app.SessionServiceConfig{
		Store:     credStore,
		Backend:   client,
		State:     client,
		Inspector: sessionAPI,
		Logger:    logger,
	})

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		ServiceName:    cfg.App.Name,
		HealthHandler:  handlers.NewHealthHandler(healthRegistry, handlers.NewBuildInfo(Version, Commit, BuildTime)),
		SessionHandler: handlers.NewSessionHandler(sessionService),
		RelayHandler:   handlers.NewRelayHandler(sessionService),
	})

	return serve(sigCtx, logger, server, cfg.Server.ShutdownTimeout)
}

// loadConfig resolves the profile from APP_ENVIRONMENT and refuses to start
// on an invalid configuration.
func loadConfig() (*config.Config, error) {
	profile := cmp.Or(os.Getenv("APP_ENVIRONMENT"), "local")

	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading %s config: %w", profile, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", profile, err)
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	file := cfg.Log.File

	return logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    file.Enabled,
			Path:       file.Path,
			MaxSizeMB:  file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAgeDays: file.MaxAgeDays,
			Compress:   file.Compress,
		},
	})
}

func closeWith(logger *slog.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Error(what+" failed", slog.Any("error", err))
	}
}

// newResilientClient wires issuer, classifier, breaker, renewal ACL and
// coordinator into the resilient client.
func newResilientClient(
	cfg *config.Config,
	credStore ports.CredentialStore,
	mp metric.MeterProvider,
	logger *slog.Logger,
) (*clients.Client, *clients.RateLimitBreaker, *acl.SessionAPI, error) {
	issuer, err := clients.NewHTTPIssuer(&clients.IssuerConfig{
		BaseURL:         cfg.Backend.BaseURL,
		ServiceName:     cfg.Backend.Name,
		Timeout:         cfg.Backend.Timeout,
		MaxResponseSize: cfg.Backend.MaxResponseSize,
		MaxRPS:          cfg.Backend.MaxRPS,
		Burst:           cfg.Backend.Burst,
		Transport:       cfg.Backend.Transport,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating backend issuer: %w", err)
	}

	metrics, err := telemetry.NewResilienceMetrics(mp)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating resilience metrics: %w", err)
	}

	classifier := clients.NewClassifier(
		cfg.Session.TerminalCodes,
		cfg.Session.AmbiguousUnauthorized == config.UnauthorizedTerminal,
	)

	breaker := clients.NewRateLimitBreaker(clients.RateLimitConfig{
		DefaultDelay:    cfg.RateLimit.DefaultDelay,
		MaxResetHorizon: cfg.RateLimit.MaxResetHorizon,
		MaxRetryAfter:   cfg.RateLimit.MaxRetryAfter,
	})
	breaker.OnChange(func(active bool, resetAt time.Time) {
		if active {
			logger.Warn("backend rate limited", slog.Time("reset_at", resetAt))
			return
		}

		logger.Info("backend rate limit window closed")
	})

	// Renewal goes through the raw issuer, never the resilient client.
	sessionAPI, err := acl.NewSessionAPI(acl.SessionAPIConfig{
		Issuer:      issuer,
		RenewalPath: cfg.Session.RenewalPath,
		Timeout:     cfg.Session.RenewalTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating session api: %w", err)
	}

	// Only the shared redis store serializes renewals across relays.
	locker, _ := credStore.(ports.RenewalLocker)

	coordinator, err := clients.NewRefreshCoordinator(&clients.RefreshConfig{
		Store:      credStore,
		Locker:     locker,
		Renewer:    sessionAPI,
		Classifier: classifier,
		Breaker:    breaker,
		Timeout:    cfg.Session.RenewalTimeout,
		OnSessionEnded: func(ctx context.Context, cause error) {
			logging.FromContext(ctx).Warn("session ended; sign-in required", slog.Any("cause", cause))
		},
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating refresh coordinator: %w", err)
	}

	client, err := clients.New(&clients.Config{
		Issuer:      issuer,
		Store:       credStore,
		Classifier:  classifier,
		Breaker:     breaker,
		Coordinator: coordinator,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating resilient client: %w", err)
	}

	return client, breaker, sessionAPI, nil
}

// serve runs the server until it fails or ctx is cancelled, then drains
// in-flight relays within drain.
func serve(ctx context.Context, logger *slog.Logger, server *http.Server, drain time.Duration) error {
	serverErr := server.Start()

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		return errors.New("server stopped unexpectedly")
	case <-ctx.Done():
		logger.Info("shutdown requested", slog.Duration("drain", drain))
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drain)
	defer cancel()

	if err := server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("draining server: %w", err)
	}

	logger.Info("session relay stopped")

	return nil
}
