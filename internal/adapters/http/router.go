package http

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/session-relay/internal/adapters/http/handlers"
	"github.com/jsamuelsen/session-relay/internal/adapters/http/middleware"
	"github.com/jsamuelsen/session-relay/internal/platform/telemetry"
)

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// ServiceName names the server spans.
	ServiceName string

	// HealthHandler serves /-/ endpoints. Optional.
	HealthHandler *handlers.HealthHandler

	// SessionHandler serves /api/v1/session.
	SessionHandler *handlers.SessionHandler

	// RelayHandler serves /api/v1/relay/*path.
	RelayHandler *handlers.RelayHandler
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Request ID - generate/extract request ID
//  2. Correlation ID - propagated to every backend attempt
//  3. OpenTelemetry tracing, then the trace ID on the request logger
//  4. Recovery - catch panics with the request logger in place
//  5. OpenTelemetry metrics
//  6. Logging - request logging (skips health endpoints)
//
// There is no request timeout middleware: backend attempts and renewals
// carry their own deadlines.
//
// Route groups:
//   - /-/ (internal): Health endpoints
//   - /api/v1/: session hand-off and the relay
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.ServiceName),
		middleware.TraceLogging(),
		middleware.Recovery(),
		telemetry.Middleware(cfg.ServiceName),
		middleware.Logging(),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	apiV1 := engine.Group("/api/v1")

	if cfg.SessionHandler != nil {
		cfg.SessionHandler.RegisterSessionRoutes(apiV1)
	}

	if cfg.RelayHandler != nil {
		cfg.RelayHandler.RegisterRelayRoutes(apiV1)
	}
}
