// Package app contains application services that orchestrate use cases.
// This is the application layer in Clean Architecture - it coordinates
// domain logic and infrastructure through ports.
//
// Application Layer Responsibilities:
//   - Orchestrate use cases (sign-in hand-off, sign-out, relaying requests)
//   - Coordinate between domain and infrastructure
//   - Handle cross-cutting concerns (logging)
//
// What does NOT belong here:
//   - HTTP specifics (that's adapters)
//   - Token renewal and failure classification (that's the resilient client)
//   - Core domain logic (that's the domain layer)
package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/session-relay/internal/platform/logging"
)

// methodLogger returns the request-scoped logger, or the service logger
// outside a request, tagged with the method name.
func methodLogger(ctx context.Context, fallback *slog.Logger, method string) *slog.Logger {
	return logging.FromContextOr(ctx, fallback).With(slog.String("method", method))
}
