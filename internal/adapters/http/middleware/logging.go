package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/session-relay/internal/platform/logging"
)

// probePrefix marks liveness and readiness routes, which are never logged.
const probePrefix = "/-/"

// Logging returns middleware that logs one line per completed request at a
// level chosen by status: 5xx error, 4xx warn, otherwise info. Paths under
// /-/ and skipPrefixes are not logged. Query strings are left out because
// relayed calls may carry tokens in them.
func Logging(skipPrefixes ...string) gin.HandlerFunc {
	skip := append([]string{probePrefix}, skipPrefixes...)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range skip {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		start := time.Now()
		ctx := c.Request.Context()
		logger := logging.FromContext(ctx)

		logger.Debug("request started",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("client_ip", c.ClientIP()),
		)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.Int("bytes", c.Writer.Size()),
		}

		if retryAfter := c.Writer.Header().Get("Retry-After"); retryAfter != "" {
			attrs = append(attrs, slog.String("retry_after", retryAfter))
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		logger.LogAttrs(ctx, levelFor(status), "request completed", attrs...)
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// TraceLogging adds the active trace ID to the request logger. Place it after
// the tracing middleware.
func TraceLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if traceID := TraceIDFromContext(c.Request.Context()); traceID != "" {
			c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), traceID))
		}

		c.Next()
	}
}
