package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/session-relay/internal/adapters/http/dto"
	"github.com/jsamuelsen/session-relay/internal/platform/logging"
)

// Recovery turns a handler panic into a logged stack trace and a 500
// INTERNAL_ERROR envelope. Install it first so it covers everything after.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := c.Request.Context()

			logging.FromContext(ctx).Error("panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
			)

			// A relayed body may already be streaming; its status is sent.
			if c.Writer.Written() {
				c.Abort()
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred").
					WithTraceID(TraceIDFromContext(ctx)))
		}()

		c.Next()
	}
}
