package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/session-relay/internal/adapters/http/dto"
	"github.com/jsamuelsen/session-relay/internal/adapters/http/middleware"
	"github.com/jsamuelsen/session-relay/internal/domain"
	"github.com/jsamuelsen/session-relay/internal/platform/logging"
)

// now is replaced in tests.
var now = time.Now

// MapDomainError maps a domain error to an HTTP status code and error response.
// Unknown errors are mapped to 500 Internal Server Error with a generic message.
//
// Upstream responses that are forwarded verbatim (see UpstreamResponse) never
// reach this mapping.
func MapDomainError(err error) (int, *dto.ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case domain.IsValidation(err):
		resp := dto.NewErrorResponse(dto.ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.WithDetails(map[string]string{validationErr.Field: validationErr.Message})
		}

		return http.StatusBadRequest, resp

	case domain.IsSessionEnded(err):
		return http.StatusUnauthorized, dto.NewErrorResponse(
			dto.ErrorCodeSessionEnded,
			"session ended; sign in again",
		)

	case domain.IsRateLimited(err):
		return http.StatusTooManyRequests, dto.NewErrorResponse(
			dto.ErrorCodeRateLimited,
			"backend rate limit active",
		)

	case errors.Is(err, domain.ErrNetwork):
		return http.StatusServiceUnavailable, dto.NewErrorResponse(
			dto.ErrorCodeUnavailable,
			"backend unreachable",
		)

	case errors.Is(err, domain.ErrServerError), errors.Is(err, domain.ErrRequestFailed),
		errors.Is(err, domain.ErrAuthExpired):
		return http.StatusBadGateway, dto.NewErrorResponse(
			dto.ErrorCodeUpstream,
			"backend request failed",
		)

	default:
		// Unknown errors get a generic message to avoid leaking internals
		return http.StatusInternalServerError, dto.NewErrorResponse(
			dto.ErrorCodeInternal,
			"an internal error occurred",
		)
	}
}

// UpstreamResponse returns the classified error when it carries a backend
// response that should reach the caller verbatim: server errors and
// unclassified failures such as 400, 403 or 404.
func UpstreamResponse(err error) (*domain.ClassifiedError, bool) {
	var ce *domain.ClassifiedError
	if !errors.As(err, &ce) || ce.Status == 0 {
		return nil, false
	}

	switch ce.Kind {
	case domain.KindServerError, domain.KindOther:
		return ce, true
	default:
		return nil, false
	}
}

// RetryAfterSeconds returns the Retry-After value for a rate-limited error,
// rounded up and at least 1.
func RetryAfterSeconds(err error) (string, bool) {
	var ce *domain.ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != domain.KindRateLimited || ce.ResetAt.IsZero() {
		return "", false
	}

	secs := math.Ceil(ce.ResetAt.Sub(now()).Seconds())

	return strconv.Itoa(max(int(secs), 1)), true
}

// RespondWithError writes an error response to the gin.Context.
// It maps domain errors to HTTP responses and includes the trace ID if available.
func RespondWithError(c *gin.Context, err error) {
	status, errResp := MapDomainError(err)
	errResp.WithTraceID(middleware.TraceIDFromContext(c.Request.Context()))

	if retryAfter, ok := RetryAfterSeconds(err); ok {
		c.Header("Retry-After", retryAfter)
	}

	// Log internal errors with full details
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("internal error",
			slog.String("error", err.Error()),
			slog.String("trace_id", errResp.TraceID),
		)
	}

	c.JSON(status, errResp)
}

// RespondWithErrorCode writes an error response with a specific error code.
// Use this for adapter-level errors (e.g., bad request bodies) that
// don't originate from domain errors.
func RespondWithErrorCode(c *gin.Context, code, message string) {
	errResp := dto.NewErrorResponse(code, message).
		WithTraceID(middleware.TraceIDFromContext(c.Request.Context()))

	c.JSON(dto.HTTPStatusFromCode(code), errResp)
}

// RespondWithValidationErrors writes a 400 response with field-level validation errors.
func RespondWithValidationErrors(c *gin.Context, fieldErrors map[string]string) {
	errResp := dto.NewErrorResponse(dto.ErrorCodeValidation, "request validation failed").
		WithDetails(fieldErrors).
		WithTraceID(middleware.TraceIDFromContext(c.Request.Context()))

	c.JSON(http.StatusBadRequest, errResp)
}
