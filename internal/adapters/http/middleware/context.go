package middleware

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type (
	ctxKeyRequestID     struct{}
	ctxKeyCorrelationID struct{}
)

// RequestIDFromContext returns the relay's request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyRequestID{})
}

// CorrelationIDFromContext returns the caller's correlation ID, or "". The
// backend issuer forwards it on every attempt of a relayed call, renewal
// retries included.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyCorrelationID{})
}

// ContextWithRequestID stores a request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// ContextWithCorrelationID stores a correlation ID in the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID{}, id)
}

// TraceIDFromContext returns the active span's trace ID, or "" when the
// request is not traced.
func TraceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return ""
}

func stringFromContext(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}
