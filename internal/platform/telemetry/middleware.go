package telemetry

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/jsamuelsen/session-relay/telemetry"

	// HeaderTraceID exposes the trace of a relayed call to the caller.
	HeaderTraceID = "X-Trace-ID"

	operationalPrefix = "/-/"
	unmatchedRoute    = "unmatched"
)

// ServerMetrics holds the relay's inbound HTTP instruments.
type ServerMetrics struct {
	service         attribute.KeyValue
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewServerMetrics creates the instruments on mp, or on the global meter
// provider when mp is nil.
func NewServerMetrics(mp metric.MeterProvider, serviceName string) (*ServerMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests, including those waiting on a token renewal"),
	)
	if err != nil {
		return nil, err
	}

	return &ServerMetrics{
		service:         semconv.ServiceName(serviceName),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		activeRequests:  activeRequests,
	}, nil
}

// Handler returns gin middleware that records the instruments and exposes
// the trace ID. Probe routes under /-/ are not measured.
func (m *ServerMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			c.Header(HeaderTraceID, sc.TraceID().String())
		}

		if strings.HasPrefix(c.Request.URL.Path, operationalPrefix) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		start := time.Now()
		base := metric.WithAttributes(m.service, semconv.HTTPRequestMethodKey.String(c.Request.Method), semconv.HTTPRoute(route(c)))

		m.activeRequests.Add(ctx, 1, base)
		defer m.activeRequests.Add(ctx, -1, base)

		c.Next()

		withStatus := metric.WithAttributes(semconv.HTTPResponseStatusCode(c.Writer.Status()))
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), base, withStatus)
		m.requestTotal.Add(ctx, 1, base, withStatus)
	}
}

// Middleware returns the metrics middleware on the global meter provider.
func Middleware(serviceName string) gin.HandlerFunc {
	m, err := NewServerMetrics(nil, serviceName)
	if err != nil {
		otel.Handle(err)

		return func(c *gin.Context) { c.Next() }
	}

	return m.Handler()
}

// TracingMiddleware returns the otelgin tracing middleware. Relay routes are
// named by their gin route pattern so /api/v1/relay/*path collapses into a
// single span name. Operational /-/ endpoints are not traced.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithGinFilter(func(c *gin.Context) bool {
			return !strings.HasPrefix(c.Request.URL.Path, operationalPrefix)
		}),
		otelgin.WithSpanNameFormatter(func(c *gin.Context) string {
			return c.Request.Method + " " + route(c)
		}),
	)
}

// route is the gin route pattern; unmatched paths share one label so
// arbitrary URLs cannot blow up metric cardinality.
func route(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}

	return unmatchedRoute
}
