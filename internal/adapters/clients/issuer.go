package clients

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jsamuelsen/session-relay/internal/adapters/http/middleware"
	"github.com/jsamuelsen/session-relay/internal/platform/config"
	"github.com/jsamuelsen/session-relay/internal/platform/logging"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

const (
	instrumentationName = "github.com/jsamuelsen/session-relay/internal/adapters/clients"

	defaultTimeout         = 30 * time.Second
	defaultMaxResponseSize = 10 << 20
)

// Issuer executes a single HTTP request. Non-2xx responses are returned as
// *ResponseError; anything else is a transport failure.
type Issuer interface {
	Send(ctx context.Context, req *ports.Request) (*ports.Response, error)
}

// IssuerConfig configures an HTTPIssuer. Zero Timeout and MaxResponseSize
// fall back to package defaults; a nil Logger uses slog.Default.
type IssuerConfig struct {
	BaseURL         string
	ServiceName     string
	Timeout         time.Duration
	MaxResponseSize int64

	// MaxRPS enables client-side pacing when positive. Burst defaults to 1.
	MaxRPS float64
	Burst  int

	Transport config.TransportConfig
	Logger    *slog.Logger
}

// HTTPIssuer is an instrumented net/http request issuer. It does not retry.
type HTTPIssuer struct {
	http        *http.Client
	baseURL     string
	serviceName string
	timeout     time.Duration
	maxBody     int64
	limiter     *rate.Limiter
	logger      *slog.Logger
	tracer      trace.Tracer
	sends       sendInstruments
}

type sendInstruments struct {
	latency metric.Float64Histogram
	count   metric.Int64Counter
}

func newSendInstruments(meter metric.Meter) (sendInstruments, error) {
	latency, err := meter.Float64Histogram("relay.backend.send.duration",
		metric.WithDescription("Time spent on a single backend send, body included"),
		metric.WithUnit("s"))
	if err != nil {
		return sendInstruments{}, fmt.Errorf("backend send histogram: %w", err)
	}

	count, err := meter.Int64Counter("relay.backend.sends",
		metric.WithDescription("Backend sends by method and outcome"))
	if err != nil {
		return sendInstruments{}, fmt.Errorf("backend send counter: %w", err)
	}

	return sendInstruments{latency: latency, count: count}, nil
}

// NewHTTPIssuer creates an issuer.
func NewHTTPIssuer(cfg *IssuerConfig) (*HTTPIssuer, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("issuer config is required")
	case cfg.ServiceName == "":
		return nil, errors.New("issuer needs a backend service name")
	}

	sends, err := newSendInstruments(otel.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.MaxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), max(cfg.Burst, 1))
	}

	logger := cmp.Or(cfg.Logger, slog.Default())

	return &HTTPIssuer{
		http: &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.Transport.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		}},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		serviceName: cfg.ServiceName,
		timeout:     positiveOr(cfg.Timeout, defaultTimeout),
		maxBody:     positiveOr(cfg.MaxResponseSize, defaultMaxResponseSize),
		limiter:     limiter,
		logger:      logger.With(slog.String("component", "clients.HTTPIssuer")),
		tracer:      otel.Tracer(instrumentationName),
		sends:       sends,
	}, nil
}

func positiveOr[T ~int64](v, fallback T) T {
	if v > 0 {
		return v
	}

	return fallback
}

// Send executes req once and buffers the response.
func (i *HTTPIssuer) Send(ctx context.Context, req *ports.Request) (*ports.Response, error) {
	began := time.Now()

	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for send slot: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, positiveOr(req.Timeout, i.timeout))
	defer cancel()

	httpReq, err := i.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, span := i.tracer.Start(ctx, httpReq.Method+" "+i.serviceName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(httpReq.Method),
			semconv.URLFull(httpReq.URL.Redacted()),
			semconv.PeerService(i.serviceName),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	status, body, header, err := i.exchange(httpReq.WithContext(ctx))
	i.observe(ctx, span, httpReq, status, time.Since(began), err)

	if err != nil {
		return nil, err
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &ResponseError{Status: status, Header: header, Body: body}
	}

	return &ports.Response{Status: status, Header: header, Body: body}, nil
}

// exchange performs the round trip and buffers at most maxBody bytes. A zero
// status means the request never got a response.
func (i *HTTPIssuer) exchange(httpReq *http.Request) (int, []byte, http.Header, error) {
	resp, err := i.http.Do(httpReq)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s %s: %w", httpReq.Method, httpReq.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := i.readBody(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, nil, err
	}

	return resp.StatusCode, body, resp.Header, nil
}

func (i *HTTPIssuer) observe(ctx context.Context, span trace.Span, httpReq *http.Request, status int, took time.Duration, err error) {
	outcome := "error"
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(httpReq.Method),
		semconv.PeerService(i.serviceName),
	}

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusBadRequest:
		span.SetStatus(codes.Error, http.StatusText(status))
	}

	if status > 0 {
		attrs = append(attrs, semconv.HTTPResponseStatusCode(status))
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))

		if err == nil {
			outcome = strconv.Itoa(status/100) + "xx"
		}
	}

	attrs = append(attrs, attribute.String("outcome", outcome))
	i.sends.latency.Record(ctx, took.Seconds(), metric.WithAttributes(attrs...))
	i.sends.count.Add(ctx, 1, metric.WithAttributes(attrs...))

	logging.FromContextOr(ctx, i.logger).Debug("backend send",
		slog.String("downstream", i.serviceName),
		slog.String("method", httpReq.Method),
		slog.String("path", httpReq.URL.Path),
		slog.Int("status", status),
		slog.String("outcome", outcome),
		slog.Duration("took", took),
		slog.Any("error", err),
	)
}

func (i *HTTPIssuer) newRequest(ctx context.Context, req *ports.Request) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, i.buildURL(req.URL), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	if httpReq.Header.Get(middleware.HeaderRequestID) == "" {
		httpReq.Header.Set(middleware.HeaderRequestID, uuid.NewString())
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		httpReq.Header.Set(middleware.HeaderCorrelationID, id)
	}

	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}

func (i *HTTPIssuer) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, i.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if int64(len(body)) > i.maxBody {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, i.maxBody)
	}

	return body, nil
}

// buildURL resolves path against the base URL. Absolute URLs pass through.
func (i *HTTPIssuer) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	return i.baseURL + "/" + strings.TrimPrefix(path, "/")
}
