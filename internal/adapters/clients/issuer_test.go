package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jsamuelsen/session-relay/internal/adapters/http/middleware"
	"github.com/jsamuelsen/session-relay/internal/domain"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

func newTestIssuer(t *testing.T, baseURL string, mutate ...func(*IssuerConfig)) *HTTPIssuer {
	t.Helper()

	cfg := &IssuerConfig{BaseURL: baseURL, ServiceName: "marketplace-api", Timeout: 5 * time.Second}
	for _, m := range mutate {
		m(cfg)
	}

	issuer, err := NewHTTPIssuer(cfg)
	require.NoError(t, err)

	return issuer
}

func TestNewHTTPIssuer_Validation(t *testing.T) {
	_, err := NewHTTPIssuer(nil)
	assert.ErrorContains(t, err, "config is required")

	_, err = NewHTTPIssuer(&IssuerConfig{})
	assert.ErrorContains(t, err, "backend service name")
}

func TestNewHTTPIssuer_Defaults(t *testing.T) {
	issuer := newTestIssuer(t, "https://api.example.com/", func(c *IssuerConfig) { c.Timeout = 0 })

	assert.Equal(t, "https://api.example.com", issuer.baseURL)
	assert.Equal(t, defaultTimeout, issuer.timeout)
	assert.EqualValues(t, defaultMaxResponseSize, issuer.maxBody)
	assert.Nil(t, issuer.limiter)

	paced := newTestIssuer(t, "", func(c *IssuerConfig) { c.MaxRPS = 5 })
	require.NotNil(t, paced.limiter)
	assert.Equal(t, 1, paced.limiter.Burst())
}

func TestHTTPIssuer_BuildURL(t *testing.T) {
	issuer := newTestIssuer(t, "https://api.example.com")

	tests := []struct {
		path string
		want string
	}{
		{"/v1/listings", "https://api.example.com/v1/listings"},
		{"v1/listings", "https://api.example.com/v1/listings"},
		{"https://cdn.example.com/x", "https://cdn.example.com/x"},
		{"http://other.example.com/y", "http://other.example.com/y"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, issuer.buildURL(tt.path))
		})
	}
}

func TestHTTPIssuer_Send(t *testing.T) {
	var got *http.Request
	var gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer server.Close()

	issuer := newTestIssuer(t, server.URL)
	ctx := middleware.ContextWithCorrelationID(context.Background(), "corr-1")

	resp, err := issuer.Send(ctx, &ports.Request{
		Method: http.MethodPost,
		URL:    "/v1/orders",
		Header: http.Header{"Authorization": {"Bearer tok"}},
		Body:   []byte(`{"qty":1}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "yes", resp.Header.Get("X-Upstream"))
	assert.JSONEq(t, `{"id":"42"}`, string(resp.Body))

	assert.Equal(t, "/v1/orders", got.URL.Path)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "corr-1", got.Header.Get(middleware.HeaderCorrelationID))
	assert.NotEmpty(t, got.Header.Get(middleware.HeaderRequestID))
	assert.JSONEq(t, `{"qty":1}`, gotBody)
}

func TestHTTPIssuer_KeepsCallerRequestID(t *testing.T) {
	var requestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get(middleware.HeaderRequestID)
	}))
	defer server.Close()

	_, err := newTestIssuer(t, server.URL).Send(context.Background(), &ports.Request{
		Method: http.MethodGet,
		URL:    "/",
		Header: http.Header{middleware.HeaderRequestID: {"req-7"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "req-7", requestID)
}

func TestHTTPIssuer_NonSuccessIsResponseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"slow down"}}`))
	}))
	defer server.Close()

	_, err := newTestIssuer(t, server.URL).Send(context.Background(), &ports.Request{Method: http.MethodGet, URL: "/"})

	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusTooManyRequests, re.Status)
	assert.Equal(t, "120", re.Header.Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", re.Code())
	assert.Contains(t, re.Error(), "429")
}

func TestHTTPIssuer_ResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	issuer := newTestIssuer(t, server.URL, func(c *IssuerConfig) { c.MaxResponseSize = 16 })
	_, err := issuer.Send(context.Background(), &ports.Request{Method: http.MethodGet, URL: "/"})

	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestHTTPIssuer_TransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestIssuer(t, url).Send(context.Background(), &ports.Request{Method: http.MethodGet, URL: "/"})
	require.Error(t, err)

	var re *ResponseError
	assert.False(t, errors.As(err, &re))

	cls := NewClassifier(nil, false).Classify(err, Attempt{}, false)
	assert.Equal(t, domain.KindNetworkError, cls.Kind)
}

func TestHTTPIssuer_PerRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	_, err := newTestIssuer(t, server.URL).Send(context.Background(), &ports.Request{
		Method:  http.MethodGet,
		URL:     "/",
		Timeout: 20 * time.Millisecond,
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.KindNetworkError, NewClassifier(nil, false).Classify(err, Attempt{}, false).Kind)
}

func TestHTTPIssuer_RecordsSendOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	issuer := newTestIssuer(t, server.URL)
	for _, path := range []string{"/ok", "/ok", "/down"} {
		_, _ = issuer.Send(context.Background(), &ports.Request{Method: http.MethodGet, URL: path})
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	outcomes := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "relay.backend.sends" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				outcomes[outcome.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{"2xx": 2, "5xx": 1}, outcomes)
}
