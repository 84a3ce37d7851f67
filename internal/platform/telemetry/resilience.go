package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const resilienceInstrumentation = "github.com/jsamuelsen/session-relay/resilience"

// ResilienceMetrics records renewal, throttling and classification outcomes
// of the marketplace API client. A nil *ResilienceMetrics is a no-op.
type ResilienceMetrics struct {
	failures       metric.Int64Counter
	renewals       metric.Int64Counter
	renewalWaiters metric.Int64Histogram
	rateLimitTrips metric.Int64Counter
	rateLimitDelay metric.Float64Histogram
	sessionEnds    metric.Int64Counter
}

// NewResilienceMetrics creates the instruments on mp, or on the global meter
// provider when mp is nil.
func NewResilienceMetrics(mp metric.MeterProvider) (*ResilienceMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(resilienceInstrumentation)

	failures, err := meter.Int64Counter(
		"relay.client.failures",
		metric.WithDescription("Failed backend requests by classification"),
	)
	if err != nil {
		return nil, err
	}

	renewals, err := meter.Int64Counter(
		"relay.session.renewals",
		metric.WithDescription("Token renewal calls by outcome"),
	)
	if err != nil {
		return nil, err
	}

	renewalWaiters, err := meter.Int64Histogram(
		"relay.session.renewal_waiters",
		metric.WithDescription("Callers settled by a single renewal"),
	)
	if err != nil {
		return nil, err
	}

	rateLimitTrips, err := meter.Int64Counter(
		"relay.ratelimit.trips",
		metric.WithDescription("Times the rate-limit window was opened or extended"),
	)
	if err != nil {
		return nil, err
	}

	rateLimitDelay, err := meter.Float64Histogram(
		"relay.ratelimit.delay",
		metric.WithDescription("Length of the rate-limit window"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	sessionEnds, err := meter.Int64Counter(
		"relay.session.ended",
		metric.WithDescription("Sessions cleared after a terminal auth failure"),
	)
	if err != nil {
		return nil, err
	}

	return &ResilienceMetrics{
		failures:       failures,
		renewals:       renewals,
		renewalWaiters: renewalWaiters,
		rateLimitTrips: rateLimitTrips,
		rateLimitDelay: rateLimitDelay,
		sessionEnds:    sessionEnds,
	}, nil
}

// Failure counts a classified request failure.
func (m *ResilienceMetrics) Failure(ctx context.Context, kind string) {
	if m == nil {
		return
	}

	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Renewal counts a finished renewal and how many callers it settled.
func (m *ResilienceMetrics) Renewal(ctx context.Context, outcome string, waiters int) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.renewals.Add(ctx, 1, attrs)
	m.renewalWaiters.Record(ctx, int64(waiters), attrs)
}

// RateLimitTripped counts an opened or extended rate-limit window.
func (m *ResilienceMetrics) RateLimitTripped(ctx context.Context, delay time.Duration, source string) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("source", source))
	m.rateLimitTrips.Add(ctx, 1, attrs)
	m.rateLimitDelay.Record(ctx, delay.Seconds(), attrs)
}

// SessionEnded counts a cleared session.
func (m *ResilienceMetrics) SessionEnded(ctx context.Context) {
	if m == nil {
		return
	}

	m.sessionEnds.Add(ctx, 1)
}

// StateSource exposes the live resilience state for scraping.
type StateSource interface {
	RateLimitedUntil() (time.Time, bool)
	Renewing() bool
}

// RegisterStateGauges registers Prometheus gauges for the rate-limit window
// and in-flight renewal on reg.
func RegisterStateGauges(reg prometheus.Registerer, src StateSource) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "session_relay",
			Name:      "rate_limited",
			Help:      "1 while the backend rate-limit window is open.",
		}, func() float64 {
			_, active := src.RateLimitedUntil()
			return boolGauge(active)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "session_relay",
			Name:      "rate_limit_remaining_seconds",
			Help:      "Seconds until the rate-limit window closes.",
		}, func() float64 {
			until, active := src.RateLimitedUntil()
			if !active {
				return 0
			}

			return max(time.Until(until).Seconds(), 0)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "session_relay",
			Name:      "renewal_in_flight",
			Help:      "1 while a token renewal is in flight.",
		}, func() float64 {
			return boolGauge(src.Renewing())
		}),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
