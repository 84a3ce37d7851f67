package clients

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Window sources, reported alongside the computed delay.
const (
	SourceRetryAfter = "retry_after"
	SourceReset      = "reset"
	SourceDefault    = "default"
)

const maxDurationSeconds = int64(math.MaxInt64 / int64(time.Second))

// RateLimitConfig configures the rate-limit breaker.
type RateLimitConfig struct {
	// DefaultDelay is used when no usable hint is present.
	DefaultDelay time.Duration

	// MaxResetHorizon bounds accepted reset-timestamp delays. Larger values
	// are treated as clock skew and ignored.
	MaxResetHorizon time.Duration

	// MaxRetryAfter caps windows opened by a Retry-After hint. Larger hints
	// are clamped, not ignored.
	MaxRetryAfter time.Duration

	// Clock defaults to SystemClock.
	Clock Clock
}

// RateLimitBreaker tracks a server-imposed suppression window. It never
// blocks traffic: while active it only tells the classifier to stop treating
// 401s as renewal opportunities.
//
// State transitions:
//   - Inactive → Active: Trip
//   - Active → Active: Trip again (window replaced, not stacked)
//   - Active → Inactive: the scheduled timer fires at resetAt
type RateLimitBreaker struct {
	mu      sync.Mutex
	active  bool
	resetAt time.Time
	timer   Timer

	// generation invalidates timers that were stopped too late to cancel.
	generation uint64

	cfg   RateLimitConfig
	clock Clock

	// onChange is called after every transition, outside the lock.
	onChange func(active bool, resetAt time.Time)
}

// NewRateLimitBreaker creates a breaker. Zero durations fall back to 15
// minutes, one hour and one day respectively.
func NewRateLimitBreaker(cfg RateLimitConfig) *RateLimitBreaker {
	if cfg.DefaultDelay <= 0 {
		cfg.DefaultDelay = 15 * time.Minute
	}

	if cfg.MaxResetHorizon <= 0 {
		cfg.MaxResetHorizon = time.Hour
	}

	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = 24 * time.Hour
	}

	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	return &RateLimitBreaker{cfg: cfg, clock: clock}
}

// OnChange sets a callback invoked on every transition.
func (b *RateLimitBreaker) OnChange(fn func(active bool, resetAt time.Time)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// ResetDelay computes the suppression window for hints, in order of
// preference: Retry-After (seconds or HTTP-date), reset epoch seconds within
// the horizon, then the default delay.
func (b *RateLimitBreaker) ResetDelay(h Hints) (time.Duration, string) {
	now := b.clock.Now()

	if d, ok := parseRetryAfter(h.RetryAfter, now); ok {
		return min(d, b.cfg.MaxRetryAfter), SourceRetryAfter
	}

	if d, ok := parseReset(h.Reset, now); ok && d < b.cfg.MaxResetHorizon {
		return d, SourceReset
	}

	return b.cfg.DefaultDelay, SourceDefault
}

// Trip opens or replaces the suppression window and returns its end.
func (b *RateLimitBreaker) Trip(h Hints) time.Time {
	delay, _ := b.ResetDelay(h)

	return b.TripFor(delay)
}

// TripFor opens or replaces the suppression window for delay.
func (b *RateLimitBreaker) TripFor(delay time.Duration) time.Time {
	b.mu.Lock()

	if b.timer != nil {
		b.timer.Stop()
	}

	b.generation++
	gen := b.generation
	b.active = true
	b.resetAt = b.clock.Now().Add(delay)
	b.timer = b.clock.AfterFunc(delay, func() { b.expire(gen) })

	resetAt := b.resetAt
	notify := b.onChange
	b.mu.Unlock()

	if notify != nil {
		notify(true, resetAt)
	}

	return resetAt
}

// expire closes the window scheduled by generation gen.
func (b *RateLimitBreaker) expire(gen uint64) {
	b.mu.Lock()

	if gen != b.generation || !b.active {
		b.mu.Unlock()
		return
	}

	b.active = false
	b.resetAt = time.Time{}
	b.timer = nil
	notify := b.onChange
	b.mu.Unlock()

	if notify != nil {
		notify(false, time.Time{})
	}
}

// Active reports whether the suppression window is open.
func (b *RateLimitBreaker) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.active
}

// ResetAt returns the end of the current window, if active.
func (b *RateLimitBreaker) ResetAt() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.resetAt, b.active
}

// Stop cancels the pending timer. The breaker stays in its current state;
// used on shutdown.
func (b *RateLimitBreaker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}

	b.generation++
}

// parseRetryAfter accepts delta-seconds or an HTTP-date. Only positive
// delays are usable. Second counts beyond time.Duration's range saturate.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs <= 0 {
			return 0, false
		}

		if secs > maxDurationSeconds {
			return time.Duration(math.MaxInt64), true
		}

		return time.Duration(secs) * time.Second, true
	}

	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
	}

	return 0, false
}

// parseReset reads an absolute epoch-seconds timestamp. Fractional seconds
// are tolerated.
func parseReset(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}

	epoch, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}

	at := time.UnixMilli(int64(epoch * 1000))
	if d := at.Sub(now); d > 0 {
		return d, true
	}

	return 0, false
}
