package clients

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/session-relay/internal/domain"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

var testTerminalCodes = []string{
	"REFRESH_TOKEN_EXPIRED",
	"REFRESH_TOKEN_INVALID",
	"INVALID_REFRESH_TOKEN",
	"USER_NOT_FOUND",
}

// fakeClock is a virtual clock. Timers fire synchronously inside Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)

	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)

	var due []*fakeTimer

	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}

	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}

	t.stopped = true

	return true
}

// fakeStore is an in-memory credential store that counts writes and clears.
type fakeStore struct {
	mu     sync.Mutex
	creds  domain.Credentials
	sets   int
	clears int
}

var _ ports.CredentialStore = (*fakeStore)(nil)

func newFakeStore(access, refresh string) *fakeStore {
	return &fakeStore{creds: domain.Credentials{AccessToken: access, RefreshToken: refresh}}
}

func (s *fakeStore) AccessToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.creds.AccessToken, nil
}

func (s *fakeStore) RefreshToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.creds.RefreshToken, nil
}

func (s *fakeStore) SetCredentials(_ context.Context, u domain.CredentialUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets++
	s.creds = s.creds.Apply(u)

	return nil
}

func (s *fakeStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clears++
	s.creds = domain.Credentials{}

	return nil
}

func (s *fakeStore) Snapshot(context.Context) (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.creds, nil
}

func (s *fakeStore) counts() (sets, clears int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sets, s.clears
}

// fakeRenewer answers renewals with fn, optionally holding each call until
// release is closed.
type fakeRenewer struct {
	calls   atomic.Int32
	release chan struct{}
	fn      func(refresh string) (*domain.CredentialUpdate, error)
}

func renewTo(access string) func(string) (*domain.CredentialUpdate, error) {
	return func(string) (*domain.CredentialUpdate, error) {
		return &domain.CredentialUpdate{AccessToken: access, RefreshToken: "refresh-" + access}, nil
	}
}

func renewFail(err error) func(string) (*domain.CredentialUpdate, error) {
	return func(string) (*domain.CredentialUpdate, error) { return nil, err }
}

func (r *fakeRenewer) Renew(ctx context.Context, refresh string) (*domain.CredentialUpdate, error) {
	r.calls.Add(1)

	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return r.fn(refresh)
}

// issuerFunc adapts a function to Issuer.
type issuerFunc func(ctx context.Context, req *ports.Request) (*ports.Response, error)

func (f issuerFunc) Send(ctx context.Context, req *ports.Request) (*ports.Response, error) {
	return f(ctx, req)
}

type harness struct {
	clock       *fakeClock
	store       *fakeStore
	renewer     *fakeRenewer
	breaker     *RateLimitBreaker
	classifier  *Classifier
	coordinator *RefreshCoordinator
	ended       atomic.Int32
}

func newHarness(t *testing.T, store *fakeStore, renewer *fakeRenewer) *harness {
	t.Helper()

	h := &harness{
		clock:      newFakeClock(),
		store:      store,
		renewer:    renewer,
		classifier: NewClassifier(testTerminalCodes, false),
	}

	h.breaker = NewRateLimitBreaker(RateLimitConfig{
		DefaultDelay:    15 * time.Minute,
		MaxResetHorizon: time.Hour,
		Clock:           h.clock,
	})

	coordinator, err := NewRefreshCoordinator(&RefreshConfig{
		Store:      store,
		Renewer:    renewer,
		Classifier: h.classifier,
		Breaker:    h.breaker,
		Timeout:    5 * time.Second,
		OnSessionEnded: func(context.Context, error) {
			h.ended.Add(1)
		},
	})
	require.NoError(t, err)

	h.coordinator = coordinator

	return h
}

func (h *harness) client(t *testing.T, issuer Issuer) *Client {
	t.Helper()

	c, err := New(&Config{
		Issuer:      issuer,
		Store:       h.store,
		Classifier:  h.classifier,
		Breaker:     h.breaker,
		Coordinator: h.coordinator,
	})
	require.NoError(t, err)

	return c
}

// queued returns the number of callers waiting on the current renewal.
func queued(rc *RefreshCoordinator) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return len(rc.waiters)
}

func waitQueued(t *testing.T, rc *RefreshCoordinator, n int) {
	t.Helper()

	require.Eventually(t, func() bool { return queued(rc) == n },
		2*time.Second, time.Millisecond, "expected %d queued callers", n)
}
