//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// renewalDelay keeps the renewal open long enough for concurrent screens to
// queue behind it.
const renewalDelay = 200 * time.Millisecond

// fakeBackend is a marketplace API double: bearer-token auth on every route,
// token rotation on /auth/refresh, and an optional rate-limit window.
type fakeBackend struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	generation   int
	renewals     int
	revoked      bool
	retryAfter   string

	// staleGate holds back 401 responses until staleWant stale requests
	// arrived, so concurrent screens fail together.
	staleGate chan struct{}
	staleWant int
	staleSeen int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accessToken:  "access-0",
		refreshToken: "refresh-0",
	}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/auth/refresh" {
		b.renew(w, r)
		return
	}

	b.mu.Lock()

	if b.retryAfter != "" {
		retryAfter := b.retryAfter
		b.mu.Unlock()

		w.Header().Set("Retry-After", retryAfter)
		writeBackendError(w, http.StatusTooManyRequests, "RATE_LIMITED", "slow down")

		return
	}

	if r.Header.Get("Authorization") != "Bearer "+b.accessToken {
		gate := b.arriveStale()
		b.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-time.After(2 * time.Second):
			}
		}

		writeBackendError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "access token expired")

		return
	}

	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"screen": r.URL.Path})
}

// arriveStale counts a stale request against the gate. Callers hold b.mu.
func (b *fakeBackend) arriveStale() chan struct{} {
	if b.staleGate == nil {
		return nil
	}

	b.staleSeen++
	if b.staleSeen == b.staleWant {
		close(b.staleGate)
	}

	return b.staleGate
}

func (b *fakeBackend) renew(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBackendError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	b.mu.Lock()

	if b.revoked || body.RefreshToken != b.refreshToken {
		b.mu.Unlock()
		writeBackendError(w, http.StatusUnauthorized, "REFRESH_TOKEN_EXPIRED", "refresh token expired")

		return
	}

	b.generation++
	b.renewals++
	b.accessToken = fmt.Sprintf("access-%d", b.generation)
	b.refreshToken = fmt.Sprintf("refresh-%d", b.generation)
	access, refresh := b.accessToken, b.refreshToken

	b.mu.Unlock()

	time.Sleep(renewalDelay)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// expectStale gates the next n stale requests.
func (b *fakeBackend) expectStale(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.staleGate = make(chan struct{})
	b.staleWant = n
	b.staleSeen = 0
}

// rotateAccessToken invalidates the access token the relay holds without
// touching the refresh token.
func (b *fakeBackend) rotateAccessToken() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accessToken = fmt.Sprintf("rotated-%d", b.generation)
}

func (b *fakeBackend) setRetryAfter(v string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.retryAfter = v
}

func (b *fakeBackend) revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.revoked = true
}

func (b *fakeBackend) currentRefreshToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.refreshToken
}

func (b *fakeBackend) renewalCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.renewals
}

func writeBackendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
