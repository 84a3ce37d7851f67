package acl

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/session-relay/internal/adapters/clients"
	"github.com/jsamuelsen/session-relay/internal/domain"
)

var (
	issuedAt  = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	renewedAt = time.Date(2026, 3, 14, 9, 42, 0, 0, time.UTC)
)

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return token
}

// setupSessionAPI creates a SessionAPI against a test backend. Renewals
// without an "iat" claim are stamped with renewedAt.
func setupSessionAPI(t *testing.T, handler http.HandlerFunc) *SessionAPI {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	issuer, err := clients.NewHTTPIssuer(&clients.IssuerConfig{
		BaseURL:     server.URL,
		ServiceName: "marketplace-api",
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)

	api, err := NewSessionAPI(SessionAPIConfig{
		Issuer:      issuer,
		RenewalPath: "/auth/refresh",
		Now:         func() time.Time { return renewedAt },
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return api
}

func TestNewSessionAPI_Validation(t *testing.T) {
	_, err := NewSessionAPI(SessionAPIConfig{RenewalPath: "/auth/refresh"})
	assert.ErrorContains(t, err, "issuer is required")

	issuer, err := clients.NewHTTPIssuer(&clients.IssuerConfig{ServiceName: "x"})
	require.NoError(t, err)

	_, err = NewSessionAPI(SessionAPIConfig{Issuer: issuer})
	assert.ErrorContains(t, err, "renewal path is required")
}

func TestSessionAPI_Renew(t *testing.T) {
	access := signedToken(t, jwt.RegisteredClaims{Subject: "sub-9", IssuedAt: jwt.NewNumericDate(issuedAt)})

	var received map[string]string

	api := setupSessionAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/refresh", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "renewal is anonymous")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  access,
			"refreshToken": "r2",
			"user":         map[string]string{"id": "user-1", "name": "Ada"},
		})
	})

	update, err := api.Renew(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"refreshToken": "r1"}, received)
	assert.Equal(t, access, update.AccessToken)
	assert.Equal(t, "r2", update.RefreshToken)
	assert.Equal(t, "user-1", update.UserID, "backend user id wins over the token subject")
	assert.JSONEq(t, `{"id":"user-1","name":"Ada"}`, string(update.UserData))
	assert.True(t, issuedAt.Equal(update.IssuedAt))
}

func TestSessionAPI_RenewFallsBackToClaims(t *testing.T) {
	access := signedToken(t, jwt.RegisteredClaims{Subject: "sub-9", IssuedAt: jwt.NewNumericDate(issuedAt)})

	api := setupSessionAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"` + access + `"}`))
	})

	update, err := api.Renew(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, "sub-9", update.UserID)
	assert.Empty(t, update.RefreshToken, "a missing refresh token keeps the stored one")
	assert.Nil(t, update.UserData)
}

func TestSessionAPI_RenewOpaqueTokenStampsRenewalTime(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"opaque token", func(*testing.T) string { return "opaque-abc" }},
		{"jwt without iat", func(t *testing.T) string { return signedToken(t, jwt.RegisteredClaims{Subject: "sub-9"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := tt.token(t)
			api := setupSessionAPI(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"accessToken":"` + access + `","refreshToken":"r2"}`))
			})

			update, err := api.Renew(context.Background(), "r1")
			require.NoError(t, err)

			assert.Equal(t, access, update.AccessToken)
			assert.True(t, renewedAt.Equal(update.IssuedAt), "issued at %s", update.IssuedAt)

			// Stored over an existing session, the issue time moves forward.
			stored := domain.Credentials{AccessToken: "old", RefreshToken: "r1", IssuedAt: issuedAt}.Apply(*update)
			assert.True(t, renewedAt.Equal(stored.IssuedAt))
		})
	}
}

func TestSessionAPI_RenewMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>ok</html>"},
		{"no access token", `{"refreshToken":"r2"}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupSessionAPI(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := api.Renew(context.Background(), "r1")
			assert.ErrorIs(t, err, clients.ErrMalformedResponse)
		})
	}
}

func TestSessionAPI_RenewRejected(t *testing.T) {
	api := setupSessionAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"REFRESH_TOKEN_EXPIRED","message":"expired"}}`))
	})

	_, err := api.Renew(context.Background(), "r1")

	var re *clients.ResponseError
	require.ErrorAs(t, err, &re, "backend failures reach the classifier untouched")
	assert.Equal(t, http.StatusUnauthorized, re.Status)

	cls := clients.NewClassifier([]string{"REFRESH_TOKEN_EXPIRED"}, false).
		Classify(err, clients.Attempt{Renewal: true, Anonymous: true}, false)
	assert.Equal(t, domain.KindTerminalAuth, cls.Kind)
}

func TestSessionAPI_Inspect(t *testing.T) {
	api := setupSessionAPI(t, func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		name      string
		token     string
		wantSub   string
		wantIssue time.Time
	}{
		{"full claims", signedToken(t, jwt.RegisteredClaims{Subject: "u1", IssuedAt: jwt.NewNumericDate(issuedAt)}), "u1", issuedAt},
		{"no iat", signedToken(t, jwt.RegisteredClaims{Subject: "u2"}), "u2", time.Time{}},
		{"expired token still readable", signedToken(t, jwt.RegisteredClaims{
			Subject:   "u3",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(-time.Hour)),
		}), "u3", time.Time{}},
		{"opaque token", "not-a-jwt", "", time.Time{}},
		{"empty", "", "", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, iat := api.Inspect(tt.token)
			assert.Equal(t, tt.wantSub, sub)
			assert.True(t, tt.wantIssue.Equal(iat), "issued at %s", iat)
		})
	}
}
