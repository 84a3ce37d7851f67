package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/session-relay/internal/app"
	"github.com/jsamuelsen/session-relay/internal/domain"
	"github.com/jsamuelsen/session-relay/internal/mocks"
)

type handlerMocks struct {
	store   *mocks.MockCredentialStore
	backend *mocks.MockBackend
	state   *mocks.MockResilienceState
}

func newTestService(t *testing.T) (*app.SessionService, handlerMocks) {
	t.Helper()

	m := handlerMocks{
		store:   mocks.NewMockCredentialStore(t),
		backend: mocks.NewMockBackend(t),
		state:   mocks.NewMockResilienceState(t),
	}

	svc := app.NewSessionService(app.SessionServiceConfig{
		Store:   m.store,
		Backend: m.backend,
		State:   m.state,
	})

	return svc, m
}

// newTestRouter wires session and relay handlers over a real service
// backed by port mocks.
func newTestRouter(t *testing.T) (*gin.Engine, handlerMocks) {
	t.Helper()

	svc, m := newTestService(t)

	router := gin.New()
	api := router.Group("/api/v1")
	NewSessionHandler(svc).RegisterSessionRoutes(api)
	NewRelayHandler(svc).RegisterRelayRoutes(api)

	return router, m
}

func serve(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestSessionHandler_GetSession(t *testing.T) {
	router, m := newTestRouter(t)

	resetAt := fixedNow.Add(2 * time.Minute)
	m.store.EXPECT().Snapshot(mock.Anything).Return(domain.Credentials{
		AccessToken:  "secret-access",
		RefreshToken: "secret-refresh",
		UserID:       "user-1",
	}, nil)
	m.state.EXPECT().Renewing().Return(false)
	m.state.EXPECT().RateLimitedUntil().Return(resetAt, true)

	w := serve(router, http.MethodGet, "/api/v1/session", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret", "tokens are never echoed")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["authenticated"])
	assert.Equal(t, true, resp["rateLimited"])
	assert.Equal(t, "user-1", resp["userId"])
	assert.Equal(t, "2026-03-14T09:02:00Z", resp["rateLimitResetAt"])
}

func TestSessionHandler_GetSessionStoreFailure(t *testing.T) {
	router, m := newTestRouter(t)
	m.store.EXPECT().Snapshot(mock.Anything).Return(domain.Credentials{}, errors.New("redis down"))

	w := serve(router, http.MethodGet, "/api/v1/session", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "redis down")
}

func TestSessionHandler_PutSession(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(handlerMocks)
		wantStatus int
		wantBody   string
	}{
		{
			name: "stores the session",
			body: `{"accessToken":"a1","refreshToken":"r1","userId":"user-1"}`,
			setup: func(m handlerMocks) {
				m.store.EXPECT().SetCredentials(mock.Anything, domain.CredentialUpdate{
					AccessToken: "a1", RefreshToken: "r1", UserID: "user-1",
				}).Return(nil)
				m.store.EXPECT().Snapshot(mock.Anything).Return(domain.Credentials{
					AccessToken: "a1", RefreshToken: "r1", UserID: "user-1",
				}, nil)
				m.state.EXPECT().Renewing().Return(false)
				m.state.EXPECT().RateLimitedUntil().Return(time.Time{}, false)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"authenticated":true`,
		},
		{
			name:       "missing refresh token",
			body:       `{"accessToken":"a1"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"refreshToken":"this field is required"`,
		},
		{
			name:       "malformed body",
			body:       `{"accessToken":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "BAD_REQUEST",
		},
		{
			name: "store failure",
			body: `{"accessToken":"a1","refreshToken":"r1"}`,
			setup: func(m handlerMocks) {
				m.store.EXPECT().SetCredentials(mock.Anything, mock.Anything).Return(errors.New("disk full"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, m := newTestRouter(t)
			if tt.setup != nil {
				tt.setup(m)
			}

			w := serve(router, http.MethodPut, "/api/v1/session", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestSessionHandler_DeleteSession(t *testing.T) {
	router, m := newTestRouter(t)
	m.store.EXPECT().Clear(mock.Anything).Return(nil).Once()

	w := serve(router, http.MethodDelete, "/api/v1/session", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
