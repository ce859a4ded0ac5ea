package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-cart/internal/identity"
)

func newTestVerifier(t *testing.T) *identity.Verifier {
	t.Helper()
	v, err := identity.NewVerifier("test-secret-key-for-testing-purposes", "")
	require.NoError(t, err)
	return v
}

func capture(got *identity.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := GetIdentity(r.Context()); ok {
			*got = id
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken_Header(t *testing.T) {
	v := newTestVerifier(t)
	token, _, err := v.Issue(identity.Identity{UserID: "user-123", Email: "test@example.com"}, time.Minute)
	require.NoError(t, err)

	var got identity.Identity
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(v)(capture(&got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", got.UserID)
	assert.Equal(t, "test@example.com", got.Email)
}

func TestAuthMiddleware_ValidToken_Cookie(t *testing.T) {
	v := newTestVerifier(t)
	token, _, err := v.Issue(identity.Identity{UserID: "user-456"}, time.Minute)
	require.NoError(t, err)

	var got identity.Identity
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()

	AuthMiddleware(v)(capture(&got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-456", got.UserID)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	v := newTestVerifier(t)
	expired, _, err := v.Issue(identity.Identity{UserID: "user-1"}, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"no token", "", "unauthorized"},
		{"garbage token", "Bearer invalid-token", "invalid token"},
		{"expired token", "Bearer " + expired, "token expired"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got identity.Identity
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(v)(capture(&got)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
			assert.Empty(t, got.UserID)
		})
	}
}

func TestGetIdentity_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetIdentity(req.Context())
	assert.False(t, ok)
}

func TestRequestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req = req.WithContext(WithIdentity(req.Context(), identity.Identity{UserID: "user-9"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "API", line["component"])
	assert.Equal(t, "/products", line["path"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "user-9", line["user_id"])
	assert.NotEmpty(t, line["request_id"])
}

func TestRequestLogger_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.Contains(t, buf.String(), "request panicked")
}
