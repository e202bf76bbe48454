package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/server/handlers"
	"github.com/iudanet/fieldsync/internal/server/jwt"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tenantHandler проверяет значения контекста, выставленные AuthMiddleware
func tenantHandler(t *testing.T, wantTenant, wantSubject string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := handlers.GetTenantID(r.Context())
		require.True(t, ok, "tenant_id should be in context")
		assert.Equal(t, wantTenant, tenantID)

		subject, ok := handlers.GetSubject(r.Context())
		require.True(t, ok, "subject should be in context")
		assert.Equal(t, wantSubject, subject)

		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthMiddleware_Success(t *testing.T) {
	tokens := jwt.NewService("test-secret-key")

	token, _, err := tokens.Issue("tenant-1", "device-a", 15*time.Minute)
	require.NoError(t, err)

	handler := AuthMiddleware(setupTestLogger(), tokens)(tenantHandler(t, "tenant-1", "device-a"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conflicts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tokens := jwt.NewService("test-secret-key")

	wrongSecret, _, err := jwt.NewService("other-secret").Issue("tenant-1", "device-a", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "no scheme", header: "token-only"},
		{name: "garbage token", header: "Bearer invalid.token.here"},
		{name: "wrong secret", header: "Bearer " + wrongSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AuthMiddleware(setupTestLogger(), tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/conflicts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error":"Unauthorized"`)
			assert.False(t, called, "next handler must not be called")
		})
	}
}
