package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/fieldsync/internal/server/handlers"
	"github.com/iudanet/fieldsync/internal/server/jwt"
)

// AuthMiddleware создает middleware для проверки JWT токена.
// tenant_id и subject из токена попадают в контекст запроса.
func AuthMiddleware(logger *slog.Logger, tokens *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header", "path", r.URL.Path)
				writeJSONError(w, "missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				writeJSONError(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				writeJSONError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), handlers.TenantIDKey, claims.TenantID)
			ctx = context.WithValue(ctx, handlers.SubjectKey, claims.Subject)

			logger.Debug("Request authenticated", "tenant_id", claims.TenantID, "subject", claims.Subject)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
