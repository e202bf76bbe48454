package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"

	"github.com/iudanet/fieldsync/internal/server/handlers"
)

// RequestIDHeader заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware выдает каждому запросу идентификатор (или берет из заголовка)
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := context.WithValue(r.Context(), handlers.RequestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware создает middleware для логирования HTTP запросов
// Логирует метод, путь, статус, время выполнения, размер ответа и тенанта
// НЕ логирует токены и тела запросов
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Тенант появляется в контексте только внутри AuthMiddleware,
			// поэтому читаем его через указатель, заполняемый ниже по цепочке
			info := &requestInfo{}
			ctx := context.WithValue(r.Context(), requestInfoKey{}, info)

			// httpsnoop сохраняет Hijacker и Flusher исходного writer, websocket upgrade проходит
			m := httpsnoop.CaptureMetrics(next, w, r.WithContext(ctx))

			// Определяем уровень логирования на основе статуса
			logLevel := slog.LevelInfo
			if m.Code >= 500 {
				logLevel = slog.LevelError
			} else if m.Code >= 400 {
				logLevel = slog.LevelWarn
			}

			logger.Log(r.Context(), logLevel, "HTTP request",
				"method", r.Method,
				"path", sanitizePath(r.URL.Path),
				"request_id", handlers.GetRequestID(r.Context()),
				"tenant_id", info.tenantID,
				"remote_addr", r.RemoteAddr,
				"status", m.Code,
				"duration_ms", m.Duration.Milliseconds(),
				"bytes_written", m.Written,
			)
		})
	}
}

type requestInfoKey struct{}

type requestInfo struct {
	tenantID string
}

// TenantLogMiddleware передает tenant_id из контекста авторизации в логирование запроса.
// Ставится после AuthMiddleware.
func TenantLogMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
				info.tenantID, _ = handlers.GetTenantID(r.Context())
			}
			next.ServeHTTP(w, r)
		})
	}
}

// conflictIDPattern идентификаторы конфликтов (ULID) в путях
var conflictIDPattern = regexp.MustCompile(`/conflicts/[0-9A-HJKMNP-TV-Z]{26}`)

// sanitizePath сворачивает идентификаторы в пути, чтобы логи группировались по маршруту
// Например: /api/v1/conflicts/01HV.../resolve -> /api/v1/conflicts/{id}/resolve
func sanitizePath(path string) string {
	return conflictIDPattern.ReplaceAllString(path, "/conflicts/{id}")
}

// LoggingWithSkip создает middleware с возможностью пропуска определенных путей
// Полезно для health checks и долгоживущих потоков
func LoggingWithSkip(logger *slog.Logger, skipPaths []string) func(http.Handler) http.Handler {
	skipMap := make(map[string]bool)
	for _, path := range skipPaths {
		skipMap[path] = true
	}

	return func(next http.Handler) http.Handler {
		logged := LoggingMiddleware(logger)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipMap[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			logged.ServeHTTP(w, r)
		})
	}
}
