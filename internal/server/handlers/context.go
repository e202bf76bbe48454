package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

const (
	// TenantIDKey ключ для хранения tenant_id в контексте
	TenantIDKey contextKey = "tenant_id"
	// SubjectKey ключ для хранения subject токена (устройство или оператор)
	SubjectKey contextKey = "subject"
	// RequestIDKey ключ для хранения request id
	RequestIDKey contextKey = "request_id"
)

// GetTenantID извлекает tenant_id из контекста запроса
func GetTenantID(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok && tenantID != ""
}

// GetSubject извлекает subject из контекста запроса
func GetSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}

// GetRequestID извлекает request id из контекста запроса
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
