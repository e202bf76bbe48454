package storage

import (
	"context"
	"time"
)

//go:generate moq -out session_mock.go . SessionStorage

// SessionStorage хранит параметры подключения к серверу
type SessionStorage interface {
	// SaveSession сохраняет сессию, заменяя предыдущую
	SaveSession(ctx context.Context, session *Session) error

	// GetSession возвращает сохраненную сессию
	// Returns ErrSessionNotFound if not logged in
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession удаляет сессию (logout)
	DeleteSession(ctx context.Context) error
}

// Session параметры подключения устройства
type Session struct {
	ExpiresAt time.Time `json:"expires_at"`
	ServerURL string    `json:"server_url"`
	TenantID  string    `json:"tenant_id"`
	DeviceID  string    `json:"device_id"` // subject токена, он же ID подписчика потока
	Token     string    `json:"token"`
}

// Expired проверяет срок действия токена
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
