package models

import "time"

// MutationStatus статус записи в офлайн-очереди
type MutationStatus string

const (
	StatusPending  MutationStatus = "pending"
	StatusSending  MutationStatus = "sending"
	StatusApplied  MutationStatus = "applied"
	StatusConflict MutationStatus = "conflict"
	StatusFailed   MutationStatus = "failed"
)

// QueuedMutation представляет локальную запись, еще не подтвержденную сервером.
// IdempotencyKey генерируется один раз при постановке в очередь и никогда не меняется.
type QueuedMutation struct {
	CreatedAt      time.Time       `json:"created_at" yaml:"created_at"`
	NextAttemptAt  time.Time       `json:"next_attempt_at" yaml:"next_attempt_at"`
	Payload        map[string]any  `json:"payload" yaml:"payload"`
	Conflict       *ConflictRecord `json:"conflict,omitempty" yaml:"conflict,omitempty"` // Conflict запись конфликта при Status = conflict
	IdempotencyKey string          `json:"idempotency_key" yaml:"idempotency_key"`
	EntityType     string          `json:"entity_type" yaml:"entity_type"`
	EntityID       string          `json:"entity_id" yaml:"entity_id"`
	Operation      Operation       `json:"operation" yaml:"operation"`
	Status         MutationStatus  `json:"status" yaml:"status"`
	LastError      string          `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	BaseVersion    int64           `json:"base_version" yaml:"base_version"`
	Seq            uint64          `json:"seq" yaml:"seq"` // Seq позиция в FIFO очереди
	Attempt        int             `json:"attempt" yaml:"attempt"`
}

// EntityKey возвращает ключ сущности мутации
func (m *QueuedMutation) EntityKey() string {
	return EntityKey(m.EntityType, m.EntityID)
}

// Due проверяет, можно ли отправлять мутацию в момент now
func (m *QueuedMutation) Due(now time.Time) bool {
	return m.NextAttemptAt.IsZero() || !now.Before(m.NextAttemptAt)
}
