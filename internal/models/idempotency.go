package models

import "time"

// ApplyStatus итог применения мутации
type ApplyStatus string

const (
	ApplySuccess  ApplyStatus = "success"
	ApplyConflict ApplyStatus = "conflict"
)

// ApplyResult результат Sync-Apply, сохраняемый под ключом идемпотентности
type ApplyResult struct {
	Conflict   *ConflictRecord `json:"conflict,omitempty"`
	Status     ApplyStatus     `json:"status"`
	NewVersion int64           `json:"new_version,omitempty"`
	SequenceID int64           `json:"sequence_id,omitempty"`
	AutoMerged bool            `json:"auto_merged,omitempty"`
}

// IdempotencyRecord создается ровно один раз на ключ при первом применении.
// Повторный вызов с тем же ключом возвращает сохраненный Result без повторного выполнения.
type IdempotencyRecord struct {
	AppliedAt      time.Time   `json:"applied_at"`
	TenantID       string      `json:"tenant_id"`
	IdempotencyKey string      `json:"idempotency_key"`
	Result         ApplyResult `json:"result"`
}
