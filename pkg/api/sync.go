package api

import "github.com/iudanet/fieldsync/internal/models"

// Статусы ответа Sync-Apply
const (
	StatusSuccess        = "success"
	StatusConflict       = "conflict"
	StatusTransientError = "transient_error"
)

// ApplyRequest мутация из офлайн-очереди клиента
type ApplyRequest struct {
	Payload        map[string]any   `json:"payload"`         // поля мутации
	IdempotencyKey string           `json:"idempotency_key"` // ключ, сгенерированный клиентом при постановке в очередь
	EntityType     string           `json:"entity_type"`     // тип сущности
	EntityID       string           `json:"entity_id"`       // идентификатор сущности
	Operation      models.Operation `json:"operation"`       // set | increment | append | delete
	BaseVersion    int64            `json:"base_version"`    // версия сущности, которую видел клиент
}

// ApplyResponse результат Sync-Apply
type ApplyResponse struct {
	Conflict   *models.ConflictRecord `json:"conflict,omitempty"`    // запись конфликта при status=conflict
	Status     string                 `json:"status"`                // success | conflict | transient_error
	Message    string                 `json:"message,omitempty"`     // описание при transient_error
	NewVersion int64                  `json:"new_version,omitempty"` // версия сущности после применения
	SequenceID int64                  `json:"sequence_id,omitempty"` // позиция изменения в логе
	AutoMerged bool                   `json:"auto_merged,omitempty"` // применено автослиянием на новой версии
}

// ConflictsResponse список конфликтов тенанта
type ConflictsResponse struct {
	Conflicts []*models.ConflictRecord `json:"conflicts"`
}

// ResolveRequest ручное разрешение конфликта
type ResolveRequest struct {
	Payload        map[string]any `json:"payload,omitempty"` // значения для keep-mine/manual
	IdempotencyKey string         `json:"idempotency_key"`   // отдельный ключ запроса разрешения
	Choice         models.Choice  `json:"choice"`            // keep-mine | keep-theirs | manual
}
