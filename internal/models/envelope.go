package models

import (
	"encoding/json"
	"time"
)

// Envelope представляет одну упорядоченную неизменяемую запись о закоммиченном изменении.
// SequenceID назначается Log Store, монотонно растет в пределах тенанта
// и используется подписчиком как курсор возобновления.
type Envelope struct {
	OccurredAt    time.Time       `json:"occurred_at" msgpack:"occurred_at"`        // OccurredAt время добавления в лог
	TenantID      string          `json:"tenant_id" msgpack:"tenant_id"`            // TenantID идентификатор тенанта
	EntityType    string          `json:"entity_type" msgpack:"entity_type"`        // EntityType тип сущности (например, "stock_item")
	EntityID      string          `json:"entity_id" msgpack:"entity_id"`            // EntityID идентификатор сущности
	EventType     string          `json:"event_type" msgpack:"event_type"`          // EventType тип события (например, "entity.set")
	ProducerID    string          `json:"producer_id" msgpack:"producer_id"`        // ProducerID идентификатор процесса-источника
	Payload       json.RawMessage `json:"payload" msgpack:"payload"`                // Payload тело события (ChangePayload для событий сущностей)
	SequenceID    int64           `json:"sequence_id" msgpack:"sequence_id"`        // SequenceID позиция в логе тенанта
	EntityVersion int64           `json:"entity_version" msgpack:"entity_version"` // EntityVersion версия сущности, которую описывает событие
}

// EnvelopeDraft содержит поля конверта до добавления в лог (без SequenceID и OccurredAt).
type EnvelopeDraft struct {
	TenantID      string
	EntityType    string
	EntityID      string
	EventType     string
	ProducerID    string
	Payload       json.RawMessage
	EntityVersion int64
}

// EntityKey возвращает ключ сущности для упорядочивания внутри одной сущности
func (e *Envelope) EntityKey() string {
	return EntityKey(e.EntityType, e.EntityID)
}

// Event types для изменений сущностей
const (
	EventEntityChanged    = "entity.changed"
	EventEntityDeleted    = "entity.deleted"
	EventEntityReconciled = "entity.reconciled"
)

// ChangePayload тело конверта для событий сущностей.
// Fields содержит итоговые значения затронутых полей после применения операции.
type ChangePayload struct {
	Fields    map[string]any `json:"fields"`
	Operation Operation      `json:"operation"`
	Version   int64          `json:"version"`
	Deleted   bool           `json:"deleted"`
}

// SyncCursor последняя позиция лога, которую подписчик надежно обработал
type SyncCursor struct {
	SubscriberID   string `json:"subscriber_id"`
	TenantID       string `json:"tenant_id"`
	LastSequenceID int64  `json:"last_sequence_id"`
}
