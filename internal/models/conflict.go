package models

import "time"

// ConflictStatus статус конфликта
type ConflictStatus string

const (
	ConflictPending  ConflictStatus = "pending"
	ConflictResolved ConflictStatus = "resolved"
)

// ResolutionStrategy стратегия разрешения конфликта
type ResolutionStrategy string

const (
	ResolutionAutoMerge     ResolutionStrategy = "auto-merge"
	ResolutionLastWriteWins ResolutionStrategy = "last-write-wins"
	ResolutionManual        ResolutionStrategy = "manual"
)

// Choice выбор пользователя при ручном разрешении
type Choice string

const (
	ChoiceKeepMine   Choice = "keep-mine"
	ChoiceKeepTheirs Choice = "keep-theirs"
	ChoiceManual     Choice = "manual"
)

// Valid проверяет, что выбор известен
func (c Choice) Valid() bool {
	return c == ChoiceKeepMine || c == ChoiceKeepTheirs || c == ChoiceManual
}

// FieldDiff значения одного поля у клиента и на сервере
type FieldDiff struct {
	Mine   any `json:"mine" yaml:"mine"`
	Theirs any `json:"theirs" yaml:"theirs"`
}

// ConflictRecord создается Sync-Apply, когда базовая версия мутации не совпадает
// с текущей версией сущности и политика не смогла слить изменения автоматически.
type ConflictRecord struct {
	CreatedAt            time.Time            `json:"created_at" yaml:"created_at"`
	ResolvedAt           *time.Time           `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	PayloadDiff          map[string]FieldDiff `json:"payload_diff" yaml:"payload_diff"`
	Payload              map[string]any       `json:"payload,omitempty" yaml:"payload,omitempty"` // исходная полезная нагрузка мутации
	ID                   string               `json:"id" yaml:"id"`
	MutationID           string               `json:"mutation_id" yaml:"mutation_id"`
	TenantID             string               `json:"tenant_id" yaml:"tenant_id"`
	EntityType           string               `json:"entity_type" yaml:"entity_type"`
	EntityID             string               `json:"entity_id" yaml:"entity_id"`
	Operation            Operation            `json:"operation" yaml:"operation"`
	Status               ConflictStatus       `json:"status" yaml:"status"`
	ResolutionStrategy   ResolutionStrategy   `json:"resolution_strategy" yaml:"resolution_strategy"`
	ResolvedBy           string               `json:"resolved_by,omitempty" yaml:"resolved_by,omitempty"`
	BaseVersion          int64                `json:"base_version" yaml:"base_version"`
	CurrentServerVersion int64                `json:"current_server_version" yaml:"current_server_version"`
}
