package models

import (
	"maps"
	"time"
)

// Operation тип операции над сущностью
type Operation string

// Поддерживаемые операции.
// OpIncrement и OpAppend коммутативны: результат не зависит от порядка применения.
const (
	OpSet       Operation = "set"       // перезаписывает поля
	OpIncrement Operation = "increment" // прибавляет числовые дельты к полям
	OpAppend    Operation = "append"    // дописывает элементы в списковые поля
	OpDelete    Operation = "delete"    // soft delete сущности
)

// Valid проверяет, что операция известна
func (o Operation) Valid() bool {
	switch o {
	case OpSet, OpIncrement, OpAppend, OpDelete:
		return true
	}
	return false
}

// Entity представляет запись системы учета (system of record).
// FieldVersions хранит версию сущности, на которой каждое поле менялось последний раз;
// по ней определяется, какие поля сервер изменил после базовой версии клиента.
type Entity struct {
	UpdatedAt     time.Time        `json:"updated_at" yaml:"updated_at"`
	Fields        map[string]any   `json:"fields" yaml:"fields"`
	FieldVersions map[string]int64 `json:"field_versions" yaml:"field_versions"`
	TenantID      string           `json:"tenant_id" yaml:"tenant_id"`
	EntityType    string           `json:"entity_type" yaml:"entity_type"`
	EntityID      string           `json:"entity_id" yaml:"entity_id"`
	Version       int64            `json:"version" yaml:"version"`
	Deleted       bool             `json:"deleted" yaml:"deleted"`
}

// EntityKey собирает ключ сущности из типа и идентификатора
func EntityKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}

// Key возвращает ключ сущности
func (e *Entity) Key() string {
	return EntityKey(e.EntityType, e.EntityID)
}

// IsNewerThan возвращает true, если версия e больше версии other
func (e *Entity) IsNewerThan(other *Entity) bool {
	return e.Version > other.Version
}

// ChangedSince возвращает поля, изменившиеся после указанной версии
func (e *Entity) ChangedSince(version int64) map[string]bool {
	changed := make(map[string]bool)
	for field, v := range e.FieldVersions {
		if v > version {
			changed[field] = true
		}
	}
	return changed
}

// Clone создает глубокую копию сущности (значения полей копируются поверхностно)
func (e *Entity) Clone() *Entity {
	clone := *e
	clone.Fields = maps.Clone(e.Fields)
	clone.FieldVersions = maps.Clone(e.FieldVersions)
	if clone.Fields == nil {
		clone.Fields = make(map[string]any)
	}
	if clone.FieldVersions == nil {
		clone.FieldVersions = make(map[string]int64)
	}
	return &clone
}
