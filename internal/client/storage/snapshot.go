package storage

import (
	"context"

	"github.com/iudanet/fieldsync/internal/models"
)

//go:generate moq -out snapshot_mock.go . SnapshotStorage CursorStorage

// SnapshotStorage локальная копия сущностей тенанта.
// Запись побеждает только с большей версией, поэтому повторное применение безопасно.
type SnapshotStorage interface {
	// PutEntity сохраняет сущность, если ее версия больше локальной.
	// Возвращает true, если состояние изменилось.
	PutEntity(ctx context.Context, entity *models.Entity) (bool, error)

	// ApplyEnvelope применяет изменение из лога к локальной копии.
	// Возвращает true, если состояние изменилось.
	ApplyEnvelope(ctx context.Context, env *models.Envelope) (bool, error)

	// GetEntity возвращает сущность из снимка
	// Returns ErrEntityNotFound if entity is absent
	GetEntity(ctx context.Context, entityType, entityID string) (*models.Entity, error)

	// ListEntities возвращает сущности типа в порядке EntityID (включая удаленные)
	ListEntities(ctx context.Context, entityType string) ([]*models.Entity, error)

	// MaxVersion возвращает наибольшую версию сущностей типа (0 если нет)
	MaxVersion(ctx context.Context, entityType string) (int64, error)
}

// CursorStorage позиция подписчика в логе
type CursorStorage interface {
	// GetCursor возвращает курсор подписчика; LastSequenceID = 0, если курсора нет
	GetCursor(ctx context.Context, subscriberID string) (*models.SyncCursor, error)

	// SaveCursor сохраняет курсор
	SaveCursor(ctx context.Context, cursor *models.SyncCursor) error
}
