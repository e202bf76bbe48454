package storage

import (
	"context"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

// Tx операции, выполняемые внутри одной транзакции хранилища.
// Коммит доменного изменения, запись в лог и ключ идемпотентности атомарны только через Tx.
type Tx interface {
	// AppendEnvelope добавляет конверт в лог тенанта и назначает ему SequenceID,
	// строго больший любого ранее выданного для этого тенанта
	AppendEnvelope(ctx context.Context, draft *models.EnvelopeDraft) (*models.Envelope, error)

	// GetEntity возвращает сущность (включая удаленные)
	// Returns ErrEntityNotFound if entity doesn't exist
	GetEntity(ctx context.Context, tenantID, entityType, entityID string) (*models.Entity, error)

	// SaveEntity сохраняет сущность, если ее текущая версия равна expectedVersion.
	// expectedVersion = 0 означает создание новой сущности.
	// Returns ErrVersionMismatch if the stored version differs
	SaveEntity(ctx context.Context, entity *models.Entity, expectedVersion int64) error

	// GetIdempotencyRecord возвращает сохраненный результат по ключу
	// Returns ErrIdempotencyNotFound if key is unknown
	GetIdempotencyRecord(ctx context.Context, tenantID, key string) (*models.IdempotencyRecord, error)

	// SaveIdempotencyRecord сохраняет результат под ключом ровно один раз
	// Returns ErrIdempotencyKeyExists if key is already stored
	SaveIdempotencyRecord(ctx context.Context, record *models.IdempotencyRecord) error

	// SaveConflict сохраняет новый конфликт
	SaveConflict(ctx context.Context, record *models.ConflictRecord) error

	// GetConflict возвращает конфликт тенанта по ID
	// Returns ErrConflictNotFound if conflict doesn't exist
	GetConflict(ctx context.Context, tenantID, id string) (*models.ConflictRecord, error)

	// UpdateConflict обновляет статус и поля разрешения конфликта
	UpdateConflict(ctx context.Context, record *models.ConflictRecord) error
}

// TxRunner выполняет fn в транзакции: коммит при nil, откат при ошибке
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// LogStore чтение и обслуживание лога конвертов
type LogStore interface {
	// ReadFrom возвращает до limit конвертов тенанта с SequenceID > after по возрастанию
	ReadFrom(ctx context.Context, tenantID string, after int64, limit int) ([]*models.Envelope, error)

	// OldestRetained возвращает наименьший SequenceID, еще хранящийся в логе.
	// Если лог пуст, возвращает HeadSequence + 1.
	OldestRetained(ctx context.Context, tenantID string) (int64, error)

	// HeadSequence возвращает последний выданный SequenceID тенанта (0 если не было)
	HeadSequence(ctx context.Context, tenantID string) (int64, error)

	// PruneBefore удаляет конверты старше cutoff, возвращает количество удаленных
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// FindUnlogged возвращает сущности, измененные после since,
	// для текущей версии которых в логе нет конверта
	FindUnlogged(ctx context.Context, since time.Time, limit int) ([]*models.Entity, error)
}

// EntityReader чтение системы учета вне транзакций
type EntityReader interface {
	// ListEntities возвращает сущности тенанта указанного типа с версией > sinceVersion
	ListEntities(ctx context.Context, tenantID, entityType string, sinceVersion int64) ([]*models.Entity, error)
}

// ConflictReader чтение конфликтов вне транзакций
type ConflictReader interface {
	// ListConflicts возвращает конфликты тенанта с указанным статусом
	ListConflicts(ctx context.Context, tenantID string, status models.ConflictStatus) ([]*models.ConflictRecord, error)
}

// IdempotencyJanitor удаляет просроченные записи идемпотентности
type IdempotencyJanitor interface {
	// DeleteIdempotencyBefore удаляет записи, примененные раньше cutoff
	DeleteIdempotencyBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
