package storage

import (
	"context"

	"github.com/iudanet/fieldsync/internal/models"
)

//go:generate moq -out queue_mock.go . QueueStorage

// QueueStorage долговременное хранилище офлайн-очереди мутаций.
// Каждый метод завершается только после fsync: запись переживает перезапуск процесса.
type QueueStorage interface {
	// AppendMutation добавляет мутацию в конец очереди и назначает ей Seq
	AppendMutation(ctx context.Context, m *models.QueuedMutation) error

	// GetMutation возвращает мутацию по ключу идемпотентности
	// Returns ErrMutationNotFound if key is unknown
	GetMutation(ctx context.Context, idempotencyKey string) (*models.QueuedMutation, error)

	// UpdateMutation сохраняет изменившийся статус мутации
	// Returns ErrMutationNotFound if key is unknown
	UpdateMutation(ctx context.Context, m *models.QueuedMutation) error

	// ListMutations возвращает все мутации в порядке Seq
	ListMutations(ctx context.Context) ([]*models.QueuedMutation, error)

	// DeleteMutation удаляет мутацию из очереди
	// Returns ErrMutationNotFound if key is unknown
	DeleteMutation(ctx context.Context, idempotencyKey string) error
}
