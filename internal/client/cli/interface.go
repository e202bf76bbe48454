package cli

import (
	"context"

	"github.com/iudanet/fieldsync/internal/client/pack"
	"github.com/iudanet/fieldsync/internal/client/queue"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/pkg/api"
)

//go:generate moq -out cli_mock.go . MutationQueue Snapshot PackFetcher ServerProbe

// MutationQueue офлайн-очередь мутаций
type MutationQueue interface {
	Enqueue(ctx context.Context, m queue.Mutation) (*models.QueuedMutation, error)
	Drain(ctx context.Context) (queue.DrainReport, error)
	Recover(ctx context.Context) (int, error)
	Pending(ctx context.Context) ([]*models.QueuedMutation, error)
	Conflicts(ctx context.Context) ([]*models.QueuedMutation, error)
	Failed(ctx context.Context) ([]*models.QueuedMutation, error)
	Resolve(ctx context.Context, idempotencyKey string, choice models.Choice, payload map[string]any) (*api.ApplyResponse, error)
	Retry(ctx context.Context, idempotencyKey string) error
	Discard(ctx context.Context, idempotencyKey string) error
}

// Snapshot локальный снимок сущностей и курсор потока
type Snapshot interface {
	GetEntity(ctx context.Context, entityType, entityID string) (*models.Entity, error)
	ListEntities(ctx context.Context, entityType string) ([]*models.Entity, error)
	GetCursor(ctx context.Context, subscriberID string) (*models.SyncCursor, error)
}

// PackFetcher загрузка data pack
type PackFetcher interface {
	Fetch(ctx context.Context, entityType string, sinceVersion int64) (*pack.Result, error)
	Resync(ctx context.Context) (int64, error)
}

// ServerProbe проверка доступности сервера
type ServerProbe interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// Runner фоновый цикл (очередь, подписчик потока)
type Runner interface {
	Run(ctx context.Context) error
}
