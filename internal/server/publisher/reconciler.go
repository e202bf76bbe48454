package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/syncerr"
)

const defaultReconcileBatch = 100

// Reconciler находит изменения системы учета, для которых нет конверта в логе
// (например, коммит прошел в обход Publisher), и дописывает entity.reconciled конверт
// с полным текущим состоянием сущности.
type Reconciler struct {
	publisher *Publisher
	log       storage.LogStore
	logger    *slog.Logger
	now       func() time.Time
	window    time.Duration
	batch     int
}

// NewReconciler создает Reconciler, просматривающий изменения за последние window
func NewReconciler(p *Publisher, log storage.LogStore, window time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		publisher: p,
		log:       log,
		logger:    logger,
		now:       time.Now,
		window:    window,
		batch:     defaultReconcileBatch,
	}
}

// Run выполняет один проход и возвращает количество дописанных конвертов
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	since := r.now().Add(-r.window)

	entities, err := r.log.FindUnlogged(ctx, since, r.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to find unlogged entities: %w", err)
	}

	healed := 0
	for _, stale := range entities {
		if err := ctx.Err(); err != nil {
			return healed, err
		}

		r.logger.Warn("Reconciliation gap detected",
			"error", syncerr.ErrReconciliationGap,
			"tenant_id", stale.TenantID,
			"entity_type", stale.EntityType,
			"entity_id", stale.EntityID,
			"version", stale.Version,
		)

		if err := r.heal(ctx, stale); err != nil {
			return healed, err
		}
		healed++
	}

	if healed > 0 {
		r.logger.Info("Reconciliation pass completed", "healed", healed)
	}

	return healed, nil
}

func (r *Reconciler) heal(ctx context.Context, stale *models.Entity) error {
	_, err := r.publisher.Transact(ctx, func(ctx context.Context, tx storage.Tx, emit EmitFunc) error {
		// Перечитываем в транзакции: конверт должен описывать актуальную версию
		entity, err := tx.GetEntity(ctx, stale.TenantID, stale.EntityType, stale.EntityID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil
			}
			return err
		}

		payload, err := json.Marshal(models.ChangePayload{
			Fields:    entity.Fields,
			Operation: models.OpSet,
			Version:   entity.Version,
			Deleted:   entity.Deleted,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}

		_, err = emit(&models.EnvelopeDraft{
			TenantID:      entity.TenantID,
			EntityType:    entity.EntityType,
			EntityID:      entity.EntityID,
			EventType:     models.EventEntityReconciled,
			Payload:       payload,
			EntityVersion: entity.Version,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile %s/%s: %w", stale.EntityType, stale.EntityID, err)
	}

	return nil
}
