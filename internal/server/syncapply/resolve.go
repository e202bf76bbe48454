package syncapply

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/fieldsync/internal/conflict"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/publisher"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/internal/validation"
)

// ResolveRequest ручное разрешение конфликта
type ResolveRequest struct {
	// Payload для keep-mine: полезная нагрузка мутации (если пусто, берется сохраненная
	// в конфликте исходная); для manual: итоговые значения полей
	Payload        map[string]any
	TenantID       string
	ConflictID     string
	IdempotencyKey string
	Actor          string
	Choice         models.Choice
}

// Resolve разрешает конфликт выбором пользователя.
// keep-mine и manual применяются к текущей версии сущности, keep-theirs оставляет
// серверное состояние. Вызов идемпотентен по собственному ключу.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*models.ApplyResult, error) {
	if req.IdempotencyKey == "" {
		return nil, syncerr.Reject("idempotency key is required")
	}
	if !req.Choice.Valid() {
		return nil, syncerr.Reject("unknown resolution choice %q", req.Choice)
	}
	if req.Choice == models.ChoiceManual && len(req.Payload) == 0 {
		return nil, syncerr.Reject("manual resolution requires payload")
	}

	ctx = context.WithoutCancel(ctx)

	return s.runIdempotent(ctx, req.TenantID, req.IdempotencyKey, func(ctx context.Context, tx storage.Tx, emit publisher.EmitFunc) (*models.ApplyResult, error) {
		return s.resolveConflict(ctx, tx, emit, req)
	})
}

func (s *Service) resolveConflict(ctx context.Context, tx storage.Tx, emit publisher.EmitFunc, req ResolveRequest) (*models.ApplyResult, error) {
	record, err := tx.GetConflict(ctx, req.TenantID, req.ConflictID)
	if err != nil {
		if errors.Is(err, storage.ErrConflictNotFound) {
			return nil, syncerr.Reject("conflict %s not found", req.ConflictID)
		}
		return nil, err
	}

	if record.Status == models.ConflictResolved {
		return nil, syncerr.Reject("conflict %s is already resolved", req.ConflictID)
	}

	current, err := s.loadEntity(ctx, tx, req.TenantID, record.EntityType, record.EntityID)
	if err != nil {
		return nil, err
	}

	result := &models.ApplyResult{Status: models.ApplySuccess}
	strategy := models.ResolutionManual

	switch req.Choice {
	case models.ChoiceKeepTheirs:
		if current != nil {
			result.NewVersion = current.Version
		}

	case models.ChoiceKeepMine, models.ChoiceManual:
		m := conflict.Mutation{
			EntityType: record.EntityType,
			EntityID:   record.EntityID,
			Operation:  models.OpSet,
			Payload:    req.Payload,
		}

		if req.Choice == models.ChoiceKeepMine {
			strategy = models.ResolutionLastWriteWins
			m.Operation = record.Operation
			if len(m.Payload) == 0 {
				m.Payload = record.Payload
			}
			// Конфликты, записанные до хранения payload, знают только пересекающиеся поля
			if len(m.Payload) == 0 && m.Operation != models.OpDelete {
				m.Payload = mineValues(record.PayloadDiff)
			}
		}

		if current != nil {
			m.BaseVersion = current.Version
		}

		if err := validation.ValidateMutation(m.EntityType, m.EntityID, m.Operation, m.BaseVersion, m.Payload); err != nil {
			return nil, err
		}

		env, next, err := s.commit(ctx, tx, emit, req.TenantID, current, m)
		if err != nil {
			return nil, err
		}
		result.NewVersion = next.Version
		result.SequenceID = env.SequenceID
	}

	resolvedAt := s.now().UTC().Truncate(time.Millisecond)
	record.Status = models.ConflictResolved
	record.ResolutionStrategy = strategy
	record.ResolvedBy = req.Actor
	record.ResolvedAt = &resolvedAt

	if err := tx.UpdateConflict(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("Conflict resolved",
		"tenant_id", req.TenantID,
		"conflict_id", record.ID,
		"choice", req.Choice,
		"new_version", result.NewVersion,
	)

	return result, nil
}

// mineValues значения клиента из PayloadDiff
func mineValues(diff map[string]models.FieldDiff) map[string]any {
	payload := make(map[string]any, len(diff))
	for field, d := range diff {
		payload[field] = d.Mine
	}
	return payload
}
