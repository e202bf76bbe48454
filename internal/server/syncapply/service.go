// Package syncapply применяет мутации офлайн-клиентов: дедупликация по ключу
// идемпотентности, проверка конфликта версий и атомарный коммит с записью в лог.
package syncapply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/iudanet/fieldsync/internal/conflict"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/publisher"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/internal/validation"
)

// DefaultMaxRetries число повторов при проигранном compare-and-set версии
const DefaultMaxRetries = 3

// Request мутация, присланная клиентом
type Request struct {
	Payload        map[string]any
	TenantID       string
	IdempotencyKey string
	EntityType     string
	EntityID       string
	Actor          string
	Operation      models.Operation
	BaseVersion    int64
}

// Service реализует Sync-Apply
type Service struct {
	publisher  *publisher.Publisher
	resolver   *conflict.Resolver
	logger     *slog.Logger
	entropy    io.Reader
	now        func() time.Time
	maxRetries int
}

// New создает Service
func New(p *publisher.Publisher, resolver *conflict.Resolver, logger *slog.Logger) *Service {
	return &Service{
		publisher:  p,
		resolver:   resolver,
		logger:     logger,
		entropy:    ulid.DefaultEntropy(),
		now:        time.Now,
		maxRetries: DefaultMaxRetries,
	}
}

// SetClock подменяет источник времени (для тестов)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Apply применяет мутацию ровно один раз на ключ идемпотентности.
// Повторный вызов с тем же ключом возвращает сохраненный результат без повторного эффекта.
// Ошибки: syncerr.ErrPermanentReject для некорректных мутаций, syncerr.ErrTransient для сбоев хранилища.
func (s *Service) Apply(ctx context.Context, req Request) (*models.ApplyResult, error) {
	if req.IdempotencyKey == "" {
		return nil, syncerr.Reject("idempotency key is required")
	}
	if err := validation.ValidateMutation(req.EntityType, req.EntityID, req.Operation, req.BaseVersion, req.Payload); err != nil {
		return nil, err
	}

	// Отмена запроса клиентом не должна прерывать коммит на середине
	ctx = context.WithoutCancel(ctx)

	m := conflict.Mutation{
		Payload:     req.Payload,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Operation:   req.Operation,
		BaseVersion: req.BaseVersion,
	}

	return s.runIdempotent(ctx, req.TenantID, req.IdempotencyKey, func(ctx context.Context, tx storage.Tx, emit publisher.EmitFunc) (*models.ApplyResult, error) {
		return s.applyMutation(ctx, tx, emit, req, m)
	})
}

type applyFunc func(ctx context.Context, tx storage.Tx, emit publisher.EmitFunc) (*models.ApplyResult, error)

// runIdempotent выполняет fn в транзакции вместе с сохранением результата под ключом.
// Проигранный CAS версии повторяет всю транзакцию, гонка за ключ возвращает результат победителя.
func (s *Service) runIdempotent(ctx context.Context, tenantID, key string, fn applyFunc) (*models.ApplyResult, error) {
	var lastErr error

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var result *models.ApplyResult
		replayed := false

		_, err := s.publisher.Transact(ctx, func(ctx context.Context, tx storage.Tx, emit publisher.EmitFunc) error {
			stored, err := tx.GetIdempotencyRecord(ctx, tenantID, key)
			if err == nil {
				result = &stored.Result
				replayed = true
				return nil
			}
			if !errors.Is(err, storage.ErrIdempotencyNotFound) {
				return err
			}

			result, err = fn(ctx, tx, emit)
			if err != nil {
				return err
			}

			return tx.SaveIdempotencyRecord(ctx, &models.IdempotencyRecord{
				TenantID:       tenantID,
				IdempotencyKey: key,
				Result:         *result,
				AppliedAt:      s.now(),
			})
		})

		switch {
		case err == nil:
			if replayed {
				s.logger.Info("Idempotent replay", "tenant_id", tenantID, "idempotency_key", key, "status", result.Status)
			}
			return result, nil

		case errors.Is(err, storage.ErrVersionMismatch):
			// Сущность изменилась между чтением и записью: повторяем проверку конфликта
			s.logger.Debug("Version compare-and-set lost, retrying", "tenant_id", tenantID, "idempotency_key", key, "attempt", attempt+1)
			lastErr = err
			continue

		case errors.Is(err, storage.ErrIdempotencyKeyExists):
			// Параллельный запрос с тем же ключом закоммитился первым
			lastErr = err
			continue

		case errors.Is(err, syncerr.ErrPermanentReject):
			return nil, err

		default:
			return nil, syncerr.Transient(fmt.Errorf("failed to apply mutation: %w", err))
		}
	}

	return nil, syncerr.Transient(fmt.Errorf("apply retries exhausted: %w", lastErr))
}

func (s *Service) applyMutation(ctx context.Context, tx storage.Tx, emit publisher.EmitFunc, req Request, m conflict.Mutation) (*models.ApplyResult, error) {
	current, err := s.loadEntity(ctx, tx, req.TenantID, req.EntityType, req.EntityID)
	if err != nil {
		return nil, err
	}

	decision, err := s.resolver.Resolve(current, m)
	if err != nil {
		return nil, err
	}

	if decision.Outcome == conflict.OutcomeConflict {
		record := &models.ConflictRecord{
			ID:                   s.newConflictID(),
			MutationID:           req.IdempotencyKey,
			TenantID:             req.TenantID,
			EntityType:           req.EntityType,
			EntityID:             req.EntityID,
			Operation:            req.Operation,
			BaseVersion:          req.BaseVersion,
			CurrentServerVersion: current.Version,
			PayloadDiff:          decision.Diff,
			Payload:              req.Payload,
			Status:               models.ConflictPending,
			ResolutionStrategy:   decision.Strategy,
			CreatedAt:            s.now().UTC().Truncate(time.Millisecond),
		}

		if err := tx.SaveConflict(ctx, record); err != nil {
			return nil, err
		}

		s.logger.Info("Conflict detected",
			"tenant_id", req.TenantID,
			"idempotency_key", req.IdempotencyKey,
			"conflict_id", record.ID,
			"base_version", req.BaseVersion,
			"server_version", current.Version,
		)

		return &models.ApplyResult{Status: models.ApplyConflict, Conflict: record}, nil
	}

	env, next, err := s.commit(ctx, tx, emit, req.TenantID, current, m)
	if err != nil {
		return nil, err
	}

	return &models.ApplyResult{
		Status:     models.ApplySuccess,
		NewVersion: next.Version,
		SequenceID: env.SequenceID,
		AutoMerged: decision.Outcome == conflict.OutcomeAutoMerge,
	}, nil
}

// commit применяет мутацию к текущей версии сущности и добавляет конверт в лог
func (s *Service) commit(ctx context.Context, tx storage.Tx, emit publisher.EmitFunc, tenantID string, current *models.Entity, m conflict.Mutation) (*models.Envelope, *models.Entity, error) {
	next, touched, err := conflict.Apply(current, tenantID, m, s.now())
	if err != nil {
		return nil, nil, err
	}

	var expected int64
	if current != nil {
		expected = current.Version
	}

	if err := tx.SaveEntity(ctx, next, expected); err != nil {
		return nil, nil, err
	}

	payload, err := json.Marshal(models.ChangePayload{
		Fields:    touched,
		Operation: m.Operation,
		Version:   next.Version,
		Deleted:   next.Deleted,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal change payload: %w", err)
	}

	eventType := models.EventEntityChanged
	if m.Operation == models.OpDelete {
		eventType = models.EventEntityDeleted
	}

	env, err := emit(&models.EnvelopeDraft{
		TenantID:      tenantID,
		EntityType:    next.EntityType,
		EntityID:      next.EntityID,
		EventType:     eventType,
		Payload:       payload,
		EntityVersion: next.Version,
	})
	if err != nil {
		return nil, nil, err
	}

	return env, next, nil
}

func (s *Service) loadEntity(ctx context.Context, tx storage.Tx, tenantID, entityType, entityID string) (*models.Entity, error) {
	entity, err := tx.GetEntity(ctx, tenantID, entityType, entityID)
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entity, nil
}

func (s *Service) newConflictID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}
