// Package publisher связывает коммит изменения в системе учета с записью в лог
// и последующей рассылкой конверта через шину.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/bus"
	"github.com/iudanet/fieldsync/internal/server/storage"
)

// CommitFunc выполняет доменное изменение внутри транзакции и дополняет draft
// (например, выставляет EntityVersion и Payload по результату изменения)
type CommitFunc func(ctx context.Context, tx storage.Tx, draft *models.EnvelopeDraft) error

// EmitFunc добавляет конверт в лог в текущей транзакции
type EmitFunc func(draft *models.EnvelopeDraft) (*models.Envelope, error)

// TxFunc произвольная транзакционная работа, которая может добавлять конверты через emit
type TxFunc func(ctx context.Context, tx storage.Tx, emit EmitFunc) error

// Publisher атомарно коммитит изменение вместе с конвертом и уведомляет шину после коммита
type Publisher struct {
	store      storage.TxRunner
	bus        bus.Bus
	logger     *slog.Logger
	producerID string
}

// New создает Publisher. producerID подставляется в конверты без ProducerID.
func New(store storage.TxRunner, b bus.Bus, producerID string, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:      store,
		bus:        b,
		logger:     logger,
		producerID: producerID,
	}
}

// Publish выполняет commit и добавляет draft в лог в одной транзакции.
// Ошибка commit или добавления в лог откатывает транзакцию, конверт не создается.
// Ошибка шины после коммита только логируется: подписчики догонят изменение по логу.
func (p *Publisher) Publish(ctx context.Context, commit CommitFunc, draft *models.EnvelopeDraft) (*models.Envelope, error) {
	envs, err := p.Transact(ctx, func(ctx context.Context, tx storage.Tx, emit EmitFunc) error {
		if commit != nil {
			if err := commit(ctx, tx, draft); err != nil {
				return err
			}
		}
		_, err := emit(draft)
		return err
	})
	if err != nil {
		return nil, err
	}

	return envs[0], nil
}

// Transact выполняет fn в транзакции хранилища и рассылает все добавленные
// через emit конверты после успешного коммита, в порядке SequenceID
func (p *Publisher) Transact(ctx context.Context, fn TxFunc) ([]*models.Envelope, error) {
	var envs []*models.Envelope

	err := p.store.InTx(ctx, func(tx storage.Tx) error {
		// Повтор транзакции не должен накапливать конверты прошлой попытки
		envs = envs[:0]

		emit := func(draft *models.EnvelopeDraft) (*models.Envelope, error) {
			if draft.ProducerID == "" {
				draft.ProducerID = p.producerID
			}

			env, err := tx.AppendEnvelope(ctx, draft)
			if err != nil {
				return nil, fmt.Errorf("failed to append envelope: %w", err)
			}

			envs = append(envs, env)
			return env, nil
		}

		return fn(ctx, tx, emit)
	})
	if err != nil {
		return nil, err
	}

	p.notify(ctx, envs)

	return envs, nil
}

// notify рассылает конверты; отмена запроса не должна терять уведомление
func (p *Publisher) notify(ctx context.Context, envs []*models.Envelope) {
	ctx = context.WithoutCancel(ctx)

	for _, env := range envs {
		if err := p.bus.Publish(ctx, env); err != nil {
			p.logger.Warn("Failed to broadcast envelope",
				"tenant_id", env.TenantID,
				"sequence_id", env.SequenceID,
				"error", err,
			)
		}
	}
}
