// Package queue офлайн-очередь мутаций клиента.
//
// Мутация сохраняется в bbolt до возврата из Enqueue и удаляется только после
// подтверждения сервером. Drain отправляет мутации разных сущностей параллельно
// (errgroup с ограничением), а мутации одной сущности строго по порядку создания.
// Ключ идемпотентности назначается один раз и переиспользуется во всех повторах.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/fieldsync/internal/backoff"
	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/conflict"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/internal/validation"
	"github.com/iudanet/fieldsync/pkg/api"
)

// Sender отправляет мутации на сервер
type Sender interface {
	Apply(ctx context.Context, req api.ApplyRequest) (*api.ApplyResponse, error)
	Resolve(ctx context.Context, conflictID string, req api.ResolveRequest) (*api.ApplyResponse, error)
}

// Snapshot локальная копия сущностей, в которую очередь записывает свои подтвержденные изменения
type Snapshot interface {
	GetEntity(ctx context.Context, entityType, entityID string) (*models.Entity, error)
	PutEntity(ctx context.Context, entity *models.Entity) (bool, error)
}

// Config параметры очереди
type Config struct {
	Backoff       backoff.Policy
	MaxAttempts   int
	Concurrency   int
	CallTimeout   time.Duration
	DrainInterval time.Duration
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		Backoff:       backoff.DefaultPolicy(),
		MaxAttempts:   10,
		Concurrency:   4,
		CallTimeout:   15 * time.Second,
		DrainInterval: 10 * time.Second,
	}
}

// Mutation локальная запись, которую нужно доставить на сервер
type Mutation struct {
	Payload     map[string]any
	EntityType  string
	EntityID    string
	Operation   models.Operation
	BaseVersion int64
}

// DrainReport итог одного прохода Drain
type DrainReport struct {
	Applied   int `json:"applied" yaml:"applied"`
	Conflicts int `json:"conflicts" yaml:"conflicts"`
	Retrying  int `json:"retrying" yaml:"retrying"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Queue офлайн-очередь мутаций
type Queue struct {
	store    storage.QueueStorage
	sender   Sender
	snapshot Snapshot
	logger   *slog.Logger
	now      func() time.Time
	rnd      func() float64
	newKey   func() string
	notify   chan struct{}
	cfg      Config

	// drainMu не допускает двух одновременных проходов: иначе нарушится порядок внутри сущности
	drainMu sync.Mutex
}

// New создает очередь
func New(store storage.QueueStorage, sender Sender, cfg Config, logger *slog.Logger) *Queue {
	d := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = d.MaxAttempts
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = d.Concurrency
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = d.CallTimeout
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = d.DrainInterval
	}

	return &Queue{
		store:  store,
		sender: sender,
		logger: logger,
		now:    time.Now,
		rnd:    rand.Float64,
		newKey: uuid.NewString,
		notify: make(chan struct{}, 1),
		cfg:    cfg,
	}
}

// WithSnapshot подключает локальный снимок: подтвержденные сервером записи
// сразу видны в нем, и следующая мутация берет актуальную базовую версию.
func (q *Queue) WithSnapshot(snapshot Snapshot) *Queue {
	q.snapshot = snapshot
	return q
}

// Enqueue проверяет мутацию, назначает ключ идемпотентности и сохраняет ее в конец очереди.
// После возврата мутация переживает падение процесса.
func (q *Queue) Enqueue(ctx context.Context, m Mutation) (*models.QueuedMutation, error) {
	if err := validation.ValidateMutation(m.EntityType, m.EntityID, m.Operation, m.BaseVersion, m.Payload); err != nil {
		return nil, err
	}

	queued := &models.QueuedMutation{
		CreatedAt:      q.now().UTC(),
		Payload:        m.Payload,
		IdempotencyKey: q.newKey(),
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		Operation:      m.Operation,
		Status:         models.StatusPending,
		BaseVersion:    m.BaseVersion,
	}

	if err := q.store.AppendMutation(ctx, queued); err != nil {
		return nil, fmt.Errorf("failed to enqueue mutation: %w", err)
	}

	q.logger.Debug("Mutation enqueued",
		"idempotency_key", queued.IdempotencyKey,
		"entity", queued.EntityKey(),
		"operation", queued.Operation)

	q.Notify()
	return queued, nil
}

// Notify будит цикл Run (например, после восстановления сети)
func (q *Queue) Notify() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// MarkApplied удаляет подтвержденную сервером мутацию
func (q *Queue) MarkApplied(ctx context.Context, idempotencyKey string) error {
	if err := q.store.DeleteMutation(ctx, idempotencyKey); err != nil {
		return fmt.Errorf("failed to mark %s applied: %w", idempotencyKey, err)
	}
	return nil
}

// MarkConflict переводит мутацию в ожидание разрешения конфликта.
// Такая запись больше не участвует в Drain и не блокирует другие сущности.
func (q *Queue) MarkConflict(ctx context.Context, idempotencyKey string, record *models.ConflictRecord) error {
	m, err := q.store.GetMutation(ctx, idempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to get mutation %s: %w", idempotencyKey, err)
	}

	m.Status = models.StatusConflict
	m.Conflict = record
	m.LastError = ""
	m.NextAttemptAt = time.Time{}

	if err := q.store.UpdateMutation(ctx, m); err != nil {
		return fmt.Errorf("failed to mark %s conflict: %w", idempotencyKey, err)
	}
	return nil
}

// Recover возвращает в pending мутации, оставшиеся в sending после падения процесса.
// Ответ сервера на них неизвестен; повтор безопасен благодаря ключу идемпотентности.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	list, err := q.store.ListMutations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list mutations: %w", err)
	}

	recovered := 0
	for _, m := range list {
		if m.Status != models.StatusSending {
			continue
		}
		m.Status = models.StatusPending
		if err := q.store.UpdateMutation(ctx, m); err != nil {
			return recovered, fmt.Errorf("failed to recover %s: %w", m.IdempotencyKey, err)
		}
		recovered++
	}

	if recovered > 0 {
		q.logger.Info("Recovered in-flight mutations", "count", recovered)
	}
	return recovered, nil
}

// Run выполняет Drain по таймеру и по Notify до отмены ctx
func (q *Queue) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		if _, err := q.Drain(ctx); err != nil && ctx.Err() == nil {
			q.logger.Error("Drain failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-q.notify:
		}
	}
}

// Drain отправляет готовые к отправке мутации.
// Возвращает ошибку только при сбое локального хранилища; сетевые ошибки
// оставляют мутации в pending с отложенной следующей попыткой.
func (q *Queue) Drain(ctx context.Context) (DrainReport, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	list, err := q.store.ListMutations(ctx)
	if err != nil {
		return DrainReport{}, fmt.Errorf("failed to list mutations: %w", err)
	}

	// Группируем по сущности, сохраняя порядок Seq внутри группы
	var order []string
	groups := make(map[string][]*models.QueuedMutation)
	for _, m := range list {
		key := m.EntityKey()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	var (
		mu     sync.Mutex
		report DrainReport
	)
	record := func(o outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case outcomeApplied:
			report.Applied++
		case outcomeConflict:
			report.Conflicts++
		case outcomeRetry:
			report.Retrying++
		case outcomeFailed:
			report.Failed++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.cfg.Concurrency)

	for _, key := range order {
		entries := groups[key]
		if !q.hasDue(entries) {
			continue
		}
		g.Go(func() error {
			return q.drainEntity(gctx, entries, record)
		})
	}

	err = g.Wait()
	return report, err
}

// hasDue проверяет, есть ли у сущности мутация, которую можно отправить сейчас
func (q *Queue) hasDue(entries []*models.QueuedMutation) bool {
	now := q.now()
	for _, m := range entries {
		switch m.Status {
		case models.StatusConflict, models.StatusApplied:
			continue
		case models.StatusFailed:
			return false
		default:
			return m.Due(now)
		}
	}
	return false
}

// drainEntity отправляет мутации одной сущности по порядку.
// failed или еще не наступившая попытка блокируют последующие мутации сущности.
// После применения мутации с базой b последующие мутации с той же базой
// переводятся на новую версию: собственная запись клиента не считается конфликтом.
func (q *Queue) drainEntity(ctx context.Context, entries []*models.QueuedMutation, record func(outcome)) error {
	for i, m := range entries {
		switch m.Status {
		case models.StatusConflict, models.StatusApplied:
			continue
		case models.StatusFailed:
			return nil
		}

		if !m.Due(q.now()) {
			return nil
		}

		base := m.BaseVersion
		o, newVersion, err := q.dispatch(ctx, m)
		if err != nil {
			return err
		}
		record(o)

		if o == outcomeApplied {
			if err := q.rebase(context.WithoutCancel(ctx), entries[i+1:], base, newVersion); err != nil {
				return err
			}
		}

		if o == outcomeRetry || o == outcomeFailed {
			return nil
		}
	}
	return nil
}

// rebase переводит ожидающие мутации с базовой версией from на версию to.
// Ключ идемпотентности не меняется.
func (q *Queue) rebase(ctx context.Context, rest []*models.QueuedMutation, from, to int64) error {
	if to <= from {
		return nil
	}
	for _, m := range rest {
		if m.Status != models.StatusPending || m.BaseVersion != from {
			continue
		}
		m.BaseVersion = to
		if err := q.update(ctx, m); err != nil {
			return err
		}
		q.logger.Debug("Mutation rebased",
			"idempotency_key", m.IdempotencyKey,
			"entity", m.EntityKey(),
			"base_version", to)
	}
	return nil
}

// applyLocal записывает подтвержденную мутацию в снимок, если она легла прямо
// на локальную версию. При автослиянии снимок ждет конвертов из потока.
func (q *Queue) applyLocal(ctx context.Context, m *models.QueuedMutation, resp *api.ApplyResponse) {
	if q.snapshot == nil || resp.AutoMerged || resp.NewVersion != m.BaseVersion+1 {
		return
	}

	current, err := q.snapshot.GetEntity(ctx, m.EntityType, m.EntityID)
	switch {
	case errors.Is(err, storage.ErrEntityNotFound):
		if m.BaseVersion != 0 {
			return
		}
		current = nil
	case err != nil:
		q.logger.Warn("Failed to read local snapshot", "entity", m.EntityKey(), "error", err)
		return
	case current.Version != m.BaseVersion:
		return
	}

	tenantID := ""
	if current != nil {
		tenantID = current.TenantID
	}
	next, _, err := conflict.Apply(current, tenantID, conflict.Mutation{
		Payload:     m.Payload,
		EntityType:  m.EntityType,
		EntityID:    m.EntityID,
		Operation:   m.Operation,
		BaseVersion: m.BaseVersion,
	}, q.now().UTC())
	if err != nil {
		q.logger.Warn("Failed to apply mutation locally", "entity", m.EntityKey(), "error", err)
		return
	}

	if _, err := q.snapshot.PutEntity(ctx, next); err != nil {
		q.logger.Warn("Failed to update local snapshot", "entity", m.EntityKey(), "error", err)
	}
}

type outcome int

const (
	outcomeApplied outcome = iota
	outcomeConflict
	outcomeRetry
	outcomeFailed
)

// dispatch отправляет одну мутацию и сохраняет результат.
// Ошибка возвращается только при сбое локального хранилища.
// Для примененной мутации возвращает новую версию сущности.
func (q *Queue) dispatch(ctx context.Context, m *models.QueuedMutation) (outcome, int64, error) {
	// Статус sending сохраняется до вызова: после падения Recover вернет мутацию в pending
	m.Status = models.StatusSending
	m.Attempt++
	if err := q.store.UpdateMutation(ctx, m); err != nil {
		return 0, 0, fmt.Errorf("failed to mark %s sending: %w", m.IdempotencyKey, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, q.cfg.CallTimeout)
	resp, err := q.sender.Apply(callCtx, api.ApplyRequest{
		Payload:        m.Payload,
		IdempotencyKey: m.IdempotencyKey,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		Operation:      m.Operation,
		BaseVersion:    m.BaseVersion,
	})
	cancel()

	// Запись результата не должна прерываться отменой вызывающего
	saveCtx := context.WithoutCancel(ctx)

	switch {
	case err == nil && resp.Status == api.StatusSuccess:
		q.logger.Info("Mutation applied",
			"idempotency_key", m.IdempotencyKey,
			"entity", m.EntityKey(),
			"new_version", resp.NewVersion,
			"auto_merged", resp.AutoMerged)
		if err := q.MarkApplied(saveCtx, m.IdempotencyKey); err != nil {
			return 0, 0, err
		}
		q.applyLocal(saveCtx, m, resp)
		return outcomeApplied, resp.NewVersion, nil

	case err == nil && resp.Status == api.StatusConflict:
		q.logger.Warn("Mutation conflict", "idempotency_key", m.IdempotencyKey, "entity", m.EntityKey())
		return outcomeConflict, 0, q.MarkConflict(saveCtx, m.IdempotencyKey, resp.Conflict)

	case err == nil:
		err = syncerr.Transient(fmt.Errorf("unexpected apply status %q", resp.Status))
	}

	if ctx.Err() != nil {
		// Вызывающий ушел: мутация остается pending, попытка не засчитывается
		m.Status = models.StatusPending
		m.Attempt--
		return outcomeRetry, 0, q.update(saveCtx, m)
	}

	m.LastError = err.Error()

	if !syncerr.IsRetryable(err) {
		q.logger.Warn("Mutation rejected", "idempotency_key", m.IdempotencyKey, "error", err)
		m.Status = models.StatusFailed
		return outcomeFailed, 0, q.update(saveCtx, m)
	}

	if m.Attempt >= q.cfg.MaxAttempts {
		q.logger.Warn("Mutation exceeded max attempts", "idempotency_key", m.IdempotencyKey, "attempt", m.Attempt, "error", err)
		m.Status = models.StatusFailed
		return outcomeFailed, 0, q.update(saveCtx, m)
	}

	delay := backoff.Delay(q.cfg.Backoff, m.Attempt-1, q.rnd)
	m.Status = models.StatusPending
	m.NextAttemptAt = q.now().Add(delay)

	q.logger.Debug("Mutation will be retried",
		"idempotency_key", m.IdempotencyKey,
		"attempt", m.Attempt,
		"delay", delay,
		"error", err)

	return outcomeRetry, 0, q.update(saveCtx, m)
}

func (q *Queue) update(ctx context.Context, m *models.QueuedMutation) error {
	if err := q.store.UpdateMutation(ctx, m); err != nil {
		return fmt.Errorf("failed to update mutation %s: %w", m.IdempotencyKey, err)
	}
	return nil
}

// Pending возвращает мутации, ожидающие отправки (включая отправляемые сейчас)
func (q *Queue) Pending(ctx context.Context) ([]*models.QueuedMutation, error) {
	return q.filter(ctx, models.StatusPending, models.StatusSending)
}

// Conflicts возвращает мутации, ожидающие разрешения конфликта
func (q *Queue) Conflicts(ctx context.Context) ([]*models.QueuedMutation, error) {
	return q.filter(ctx, models.StatusConflict)
}

// Failed возвращает мутации, отвергнутые сервером или исчерпавшие попытки
func (q *Queue) Failed(ctx context.Context) ([]*models.QueuedMutation, error) {
	return q.filter(ctx, models.StatusFailed)
}

func (q *Queue) filter(ctx context.Context, statuses ...models.MutationStatus) ([]*models.QueuedMutation, error) {
	list, err := q.store.ListMutations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations: %w", err)
	}

	var out []*models.QueuedMutation
	for _, m := range list {
		for _, s := range statuses {
			if m.Status == s {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

// Resolve разрешает конфликт мутации на сервере и удаляет ее из очереди при успехе.
// Для keep-mine без payload отправляется исходная полезная нагрузка мутации.
// Ключ запроса разрешения выводится из ключа мутации и ID конфликта, поэтому повтор идемпотентен.
func (q *Queue) Resolve(ctx context.Context, idempotencyKey string, choice models.Choice, payload map[string]any) (*api.ApplyResponse, error) {
	m, err := q.store.GetMutation(ctx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get mutation %s: %w", idempotencyKey, err)
	}
	if m.Status != models.StatusConflict || m.Conflict == nil {
		return nil, syncerr.Reject("mutation %s is not in conflict", idempotencyKey)
	}

	if choice == models.ChoiceKeepMine && len(payload) == 0 {
		payload = m.Payload
	}

	callCtx, cancel := context.WithTimeout(ctx, q.cfg.CallTimeout)
	defer cancel()

	resp, err := q.sender.Resolve(callCtx, m.Conflict.ID, api.ResolveRequest{
		Payload:        payload,
		IdempotencyKey: resolveKey(m),
		Choice:         choice,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conflict %s: %w", m.Conflict.ID, err)
	}

	if err := q.MarkApplied(context.WithoutCancel(ctx), idempotencyKey); err != nil {
		return nil, err
	}

	q.logger.Info("Conflict resolved",
		"idempotency_key", idempotencyKey,
		"conflict_id", m.Conflict.ID,
		"choice", choice,
		"new_version", resp.NewVersion)

	return resp, nil
}

// Retry возвращает failed мутацию в очередь со сброшенным счетчиком попыток
func (q *Queue) Retry(ctx context.Context, idempotencyKey string) error {
	m, err := q.store.GetMutation(ctx, idempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to get mutation %s: %w", idempotencyKey, err)
	}
	if m.Status != models.StatusFailed {
		return syncerr.Reject("mutation %s is %s, only failed mutations can be retried", idempotencyKey, m.Status)
	}

	m.Status = models.StatusPending
	m.Attempt = 0
	m.NextAttemptAt = time.Time{}
	m.LastError = ""

	if err := q.update(ctx, m); err != nil {
		return err
	}

	q.Notify()
	return nil
}

// Discard удаляет failed или conflict мутацию без отправки.
// pending мутации удалять нельзя: они могли уже дойти до сервера.
func (q *Queue) Discard(ctx context.Context, idempotencyKey string) error {
	m, err := q.store.GetMutation(ctx, idempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to get mutation %s: %w", idempotencyKey, err)
	}
	if m.Status != models.StatusFailed && m.Status != models.StatusConflict {
		return syncerr.Reject("mutation %s is %s, only failed or conflict mutations can be discarded", idempotencyKey, m.Status)
	}

	if err := q.store.DeleteMutation(ctx, idempotencyKey); err != nil {
		if errors.Is(err, storage.ErrMutationNotFound) {
			return nil
		}
		return fmt.Errorf("failed to discard mutation %s: %w", idempotencyKey, err)
	}

	q.logger.Info("Mutation discarded", "idempotency_key", idempotencyKey, "status", m.Status)
	return nil
}

// resolveKey детерминированный ключ идемпотентности разрешения конфликта
func resolveKey(m *models.QueuedMutation) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(m.IdempotencyKey+"/"+m.Conflict.ID)).String()
}
