// Package maintenance периодически обслуживает хранилище сервера:
// вытесняет старые конверты лога, удаляет просроченные ключи идемпотентности
// и запускает сверку коммитов с логом.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Store операции хранилища, нужные обслуживанию
type Store interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteIdempotencyBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reconciler сверка коммитов с логом
type Reconciler interface {
	Run(ctx context.Context) (int, error)
}

// Config параметры обслуживания
type Config struct {
	Interval       time.Duration
	LogRetention   time.Duration
	IdempotencyTTL time.Duration
}

// Report итог одного прохода
type Report struct {
	Pruned     int64
	Expired    int64
	Reconciled int
}

// Runner выполняет обслуживание по таймеру
type Runner struct {
	store      Store
	reconciler Reconciler
	logger     *slog.Logger
	now        func() time.Time
	cfg        Config
}

// New создает Runner. reconciler может быть nil.
func New(store Store, reconciler Reconciler, cfg Config, logger *slog.Logger) *Runner {
	return &Runner{
		store:      store,
		reconciler: reconciler,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Run выполняет проходы до отмены ctx. Ошибки прохода логируются, цикл продолжается.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Maintenance pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce выполняет один проход. Шаги независимы: ошибка одного не отменяет остальные.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	var (
		report Report
		errs   []error
	)
	now := r.now()

	// Сверка до вытеснения: конверт восстановленного изменения должен попасть в окно хранения
	if r.reconciler != nil {
		n, err := r.reconciler.Run(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to reconcile: %w", err))
		}
		report.Reconciled = n
	}

	if r.cfg.LogRetention > 0 {
		n, err := r.store.PruneBefore(ctx, now.Add(-r.cfg.LogRetention))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to prune log: %w", err))
		}
		report.Pruned = n
	}

	if r.cfg.IdempotencyTTL > 0 {
		n, err := r.store.DeleteIdempotencyBefore(ctx, now.Add(-r.cfg.IdempotencyTTL))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to expire idempotency keys: %w", err))
		}
		report.Expired = n
	}

	if report.Pruned > 0 || report.Expired > 0 || report.Reconciled > 0 {
		r.logger.Info("Maintenance pass completed",
			"pruned_envelopes", report.Pruned,
			"expired_keys", report.Expired,
			"reconciled", report.Reconciled)
	}

	return report, errors.Join(errs...)
}
