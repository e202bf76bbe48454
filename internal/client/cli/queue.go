package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

// QueueReport содержимое очереди по статусам
type QueueReport struct {
	Pending   []*models.QueuedMutation `json:"pending" yaml:"pending"`
	Conflicts []*models.QueuedMutation `json:"conflicts" yaml:"conflicts"`
	Failed    []*models.QueuedMutation `json:"failed" yaml:"failed"`
}

// Queue показывает мутации, еще не подтвержденные сервером
func (c *Cli) Queue(ctx context.Context) error {
	var (
		report QueueReport
		err    error
	)
	if report.Pending, err = c.queue.Pending(ctx); err != nil {
		return fmt.Errorf("failed to list pending mutations: %w", err)
	}
	if report.Conflicts, err = c.queue.Conflicts(ctx); err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}
	if report.Failed, err = c.queue.Failed(ctx); err != nil {
		return fmt.Errorf("failed to list failed mutations: %w", err)
	}

	return c.render(report, func() {
		total := len(report.Pending) + len(report.Conflicts) + len(report.Failed)
		if total == 0 {
			c.io.Println("Queue is empty. All local changes are synchronized.")
			return
		}

		c.printMutations("Pending", report.Pending)
		c.printMutations("Conflicts", report.Conflicts)
		c.printMutations("Failed", report.Failed)
	})
}

func (c *Cli) printMutations(title string, list []*models.QueuedMutation) {
	if len(list) == 0 {
		return
	}

	c.io.Printf("=== %s (%d) ===\n", title, len(list))
	for _, m := range list {
		c.io.Printf("%s  %-9s %s  base v%d  created %s\n",
			m.IdempotencyKey, m.Operation, m.EntityKey(), m.BaseVersion, c.ago(m.CreatedAt))
		if m.Attempt > 0 {
			c.io.Printf("    attempts: %d", m.Attempt)
			if m.Status == models.StatusPending && !m.NextAttemptAt.IsZero() {
				c.io.Printf(", next %s", c.ago(m.NextAttemptAt))
			}
			c.io.Println()
		}
		if m.LastError != "" {
			c.io.Printf("    last error: %s\n", m.LastError)
		}
	}
	c.io.Println()
}

// Sync один проход отправки очереди
func (c *Cli) Sync(ctx context.Context) error {
	if _, err := c.queue.Recover(ctx); err != nil {
		return err
	}

	start := c.now()
	report, err := c.queue.Drain(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	return c.render(report, func() {
		c.io.Printf("Sync finished in %s\n", c.now().Sub(start).Round(time.Millisecond))
		c.io.Printf("Applied:   %d\n", report.Applied)
		c.io.Printf("Conflicts: %d\n", report.Conflicts)
		c.io.Printf("Retrying:  %d\n", report.Retrying)
		c.io.Printf("Failed:    %d\n", report.Failed)
		if report.Conflicts > 0 {
			c.io.Println("Run 'fieldsync conflicts' to review conflicts.")
		}
	})
}

// Retry возвращает failed мутацию в очередь
func (c *Cli) Retry(ctx context.Context, idempotencyKey string) error {
	if err := c.queue.Retry(ctx, idempotencyKey); err != nil {
		return err
	}
	c.io.Printf("Mutation %s queued for retry\n", idempotencyKey)
	return nil
}

// Discard удаляет failed или conflict мутацию
func (c *Cli) Discard(ctx context.Context, idempotencyKey string) error {
	if err := c.queue.Discard(ctx, idempotencyKey); err != nil {
		return err
	}
	c.io.Printf("Mutation %s discarded\n", idempotencyKey)
	return nil
}

