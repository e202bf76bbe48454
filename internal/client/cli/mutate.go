package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/fieldsync/internal/client/queue"
	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

// MutateOptions параметры локальной записи
type MutateOptions struct {
	// BaseVersion явная базовая версия; nil означает версию из локального снимка
	BaseVersion *int64
	EntityType  string
	EntityID    string
	Operation   models.Operation
	Fields      []string // field=value
}

// Mutate ставит мутацию в офлайн-очередь. Сеть не нужна: отправит sync или watch.
func (c *Cli) Mutate(ctx context.Context, opts MutateOptions) error {
	payload, err := ParseFields(opts.Fields)
	if err != nil {
		return err
	}

	base, err := c.baseVersion(ctx, opts)
	if err != nil {
		return err
	}

	m, err := c.queue.Enqueue(ctx, queue.Mutation{
		Payload:     payload,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Operation:   opts.Operation,
		BaseVersion: base,
	})
	if err != nil {
		return fmt.Errorf("failed to queue mutation: %w", err)
	}

	return c.render(m, func() {
		c.io.Printf("Queued %s %s (base version %d)\n", m.Operation, m.EntityKey(), m.BaseVersion)
		c.io.Printf("Idempotency key: %s\n", m.IdempotencyKey)
	})
}

func (c *Cli) baseVersion(ctx context.Context, opts MutateOptions) (int64, error) {
	if opts.BaseVersion != nil {
		return *opts.BaseVersion, nil
	}

	entity, err := c.snapshot.GetEntity(ctx, opts.EntityType, opts.EntityID)
	if errors.Is(err, storage.ErrEntityNotFound) {
		// Новая сущность
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read local snapshot: %w", err)
	}
	return entity.Version, nil
}

// ParseFields разбирает аргументы field=value.
// Значение читается как JSON (число, bool, массив, строка в кавычках), иначе берется строкой.
func ParseFields(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	fields := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q, expected field=value", arg)
		}
		if _, dup := fields[name]; dup {
			return nil, fmt.Errorf("field %q given twice", name)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[name] = value
	}
	return fields, nil
}
