package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

// Get показывает сущность из локального снимка
func (c *Cli) Get(ctx context.Context, entityType, entityID string) error {
	entity, err := c.snapshot.GetEntity(ctx, entityType, entityID)
	if errors.Is(err, storage.ErrEntityNotFound) {
		return fmt.Errorf("%s not found in local snapshot, run 'fieldsync pack %s' to fetch it",
			models.EntityKey(entityType, entityID), entityType)
	}
	if err != nil {
		return fmt.Errorf("failed to get entity: %w", err)
	}

	return c.render(entity, func() {
		c.io.Printf("%s  v%d", entity.Key(), entity.Version)
		if entity.Deleted {
			c.io.Printf("  (deleted)")
		}
		c.io.Println()
		c.io.Printf("Updated: %s\n", c.ago(entity.UpdatedAt))
		for _, field := range sortedKeys(entity.Fields) {
			c.io.Printf("  %s = %s\n", field, formatValue(entity.Fields[field]))
		}
	})
}

// List показывает сущности типа из локального снимка
func (c *Cli) List(ctx context.Context, entityType string, withDeleted bool) error {
	all, err := c.snapshot.ListEntities(ctx, entityType)
	if err != nil {
		return fmt.Errorf("failed to list entities: %w", err)
	}

	list := make([]*models.Entity, 0, len(all))
	for _, e := range all {
		if e.Deleted && !withDeleted {
			continue
		}
		list = append(list, e)
	}

	return c.render(list, func() {
		if len(list) == 0 {
			c.io.Printf("No %s entities in local snapshot.\n", entityType)
			return
		}

		c.io.Printf("=== %s (%d) ===\n", entityType, len(list))
		for _, e := range list {
			c.io.Printf("%s  v%d  %d field(s)", e.EntityID, e.Version, len(e.Fields))
			if e.Deleted {
				c.io.Printf("  (deleted)")
			}
			c.io.Println()
		}
	})
}

// Pack загружает data pack типа и сливает его со снимком
func (c *Cli) Pack(ctx context.Context, entityType string, sinceVersion int64) error {
	result, err := c.packs.Fetch(ctx, entityType, sinceVersion)
	if err != nil {
		return err
	}

	return c.render(result, func() {
		c.io.Printf("Received %d %s entities, %d updated locally\n", result.Received, entityType, result.Applied)
		c.io.Printf("Log head: %d\n", result.HeadSequenceID)
	})
}

// Resync полностью пересевает снимок и переносит курсор потока на голову лога
func (c *Cli) Resync(ctx context.Context) error {
	head, err := c.packs.Resync(ctx)
	if err != nil {
		return err
	}
	c.io.Printf("Snapshot reseeded, stream cursor moved to %d\n", head)
	return nil
}
