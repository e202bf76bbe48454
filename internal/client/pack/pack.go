// Package pack загружает data pack с сервера и пересевает локальный снимок.
package pack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/pkg/api"
)

// ErrChecksumMismatch контрольная сумма pack не совпала с содержимым
var ErrChecksumMismatch = errors.New("data pack checksum mismatch")

// Source источник data pack
type Source interface {
	Pack(ctx context.Context, entityType string, sinceVersion int64) (*api.PackResponse, error)
}

// Result итог загрузки одного pack
type Result struct {
	EntityType     string `json:"entity_type" yaml:"entity_type"`
	HeadSequenceID int64  `json:"head_sequence_id" yaml:"head_sequence_id"`
	Received       int    `json:"received" yaml:"received"`
	Applied        int    `json:"applied" yaml:"applied"`
}

// Fetcher загружает data pack и применяет его к снимку
type Fetcher struct {
	source       Source
	snapshot     storage.SnapshotStorage
	cursors      storage.CursorStorage
	logger       *slog.Logger
	subscriberID string
	entityTypes  []string
}

// NewFetcher создает загрузчик для перечисленных типов сущностей
func NewFetcher(
	source Source,
	snapshot storage.SnapshotStorage,
	cursors storage.CursorStorage,
	subscriberID string,
	entityTypes []string,
	logger *slog.Logger,
) *Fetcher {
	return &Fetcher{
		source:       source,
		snapshot:     snapshot,
		cursors:      cursors,
		logger:       logger,
		subscriberID: subscriberID,
		entityTypes:  entityTypes,
	}
}

// Fetch загружает pack одного типа и сливает его со снимком (побеждает большая версия).
// Курсор не трогает: это делает Resync.
func (f *Fetcher) Fetch(ctx context.Context, entityType string, sinceVersion int64) (*Result, error) {
	resp, err := f.source.Pack(ctx, entityType, sinceVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s pack: %w", entityType, err)
	}

	checksum, err := api.PackChecksum(resp.Entities)
	if err != nil {
		return nil, err
	}
	if checksum != resp.Checksum {
		// Поврежденный ответ: повтор может дать корректный
		return nil, syncerr.Transient(fmt.Errorf("%s pack: %w", entityType, ErrChecksumMismatch))
	}

	result := &Result{
		EntityType:     entityType,
		HeadSequenceID: resp.HeadSequenceID,
		Received:       len(resp.Entities),
	}

	for _, pe := range resp.Entities {
		changed, err := f.snapshot.PutEntity(ctx, &models.Entity{
			UpdatedAt:  pe.UpdatedAt,
			Fields:     pe.Fields,
			EntityType: pe.EntityType,
			EntityID:   pe.EntityID,
			Version:    pe.Version,
			Deleted:    pe.Deleted,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", models.EntityKey(pe.EntityType, pe.EntityID), err)
		}
		if changed {
			result.Applied++
		}
	}

	f.logger.Info("Data pack applied",
		"entity_type", entityType,
		"since_version", sinceVersion,
		"received", result.Received,
		"applied", result.Applied,
		"head_sequence_id", result.HeadSequenceID)

	return result, nil
}

// Resync выполняет полный пересев всех типов и переносит курсор на голову лога.
// Берется наименьшая голова из полученных pack: изменения после нее придут из потока
// повторно и будут отброшены снимком по версии.
func (f *Fetcher) Resync(ctx context.Context) (int64, error) {
	if len(f.entityTypes) == 0 {
		return 0, syncerr.Reject("no entity types configured for resync")
	}

	var head int64 = -1
	for _, entityType := range f.entityTypes {
		result, err := f.Fetch(ctx, entityType, 0)
		if err != nil {
			return 0, err
		}
		if head < 0 || result.HeadSequenceID < head {
			head = result.HeadSequenceID
		}
	}

	cursor, err := f.cursors.GetCursor(ctx, f.subscriberID)
	if err != nil {
		return 0, fmt.Errorf("failed to get cursor: %w", err)
	}
	cursor.LastSequenceID = head
	if err := f.cursors.SaveCursor(ctx, cursor); err != nil {
		return 0, fmt.Errorf("failed to move cursor to pack head: %w", err)
	}

	f.logger.Info("Resync completed", "subscriber_id", f.subscriberID, "head_sequence_id", head)
	return head, nil
}
