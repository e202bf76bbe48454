package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

// GetCursor возвращает курсор подписчика.
// Если курсор еще не сохранялся, LastSequenceID = 0 (первая синхронизация).
func (s *Storage) GetCursor(ctx context.Context, subscriberID string) (*models.SyncCursor, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	cursor := &models.SyncCursor{SubscriberID: subscriberID}

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCursor).Get([]byte(subscriberID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, cursor)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor: %w", err)
	}

	return cursor, nil
}

// SaveCursor сохраняет курсор подписчика
func (s *Storage) SaveCursor(ctx context.Context, cursor *models.SyncCursor) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketCursor).Put([]byte(cursor.SubscriberID), data); err != nil {
			return fmt.Errorf("failed to save cursor: %w", err)
		}
		return nil
	})
}
