package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

// PutEntity сохраняет сущность, если ее версия больше локальной
func (s *Storage) PutEntity(ctx context.Context, entity *models.Entity) (bool, error) {
	if s.db == nil {
		return false, storage.ErrStorageClosed
	}

	changed := false

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshot)
		key := []byte(entity.Key())

		current, err := decodeEntity(bucket.Get(key))
		if err != nil {
			return err
		}
		if current != nil && !entity.IsNewerThan(current) {
			return nil
		}

		changed = true
		return putEntity(bucket, entity)
	})
	if err != nil {
		return false, fmt.Errorf("failed to put entity: %w", err)
	}

	return changed, nil
}

// ApplyEnvelope применяет изменение из лога к снимку.
// Payload содержит только затронутые поля: они сливаются с локальными.
func (s *Storage) ApplyEnvelope(ctx context.Context, env *models.Envelope) (bool, error) {
	if s.db == nil {
		return false, storage.ErrStorageClosed
	}

	var change models.ChangePayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &change); err != nil {
			return false, fmt.Errorf("failed to decode envelope %d payload: %w", env.SequenceID, err)
		}
	}

	changed := false

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshot)
		key := []byte(env.EntityKey())

		current, err := decodeEntity(bucket.Get(key))
		if err != nil {
			return err
		}

		if current == nil {
			current = &models.Entity{
				TenantID:   env.TenantID,
				EntityType: env.EntityType,
				EntityID:   env.EntityID,
			}
		}
		if env.EntityVersion <= current.Version {
			return nil
		}

		next := current.Clone()
		for field, value := range change.Fields {
			next.Fields[field] = value
			next.FieldVersions[field] = env.EntityVersion
		}
		next.Version = env.EntityVersion
		next.Deleted = change.Deleted || env.EventType == models.EventEntityDeleted
		next.UpdatedAt = env.OccurredAt

		changed = true
		return putEntity(bucket, next)
	})
	if err != nil {
		return false, fmt.Errorf("failed to apply envelope: %w", err)
	}

	return changed, nil
}

// GetEntity возвращает сущность из снимка
func (s *Storage) GetEntity(ctx context.Context, entityType, entityID string) (*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entity *models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		entity, err = decodeEntity(tx.Bucket(bucketSnapshot).Get([]byte(models.EntityKey(entityType, entityID))))
		if err != nil {
			return err
		}
		if entity == nil {
			return storage.ErrEntityNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entity, nil
}

// ListEntities возвращает сущности типа: ключи "type/id" упорядочены, поэтому достаточно Seek по префиксу
func (s *Storage) ListEntities(ctx context.Context, entityType string) ([]*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entities []*models.Entity
	prefix := []byte(entityType + "/")

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSnapshot).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			entity, err := decodeEntity(v)
			if err != nil {
				return err
			}
			entities = append(entities, entity)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	return entities, nil
}

// MaxVersion возвращает наибольшую версию сущностей типа
func (s *Storage) MaxVersion(ctx context.Context, entityType string) (int64, error) {
	entities, err := s.ListEntities(ctx, entityType)
	if err != nil {
		return 0, err
	}

	var maxVersion int64
	for _, e := range entities {
		maxVersion = max(maxVersion, e.Version)
	}
	return maxVersion, nil
}

func putEntity(bucket *bbolt.Bucket, entity *models.Entity) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	return bucket.Put([]byte(entity.Key()), data)
}

func decodeEntity(data []byte) (*models.Entity, error) {
	if data == nil {
		return nil, nil
	}
	entity := &models.Entity{}
	if err := json.Unmarshal(data, entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return entity, nil
}
