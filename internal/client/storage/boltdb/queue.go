package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

// AppendMutation добавляет мутацию в конец очереди.
// Seq берется из NextSequence bucket, поэтому порядок FIFO сохраняется между запусками.
// bbolt делает fsync при коммите Update: после возврата запись долговечна.
func (s *Storage) AppendMutation(ctx context.Context, m *models.QueuedMutation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		idx := tx.Bucket(bucketQueueIdx)

		if idx.Get([]byte(m.IdempotencyKey)) != nil {
			return fmt.Errorf("mutation %s already queued", m.IdempotencyKey)
		}

		seq, err := queue.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate queue sequence: %w", err)
		}
		m.Seq = seq

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal mutation: %w", err)
		}

		if err := queue.Put(itob(seq), data); err != nil {
			return fmt.Errorf("failed to save mutation: %w", err)
		}
		if err := idx.Put([]byte(m.IdempotencyKey), itob(seq)); err != nil {
			return fmt.Errorf("failed to index mutation: %w", err)
		}

		return nil
	})
}

// GetMutation возвращает мутацию по ключу идемпотентности
func (s *Storage) GetMutation(ctx context.Context, idempotencyKey string) (*models.QueuedMutation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var m *models.QueuedMutation

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		m, err = getMutation(tx, idempotencyKey)
		return err
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// UpdateMutation перезаписывает мутацию на ее месте в очереди
func (s *Storage) UpdateMutation(ctx context.Context, m *models.QueuedMutation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		seq := tx.Bucket(bucketQueueIdx).Get([]byte(m.IdempotencyKey))
		if seq == nil {
			return storage.ErrMutationNotFound
		}

		// Seq неизменен: позиция в очереди определяется только при добавлении
		m.Seq = btoi(seq)

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal mutation: %w", err)
		}

		if err := tx.Bucket(bucketQueue).Put(seq, data); err != nil {
			return fmt.Errorf("failed to update mutation: %w", err)
		}
		return nil
	})
}

// ListMutations возвращает все мутации в порядке Seq
func (s *Storage) ListMutations(ctx context.Context) ([]*models.QueuedMutation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var list []*models.QueuedMutation

	err := s.db.View(func(tx *bbolt.Tx) error {
		// Ключи big-endian: ForEach идет по возрастанию Seq
		return tx.Bucket(bucketQueue).ForEach(func(_, v []byte) error {
			var m models.QueuedMutation
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal mutation: %w", err)
			}
			list = append(list, &m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations: %w", err)
	}

	return list, nil
}

// DeleteMutation удаляет мутацию из очереди
func (s *Storage) DeleteMutation(ctx context.Context, idempotencyKey string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(bucketQueueIdx)
		seq := idx.Get([]byte(idempotencyKey))
		if seq == nil {
			return storage.ErrMutationNotFound
		}

		if err := tx.Bucket(bucketQueue).Delete(seq); err != nil {
			return fmt.Errorf("failed to delete mutation: %w", err)
		}
		if err := idx.Delete([]byte(idempotencyKey)); err != nil {
			return fmt.Errorf("failed to delete mutation index: %w", err)
		}
		return nil
	})
}

func getMutation(tx *bbolt.Tx, idempotencyKey string) (*models.QueuedMutation, error) {
	seq := tx.Bucket(bucketQueueIdx).Get([]byte(idempotencyKey))
	if seq == nil {
		return nil, storage.ErrMutationNotFound
	}

	data := tx.Bucket(bucketQueue).Get(seq)
	if data == nil {
		return nil, storage.ErrMutationNotFound
	}

	m := &models.QueuedMutation{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mutation: %w", err)
	}
	return m, nil
}
