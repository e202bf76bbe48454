package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

const envelopeColumns = `
	tenant_id, sequence_id, entity_type, entity_id, entity_version,
	event_type, payload, producer_id, occurred_at
`

// AppendEnvelope добавляет конверт в лог тенанта.
// Счетчик log_heads увеличивается в той же транзакции, поэтому SequenceID
// монотонен и без пропусков для закоммиченных транзакций.
func (t *txStore) AppendEnvelope(ctx context.Context, draft *models.EnvelopeDraft) (*models.Envelope, error) {
	var seq int64

	err := t.q.QueryRowContext(ctx, `
		INSERT INTO log_heads (tenant_id, head_seq) VALUES (?, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET head_seq = head_seq + 1
		RETURNING head_seq
	`, draft.TenantID).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate sequence id: %w", err)
	}

	payload := draft.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	env := &models.Envelope{
		SequenceID:    seq,
		TenantID:      draft.TenantID,
		EntityType:    draft.EntityType,
		EntityID:      draft.EntityID,
		EntityVersion: draft.EntityVersion,
		EventType:     draft.EventType,
		Payload:       payload,
		ProducerID:    draft.ProducerID,
		// Храним миллисекунды: обрезаем сразу, чтобы вызывающий получил то же, что прочитает подписчик
		OccurredAt: millisToTime(timeToMillis(t.now())),
	}

	_, err = t.q.ExecContext(ctx, `
		INSERT INTO envelopes (`+envelopeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		env.TenantID,
		env.SequenceID,
		env.EntityType,
		env.EntityID,
		env.EntityVersion,
		env.EventType,
		[]byte(env.Payload),
		env.ProducerID,
		timeToMillis(env.OccurredAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert envelope: %w", err)
	}

	return env, nil
}

// ReadFrom возвращает до limit конвертов с SequenceID > after по возрастанию
func (s *Storage) ReadFrom(ctx context.Context, tenantID string, after int64, limit int) ([]*models.Envelope, error) {
	query := `
		SELECT ` + envelopeColumns + `
		FROM envelopes
		WHERE tenant_id = ? AND sequence_id > ?
		ORDER BY sequence_id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query envelopes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var envelopes []*models.Envelope

	for rows.Next() {
		env := &models.Envelope{}
		var payload []byte
		var occurredAt int64

		if err := rows.Scan(
			&env.TenantID,
			&env.SequenceID,
			&env.EntityType,
			&env.EntityID,
			&env.EntityVersion,
			&env.EventType,
			&payload,
			&env.ProducerID,
			&occurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan envelope: %w", err)
		}

		env.Payload = json.RawMessage(payload)
		env.OccurredAt = millisToTime(occurredAt)
		envelopes = append(envelopes, env)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return envelopes, nil
}

// HeadSequence возвращает последний выданный SequenceID тенанта
func (s *Storage) HeadSequence(ctx context.Context, tenantID string) (int64, error) {
	var head int64

	err := s.db.QueryRowContext(ctx,
		`SELECT head_seq FROM log_heads WHERE tenant_id = ?`, tenantID,
	).Scan(&head)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get head sequence: %w", err)
	}

	return head, nil
}

// OldestRetained возвращает наименьший хранящийся SequenceID или head+1 для пустого лога
func (s *Storage) OldestRetained(ctx context.Context, tenantID string) (int64, error) {
	var oldest sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(sequence_id) FROM envelopes WHERE tenant_id = ?`, tenantID,
	).Scan(&oldest)
	if err != nil {
		return 0, fmt.Errorf("failed to get oldest retained sequence: %w", err)
	}

	if oldest.Valid {
		return oldest.Int64, nil
	}

	// Лог пуст: либо записей не было, либо все вытеснены окном хранения
	head, err := s.HeadSequence(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	return head + 1, nil
}

// PruneBefore удаляет конверты, добавленные раньше cutoff
func (s *Storage) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM envelopes WHERE occurred_at < ?`, timeToMillis(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune envelopes: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n, nil
}

// FindUnlogged возвращает сущности, измененные после since, без конверта для текущей версии
func (s *Storage) FindUnlogged(ctx context.Context, since time.Time, limit int) ([]*models.Entity, error) {
	query := `
		SELECT ` + entityColumnsPrefixed + `
		FROM entities e
		WHERE e.updated_at >= ?
		  AND NOT EXISTS (
		      SELECT 1 FROM envelopes v
		      WHERE v.tenant_id = e.tenant_id
		        AND v.entity_type = e.entity_type
		        AND v.entity_id = e.entity_id
		        AND v.entity_version = e.version
		  )
		ORDER BY e.updated_at ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, timeToMillis(since), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlogged entities: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanEntities(rows)
}
