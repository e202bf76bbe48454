package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
)

// GetIdempotencyRecord retrieves stored apply result by tenant and key
// Returns ErrIdempotencyNotFound if key is unknown
func (t *txStore) GetIdempotencyRecord(ctx context.Context, tenantID, key string) (*models.IdempotencyRecord, error) {
	var result string
	var appliedAt int64

	err := t.q.QueryRowContext(ctx, `
		SELECT result, applied_at
		FROM idempotency_records
		WHERE tenant_id = ? AND idempotency_key = ?
	`, tenantID, key).Scan(&result, &appliedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrIdempotencyNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}

	record := &models.IdempotencyRecord{
		TenantID:       tenantID,
		IdempotencyKey: key,
		AppliedAt:      millisToTime(appliedAt),
	}

	if err := json.Unmarshal([]byte(result), &record.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal apply result: %w", err)
	}

	return record, nil
}

// SaveIdempotencyRecord сохраняет результат под ключом.
// Уникальность (tenant_id, idempotency_key) обеспечивает первичный ключ таблицы.
func (t *txStore) SaveIdempotencyRecord(ctx context.Context, record *models.IdempotencyRecord) error {
	result, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal apply result: %w", err)
	}

	_, err = t.q.ExecContext(ctx, `
		INSERT INTO idempotency_records (tenant_id, idempotency_key, result, applied_at)
		VALUES (?, ?, ?, ?)
	`,
		record.TenantID,
		record.IdempotencyKey,
		string(result),
		timeToMillis(record.AppliedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return storage.ErrIdempotencyKeyExists
		}
		return fmt.Errorf("failed to save idempotency record: %w", err)
	}

	return nil
}

// DeleteIdempotencyBefore удаляет записи, примененные раньше cutoff
func (s *Storage) DeleteIdempotencyBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotency_records WHERE applied_at < ?`, timeToMillis(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete idempotency records: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n, nil
}
