package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
)

const conflictColumns = `
	id, tenant_id, mutation_id, entity_type, entity_id, operation,
	base_version, current_server_version, payload_diff, status,
	resolution_strategy, resolved_by, resolved_at, created_at, payload
`

// SaveConflict сохраняет новый конфликт
func (t *txStore) SaveConflict(ctx context.Context, record *models.ConflictRecord) error {
	diff, err := json.Marshal(record.PayloadDiff)
	if err != nil {
		return fmt.Errorf("failed to marshal payload diff: %w", err)
	}

	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal conflict payload: %w", err)
	}

	_, err = t.q.ExecContext(ctx, `
		INSERT INTO conflicts (`+conflictColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.TenantID,
		record.MutationID,
		record.EntityType,
		record.EntityID,
		string(record.Operation),
		record.BaseVersion,
		record.CurrentServerVersion,
		string(diff),
		string(record.Status),
		string(record.ResolutionStrategy),
		record.ResolvedBy,
		nullableMillis(record),
		timeToMillis(record.CreatedAt),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save conflict: %w", err)
	}

	return nil
}

// GetConflict retrieves conflict by tenant and ID
// Returns ErrConflictNotFound if conflict doesn't exist
func (t *txStore) GetConflict(ctx context.Context, tenantID, id string) (*models.ConflictRecord, error) {
	query := `
		SELECT ` + conflictColumns + `
		FROM conflicts
		WHERE tenant_id = ? AND id = ?
	`

	record, err := scanConflict(t.q.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrConflictNotFound
		}
		return nil, fmt.Errorf("failed to get conflict: %w", err)
	}

	return record, nil
}

// UpdateConflict обновляет статус и поля разрешения конфликта
func (t *txStore) UpdateConflict(ctx context.Context, record *models.ConflictRecord) error {
	result, err := t.q.ExecContext(ctx, `
		UPDATE conflicts
		SET status = ?, resolution_strategy = ?, resolved_by = ?, resolved_at = ?
		WHERE tenant_id = ? AND id = ?
	`,
		string(record.Status),
		string(record.ResolutionStrategy),
		record.ResolvedBy,
		nullableMillis(record),
		record.TenantID,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conflict: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrConflictNotFound
	}

	return nil
}

// ListConflicts возвращает конфликты тенанта с указанным статусом, старые первыми
func (s *Storage) ListConflicts(ctx context.Context, tenantID string, status models.ConflictStatus) ([]*models.ConflictRecord, error) {
	query := `
		SELECT ` + conflictColumns + `
		FROM conflicts
		WHERE tenant_id = ? AND status = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*models.ConflictRecord

	for rows.Next() {
		record, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

func scanConflict(row rowScanner) (*models.ConflictRecord, error) {
	record := &models.ConflictRecord{}
	var operation, status, strategy, diff, payload string
	var resolvedAt sql.NullInt64
	var createdAt int64

	if err := row.Scan(
		&record.ID,
		&record.TenantID,
		&record.MutationID,
		&record.EntityType,
		&record.EntityID,
		&operation,
		&record.BaseVersion,
		&record.CurrentServerVersion,
		&diff,
		&status,
		&strategy,
		&record.ResolvedBy,
		&resolvedAt,
		&createdAt,
		&payload,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(diff), &record.PayloadDiff); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload diff: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &record.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conflict payload: %w", err)
	}

	record.Operation = models.Operation(operation)
	record.Status = models.ConflictStatus(status)
	record.ResolutionStrategy = models.ResolutionStrategy(strategy)
	record.CreatedAt = millisToTime(createdAt)

	if resolvedAt.Valid {
		t := millisToTime(resolvedAt.Int64)
		record.ResolvedAt = &t
	}

	return record, nil
}

func nullableMillis(record *models.ConflictRecord) sql.NullInt64 {
	if record.ResolvedAt == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: timeToMillis(*record.ResolvedAt), Valid: true}
}
