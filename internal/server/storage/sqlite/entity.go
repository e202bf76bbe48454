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

const entityColumns = `
	tenant_id, entity_type, entity_id, version,
	fields, field_versions, deleted, updated_at
`

const entityColumnsPrefixed = `
	e.tenant_id, e.entity_type, e.entity_id, e.version,
	e.fields, e.field_versions, e.deleted, e.updated_at
`

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// GetEntity retrieves entity by tenant, type and id (including deleted ones)
// Returns ErrEntityNotFound if entity doesn't exist
func (t *txStore) GetEntity(ctx context.Context, tenantID, entityType, entityID string) (*models.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE tenant_id = ? AND entity_type = ? AND entity_id = ?
	`

	entity, err := scanEntity(t.q.QueryRowContext(ctx, query, tenantID, entityType, entityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	return entity, nil
}

// SaveEntity сохраняет сущность с compare-and-set по версии.
// expectedVersion = 0 создает новую запись; существующая запись дает ErrVersionMismatch.
func (t *txStore) SaveEntity(ctx context.Context, entity *models.Entity, expectedVersion int64) error {
	fields, err := json.Marshal(entity.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	fieldVersions, err := json.Marshal(entity.FieldVersions)
	if err != nil {
		return fmt.Errorf("failed to marshal field versions: %w", err)
	}

	if expectedVersion == 0 {
		_, err := t.q.ExecContext(ctx, `
			INSERT INTO entities (`+entityColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			entity.TenantID,
			entity.EntityType,
			entity.EntityID,
			entity.Version,
			string(fields),
			string(fieldVersions),
			boolToInt(entity.Deleted),
			timeToMillis(entity.UpdatedAt),
		)
		if err != nil {
			if isConstraintViolation(err) {
				return storage.ErrVersionMismatch
			}
			return fmt.Errorf("failed to insert entity: %w", err)
		}
		return nil
	}

	result, err := t.q.ExecContext(ctx, `
		UPDATE entities
		SET version = ?, fields = ?, field_versions = ?, deleted = ?, updated_at = ?
		WHERE tenant_id = ? AND entity_type = ? AND entity_id = ? AND version = ?
	`,
		entity.Version,
		string(fields),
		string(fieldVersions),
		boolToInt(entity.Deleted),
		timeToMillis(entity.UpdatedAt),
		entity.TenantID,
		entity.EntityType,
		entity.EntityID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrVersionMismatch
	}

	return nil
}

// ListEntities возвращает сущности типа с версией > sinceVersion (включая удаленные)
func (s *Storage) ListEntities(ctx context.Context, tenantID, entityType string, sinceVersion int64) ([]*models.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE tenant_id = ? AND entity_type = ? AND version > ?
		ORDER BY entity_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, entityType, sinceVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanEntities(rows)
}

// scanEntities is a helper function to scan multiple entities from rows
func scanEntities(rows *sql.Rows) ([]*models.Entity, error) {
	var entities []*models.Entity

	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entities, nil
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	entity := &models.Entity{}
	var fields, fieldVersions string
	var deleted int
	var updatedAt int64

	if err := row.Scan(
		&entity.TenantID,
		&entity.EntityType,
		&entity.EntityID,
		&entity.Version,
		&fields,
		&fieldVersions,
		&deleted,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(fields), &entity.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	if err := json.Unmarshal([]byte(fieldVersions), &entity.FieldVersions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal field versions: %w", err)
	}
	if entity.Fields == nil {
		entity.Fields = make(map[string]any)
	}
	if entity.FieldVersions == nil {
		entity.FieldVersions = make(map[string]int64)
	}

	entity.Deleted = intToBool(deleted)
	entity.UpdatedAt = millisToTime(updatedAt)

	return entity, nil
}
