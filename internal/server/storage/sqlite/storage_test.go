package sqlite

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	s, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
	}

	return s, cleanup
}

func createTestEntity(t *testing.T, ctx context.Context, s *Storage, tenantID, entityID string, fields map[string]any) *models.Entity {
	versions := make(map[string]int64, len(fields))
	for k := range fields {
		versions[k] = 1
	}

	entity := &models.Entity{
		TenantID:      tenantID,
		EntityType:    "stock_item",
		EntityID:      entityID,
		Version:       1,
		Fields:        fields,
		FieldVersions: versions,
		UpdatedAt:     s.now(),
	}

	err := s.InTx(ctx, func(tx storage.Tx) error {
		return tx.SaveEntity(ctx, entity, 0)
	})
	require.NoError(t, err)

	return entity
}

func TestStorage_InTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	errBoom := errors.New("boom")

	err := s.InTx(ctx, func(tx storage.Tx) error {
		_, err := tx.AppendEnvelope(ctx, &models.EnvelopeDraft{
			TenantID:   "t1",
			EntityType: "stock_item",
			EntityID:   "e1",
			EventType:  models.EventEntityChanged,
			ProducerID: "p1",
		})
		require.NoError(t, err)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	// Ни конверт, ни счетчик не должны сохраниться
	head, err := s.HeadSequence(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), head)

	envs, err := s.ReadFrom(ctx, "t1", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestStorage_Ping(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.Ping(context.Background()))
	assert.NotNil(t, s.DB())
}

func TestStorage_SetClock(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })
	assert.Equal(t, fixed, s.now())
}

// captureStdout возвращает то, что fn написал в os.Stdout
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	fn()

	require.NoError(t, w.Close())
	output, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(output)
}

func TestStorage_MigrationsAreQuietAndRepeatable(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "fieldsync.db")

	var (
		s   *Storage
		err error
	)
	output := captureStdout(t, func() {
		s, err = New(ctx, dbPath)
		require.NoError(t, err)
		require.NoError(t, s.Close())

		// Повторный запуск на той же базе ничего не применяет
		s, err = New(ctx, dbPath)
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Empty(t, output)

	var version int64
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT MAX(version_id) FROM goose_db_version`).Scan(&version))
	assert.Equal(t, int64(2), version)
}
