package boltdb

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
)

func changeEnvelope(t *testing.T, seq, version int64, eventType string, change models.ChangePayload) *models.Envelope {
	t.Helper()

	payload, err := json.Marshal(change)
	require.NoError(t, err)

	return &models.Envelope{
		OccurredAt:    time.Now().UTC().Truncate(time.Millisecond),
		TenantID:      "t1",
		EntityType:    "stock_item",
		EntityID:      "e1",
		EventType:     eventType,
		Payload:       payload,
		SequenceID:    seq,
		EntityVersion: version,
	}
}

func TestStorage_PutEntity_VersionWins(t *testing.T) {
	ctx := context.Background()
	store, _ := createTestStorage(t)

	v2 := &models.Entity{EntityType: "stock_item", EntityID: "e1", Version: 2, Fields: map[string]any{"qty": float64(2)}}
	v1 := &models.Entity{EntityType: "stock_item", EntityID: "e1", Version: 1, Fields: map[string]any{"qty": float64(1)}}

	changed, err := store.PutEntity(ctx, v2)
	require.NoError(t, err)
	assert.True(t, changed)

	// Более старая версия не перезаписывает
	changed, err = store.PutEntity(ctx, v1)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := store.GetEntity(ctx, "stock_item", "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, float64(2), got.Fields["qty"])
}

func TestStorage_ApplyEnvelope(t *testing.T) {
	ctx := context.Background()
	store, _ := createTestStorage(t)

	created := changeEnvelope(t, 1, 1, models.EventEntityChanged, models.ChangePayload{
		Fields: map[string]any{"qty": 5, "location": "A1"}, Operation: models.OpSet, Version: 1,
	})
	changed, err := store.ApplyEnvelope(ctx, created)
	require.NoError(t, err)
	assert.True(t, changed)

	// Второе изменение затрагивает только qty
	updated := changeEnvelope(t, 2, 2, models.EventEntityChanged, models.ChangePayload{
		Fields: map[string]any{"qty": 7}, Operation: models.OpIncrement, Version: 2,
	})
	_, err = store.ApplyEnvelope(ctx, updated)
	require.NoError(t, err)

	got, err := store.GetEntity(ctx, "stock_item", "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, map[string]any{"qty": float64(7), "location": "A1"}, got.Fields)
	assert.Equal(t, map[string]int64{"qty": 2, "location": 1}, got.FieldVersions)

	// Повторная доставка не меняет состояние
	changed, err = store.ApplyEnvelope(ctx, created)
	require.NoError(t, err)
	assert.False(t, changed)

	deleted := changeEnvelope(t, 3, 3, models.EventEntityDeleted, models.ChangePayload{Operation: models.OpDelete, Version: 3, Deleted: true})
	_, err = store.ApplyEnvelope(ctx, deleted)
	require.NoError(t, err)

	got, err = store.GetEntity(ctx, "stock_item", "e1")
	require.NoError(t, err)
	assert.True(t, got.Deleted)
}

func TestStorage_ListEntities_ByType(t *testing.T) {
	ctx := context.Background()
	store, _ := createTestStorage(t)

	for _, e := range []*models.Entity{
		{EntityType: "stock_item", EntityID: "b", Version: 1},
		{EntityType: "stock_item", EntityID: "a", Version: 4},
		{EntityType: "stock_items_archive", EntityID: "x", Version: 9},
		{EntityType: "route", EntityID: "r1", Version: 2},
	} {
		_, err := store.PutEntity(ctx, e)
		require.NoError(t, err)
	}

	list, err := store.ListEntities(ctx, "stock_item")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].EntityID)
	assert.Equal(t, "b", list[1].EntityID)

	maxVersion, err := store.MaxVersion(ctx, "stock_item")
	require.NoError(t, err)
	assert.Equal(t, int64(4), maxVersion)

	_, err = store.GetEntity(ctx, "stock_item", "missing")
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
}

func TestStorage_Cursor(t *testing.T) {
	ctx := context.Background()
	store, dbPath := createTestStorage(t)

	cursor, err := store.GetCursor(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor.LastSequenceID)
	assert.Equal(t, "device-1", cursor.SubscriberID)

	require.NoError(t, store.SaveCursor(ctx, &models.SyncCursor{SubscriberID: "device-1", TenantID: "t1", LastSequenceID: 42}))

	store = reopen(t, store, dbPath)

	cursor, err = store.GetCursor(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor.LastSequenceID)
	assert.Equal(t, "t1", cursor.TenantID)
}
