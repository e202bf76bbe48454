package syncapply

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/conflict"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/bus"
	"github.com/iudanet/fieldsync/internal/server/publisher"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/server/storage/sqlite"
	"github.com/iudanet/fieldsync/internal/syncerr"
)

type testEnv struct {
	store   *sqlite.Storage
	bus     *bus.Memory
	service *Service
}

func setupService(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	b := bus.NewMemory(64)
	t.Cleanup(func() { _ = b.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := publisher.New(store, b, "test-producer", logger)

	return &testEnv{
		store:   store,
		bus:     b,
		service: New(p, conflict.NewResolver(nil), logger),
	}
}

func (e *testEnv) entity(t *testing.T, entityID string) *models.Entity {
	t.Helper()

	var entity *models.Entity
	err := e.store.InTx(context.Background(), func(tx storage.Tx) error {
		var err error
		entity, err = tx.GetEntity(context.Background(), "t1", "stock_item", entityID)
		return err
	})
	require.NoError(t, err)

	return entity
}

func (e *testEnv) envelopes(t *testing.T) []*models.Envelope {
	t.Helper()

	envs, err := e.store.ReadFrom(context.Background(), "t1", 0, 1000)
	require.NoError(t, err)

	return envs
}

func setRequest(key string, base int64, payload map[string]any) Request {
	return Request{
		TenantID:       "t1",
		IdempotencyKey: key,
		EntityType:     "stock_item",
		EntityID:       "e1",
		Operation:      models.OpSet,
		BaseVersion:    base,
		Payload:        payload,
		Actor:          "device-a",
	}
}

func TestService_Apply_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	result, err := env.service.Apply(ctx, setRequest(uuid.NewString(), 0, map[string]any{"qty": 5}))
	require.NoError(t, err)
	assert.Equal(t, models.ApplySuccess, result.Status)
	assert.Equal(t, int64(1), result.NewVersion)
	assert.Equal(t, int64(1), result.SequenceID)
	assert.False(t, result.AutoMerged)

	result, err = env.service.Apply(ctx, setRequest(uuid.NewString(), 1, map[string]any{"qty": 6}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.NewVersion)

	entity := env.entity(t, "e1")
	assert.Equal(t, int64(2), entity.Version)
	assert.Equal(t, float64(6), entity.Fields["qty"])

	envs := env.envelopes(t)
	require.Len(t, envs, 2)

	var payload models.ChangePayload
	require.NoError(t, json.Unmarshal(envs[1].Payload, &payload))
	assert.Equal(t, int64(2), payload.Version)
	assert.Equal(t, float64(6), payload.Fields["qty"])
	assert.Equal(t, models.EventEntityChanged, envs[1].EventType)
}

func TestService_Apply_Idempotent(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	req := setRequest("same-key", 0, map[string]any{"qty": 5})

	first, err := env.service.Apply(ctx, req)
	require.NoError(t, err)

	// Повторная доставка того же запроса (например, после таймаута ответа)
	second, err := env.service.Apply(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, env.envelopes(t), 1)
	assert.Equal(t, int64(1), env.entity(t, "e1").Version)
}

func TestService_Apply_IdempotentIncrement(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.service.Apply(ctx, setRequest(uuid.NewString(), 0, map[string]any{"qty": 10}))
	require.NoError(t, err)

	req := setRequest("inc-key", 1, map[string]any{"qty": 3})
	req.Operation = models.OpIncrement

	for range 3 {
		_, err := env.service.Apply(ctx, req)
		require.NoError(t, err)
	}

	// Эффект применен ровно один раз
	assert.Equal(t, float64(13), env.entity(t, "e1").Fields["qty"])
}

func TestService_Apply_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.service.Apply(ctx, setRequest(uuid.NewString(), 0, map[string]any{"qty": 0}))
	require.NoError(t, err)

	req := setRequest("concurrent-key", 1, map[string]any{"qty": 1})
	req.Operation = models.OpIncrement

	const n = 10
	results := make([]*models.ApplyResult, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.service.Apply(ctx, req)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, results[0], res)
	}
	assert.Equal(t, float64(1), env.entity(t, "e1").Fields["qty"])
	assert.Len(t, env.envelopes(t), 2)
}

func TestService_Apply_Conflict(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.service.Apply(ctx, setRequest(uuid.NewString(), 0, map[string]any{"qty": 5}))
	require.NoError(t, err)
	_, err = env.service.Apply(ctx, setRequest(uuid.NewString(), 1, map[string]any{"qty": 7}))
	require.NoError(t, err)

	result, err := env.service.Apply(ctx, setRequest("stale-key", 1, map[string]any{"qty": 9}))
	require.NoError(t, err)

	assert.Equal(t, models.ApplyConflict, result.Status)
	require.NotNil(t, result.Conflict)
	assert.Equal(t, "stale-key", result.Conflict.MutationID)
	assert.Equal(t, int64(1), result.Conflict.BaseVersion)
	assert.Equal(t, int64(2), result.Conflict.CurrentServerVersion)
	assert.Equal(t, models.ConflictPending, result.Conflict.Status)
	assert.Equal(t, models.FieldDiff{Mine: 9, Theirs: float64(7)}, result.Conflict.PayloadDiff["qty"])
	assert.NotEmpty(t, result.Conflict.ID)

	// Сущность не изменилась, конверта нет
	assert.Equal(t, int64(2), env.entity(t, "e1").Version)
	assert.Len(t, env.envelopes(t), 2)

	pending, err := env.store.ListConflicts(ctx, "t1", models.ConflictPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, result.Conflict.ID, pending[0].ID)

	// Повтор возвращает тот же конфликт, а не новый
	again, err := env.service.Apply(ctx, setRequest("stale-key", 1, map[string]any{"qty": 9}))
	require.NoError(t, err)
	assert.Equal(t, result.Conflict.ID, again.Conflict.ID)

	pending, err = env.store.ListConflicts(ctx, "t1", models.ConflictPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestService_Apply_DisjointAutoMerge(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.service.Apply(ctx, setRequest(uuid.NewString(), 0, map[string]any{"qty": 5, "location": "A1"}))
	require.NoError(t, err)
	_, err = env.service.Apply(ctx, setRequest(uuid.NewString(), 1, map[string]any{"qty": 7}))
	require.NoError(t, err)

	// Клиент со старой версией меняет только location
	result, err := env.service.Apply(ctx, setRequest(uuid.NewString(), 1, map[string]any{"location": "B2"}))
	require.NoError(t, err)

	assert.Equal(t, models.ApplySuccess, result.Status)
	assert.True(t, result.AutoMerged)
	assert.Equal(t, int64(3), result.NewVersion)

	entity := env.entity(t, "e1")
	assert.Equal(t, float64(7), entity.Fields["qty"])
	assert.Equal(t, "B2", entity.Fields["location"])
}

func TestService_Apply_Rejects(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	tests := []struct {
		name string
		req  Request
	}{
		{name: "missing idempotency key", req: setRequest("", 0, map[string]any{"qty": 1})},
		{name: "invalid operation", req: func() Request {
			r := setRequest(uuid.NewString(), 0, map[string]any{"qty": 1})
			r.Operation = "merge"
			return r
		}()},
		{name: "base version on missing entity", req: setRequest(uuid.NewString(), 4, map[string]any{"qty": 1})},
		{name: "invalid entity type", req: func() Request {
			r := setRequest(uuid.NewString(), 0, map[string]any{"qty": 1})
			r.EntityType = "Bad Type"
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Apply(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, syncerr.KindPermanentReject, syncerr.Classify(err))
		})
	}

	assert.Empty(t, env.envelopes(t))
}

func TestService_Apply_StorageFailureIsTransient(t *testing.T) {
	env := setupService(t)
	require.NoError(t, env.store.Close())

	_, err := env.service.Apply(context.Background(), setRequest(uuid.NewString(), 0, map[string]any{"qty": 1}))
	require.Error(t, err)
	assert.Equal(t, syncerr.KindTransient, syncerr.Classify(err))
}

func TestService_Apply_SurvivesCallerCancellation(t *testing.T) {
	env := setupService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.service.Apply(ctx, setRequest(uuid.NewString(), 0, map[string]any{"qty": 1}))
	require.NoError(t, err)
	assert.Equal(t, models.ApplySuccess, result.Status)
}

func TestService_ConflictIDUsesClock(t *testing.T) {
	env := setupService(t)
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	env.service.SetClock(func() time.Time { return fixed })

	id := env.service.newConflictID()
	assert.Len(t, id, 26)
}
