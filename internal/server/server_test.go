package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/pack"
	"github.com/iudanet/fieldsync/internal/client/queue"
	"github.com/iudanet/fieldsync/internal/client/realtime"
	"github.com/iudanet/fieldsync/internal/client/storage/boltdb"
	"github.com/iudanet/fieldsync/internal/config"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/bus"
	"github.com/iudanet/fieldsync/internal/server/jwt"
	"github.com/iudanet/fieldsync/internal/server/storage/sqlite"
	"github.com/iudanet/fieldsync/internal/wsframe"
	wire "github.com/iudanet/fieldsync/pkg/api"
)

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupServer поднимает полный сервер на in-memory sqlite и memory bus
func setupServer(t *testing.T) (*httptest.Server, *jwt.Service) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	b := bus.NewMemory(bus.DefaultBufferSize)
	t.Cleanup(func() { _ = b.Close() })

	tokens := jwt.NewService(testSecret)
	cfg := config.Default().Server
	cfg.ProducerID = "test-producer"

	srv := New(cfg, store, b, tokens, "test", discardLogger())
	t.Cleanup(srv.limiter.Stop)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, tokens
}

func deviceClient(t *testing.T, ts *httptest.Server, tokens *jwt.Service, tenantID, device string) *api.Client {
	t.Helper()
	token, _, err := tokens.Issue(tenantID, device, time.Hour)
	require.NoError(t, err)
	return api.NewClient(ts.URL, token)
}

func TestServer_HealthIsPublic(t *testing.T) {
	ts, _ := setupServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServer_RequiresToken(t *testing.T) {
	ts, _ := setupServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/sync/apply"},
		{http.MethodGet, "/api/v1/conflicts"},
		{http.MethodGet, "/api/v1/pack?entity_type=stock_item"},
		{http.MethodGet, "/api/v1/stream"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req, err := http.NewRequest(p.method, ts.URL+p.path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestServer_ApplyPackAndStream(t *testing.T) {
	ts, tokens := setupServer(t)
	ctx := context.Background()
	client := deviceClient(t, ts, tokens, "acme", "device-a")

	resp, err := client.Apply(ctx, wire.ApplyRequest{
		Payload:        map[string]any{"qty": float64(12), "location": "A-3"},
		IdempotencyKey: "key-1",
		EntityType:     "stock_item",
		EntityID:       "bin-17",
		Operation:      models.OpSet,
	})
	require.NoError(t, err)
	assert.Equal(t, wire.StatusSuccess, resp.Status)
	assert.Equal(t, int64(1), resp.NewVersion)

	// Повтор с тем же ключом возвращает сохраненный результат
	again, err := client.Apply(ctx, wire.ApplyRequest{
		Payload:        map[string]any{"qty": float64(12), "location": "A-3"},
		IdempotencyKey: "key-1",
		EntityType:     "stock_item",
		EntityID:       "bin-17",
		Operation:      models.OpSet,
	})
	require.NoError(t, err)
	assert.Equal(t, resp.SequenceID, again.SequenceID)

	packResp, err := client.Pack(ctx, "stock_item", 0)
	require.NoError(t, err)
	require.Len(t, packResp.Entities, 1)
	assert.Equal(t, resp.SequenceID, packResp.HeadSequenceID)

	// Другой тенант не видит сущностей acme
	other := deviceClient(t, ts, tokens, "globex", "device-x")
	otherPack, err := other.Pack(ctx, "stock_item", 0)
	require.NoError(t, err)
	assert.Empty(t, otherPack.Entities)

	ws, err := client.DialStream(ctx, 0)
	require.NoError(t, err)
	conn := wsframe.New(ws, time.Second, 5*time.Second)
	defer conn.Close()

	frame, err := conn.ReadFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, wire.FrameEnvelope, frame.Type)
	assert.Equal(t, resp.SequenceID, frame.Envelope.SequenceID)
	assert.Equal(t, "bin-17", frame.Envelope.EntityID)
}

// startSubscriber запускает подписчика устройства и отдает примененные конверты в канал
func startSubscriber(t *testing.T, client *api.Client, store *boltdb.Storage, subscriberID string) <-chan *models.Envelope {
	t.Helper()

	envelopes := make(chan *models.Envelope, 16)
	logger := discardLogger()
	fetcher := pack.NewFetcher(client, store, store, subscriberID, []string{"stock_item"}, logger)
	sub := realtime.New(
		&realtime.WebsocketDialer{Client: client, WriteTimeout: time.Second, ReadTimeout: 30 * time.Second},
		fetcher,
		store,
		store,
		realtime.Config{
			SubscriberID: subscriberID,
			OnEnvelope: func(env *models.Envelope) {
				envelopes <- env
			},
		},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return envelopes
}

// waitEnvelope ждет конверт сущности с указанной версией
func waitEnvelope(t *testing.T, envelopes <-chan *models.Envelope, entityID string, version int64) *models.Envelope {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case env := <-envelopes:
			if env.EntityID == entityID && env.EntityVersion == version {
				return env
			}
		case <-timeout:
			t.Fatalf("envelope %s v%d not received", entityID, version)
			return nil
		}
	}
}

func openDeviceStore(t *testing.T, name string) *boltdb.Storage {
	t.Helper()
	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), name+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Два устройства меняют одно поле офлайн; второе получает конфликт и оставляет свое значение
func TestServer_KeepMineAcrossDevices(t *testing.T) {
	ts, tokens := setupServer(t)
	ctx := context.Background()

	deviceA := deviceClient(t, ts, tokens, "acme", "device-a")
	_, err := deviceA.Apply(ctx, wire.ApplyRequest{
		Payload:        map[string]any{"qty": float64(10)},
		IdempotencyKey: "seed",
		EntityType:     "stock_item",
		EntityID:       "bin-17",
		Operation:      models.OpSet,
	})
	require.NoError(t, err)

	store := openDeviceStore(t, "device-b")
	deviceB := deviceClient(t, ts, tokens, "acme", "device-b")
	q := queue.New(store, deviceB, queue.DefaultConfig(), discardLogger())

	// Устройство B офлайн пишет поверх версии 1
	queued, err := q.Enqueue(ctx, queue.Mutation{
		Payload:     map[string]any{"qty": float64(7)},
		EntityType:  "stock_item",
		EntityID:    "bin-17",
		Operation:   models.OpSet,
		BaseVersion: 1,
	})
	require.NoError(t, err)

	// Тем временем A пишет версию 2
	_, err = deviceA.Apply(ctx, wire.ApplyRequest{
		Payload:        map[string]any{"qty": float64(5)},
		IdempotencyKey: "a-2",
		EntityType:     "stock_item",
		EntityID:       "bin-17",
		Operation:      models.OpSet,
		BaseVersion:    1,
	})
	require.NoError(t, err)

	report, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Conflicts)

	conflicts, err := q.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.NotNil(t, conflicts[0].Conflict)
	assert.Equal(t, int64(2), conflicts[0].Conflict.CurrentServerVersion)

	// Подписчик B догоняет лог до разрешения конфликта
	envelopes := startSubscriber(t, deviceB, store, "device-b")
	waitEnvelope(t, envelopes, "bin-17", 2)

	resolved, err := q.Resolve(ctx, queued.IdempotencyKey, models.ChoiceKeepMine, nil)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusSuccess, resolved.Status)
	assert.Equal(t, int64(3), resolved.NewVersion)

	env := waitEnvelope(t, envelopes, "bin-17", 3)
	assert.Equal(t, models.EventEntityChanged, env.EventType)

	var change models.ChangePayload
	require.NoError(t, json.Unmarshal(env.Payload, &change))
	assert.Equal(t, float64(7), change.Fields["qty"])

	local, err := store.GetEntity(ctx, "stock_item", "bin-17")
	require.NoError(t, err)
	assert.Equal(t, int64(3), local.Version)
	assert.Equal(t, float64(7), local.Fields["qty"])

	packResp, err := deviceA.Pack(ctx, "stock_item", 0)
	require.NoError(t, err)
	require.Len(t, packResp.Entities, 1)
	assert.Equal(t, float64(7), packResp.Entities[0].Fields["qty"])

	remaining, err := q.Conflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

// Последовательные записи одного устройства в одну сущность не конфликтуют между собой
func TestServer_ConsecutiveOwnWrites(t *testing.T) {
	ts, tokens := setupServer(t)
	ctx := context.Background()

	store := openDeviceStore(t, "device-a")
	client := deviceClient(t, ts, tokens, "acme", "device-a")
	q := queue.New(store, client, queue.DefaultConfig(), discardLogger()).WithSnapshot(store)

	// Офлайн: обе записи видят новую сущность
	for _, qty := range []float64{5, 6} {
		_, err := q.Enqueue(ctx, queue.Mutation{
			Payload:    map[string]any{"qty": qty},
			EntityType: "stock_item",
			EntityID:   "E1",
			Operation:  models.OpSet,
		})
		require.NoError(t, err)
	}

	report, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.DrainReport{Applied: 2}, report)

	// Онлайн: следующая запись берет базу из снимка, который очередь уже обновила
	local, err := store.GetEntity(ctx, "stock_item", "E1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), local.Version)

	_, err = q.Enqueue(ctx, queue.Mutation{
		Payload:     map[string]any{"qty": float64(9)},
		EntityType:  "stock_item",
		EntityID:    "E1",
		Operation:   models.OpSet,
		BaseVersion: local.Version,
	})
	require.NoError(t, err)

	report, err = q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.DrainReport{Applied: 1}, report)

	result, err := client.Pack(ctx, "stock_item", 0)
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, int64(3), result.Entities[0].Version)
	assert.Equal(t, float64(9), result.Entities[0].Fields["qty"])
}

func TestNewPolicy(t *testing.T) {
	policy := newPolicy(map[string][]string{
		"stock_item": {"increment"},
		"work_order": {},
	})

	assert.True(t, policy.IsCommutative("stock_item", models.OpIncrement))
	assert.False(t, policy.IsCommutative("stock_item", models.OpAppend))
	assert.False(t, policy.IsCommutative("work_order", models.OpIncrement))
	// Типы без настройки используют значения по умолчанию
	assert.True(t, policy.IsCommutative("crew", models.OpAppend))
}
