package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/bus"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/server/storage/sqlite"
)

// failingBus всегда возвращает ошибку публикации
type failingBus struct {
	bus.Bus
	calls int
}

func (b *failingBus) Publish(context.Context, *models.Envelope) error {
	b.calls++
	return errors.New("bus unavailable")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) *sqlite.Storage {
	t.Helper()

	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func saveEntityCommit(entity *models.Entity, expected int64) CommitFunc {
	return func(ctx context.Context, tx storage.Tx, draft *models.EnvelopeDraft) error {
		if err := tx.SaveEntity(ctx, entity, expected); err != nil {
			return err
		}
		draft.EntityVersion = entity.Version
		draft.Payload = json.RawMessage(`{}`)
		return nil
	}
}

func newDraft(entityID string) *models.EnvelopeDraft {
	return &models.EnvelopeDraft{
		TenantID:   "t1",
		EntityType: "stock_item",
		EntityID:   entityID,
		EventType:  models.EventEntityChanged,
	}
}

func newEntity(entityID string, version int64) *models.Entity {
	return &models.Entity{
		TenantID:      "t1",
		EntityType:    "stock_item",
		EntityID:      entityID,
		Version:       version,
		Fields:        map[string]any{"qty": version},
		FieldVersions: map[string]int64{"qty": version},
		UpdatedAt:     time.Now(),
	}
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	b := bus.NewMemory(8)
	defer b.Close()

	sub, err := b.Subscribe(ctx, "t1")
	require.NoError(t, err)
	defer sub.Close()

	p := New(store, b, "producer-1", testLogger())

	env, err := p.Publish(ctx, saveEntityCommit(newEntity("e1", 1), 0), newDraft("e1"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), env.SequenceID)
	assert.Equal(t, int64(1), env.EntityVersion)
	assert.Equal(t, "producer-1", env.ProducerID)

	select {
	case got := <-sub.C():
		assert.Equal(t, env, got)
	default:
		t.Fatal("envelope was not broadcast")
	}

	envs, err := store.ReadFrom(ctx, "t1", 0, 10)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, env.SequenceID, envs[0].SequenceID)
}

func TestPublisher_Publish_CommitFailure(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	b := bus.NewMemory(8)
	defer b.Close()

	sub, err := b.Subscribe(ctx, "t1")
	require.NoError(t, err)
	defer sub.Close()

	p := New(store, b, "producer-1", testLogger())

	_, err = p.Publish(ctx, saveEntityCommit(newEntity("e1", 1), 0), newDraft("e1"))
	require.NoError(t, err)
	<-sub.C()

	// CAS по устаревшей версии проваливается: конверт не создается и не рассылается
	_, err = p.Publish(ctx, saveEntityCommit(newEntity("e1", 5), 4), newDraft("e1"))
	require.ErrorIs(t, err, storage.ErrVersionMismatch)

	head, err := store.HeadSequence(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), head)

	select {
	case got := <-sub.C():
		t.Fatalf("unexpected envelope %v", got)
	default:
	}
}

func TestPublisher_Publish_BusFailureSwallowed(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	fb := &failingBus{}

	p := New(store, fb, "producer-1", testLogger())

	env, err := p.Publish(ctx, saveEntityCommit(newEntity("e1", 1), 0), newDraft("e1"))
	require.NoError(t, err)
	assert.Equal(t, 1, fb.calls)

	// Изменение закоммичено и есть в логе
	envs, err := store.ReadFrom(ctx, "t1", 0, 10)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, env.SequenceID, envs[0].SequenceID)
}

func TestPublisher_Transact_MultipleEnvelopes(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	b := bus.NewMemory(8)
	defer b.Close()

	p := New(store, b, "producer-1", testLogger())

	envs, err := p.Transact(ctx, func(ctx context.Context, tx storage.Tx, emit EmitFunc) error {
		for _, id := range []string{"a", "b", "c"} {
			if _, err := emit(newDraft(id)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, envs, 3)

	for i, env := range envs {
		assert.Equal(t, int64(i+1), env.SequenceID)
	}
}

func TestPublisher_ConcurrentProducers_StrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	b := bus.NewMemory(64)
	defer b.Close()

	p := New(store, b, "producer-1", testLogger())

	const n = 20
	errs := make(chan error, n)
	for i := range n {
		go func() {
			entity := newEntity("e"+string(rune('a'+i)), 1)
			_, err := p.Publish(ctx, saveEntityCommit(entity, 0), newDraft(entity.EntityID))
			errs <- err
		}()
	}
	for range n {
		require.NoError(t, <-errs)
	}

	envs, err := store.ReadFrom(ctx, "t1", 0, 100)
	require.NoError(t, err)
	require.Len(t, envs, n)
	for i, env := range envs {
		assert.Equal(t, int64(i+1), env.SequenceID)
	}
}
