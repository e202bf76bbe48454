package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/bus"
	"github.com/iudanet/fieldsync/internal/server/publisher"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/server/storage/sqlite"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/pkg/api"
)

const waitTimeout = 2 * time.Second

var errConnClosed = errors.New("conn closed")

// fakeConn in-memory реализация Conn
type fakeConn struct {
	out    chan *api.Frame
	in     chan *api.Frame
	closed chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		out:    make(chan *api.Frame, 1024),
		in:     make(chan *api.Frame, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) WriteFrame(ctx context.Context, f *api.Frame) error {
	select {
	case c.out <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *fakeConn) ReadFrame(ctx context.Context) (*api.Frame, error) {
	select {
	case f := <-c.in:
		return f, nil
	case <-c.closed:
		return nil, errConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	close(c.closed)
	return nil
}

// next ждет следующий кадр заданного типа, пропуская остальные
func (c *fakeConn) next(t *testing.T, typ api.FrameType) *api.Frame {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case f := <-c.out:
			if f.Type == typ {
				return f
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s frame", typ)
			return nil
		}
	}
}

// expectSequence читает конверты и проверяет, что они идут строго подряд
func (c *fakeConn) expectSequence(t *testing.T, from, to int64) {
	t.Helper()
	for want := from; want <= to; want++ {
		f := c.next(t, api.FrameEnvelope)
		require.Equal(t, want, f.Envelope.SequenceID)
	}
}

// expectNoEnvelope проверяет, что за короткое время конвертов не пришло
func (c *fakeConn) expectNoEnvelope(t *testing.T, d time.Duration) {
	t.Helper()
	timeout := time.After(d)
	for {
		select {
		case f := <-c.out:
			if f.Type == api.FrameEnvelope {
				t.Fatalf("unexpected envelope %d", f.Envelope.SequenceID)
			}
		case <-timeout:
			return
		}
	}
}

type testEnv struct {
	store     *sqlite.Storage
	bus       *bus.Memory
	publisher *publisher.Publisher
	logger    *slog.Logger
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	b := bus.NewMemory(64)
	t.Cleanup(func() { _ = b.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		store:     store,
		bus:       b,
		publisher: publisher.New(store, b, "test", logger),
		logger:    logger,
	}
}

func draft(entityID string) *models.EnvelopeDraft {
	return &models.EnvelopeDraft{
		TenantID:   "t1",
		EntityType: "stock_item",
		EntityID:   entityID,
		EventType:  models.EventEntityChanged,
	}
}

// appendDirect пишет конверты в лог без уведомления шины
func (e *testEnv) appendDirect(t *testing.T, n int) []*models.Envelope {
	t.Helper()

	var envs []*models.Envelope
	for range n {
		require.NoError(t, e.store.InTx(context.Background(), func(tx storage.Tx) error {
			env, err := tx.AppendEnvelope(context.Background(), draft("e1"))
			envs = append(envs, env)
			return err
		}))
	}
	return envs
}

// publish пишет конверт через Publisher (лог + шина)
func (e *testEnv) publish(t *testing.T, entityID string) *models.Envelope {
	t.Helper()
	env, err := e.publisher.Publish(context.Background(), nil, draft(entityID))
	require.NoError(t, err)
	return env
}

func (e *testEnv) gateway(cfg Config) *Gateway {
	return New(e.store, e.bus, cfg, e.logger)
}

type running struct {
	conn   *fakeConn
	cancel context.CancelFunc
	done   chan error
}

func (e *testEnv) serve(g *Gateway, cursor int64) *running {
	ctx, cancel := context.WithCancel(context.Background())
	r := &running{conn: newFakeConn(), cancel: cancel, done: make(chan error, 1)}
	go func() {
		r.done <- g.Serve(ctx, r.conn, "t1", cursor)
	}()
	return r
}

func (r *running) stop(t *testing.T) error {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("session did not stop")
		return nil
	}
}

func TestGateway_ReplaysLogAfterRestart(t *testing.T) {
	env := setupEnv(t)

	// 100 конвертов записаны, пока ни одной сессии не было
	env.appendDirect(t, 100)

	g := env.gateway(Config{ReplayBatchSize: 7, HeartbeatInterval: time.Minute})
	r := env.serve(g, 0)

	r.conn.expectSequence(t, 1, 100)
	assert.ErrorIs(t, r.stop(t), context.Canceled)
	assert.Equal(t, int64(0), g.Sessions())
}

func TestGateway_LiveAfterReplay_NoDuplicates(t *testing.T) {
	env := setupEnv(t)
	env.appendDirect(t, 3)

	g := env.gateway(Config{ReplayBatchSize: 2, HeartbeatInterval: time.Minute})
	r := env.serve(g, 0)
	defer r.stop(t)

	r.conn.expectSequence(t, 1, 3)

	env.publish(t, "e2")
	fifth := env.publish(t, "e3")
	r.conn.expectSequence(t, 4, 5)

	// Повторная доставка шиной не дублируется
	require.NoError(t, env.bus.Publish(context.Background(), fifth))
	r.conn.expectNoEnvelope(t, 50*time.Millisecond)
}

func TestGateway_LiveGapFilledFromLog(t *testing.T) {
	env := setupEnv(t)

	g := env.gateway(Config{HeartbeatInterval: time.Minute})
	r := env.serve(g, 0)
	defer r.stop(t)

	// Дождемся подписки сессии на шину
	require.Eventually(t, func() bool { return env.bus.Subscribers("t1") == 1 }, waitTimeout, 5*time.Millisecond)

	// 1 и 2 потеряны шиной, 3 пришел: сессия дочитывает лог
	env.appendDirect(t, 2)
	env.publish(t, "e3")

	r.conn.expectSequence(t, 1, 3)
}

func TestGateway_HeartbeatPollsLog(t *testing.T) {
	env := setupEnv(t)

	g := env.gateway(Config{HeartbeatInterval: 20 * time.Millisecond, HeartbeatTimeout: time.Minute})
	r := env.serve(g, 0)
	defer r.stop(t)

	hb := r.conn.next(t, api.FrameHeartbeat)
	assert.Equal(t, int64(0), hb.HeadSequenceID)

	// Изменения без уведомления шины приходят на следующем heartbeat
	env.appendDirect(t, 2)
	r.conn.expectSequence(t, 1, 2)

	hb = r.conn.next(t, api.FrameHeartbeat)
	assert.Equal(t, int64(2), hb.HeadSequenceID)
}

func TestGateway_ReconnectResumesFromCursor(t *testing.T) {
	env := setupEnv(t)
	g := env.gateway(Config{HeartbeatInterval: time.Minute})

	env.appendDirect(t, 5)

	first := env.serve(g, 0)
	first.conn.expectSequence(t, 1, 5)
	first.stop(t)

	// Во время разрыва появились новые изменения
	env.appendDirect(t, 5)

	second := env.serve(g, 5)
	defer second.stop(t)

	second.conn.expectSequence(t, 6, 10)
	second.conn.expectNoEnvelope(t, 50*time.Millisecond)
}

func TestGateway_ResyncRequired(t *testing.T) {
	tests := []struct {
		name   string
		cursor int64
	}{
		{name: "cursor older than retention", cursor: 1},
		{name: "cursor beyond head", cursor: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t)
			base := time.Now().Add(-time.Hour)
			env.store.SetClock(func() time.Time { return base })
			env.appendDirect(t, 5)
			env.store.SetClock(time.Now)
			env.appendDirect(t, 5)

			// Вытесняем первые 5 конвертов: oldest = 6
			_, err := env.store.PruneBefore(context.Background(), base.Add(time.Minute))
			require.NoError(t, err)

			g := env.gateway(Config{HeartbeatInterval: time.Minute})
			r := env.serve(g, tt.cursor)

			f := r.conn.next(t, api.FrameResyncRequired)
			assert.Equal(t, int64(10), f.HeadSequenceID)
			assert.Equal(t, int64(6), f.OldestSequenceID)

			select {
			case err := <-r.done:
				assert.ErrorIs(t, err, syncerr.ErrResyncRequired)
			case <-time.After(waitTimeout):
				t.Fatal("session should end after resync frame")
			}
		})
	}
}

func TestGateway_CursorAtRetentionBoundary(t *testing.T) {
	env := setupEnv(t)
	base := time.Now().Add(-time.Hour)
	env.store.SetClock(func() time.Time { return base })
	env.appendDirect(t, 5)
	env.store.SetClock(time.Now)
	env.appendDirect(t, 3)

	_, err := env.store.PruneBefore(context.Background(), base.Add(time.Minute))
	require.NoError(t, err)

	// Курсор 5 = oldest-1: все нужные конверты еще хранятся
	g := env.gateway(Config{HeartbeatInterval: time.Minute})
	r := env.serve(g, 5)
	defer r.stop(t)

	r.conn.expectSequence(t, 6, 8)
}

func TestGateway_HeartbeatTimeout(t *testing.T) {
	env := setupEnv(t)

	g := env.gateway(Config{HeartbeatInterval: 10 * time.Millisecond, HeartbeatTimeout: 30 * time.Millisecond})
	r := env.serve(g, 0)

	select {
	case err := <-r.done:
		assert.ErrorIs(t, err, ErrHeartbeatTimeout)
	case <-time.After(waitTimeout):
		t.Fatal("session should time out")
	}

	// Подписка на шину освобождена
	assert.Equal(t, 0, env.bus.Subscribers("t1"))
}

func TestGateway_ClientActivityKeepsSessionAlive(t *testing.T) {
	env := setupEnv(t)

	g := env.gateway(Config{HeartbeatInterval: 10 * time.Millisecond, HeartbeatTimeout: 40 * time.Millisecond})
	r := env.serve(g, 0)
	defer r.stop(t)

	for range 10 {
		r.conn.next(t, api.FrameHeartbeat)
		r.conn.in <- &api.Frame{Type: api.FrameAck}
	}

	select {
	case err := <-r.done:
		t.Fatalf("session ended unexpectedly: %v", err)
	default:
	}
}

func TestGateway_ClientDisconnect(t *testing.T) {
	env := setupEnv(t)

	g := env.gateway(Config{HeartbeatInterval: time.Minute})
	r := env.serve(g, 0)

	require.Eventually(t, func() bool { return g.Sessions() == 1 }, waitTimeout, 5*time.Millisecond)
	require.NoError(t, r.conn.Close())

	select {
	case err := <-r.done:
		assert.ErrorIs(t, err, errConnClosed)
	case <-time.After(waitTimeout):
		t.Fatal("session should end on disconnect")
	}
}
