// Package gateway обслуживает push-поток конвертов для подписчиков.
//
// Сессия сначала подписывается на шину, затем догоняет лог от курсора клиента
// и после этого раздает живые конверты, отбрасывая дубликаты по SequenceID.
// Шина best-effort: пропуски закрываются чтением лога при обнаружении разрыва
// и на каждом heartbeat. Gateway не хранит состояние между сессиями.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/bus"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/pkg/api"
)

var (
	// ErrHeartbeatTimeout клиент молчал дольше HeartbeatTimeout
	ErrHeartbeatTimeout = errors.New("heartbeat timeout")

	// ErrBusClosed подписка на шину закрыта
	ErrBusClosed = errors.New("bus subscription closed")
)

// Config параметры сессий
type Config struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	ReplayBatchSize   int
}

// Conn двунаправленный канал кадров одной сессии.
// WriteFrame вызывается только из горутины Serve, ReadFrame только из читающей горутины.
type Conn interface {
	WriteFrame(ctx context.Context, f *api.Frame) error
	ReadFrame(ctx context.Context) (*api.Frame, error)
	Close() error
}

// Gateway раздает конверты лога подписчикам
type Gateway struct {
	log      storage.LogStore
	bus      bus.Bus
	logger   *slog.Logger
	cfg      Config
	sessions atomic.Int64
}

// New создает Gateway
func New(log storage.LogStore, b bus.Bus, cfg Config, logger *slog.Logger) *Gateway {
	if cfg.ReplayBatchSize <= 0 {
		cfg.ReplayBatchSize = 500
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = 3 * cfg.HeartbeatInterval
	}

	return &Gateway{
		log:    log,
		bus:    b,
		logger: logger,
		cfg:    cfg,
	}
}

// Sessions количество активных сессий
func (g *Gateway) Sessions() int64 {
	return g.sessions.Load()
}

// session состояние одной сессии
type session struct {
	g        *Gateway
	conn     Conn
	logger   *slog.Logger
	tenantID string
	lastSent int64
}

// Serve обслуживает сессию до отключения клиента, таймаута heartbeat или отмены ctx.
// cursor последний SequenceID, который клиент надежно обработал.
// Если курсор вне окна хранения лога, отправляется resync_required и
// возвращается ошибка, оборачивающая syncerr.ErrResyncRequired.
func (g *Gateway) Serve(ctx context.Context, conn Conn, tenantID string, cursor int64) error {
	g.sessions.Add(1)
	defer g.sessions.Add(-1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{
		g:        g,
		conn:     conn,
		logger:   g.logger.With("tenant_id", tenantID),
		tenantID: tenantID,
		lastSent: cursor,
	}

	// Подписка до чтения лога: конверт, закоммиченный во время догона, придет по шине
	sub, err := g.bus.Subscribe(ctx, tenantID)
	if err != nil {
		return syncerr.Transient(fmt.Errorf("failed to subscribe: %w", err))
	}
	defer sub.Close()

	if err := s.checkRetention(ctx); err != nil {
		return err
	}

	if err := s.catchUp(ctx); err != nil {
		return err
	}

	s.logger.Info("Stream session started", "cursor", cursor, "replayed_to", s.lastSent)

	activity := make(chan struct{}, 1)
	readErr := make(chan error, 1)
	go s.readLoop(ctx, activity, readErr)

	ticker := time.NewTicker(g.cfg.HeartbeatInterval)
	defer ticker.Stop()

	lastActivity := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			return err

		case <-activity:
			lastActivity = time.Now()

		case env, ok := <-sub.C():
			if !ok {
				return ErrBusClosed
			}
			if err := s.deliverLive(ctx, env); err != nil {
				return err
			}

		case <-ticker.C:
			if time.Since(lastActivity) > g.cfg.HeartbeatTimeout {
				s.logger.Info("Stream session timed out", "last_sent", s.lastSent)
				return ErrHeartbeatTimeout
			}
			if err := s.heartbeat(ctx); err != nil {
				return err
			}
		}
	}
}

// checkRetention проверяет, что лог содержит все конверты после курсора
func (s *session) checkRetention(ctx context.Context) error {
	oldest, err := s.g.log.OldestRetained(ctx, s.tenantID)
	if err != nil {
		return syncerr.Transient(fmt.Errorf("failed to get oldest retained: %w", err))
	}

	head, err := s.g.log.HeadSequence(ctx, s.tenantID)
	if err != nil {
		return syncerr.Transient(fmt.Errorf("failed to get head sequence: %w", err))
	}

	// Курсор за головой лога означает чужой или устаревший после сброса базы курсор
	if s.lastSent < oldest-1 || s.lastSent > head {
		return s.resync(ctx, head, oldest)
	}

	return nil
}

func (s *session) resync(ctx context.Context, head, oldest int64) error {
	s.logger.Info("Resync required", "cursor", s.lastSent, "oldest", oldest, "head", head)

	err := s.conn.WriteFrame(ctx, &api.Frame{
		Type:             api.FrameResyncRequired,
		HeadSequenceID:   head,
		OldestSequenceID: oldest,
	})
	if err != nil {
		return fmt.Errorf("failed to send resync frame: %w", err)
	}

	return fmt.Errorf("cursor %d outside retained log [%d, %d]: %w", s.lastSent, oldest, head, syncerr.ErrResyncRequired)
}

// catchUp отправляет все конверты из лога после lastSent страницами
func (s *session) catchUp(ctx context.Context) error {
	for {
		envs, err := s.g.log.ReadFrom(ctx, s.tenantID, s.lastSent, s.g.cfg.ReplayBatchSize)
		if err != nil {
			return syncerr.Transient(fmt.Errorf("failed to read log: %w", err))
		}

		if len(envs) > 0 && envs[0].SequenceID != s.lastSent+1 {
			// Конверты после курсора вытеснены окном хранения во время сессии
			oldest, oerr := s.g.log.OldestRetained(ctx, s.tenantID)
			head, herr := s.g.log.HeadSequence(ctx, s.tenantID)
			if err := errors.Join(oerr, herr); err != nil {
				return syncerr.Transient(err)
			}
			return s.resync(ctx, head, oldest)
		}

		for _, env := range envs {
			if err := s.send(ctx, env); err != nil {
				return err
			}
		}

		if len(envs) < s.g.cfg.ReplayBatchSize {
			return nil
		}
	}
}

// deliverLive отправляет живой конверт, отбрасывая дубликаты и закрывая разрывы чтением лога
func (s *session) deliverLive(ctx context.Context, env *models.Envelope) error {
	switch {
	case env.SequenceID <= s.lastSent:
		return nil
	case env.SequenceID == s.lastSent+1:
		return s.send(ctx, env)
	default:
		s.logger.Debug("Live gap detected", "last_sent", s.lastSent, "received", env.SequenceID)
		return s.catchUp(ctx)
	}
}

// heartbeat отправляет heartbeat кадр и опрашивает лог на случай потерь шины
func (s *session) heartbeat(ctx context.Context) error {
	head, err := s.g.log.HeadSequence(ctx, s.tenantID)
	if err != nil {
		return syncerr.Transient(fmt.Errorf("failed to get head sequence: %w", err))
	}

	if head > s.lastSent {
		if err := s.catchUp(ctx); err != nil {
			return err
		}
	}

	if err := s.conn.WriteFrame(ctx, &api.Frame{Type: api.FrameHeartbeat, HeadSequenceID: head}); err != nil {
		return fmt.Errorf("failed to send heartbeat: %w", err)
	}

	return nil
}

func (s *session) send(ctx context.Context, env *models.Envelope) error {
	if err := s.conn.WriteFrame(ctx, &api.Frame{Type: api.FrameEnvelope, Envelope: env}); err != nil {
		return fmt.Errorf("failed to send envelope %d: %w", env.SequenceID, err)
	}
	s.lastSent = env.SequenceID
	return nil
}

// readLoop читает кадры клиента; любой кадр считается признаком жизни
func (s *session) readLoop(ctx context.Context, activity chan<- struct{}, readErr chan<- error) {
	for {
		f, err := s.conn.ReadFrame(ctx)
		if err != nil {
			readErr <- err
			return
		}

		if f.Type == api.FrameAck {
			s.logger.Debug("Client ack", "last_sequence_id", f.LastSequenceID)
		}

		select {
		case activity <- struct{}{}:
		default:
		}
	}
}
