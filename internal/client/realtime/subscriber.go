// Package realtime подписчик push-потока изменений.
//
// Подписчик держит websocket соединение с Gateway, применяет конверты к локальному
// снимку и сохраняет курсор после каждого обработанного конверта. При обрыве
// переподключается с экспоненциальной задержкой и продолжает с сохраненного курсора.
// Уход приложения в фон разрывом не считается; Wake прерывает ожидание переподключения.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/iudanet/fieldsync/internal/backoff"
	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/pkg/api"
)

// DefaultReorderLimit сколько конвертов ждут недостающий номер, прежде чем дыра будет пропущена
const DefaultReorderLimit = 1024

// Stream открытый push-поток
type Stream interface {
	ReadFrame(ctx context.Context) (*api.Frame, error)
	WriteFrame(ctx context.Context, f *api.Frame) error
	Close() error
}

// Dialer открывает поток с позиции после lastSequenceID
type Dialer interface {
	Dial(ctx context.Context, lastSequenceID int64) (Stream, error)
}

// Resyncer пересевает снимок из data pack и возвращает новую позицию курсора
type Resyncer interface {
	Resync(ctx context.Context) (int64, error)
}

// Config параметры подписчика
type Config struct {
	// OnEnvelope вызывается после применения конверта и сохранения курсора
	OnEnvelope func(env *models.Envelope)
	// OnState вызывается при каждой смене состояния
	OnState      func(state State)
	SubscriberID string
	Backoff      backoff.Policy
	ReorderLimit int
}

// Subscriber клиентский подписчик push-потока
type Subscriber struct {
	dialer   Dialer
	resyncer Resyncer
	snapshot storage.SnapshotStorage
	cursors  storage.CursorStorage
	logger   *slog.Logger
	rnd      func() float64
	wake     chan struct{}
	cancel   context.CancelFunc
	cfg      Config
	mu       sync.Mutex
	state    State
}

// New создает подписчика
func New(
	dialer Dialer,
	resyncer Resyncer,
	snapshot storage.SnapshotStorage,
	cursors storage.CursorStorage,
	cfg Config,
	logger *slog.Logger,
) *Subscriber {
	if cfg.ReorderLimit <= 0 {
		cfg.ReorderLimit = DefaultReorderLimit
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff = backoff.DefaultPolicy()
	}

	return &Subscriber{
		dialer:   dialer,
		resyncer: resyncer,
		snapshot: snapshot,
		cursors:  cursors,
		logger:   logger,
		rnd:      rand.Float64,
		wake:     make(chan struct{}, 1),
		cfg:      cfg,
		state:    StateStopped,
	}
}

// State возвращает текущее состояние
func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscriber) setState(state State) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = state
	s.mu.Unlock()

	s.logger.Debug("Subscriber state changed", "from", prev.String(), "to", state.String())
	if s.cfg.OnState != nil {
		s.cfg.OnState(state)
	}
}

// Wake прерывает ожидание перед переподключением.
// Вызывается, когда приложение снова стало видимым или вернулась сеть.
func (s *Subscriber) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop останавливает Run
func (s *Subscriber) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Run держит поток открытым до Stop или отмены ctx
func (s *Subscriber) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	defer s.setState(StateStopped)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		s.setState(StateConnecting)
		err := s.session(ctx, &attempt)
		if ctx.Err() != nil {
			return nil
		}

		if errors.Is(err, syncerr.ErrResyncRequired) {
			s.logger.Warn("Cursor is outside the retention window, resyncing")
			head, rerr := s.resyncer.Resync(ctx)
			if rerr == nil {
				s.logger.Info("Resumed from pack head", "head_sequence_id", head)
				continue
			}
			err = fmt.Errorf("resync failed: %w", rerr)
		}

		s.setState(StateError)

		delay := backoff.Delay(s.cfg.Backoff, attempt, s.rnd)
		attempt++
		s.logger.Warn("Stream disconnected", "error", err, "attempt", attempt, "retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// session обслуживает одно соединение. Возвращает причину разрыва.
func (s *Subscriber) session(ctx context.Context, attempt *int) error {
	cursor, err := s.cursors.GetCursor(ctx, s.cfg.SubscriberID)
	if err != nil {
		return fmt.Errorf("failed to load cursor: %w", err)
	}

	stream, err := s.dialer.Dial(ctx, cursor.LastSequenceID)
	if err != nil {
		return err
	}
	// ReadFrame не реагирует на ctx, закрытие соединения его разблокирует
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer func() {
		if stop() {
			_ = stream.Close()
		}
	}()

	s.setState(StateOpen)
	*attempt = 0

	s.logger.Info("Stream opened", "last_sequence_id", cursor.LastSequenceID)

	buf := newReorderBuffer(cursor.LastSequenceID, s.cfg.ReorderLimit)

	for {
		frame, err := stream.ReadFrame(ctx)
		if err != nil {
			return syncerr.Transient(err)
		}

		var ready []*models.Envelope
		switch frame.Type {
		case api.FrameEnvelope:
			ready = buf.push(frame.Envelope)

		case api.FrameHeartbeat:
			ready = buf.flush()

		case api.FrameResyncRequired:
			return fmt.Errorf("cursor %d, oldest retained %d, head %d: %w",
				cursor.LastSequenceID, frame.OldestSequenceID, frame.HeadSequenceID, syncerr.ErrResyncRequired)

		default:
			continue
		}

		for _, env := range ready {
			if err := s.deliver(ctx, cursor, env); err != nil {
				return err
			}
		}

		if len(ready) > 0 || frame.Type == api.FrameHeartbeat {
			ack := &api.Frame{Type: api.FrameAck, LastSequenceID: cursor.LastSequenceID}
			if err := stream.WriteFrame(ctx, ack); err != nil {
				return syncerr.Transient(err)
			}
		}
	}
}

// deliver применяет конверт к снимку и сдвигает курсор.
// Курсор сохраняется только после применения: при падении между ними конверт
// придет повторно и будет отброшен снимком по версии.
func (s *Subscriber) deliver(ctx context.Context, cursor *models.SyncCursor, env *models.Envelope) error {
	if _, err := s.snapshot.ApplyEnvelope(ctx, env); err != nil {
		return fmt.Errorf("failed to apply envelope %d: %w", env.SequenceID, err)
	}

	cursor.LastSequenceID = env.SequenceID
	if cursor.TenantID == "" {
		cursor.TenantID = env.TenantID
	}
	if err := s.cursors.SaveCursor(ctx, cursor); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}

	s.logger.Debug("Envelope applied",
		"sequence_id", env.SequenceID,
		"entity", env.EntityKey(),
		"event_type", env.EventType)

	if s.cfg.OnEnvelope != nil {
		s.cfg.OnEnvelope(env)
	}
	return nil
}
