// Package zmqbus реализует bus.Bus поверх ZeroMQ PUB/SUB.
//
// Несколько процессов сервера публикуют в XSUB сторону прокси (RunProxy),
// каждый процесс подписан на XPUB сторону и раздает полученные конверты
// своим локальным сессиям через bus.Memory. Топик сообщения это tenant id.
package zmqbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/bus"
)

// recvTimeout период, с которым цикл приема проверяет закрытие шины
const recvTimeout = 250 * time.Millisecond

// Bus ZeroMQ шина
type Bus struct {
	zctx   *zmq.Context
	pub    *zmq.Socket
	sub    *zmq.Socket
	local  *bus.Memory
	logger *slog.Logger
	done   chan struct{}
	wg     sync.WaitGroup
	pubMu  sync.Mutex
	once   sync.Once
}

var _ bus.Bus = (*Bus)(nil)

// New подключается к прокси: pubEndpoint это XSUB сторона, subEndpoint это XPUB сторона
func New(pubEndpoint, subEndpoint string, bufferSize int, logger *slog.Logger) (*Bus, error) {
	zctx, err := zmq.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create zmq context: %w", err)
	}

	b := &Bus{
		zctx:   zctx,
		local:  bus.NewMemory(bufferSize),
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := b.connect(pubEndpoint, subEndpoint); err != nil {
		b.closeSockets()
		return nil, err
	}

	b.wg.Add(1)
	go b.recvLoop()

	return b, nil
}

func (b *Bus) connect(pubEndpoint, subEndpoint string) error {
	var err error

	b.pub, err = b.zctx.NewSocket(zmq.PUB)
	if err != nil {
		return fmt.Errorf("failed to create pub socket: %w", err)
	}
	if err := b.pub.SetLinger(0); err != nil {
		return fmt.Errorf("failed to set linger: %w", err)
	}
	if err := b.pub.Connect(pubEndpoint); err != nil {
		return fmt.Errorf("failed to connect pub socket to %s: %w", pubEndpoint, err)
	}

	b.sub, err = b.zctx.NewSocket(zmq.SUB)
	if err != nil {
		return fmt.Errorf("failed to create sub socket: %w", err)
	}
	if err := b.sub.SetLinger(0); err != nil {
		return fmt.Errorf("failed to set linger: %w", err)
	}
	if err := b.sub.SetRcvtimeo(recvTimeout); err != nil {
		return fmt.Errorf("failed to set receive timeout: %w", err)
	}
	// Подписываемся на все тенанты: фильтрация по тенанту происходит в local
	if err := b.sub.SetSubscribe(""); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := b.sub.Connect(subEndpoint); err != nil {
		return fmt.Errorf("failed to connect sub socket to %s: %w", subEndpoint, err)
	}

	return nil
}

// Publish отправляет конверт в прокси. Локальные подписчики получат его через прокси.
func (b *Bus) Publish(_ context.Context, env *models.Envelope) error {
	select {
	case <-b.done:
		return bus.ErrClosed
	default:
	}

	data, err := msgpack.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	// zmq сокеты не потокобезопасны
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	if _, err := b.pub.SendMessage(env.TenantID, data); err != nil {
		return fmt.Errorf("failed to send envelope: %w", err)
	}

	return nil
}

// Subscribe создает локальную подписку на тенанта
func (b *Bus) Subscribe(ctx context.Context, tenantID string) (bus.Subscription, error) {
	return b.local.Subscribe(ctx, tenantID)
}

// Close останавливает цикл приема и закрывает сокеты
func (b *Bus) Close() error {
	b.once.Do(func() {
		close(b.done)
		b.wg.Wait()
		_ = b.local.Close()
		b.closeSockets()
	})
	return nil
}

func (b *Bus) closeSockets() {
	if b.pub != nil {
		_ = b.pub.Close()
	}
	if b.sub != nil {
		_ = b.sub.Close()
	}
	if err := b.zctx.Term(); err != nil {
		b.logger.Warn("Failed to terminate zmq context", "error", err)
	}
}

func (b *Bus) recvLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		default:
		}

		parts, err := b.sub.RecvMessageBytes(0)
		if err != nil {
			// Таймаут приема: повторяем проверку закрытия
			if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
				continue
			}
			b.logger.Warn("Failed to receive bus message", "error", err)
			continue
		}

		if len(parts) < 2 {
			b.logger.Warn("Malformed bus message", "parts", len(parts))
			continue
		}

		var env models.Envelope
		if err := msgpack.Unmarshal(parts[1], &env); err != nil {
			b.logger.Warn("Failed to decode bus envelope", "error", err)
			continue
		}

		_ = b.local.Publish(context.Background(), &env)
	}
}

// RunProxy запускает XSUB/XPUB прокси и блокируется до ошибки или отмены ctx
func RunProxy(ctx context.Context, xsubAddr, xpubAddr string, logger *slog.Logger) error {
	zctx, err := zmq.NewContext()
	if err != nil {
		return fmt.Errorf("failed to create zmq context: %w", err)
	}

	xsub, err := zctx.NewSocket(zmq.XSUB)
	if err != nil {
		return fmt.Errorf("failed to create xsub socket: %w", err)
	}
	defer xsub.Close()
	_ = xsub.SetLinger(0)
	if err := xsub.Bind(xsubAddr); err != nil {
		return fmt.Errorf("failed to bind xsub %s: %w", xsubAddr, err)
	}

	xpub, err := zctx.NewSocket(zmq.XPUB)
	if err != nil {
		return fmt.Errorf("failed to create xpub socket: %w", err)
	}
	defer xpub.Close()
	_ = xpub.SetLinger(0)
	if err := xpub.Bind(xpubAddr); err != nil {
		return fmt.Errorf("failed to bind xpub %s: %w", xpubAddr, err)
	}

	logger.Info("Bus proxy started", "xsub", xsubAddr, "xpub", xpubAddr)

	// Term прерывает zmq.Proxy с ошибкой ETERM
	go func() {
		<-ctx.Done()
		_ = zctx.Term()
	}()

	if err := zmq.Proxy(xsub, xpub, nil); err != nil && ctx.Err() == nil {
		return fmt.Errorf("bus proxy stopped: %w", err)
	}

	return nil
}
