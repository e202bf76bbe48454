// Package bus рассылает закоммиченные конверты живым сессиям Gateway.
//
// Шина работает по принципу best-effort: потерянное сообщение не нарушает
// гарантий доставки, так как Gateway догоняет пропуски чтением лога.
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/iudanet/fieldsync/internal/models"
)

// ErrClosed возвращается при работе с закрытой шиной
var ErrClosed = errors.New("bus closed")

// DefaultBufferSize размер буфера подписки по умолчанию
const DefaultBufferSize = 256

// Bus интерфейс широковещательной шины конвертов
type Bus interface {
	// Publish рассылает конверт подписчикам тенанта конверта
	Publish(ctx context.Context, env *models.Envelope) error

	// Subscribe создает подписку на конверты тенанта
	Subscribe(ctx context.Context, tenantID string) (Subscription, error)

	// Close закрывает шину и все подписки
	Close() error
}

// Subscription подписка на конверты одного тенанта
type Subscription interface {
	// C канал входящих конвертов; закрывается после Close
	C() <-chan *models.Envelope

	// Dropped количество конвертов, потерянных из-за переполнения буфера
	Dropped() uint64

	// Close освобождает подписку
	Close()
}

// Memory in-process реализация Bus
type Memory struct {
	subs       map[string]map[*memorySub]struct{}
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

var _ Bus = (*Memory)(nil)

// NewMemory создает in-process шину.
// bufferSize <= 0 заменяется на DefaultBufferSize.
func NewMemory(bufferSize int) *Memory {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Memory{
		subs:       make(map[string]map[*memorySub]struct{}),
		bufferSize: bufferSize,
	}
}

// Publish доставляет конверт без блокировки: медленный подписчик теряет сообщение
func (m *Memory) Publish(_ context.Context, env *models.Envelope) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	for sub := range m.subs[env.TenantID] {
		sub.deliver(env)
	}

	return nil
}

// Subscribe создает подписку на тенанта
func (m *Memory) Subscribe(_ context.Context, tenantID string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	sub := &memorySub{
		bus:      m,
		tenantID: tenantID,
		ch:       make(chan *models.Envelope, m.bufferSize),
	}

	if m.subs[tenantID] == nil {
		m.subs[tenantID] = make(map[*memorySub]struct{})
	}
	m.subs[tenantID][sub] = struct{}{}

	return sub, nil
}

// Subscribers возвращает число активных подписок тенанта
func (m *Memory) Subscribers(tenantID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[tenantID])
}

// Close закрывает все подписки
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for _, subs := range m.subs {
		for sub := range subs {
			sub.closeLocked()
		}
	}
	m.subs = make(map[string]map[*memorySub]struct{})

	return nil
}

func (m *Memory) remove(sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if subs, ok := m.subs[sub.tenantID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(m.subs, sub.tenantID)
		}
	}
	sub.closeLocked()
}

type memorySub struct {
	bus      *Memory
	ch       chan *models.Envelope
	tenantID string
	dropped  uint64
	once     sync.Once
	mu       sync.Mutex
}

func (s *memorySub) C() <-chan *models.Envelope {
	return s.ch
}

func (s *memorySub) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *memorySub) Close() {
	s.bus.remove(s)
}

// deliver вызывается под RLock шины, поэтому канал не может быть закрыт параллельно
func (s *memorySub) deliver(env *models.Envelope) {
	select {
	case s.ch <- env:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// closeLocked вызывается под Lock шины
func (s *memorySub) closeLocked() {
	s.once.Do(func() {
		close(s.ch)
	})
}
