package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Типы событий проверки освещения
const (
	EventLightViolation = "LightViolation" // одно нарушение, Payload: lighting.Violation
	EventAuditCompleted = "AuditCompleted" // итог обхода, Payload: lighting.Summary
)

// highPriority: события с приоритетом ниже этого отбрасываются при переполнении
const highPriority = 5

// subscriberBuffer: очередь одного подписчика in-memory шины
const subscriberBuffer = 256

// ErrBusClosed возвращается при публикации или подписке после Close
var ErrBusClosed = errors.New("шина событий закрыта")

// Envelope описывает универсальный контейнер события.
// Все поля фиксированы для версиирования и трассировки.
type Envelope struct {
	ID            string            `json:"id"`             // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         `json:"timestamp"`      // Время создания события (UTC).
	Source        string            `json:"source"`         // Имя сервиса-источника.
	EventType     string            `json:"event_type"`     // Тип события (LightViolation, AuditCompleted).
	Version       int               `json:"version"`        // Схема полезной нагрузки.
	CorrelationID string            `json:"correlation_id"` // RunID обхода, к которому относится событие.
	Priority      int               `json:"priority"`       // 0=Low … 9=Critical (для backpressure).
	Payload       []byte            `json:"payload"`        // JSON полезной нагрузки.
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Filter позволяет подписаться только на нужные события.
// Пустое поле не ограничивает выборку.
type Filter struct {
	Types    []string
	Sources  []string
	RunIDs   []string // по CorrelationID
	Channels []string // по Metadata["channel"]: sky, block
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий: in-memory для одного процесса
// и JetStream для внешних потребителей.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	// Close доставляет уже принятые события и освобождает ресурсы.
	Close() error
}

//================ In-Memory implementation =================//

// MemoryBus рассылает события внутри процесса. Каждый подписчик получает
// события в порядке публикации из собственной очереди; медленный подписчик
// притормаживает рассылку, а переполненная общая очередь отбрасывает
// события низкого приоритета.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[int]*memSub
	nextID int

	queue chan *Envelope
	// sendMu: публикации держат RLock; Close берёт Lock, чтобы дождаться
	// публикаций, начатых до закрытия, и только потом остановить рассылку
	sendMu    sync.RWMutex
	closing   chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	handlers  sync.WaitGroup

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

type memSub struct {
	bus     *MemoryBus
	id      int
	filter  Filter
	handler Handler
	inbox   chan *Envelope
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт in-memory шину с общей очередью указанной ёмкости.
func NewMemoryBus(capacity int) *MemoryBus {
	mb := newMemoryBus(capacity)
	go mb.dispatchLoop()
	return mb
}

// newMemoryBus создаёт шину без рассылки
func newMemoryBus(capacity int) *MemoryBus {
	return &MemoryBus{
		subs:    make(map[int]*memSub),
		queue:   make(chan *Envelope, capacity),
		closing: make(chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (mb *MemoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.sendMu.RLock()
	defer mb.sendMu.RUnlock()

	select {
	case <-mb.closing:
		return ErrBusClosed
	default:
	}

	select {
	case mb.queue <- ev:
		mb.published.Add(1)
		return nil
	default:
	}

	// Очередь заполнена
	if ev.Priority < highPriority {
		mb.dropped.Add(1)
		return nil
	}
	select {
	case mb.queue <- ev:
		mb.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-mb.closing:
		return ErrBusClosed
	}
}

func (mb *MemoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	select {
	case <-mb.closing:
		return nil, ErrBusClosed
	default:
	}

	cctx, cancel := context.WithCancel(ctx)
	s := &memSub{
		bus:     mb,
		id:      mb.nextID,
		filter:  f,
		handler: h,
		inbox:   make(chan *Envelope, subscriberBuffer),
		ctx:     cctx,
		cancel:  cancel,
	}
	mb.subs[s.id] = s
	mb.nextID++

	mb.handlers.Add(1)
	go s.run()
	return s, nil
}

func (mb *MemoryBus) Metrics() Stats {
	return Stats{
		Published: mb.published.Load(),
		Consumed:  mb.consumed.Load(),
		Dropped:   mb.dropped.Load(),
		InFlight:  len(mb.queue),
	}
}

// Close дожидается рассылки принятых событий и завершения обработчиков.
// Событие, для которого Publish вернул nil, доставляется подписчикам.
func (mb *MemoryBus) Close() error {
	mb.closeOnce.Do(func() {
		close(mb.closing)
		mb.sendMu.Lock()
		close(mb.stop)
		mb.sendMu.Unlock()
		<-mb.done

		mb.mu.Lock()
		for id, s := range mb.subs {
			close(s.inbox)
			delete(mb.subs, id)
		}
		mb.mu.Unlock()

		mb.handlers.Wait()
	})
	return nil
}

// dispatchLoop раскладывает события по очередям подписчиков.
func (mb *MemoryBus) dispatchLoop() {
	defer close(mb.done)
	for {
		select {
		case ev := <-mb.queue:
			mb.dispatch(ev)
		case <-mb.stop:
			for {
				select {
				case ev := <-mb.queue:
					mb.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

func (mb *MemoryBus) dispatch(ev *Envelope) {
	mb.mu.RLock()
	subs := make([]*memSub, 0, len(mb.subs))
	for _, s := range mb.subs {
		if matchFilter(ev, s.filter) {
			subs = append(subs, s)
		}
	}
	mb.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.inbox <- ev:
		case <-s.ctx.Done():
		}
	}
}

func (s *memSub) run() {
	defer s.bus.handlers.Done()
	for {
		select {
		case ev, ok := <-s.inbox:
			if !ok {
				return
			}
			s.handler(s.ctx, ev)
			s.bus.consumed.Add(1)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if _, ok := s.bus.subs[s.id]; ok {
		s.cancel()
		delete(s.bus.subs, s.id)
	}
	s.bus.mu.Unlock()
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) &&
		match(ev.Source, f.Sources) &&
		match(ev.CorrelationID, f.RunIDs) &&
		match(ev.Metadata["channel"], f.Channels)
}
