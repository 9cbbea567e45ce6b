package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"
)

// DefaultStream: имя стрима JetStream по умолчанию
const DefaultStream = "LIGHTCHECK"

// Subject события: lightcheck.<EventType>.<channel>, для итогов канал "all"
const (
	subjectRoot    = "lightcheck"
	allChannels    = "all"
	jetStreamAckIn = 30 * time.Second
)

// subjectFor строит subject публикации для события
func subjectFor(ev *Envelope) string {
	channel := ev.Metadata["channel"]
	if channel == "" {
		channel = allChannels
	}
	return strings.Join([]string{subjectRoot, ev.EventType, channel}, ".")
}

// subscribeSubject сужает подписку по фильтру, если он допускает ровно один тип
// и один канал; остальное отсеивает matchFilter на стороне клиента
func subscribeSubject(f Filter) string {
	eventType, channel := "*", "*"
	if len(f.Types) == 1 {
		eventType = f.Types[0]
	}
	if len(f.Channels) == 1 {
		channel = f.Channels[0]
	}
	return strings.Join([]string{subjectRoot, eventType, channel}, ".")
}

// JetStreamBus отдаёт события проверки внешним потребителям через NATS JetStream
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим, если его ещё нет.
// retention ограничивает возраст хранимых нарушений.
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = DefaultStream
	}

	nc, err := nats.Connect(url, nats.Name("lightcheck"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err = js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{subjectRoot + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream %s: %w", stream, err)
		}
	}

	return &JetStreamBus{nc: nc, js: js, stream: stream}, nil
}

// Publish пишет событие в стрим. Ошибки сериализации и брокера учитываются как
// отброшенные события и возвращаются вызывающему.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("marshal %s: %w", ev.EventType, err)
	}
	msg := nats.NewMsg(subjectFor(ev))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.ID)
	if ev.CorrelationID != "" {
		msg.Header.Set("Lightcheck-Run", ev.CorrelationID)
	}
	if _, err = jb.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		jb.dropped.Add(1)
		return err
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт durable consumer. Обработчик вызывается из горутины клиента
// NATS; контекст обработчика отменяется при отписке.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	cctx, cancel := context.WithCancel(ctx)
	durable := "lightcheck_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	natSub, err := jb.js.Subscribe(subscribeSubject(f), func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			jb.dropped.Add(1)
			_ = msg.Term()
			return
		}
		if matchFilter(&ev, f) {
			h(cctx, &ev)
			jb.consumed.Add(1)
		}
		_ = msg.Ack()
	}, nats.ManualAck(), nats.Durable(durable), nats.AckWait(jetStreamAckIn), nats.DeliverNew())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", subscribeSubject(f), err)
	}

	return &jetSub{s: natSub, cancel: cancel}, nil
}

// Close отправляет буферизованные сообщения и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}

type jetSub struct {
	s      *nats.Subscription
	cancel context.CancelFunc
}

func (j *jetSub) Unsubscribe() {
	j.cancel()
	_ = j.s.Unsubscribe()
}

// Metrics возвращает счётчики клиента; очередь ведёт сам JetStream, поэтому InFlight всегда 0
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}
