package eventbus

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/lightcheck/internal/lighting"
	"github.com/annel0/lightcheck/internal/logging"
)

// Приоритеты событий проверки
const (
	violationPriority = 3 // при переполнении in-memory буфера можно отбросить
	summaryPriority   = 9
)

// ViolationPublisher: lighting.Reporter, публикующий каждое нарушение в шину
type ViolationPublisher struct {
	bus    EventBus
	ctx    context.Context
	source string
	runID  string
	logger *logging.Logger

	failed uint64
}

// NewViolationPublisher создаёт публикатор. ctx используется для всех публикаций,
// source попадает в Envelope.Source.
func NewViolationPublisher(ctx context.Context, bus EventBus, source string) *ViolationPublisher {
	if source == "" {
		source = "lightcheck"
	}
	return &ViolationPublisher{
		bus:    bus,
		ctx:    ctx,
		source: source,
		logger: logging.GetEventBusLogger(),
	}
}

// SetRunID задаёт CorrelationID для последующих событий
func (p *ViolationPublisher) SetRunID(runID string) {
	p.runID = runID
}

// Report публикует нарушение. Ошибка публикации не прерывает проверку:
// она пишется в журнал и учитывается в Failed.
func (p *ViolationPublisher) Report(v lighting.Violation) {
	if err := p.publish(EventLightViolation, violationPriority, v, map[string]string{
		"channel": v.Channel.String(),
		"rule":    v.Rule.String(),
	}); err != nil {
		atomic.AddUint64(&p.failed, 1)
		p.logger.Warn("Не удалось опубликовать нарушение %s: %v", v, err)
	}
}

// PublishSummary публикует итог обхода
func (p *ViolationPublisher) PublishSummary(s *lighting.Summary) error {
	p.runID = s.RunID
	return p.publish(EventAuditCompleted, summaryPriority, s, map[string]string{"world": s.World})
}

// Failed возвращает число неудачных публикаций
func (p *ViolationPublisher) Failed() uint64 {
	return atomic.LoadUint64(&p.failed)
}

func (p *ViolationPublisher) publish(eventType string, priority int, payload interface{}, meta map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.bus.Publish(p.ctx, &Envelope{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Source:        p.source,
		EventType:     eventType,
		Version:       1,
		CorrelationID: p.runID,
		Priority:      priority,
		Payload:       data,
		Metadata:      meta,
	})
}
