package lighting

import (
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/lightcheck/internal/logging"
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
)

// Rule: одно из трёх правил согласованности
type Rule uint8

const (
	// RuleA: освещённость не ниже собственного излучения
	RuleA Rule = iota
	// RuleB: освещённость не ниже входящего потока
	RuleB
	// RuleC: освещённость объяснена излучением или потоком
	RuleC

	ruleCount = 3
)

// Rules перечисляет правила в порядке проверки
var Rules = [ruleCount]Rule{RuleA, RuleB, RuleC}

func (r Rule) String() string {
	switch r {
	case RuleA:
		return "A"
	case RuleB:
		return "B"
	case RuleC:
		return "C"
	default:
		return "?"
	}
}

// MarshalText сериализует правило буквой
func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText разбирает букву правила
func (r *Rule) UnmarshalText(text []byte) error {
	for _, rule := range Rules {
		if rule.String() == string(text) {
			*r = rule
			return nil
		}
	}
	return fmt.Errorf("неизвестное правило %q", text)
}

// Violation: одно найденное нарушение
type Violation struct {
	Pos     vec.Vec3           `json:"pos"` // абсолютные мировые координаты
	Channel world.LightChannel `json:"channel"`
	Rule    Rule               `json:"rule"`
	Message string             `json:"message"`
	Actual  int                `json:"actual"`
	Emitted int                `json:"emitted"`
	Inward  int                `json:"inward"`
}

// String повторяет формат строки журнала: "<сообщение> at x, y, z"
func (v Violation) String() string {
	return fmt.Sprintf("%s at %d, %d, %d", v.Message, v.Pos.X, v.Pos.Y, v.Pos.Z)
}

// Reporter принимает нарушения. Реализации, используемые с несколькими
// воркерами, должны быть безопасны для конкурентного вызова.
type Reporter interface {
	Report(v Violation)
}

// ReporterFunc адаптирует функцию к Reporter
type ReporterFunc func(v Violation)

func (f ReporterFunc) Report(v Violation) { f(v) }

// Discard отбрасывает все нарушения
var Discard Reporter = ReporterFunc(func(Violation) {})

// Collector накапливает нарушения в памяти
type Collector struct {
	mu         sync.Mutex
	violations []Violation
}

// NewCollector создаёт пустой сборщик
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(v Violation) {
	c.mu.Lock()
	c.violations = append(c.violations, v)
	c.mu.Unlock()
}

// Violations возвращает копию собранных нарушений, отсортированную по каналу,
// позиции и правилу
func (c *Collector) Violations() []Violation {
	c.mu.Lock()
	out := make([]Violation, len(c.violations))
	copy(out, c.violations)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if !a.Pos.Equals(b.Pos) {
			return a.Pos.Less(b.Pos)
		}
		return a.Rule < b.Rule
	})
	return out
}

// Count возвращает число нарушений правила r
func (c *Collector) Count(r Rule) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.violations {
		if v.Rule == r {
			n++
		}
	}
	return n
}

// Len возвращает общее число нарушений
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.violations)
}

// Reset очищает сборщик
func (c *Collector) Reset() {
	c.mu.Lock()
	c.violations = nil
	c.mu.Unlock()
}

// LogReporter пишет каждое нарушение строкой журнала уровня WARN
type LogReporter struct {
	logger *logging.Logger
}

// NewLogReporter создаёт репортер; nil логгер означает логгер компонента lighting
func NewLogReporter(logger *logging.Logger) *LogReporter {
	if logger == nil {
		logger = logging.GetLightingLogger()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(v Violation) {
	r.logger.Warn("[%s] %s", v.Channel, v.String())
}

// MultiReporter рассылает нарушение всем репортерам по очереди
type MultiReporter []Reporter

func (m MultiReporter) Report(v Violation) {
	for _, r := range m {
		r.Report(v)
	}
}

// ChannelReporter отправляет нарушения в Go-канал. Отправка блокирующая:
// читатель обязан вычитывать канал до конца проверки.
type ChannelReporter chan<- Violation

func (c ChannelReporter) Report(v Violation) { c <- v }
