package lighting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/lightcheck/internal/logging"
	"github.com/annel0/lightcheck/internal/metrics"
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
)

var (
	// ErrNoLightBuffer: у проверяемого чанка нет буфера для канала
	ErrNoLightBuffer = errors.New("у чанка нет буфера освещённости")
	// ErrUnknownMaterial: в буфере чанка встречен незарегистрированный материал
	ErrUnknownMaterial = errors.New("незарегистрированный материал")
	// ErrChunkNotLoaded: запрошенный чанк отсутствует в мире
	ErrChunkNotLoaded = errors.New("чанк не загружен")
)

// ChunkError описывает проверку канала чанка, прерванную сбоем хранилища
type ChunkError struct {
	Coords  vec.Vec3
	Channel world.LightChannel
	Err     error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("чанк %v, канал %s: %v", e.Coords, e.Channel, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// ChunkResult: итог проверки одного канала одного чанка
type ChunkResult struct {
	Coords     vec.Vec3           `json:"coords"`
	Channel    world.LightChannel `json:"channel"`
	Voxels     int                `json:"voxels"`
	Violations [ruleCount]int     `json:"violations"` // по правилам A, B, C
}

// Total возвращает число нарушений в результате
func (r ChunkResult) Total() int {
	return r.Violations[RuleA] + r.Violations[RuleB] + r.Violations[RuleC]
}

// ChunkFailure: сериализуемая форма ChunkError для отчёта
type ChunkFailure struct {
	Coords  vec.Vec3           `json:"coords"`
	Channel world.LightChannel `json:"channel"`
	Error   string             `json:"error"`
}

// Summary: итог полного обхода мира
type Summary struct {
	RunID      string                              `json:"run_id"`
	World      string                              `json:"world"`
	Regions    int                                 `json:"regions"`
	Chunks     int                                 `json:"chunks"`
	Voxels     int64                               `json:"voxels"`
	Violations [world.LightChannels][ruleCount]int `json:"violations"` // [канал][правило]
	Failures   []ChunkFailure                      `json:"failures,omitempty"`
	Started    time.Time                           `json:"started"`
	Duration   time.Duration                       `json:"duration_ns"`
}

// TotalViolations возвращает общее число нарушений
func (s *Summary) TotalViolations() int {
	total := 0
	for _, byRule := range s.Violations {
		for _, n := range byRule {
			total += n
		}
	}
	return total
}

// Clean сообщает, что обход не нашёл ни нарушений, ни сбоев
func (s *Summary) Clean() bool {
	return s.TotalViolations() == 0 && len(s.Failures) == 0
}

func (s *Summary) addResult(r ChunkResult) {
	s.Voxels += int64(r.Voxels)
	for rule, n := range r.Violations {
		s.Violations[r.Channel][rule] += n
	}
}

func (s *Summary) addError(err error) {
	var ce *ChunkError
	if errors.As(err, &ce) {
		s.Failures = append(s.Failures, ChunkFailure{Coords: ce.Coords, Channel: ce.Channel, Error: ce.Err.Error()})
		return
	}
	s.Failures = append(s.Failures, ChunkFailure{Error: err.Error()})
}

// Verifier обходит чанки мира и проверяет согласованность освещения.
// Мир не изменяется; предполагается, что на время проверки его никто не пишет.
type Verifier struct {
	src      WorldSource
	reporter Reporter
	workers  int
	channels []world.LightChannel
	metrics  *metrics.AuditMetrics
	tracer   trace.Tracer
	logger   *logging.Logger
	runID    string
}

// Option настраивает Verifier
type Option func(*Verifier)

// WithReporter задаёт приёмник нарушений
func WithReporter(r Reporter) Option {
	return func(v *Verifier) { v.reporter = r }
}

// WithWorkers задаёт число параллельно проверяемых чанков (n <= 1: последовательно)
func WithWorkers(n int) Option {
	return func(v *Verifier) { v.workers = n }
}

// WithChannels ограничивает проверку перечисленными каналами
func WithChannels(chs ...world.LightChannel) Option {
	return func(v *Verifier) {
		if len(chs) > 0 {
			v.channels = append([]world.LightChannel(nil), chs...)
		}
	}
}

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *metrics.AuditMetrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// WithTracer задаёт трассировщик OpenTelemetry
func WithTracer(t trace.Tracer) Option {
	return func(v *Verifier) { v.tracer = t }
}

// WithLogger задаёт логгер
func WithLogger(l *logging.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithRunID задаёт идентификатор обхода вместо случайного UUID
func WithRunID(id string) Option {
	return func(v *Verifier) { v.runID = id }
}

// NewVerifier создаёт проверку над источником src
func NewVerifier(src WorldSource, opts ...Option) *Verifier {
	v := &Verifier{
		src:      src,
		reporter: Discard,
		workers:  1,
		channels: []world.LightChannel{world.SkyLight, world.BlockLight},
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.tracer == nil {
		v.tracer = otel.Tracer("github.com/annel0/lightcheck/internal/lighting")
	}
	if v.logger == nil {
		v.logger = logging.GetLightingLogger()
	}
	if v.reporter == nil {
		v.reporter = Discard
	}
	return v
}

// CheckAll проверяет все загруженные чанки всех загруженных регионов.
// Сбой отдельного чанка попадает в Summary.Failures и не прерывает обход.
// Ошибка возвращается только при отмене ctx; Summary при этом частичный.
func (v *Verifier) CheckAll(ctx context.Context) (*Summary, error) {
	runID := v.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	summary := &Summary{RunID: runID, Started: time.Now()}
	if w, ok := v.src.(*world.World); ok {
		summary.World = w.Name
	}

	v.metrics.SetRunning(true)
	defer v.metrics.SetRunning(false)

	regions := v.src.Regions()
	summary.Regions = len(regions)
	v.logger.Info("Проверка освещения %s: %d регионов, воркеров %d", summary.RunID, len(regions), v.workers)

	var err error
	if v.workers <= 1 {
		err = v.checkSequential(ctx, regions, summary)
	} else {
		err = v.checkParallel(ctx, regions, summary)
	}

	summary.Duration = time.Since(summary.Started)
	v.logger.Info("Проверка %s завершена за %s: чанков %d, нарушений %d, сбоев %d",
		summary.RunID, summary.Duration, summary.Chunks, summary.TotalViolations(), len(summary.Failures))
	return summary, err
}

func (v *Verifier) checkSequential(ctx context.Context, regions []*world.Region, summary *Summary) error {
	for _, r := range regions {
		for _, c := range r.Chunks() {
			if err := ctx.Err(); err != nil {
				return err
			}
			results, err := v.CheckChunk(ctx, c)
			summary.Chunks++
			for _, res := range results {
				summary.addResult(res)
			}
			if err != nil {
				summary.addError(err)
			}
		}
	}
	return nil
}

func (v *Verifier) checkParallel(ctx context.Context, regions []*world.Region, summary *Summary) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	var mu sync.Mutex
	for _, r := range regions {
		for _, c := range r.Chunks() {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results, err := v.CheckChunk(gctx, c)

				mu.Lock()
				defer mu.Unlock()
				summary.Chunks++
				for _, res := range results {
					summary.addResult(res)
				}
				if err != nil {
					summary.addError(err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// CheckChunk проверяет оба канала чанка: сначала небесный, затем блочный.
// Сбой одного канала не отменяет проверку другого; ошибки объединяются.
func (v *Verifier) CheckChunk(ctx context.Context, c *world.Chunk) ([]ChunkResult, error) {
	results := make([]ChunkResult, 0, len(v.channels))
	var errs []error
	for _, ch := range v.channels {
		v.logger.Debug("Проверка канала %s для чанка at %v", ch, c.Base())
		res, err := v.CheckChunkChannel(ctx, c, ch)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// CheckChunkChannel проверяет все воксели чанка в одном канале
func (v *Verifier) CheckChunkChannel(ctx context.Context, c *world.Chunk, ch world.LightChannel) (res ChunkResult, err error) {
	_, span := v.tracer.Start(ctx, "lighting.CheckChunkChannel", trace.WithAttributes(
		attribute.String("channel", ch.String()),
		attribute.Int("chunk.x", c.Coords.X),
		attribute.Int("chunk.y", c.Coords.Y),
		attribute.Int("chunk.z", c.Coords.Z),
	))
	start := time.Now()
	res = ChunkResult{Coords: c.Coords, Channel: ch}

	defer func() {
		// Повреждённый буфер может паниковать при чтении: это сбой чанка, а не всего обхода
		if r := recover(); r != nil {
			err = &ChunkError{Coords: c.Coords, Channel: ch, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			v.metrics.ObserveFailure(ch.String())
			v.logger.Error("Проверка прервана для чанка at %v: %v", c.Base(), err)
		} else {
			span.SetAttributes(attribute.Int("violations", res.Total()))
			v.metrics.ObserveChunk(ch.String(), time.Since(start))
		}
		span.End()
	}()

	n := AssembleNeighborhood(v.src, c, ch)
	if n.Light[1][1][1] == nil {
		return res, &ChunkError{Coords: c.Coords, Channel: ch, Err: ErrNoLightBuffer}
	}
	source := SourceFor(v.src, c, n)
	base := c.Base()

	var (
		win   Window
		found []Violation
	)
	for x := 0; x < world.ChunkSize; x++ {
		for y := 0; y < world.ChunkSize; y++ {
			for z := 0; z < world.ChunkSize; z++ {
				local := vec.Vec3{X: x, Y: y, Z: z}
				n.Sample(local, &win)
				if win.Materials[1][1][1] == nil {
					pos := base.Add(local)
					return res, &ChunkError{Coords: c.Coords, Channel: ch,
						Err: fmt.Errorf("%w: id %d at %v", ErrUnknownMaterial, n.Materials[1][1][1].IDLocal(x, y, z), pos)}
				}

				found = appendViolations(found[:0], ch, base.Add(local), &win, source.Emitted(x, y, z))
				for _, viol := range found {
					res.Violations[viol.Rule]++
					v.metrics.ObserveViolation(ch.String(), viol.Rule.String())
					v.reporter.Report(viol)
				}
				res.Voxels++
			}
		}
	}
	return res, nil
}
