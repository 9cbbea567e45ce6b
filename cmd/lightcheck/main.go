package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/lightcheck/internal/api"
	"github.com/annel0/lightcheck/internal/auth"
	"github.com/annel0/lightcheck/internal/cache"
	"github.com/annel0/lightcheck/internal/config"
	"github.com/annel0/lightcheck/internal/eventbus"
	"github.com/annel0/lightcheck/internal/history"
	"github.com/annel0/lightcheck/internal/lighting"
	"github.com/annel0/lightcheck/internal/logging"
	"github.com/annel0/lightcheck/internal/metrics"
	"github.com/annel0/lightcheck/internal/observability"
	"github.com/annel0/lightcheck/internal/storage"
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
	"github.com/annel0/lightcheck/internal/world/block"
	_ "github.com/annel0/lightcheck/internal/world/block/implementations"
	"github.com/annel0/lightcheck/internal/worldgen"
	"github.com/google/uuid"
)

// высота генерируемого мира в чанках
const generateHeight = 3

// app собирает общие зависимости всех режимов
type app struct {
	cfg      *config.Config
	store    *storage.WorldStorage
	bus      eventbus.EventBus
	exporter *eventbus.MetricsExporter
	history  history.Repository
	metrics  *metrics.AuditMetrics
	worldNm  string
	workers  int
	channels []world.LightChannel
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (default: $LIGHTCHECK_CONFIG)")
		command    = flag.String("cmd", "audit", "Command: generate, audit, serve, chunk, history, passwd, secret")
		dataDir    = flag.String("data", "", "Data directory (overrides storage.path)")
		worldName  = flag.String("world", "", "World name (overrides storage.world)")
		seed       = flag.Int64("seed", 1, "Terrain seed for generate")
		size       = flag.Int("size", 4, "Chunks per horizontal axis for generate, centred on origin")
		corrupt    = flag.Int("corrupt", 0, "Number of light cells to corrupt after generate")
		chunkArg   = flag.String("chunk", "", "Chunk coordinates x,y,z for the chunk command")
		workers    = flag.Int("workers", 0, "Parallel chunk checks (overrides audit.workers)")
		password   = flag.String("password", "", "Operator password to hash for the passwd command")
	)
	flag.Parse()

	// passwd и secret не требуют ни конфигурации, ни хранилища
	if *command == "secret" {
		fmt.Println(auth.GenerateSecureSecret())
		return
	}
	if *command == "passwd" {
		if *password == "" {
			log.Fatalf("❌ -password is required")
		}
		hash, err := auth.HashPassword(*password)
		if err != nil {
			log.Fatalf("❌ Failed to hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if *dataDir != "" {
		cfg.Storage.Path = *dataDir
	}
	if *worldName != "" {
		cfg.Storage.World = *worldName
	}
	if *workers > 0 {
		cfg.Audit.Workers = *workers
	}

	if cfg.Logging.ToFile {
		if err := logging.InitDefaultLogger("lightcheck"); err != nil {
			log.Fatalf("❌ Failed to init logger: %v", err)
		}
		defer logging.CloseDefaultLogger()
	}
	logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))

	code := run(cfg, *command, *seed, *size, *corrupt, *chunkArg)
	if code != 0 {
		logging.CloseDefaultLogger()
		os.Exit(code)
	}
}

func run(cfg *config.Config, command string, seed int64, size, corrupt int, chunkArg string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, cleanup, err := setup(ctx, cfg)
	if err != nil {
		logging.Error("❌ %v", err)
		return 2
	}
	defer cleanup()

	switch command {
	case "generate":
		err = a.generate(seed, size, corrupt)
	case "audit":
		var clean bool
		clean, err = a.audit(ctx)
		if err == nil && !clean {
			return 1
		}
	case "chunk":
		err = a.chunk(ctx, chunkArg)
	case "serve":
		err = a.serve(ctx)
	case "history":
		err = a.printHistory(ctx)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		logging.Error("❌ %s: %v", command, err)
		return 2
	}
	return 0
}

// setup поднимает каталог блоков, телеметрию, шину событий и хранилище
func setup(ctx context.Context, cfg *config.Config) (*app, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if dir := cfg.Blocks.CatalogDir; dir != "" {
		n, err := block.LoadCatalog(dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, cleanup, fmt.Errorf("каталог блоков: %w", err)
		}
		logging.Info("📦 Загружено материалов из каталога: %d", n)
	}

	if secret := cfg.Auth.GetJWTSecret(); secret != "" {
		if err := auth.SetJWTSecret(secret); err != nil {
			return nil, cleanup, fmt.Errorf("jwt secret: %w", err)
		}
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.TracingOptions{
			Service:     cfg.Telemetry.Service,
			World:       cfg.Storage.GetWorld(),
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			logging.Warn("⚠️ OpenTelemetry недоступен: %v", err)
		} else {
			closers = append(closers, func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			})
		}
	}

	channels, err := cfg.Audit.GetChannels()
	if err != nil {
		return nil, cleanup, err
	}

	a := &app{
		cfg:      cfg,
		metrics:  metrics.NewAuditMetrics(nil),
		worldNm:  cfg.Storage.GetWorld(),
		workers:  cfg.Audit.GetWorkers(),
		channels: channels,
	}

	// Шина событий: JetStream при заданном URL, иначе in-memory
	if url := cfg.EventBus.GetURL(); url != "" {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		if retention == 0 {
			retention = 24 * time.Hour
		}
		jb, err := eventbus.NewJetStreamBus(url, cfg.EventBus.Stream, retention)
		if err != nil {
			return nil, cleanup, err
		}
		logging.Info("📨 JetStream подключен: %s", url)
		a.bus = jb
	} else {
		a.bus = eventbus.NewMemoryBus(1024)
	}

	// Шина закрывается раньше экспортёра, чтобы он снял итоговые счётчики
	a.exporter = eventbus.NewMetricsExporter(a.bus, a.metrics.Registry())
	a.exporter.Start()
	closers = append(closers, a.exporter.Stop)
	closers = append(closers, func() { _ = a.bus.Close() })

	if _, err := eventbus.StartLoggingListener(ctx, a.bus); err != nil {
		return nil, cleanup, err
	}

	repo, err := history.Open(history.Config{
		Driver:   cfg.History.Driver,
		DSN:      cfg.History.DSN,
		Database: cfg.History.Database,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("история проверок: %w", err)
	}
	a.history = repo
	closers = append(closers, func() { _ = repo.Close() })

	store, err := storage.NewWorldStorage(cfg.Storage.GetPath())
	if err != nil {
		return nil, cleanup, err
	}
	a.store = store
	closers = append(closers, func() { _ = store.Close() })

	return a, cleanup, nil
}

// generate создаёт мир, пересчитывает освещение и сохраняет его
func (a *app) generate(seed int64, size, corrupt int) error {
	if size <= 0 {
		return fmt.Errorf("size must be positive, got %d", size)
	}

	w := world.NewWorld(a.worldNm)
	origin := vec.Vec3{X: -size / 2, Y: 0, Z: -size / 2}
	extent := vec.Vec3{X: size, Y: generateHeight, Z: size}

	start := time.Now()
	worldgen.NewGenerator(seed).Generate(w, origin, extent)
	worldgen.Relight(w)
	logging.Info("🌍 Мир %q сгенерирован: %d чанков за %v", w.Name, w.ChunkCount(), time.Since(start))

	if corrupt > 0 {
		rng := rand.New(rand.NewSource(seed))
		for _, c := range worldgen.Corrupt(w, corrupt, rng) {
			logging.Info("💥 [%s] %d,%d,%d: %d -> %d", c.Channel, c.Pos.X, c.Pos.Y, c.Pos.Z, c.Before, c.After)
		}
	}

	if err := a.store.SaveWorld(w); err != nil {
		return err
	}
	logging.Info("💾 Мир %q сохранён в %s", w.Name, a.cfg.Storage.GetPath())
	return nil
}

func (a *app) loadWorld() (*world.World, error) {
	w, err := a.store.LoadWorld(a.worldNm)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("мир %q не найден, сначала выполните -cmd generate", a.worldNm)
	}
	return w, err
}

// audit проверяет весь мир. Возвращает false, если найдены нарушения или сбои.
func (a *app) audit(ctx context.Context) (bool, error) {
	w, err := a.loadWorld()
	if err != nil {
		return false, err
	}

	runID := uuid.NewString()
	publisher := eventbus.NewViolationPublisher(ctx, a.bus, "lightcheck")
	publisher.SetRunID(runID)

	v := lighting.NewVerifier(w,
		lighting.WithRunID(runID),
		lighting.WithWorkers(a.workers),
		lighting.WithChannels(a.channels...),
		lighting.WithMetrics(a.metrics),
		lighting.WithReporter(lighting.MultiReporter{
			lighting.NewLogReporter(logging.GetLightingLogger()),
			publisher,
		}),
	)

	summary, err := v.CheckAll(ctx)
	if err != nil {
		return false, err
	}
	if err := publisher.PublishSummary(summary); err != nil {
		logging.Warn("⚠️ Итог проверки не опубликован: %v", err)
	}
	if err := a.history.Save(ctx, history.FromSummary(summary)); err != nil {
		logging.Warn("⚠️ Итог проверки не сохранён в историю: %v", err)
	}
	a.exporter.Collect()

	printSummary(summary)
	if n := publisher.Failed(); n > 0 {
		logging.Warn("⚠️ Не опубликовано нарушений: %d", n)
	}
	return summary.Clean(), nil
}

func printSummary(s *lighting.Summary) {
	fmt.Printf("Run %s, world %q: %d regions, %d chunks, %d voxels in %v\n",
		s.RunID, s.World, s.Regions, s.Chunks, s.Voxels, s.Duration)
	for _, ch := range world.Channels {
		fmt.Printf("  %-5s", ch)
		for _, r := range lighting.Rules {
			fmt.Printf("  %s=%d", r, s.Violations[ch][r])
		}
		fmt.Println()
	}
	for _, f := range s.Failures {
		fmt.Printf("  failure [%s] %d,%d,%d: %s\n", f.Channel, f.Coords.X, f.Coords.Y, f.Coords.Z, f.Error)
	}
	if s.Clean() {
		fmt.Println("✅ Lighting is consistent")
	} else {
		fmt.Printf("❌ %d violations, %d failures\n", s.TotalViolations(), len(s.Failures))
	}
}

// printHistory печатает последние полные обходы мира
func (a *app) printHistory(ctx context.Context) error {
	records, err := a.history.Recent(ctx, a.worldNm, history.DefaultLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("No audits recorded for world %q\n", a.worldNm)
		return nil
	}
	for _, r := range records {
		fmt.Printf("%s  %s  chunks=%d violations=%d failures=%d  %dms\n",
			r.Started.Format(time.RFC3339), r.RunID, r.Chunks, r.Total(), r.Failures, r.DurationMs)
	}
	return nil
}

// chunk проверяет один чанк и печатает результат в JSON
func (a *app) chunk(ctx context.Context, arg string) error {
	coords, err := parseCoords(arg)
	if err != nil {
		return err
	}
	w, err := a.loadWorld()
	if err != nil {
		return err
	}
	c := w.ChunkAt(coords, world.NoLoad)
	if c == nil {
		return fmt.Errorf("чанк %d,%d,%d: %w", coords.X, coords.Y, coords.Z, lighting.ErrChunkNotLoaded)
	}

	collector := lighting.NewCollector()
	v := lighting.NewVerifier(w,
		lighting.WithChannels(a.channels...),
		lighting.WithMetrics(a.metrics),
		lighting.WithReporter(collector),
	)
	results, checkErr := v.CheckChunk(ctx, c)

	out := struct {
		Coords     vec.Vec3               `json:"coords"`
		Results    []lighting.ChunkResult `json:"results"`
		Violations []lighting.Violation   `json:"violations"`
		Error      string                 `json:"error,omitempty"`
	}{Coords: coords, Results: results, Violations: collector.Violations()}
	if checkErr != nil {
		out.Error = checkErr.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// serve запускает REST API и отдельный порт метрик до получения сигнала
func (a *app) serve(ctx context.Context) error {
	w, err := a.loadWorld()
	if err != nil {
		return err
	}

	results, err := cache.New(&cache.CacheConfig{
		RedisURL:      a.cfg.Cache.GetRedisURL(),
		RedisPassword: a.cfg.Cache.RedisPassword,
		RedisDB:       a.cfg.Cache.RedisDB,
		DefaultTTL:    time.Duration(a.cfg.Cache.TTLSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	defer results.Close()
	// Мир перечитан из хранилища, прежние результаты могли устареть
	if n, err := results.InvalidatePrefix(ctx, cache.WorldPrefix(w.Name)); err != nil {
		logging.Warn("⚠️ Не удалось очистить кеш проверок: %v", err)
	} else if n > 0 {
		logging.Info("🧹 Удалено устаревших проверок из кеша: %d", n)
	}

	publisher := eventbus.NewViolationPublisher(ctx, a.bus, "lightcheck-api")
	server := api.NewRestServer(api.Config{
		Port:      fmt.Sprintf(":%d", a.cfg.Server.GetAPIPort()),
		World:     w,
		Metrics:   a.metrics,
		Reporter:  publisher,
		Cache:     results,
		Events:    a.bus,
		History:   a.history,
		Operators: a.cfg.Auth.Operators,
		Workers:   a.workers,
		Channels:  a.channels,
	})

	a.exporter.StartHTTP(fmt.Sprintf(":%d", a.cfg.Server.GetMetricsPort()), a.metrics.Registry())

	errCh := make(chan error, 1)
	go func() {
		logging.Info("🚀 REST API запущен на порту %d (мир %q, чанков: %d)", a.cfg.Server.GetAPIPort(), w.Name, w.ChunkCount())
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logging.Info("🛑 Получен сигнал завершения, останавливаем сервер...")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return err
	}
	logging.Info("✅ Сервер остановлен")
	return nil
}

// parseCoords разбирает строку вида "x,y,z"
func parseCoords(s string) (vec.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("ожидается x,y,z, получено %q", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("координата %q: %w", p, err)
		}
		v[i] = n
	}
	return vec.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}
