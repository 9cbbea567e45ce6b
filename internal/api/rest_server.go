package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/lightcheck/internal/auth"
	"github.com/annel0/lightcheck/internal/cache"
	"github.com/annel0/lightcheck/internal/eventbus"
	"github.com/annel0/lightcheck/internal/history"
	"github.com/annel0/lightcheck/internal/lighting"
	"github.com/annel0/lightcheck/internal/logging"
	"github.com/annel0/lightcheck/internal/metrics"
	"github.com/annel0/lightcheck/internal/middleware"
	"github.com/annel0/lightcheck/internal/observability"
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
)

// RestServer отдаёт диагностику освещения загруженного мира по HTTP
type RestServer struct {
	router    *gin.Engine
	server    *http.Server
	port      string
	world     lighting.WorldSource
	metrics   *metrics.AuditMetrics
	monitor   *observability.ProcessMonitor
	reporter  lighting.Reporter
	cache     cache.ResultCache
	events    eventbus.EventBus
	history   history.Repository
	operators map[string]string
	worldNm   string
	workers   int
	channels  []world.LightChannel
	logger    *logging.Logger

	auditing    atomic.Bool
	closing     chan struct{}
	closeOnce   sync.Once
	mu          sync.RWMutex
	lastSummary *lighting.Summary
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string               // порт для запуска сервера, например ":8088"
	World    lighting.WorldSource // проверяемый мир
	Metrics  *metrics.AuditMetrics
	Registry *prometheus.Registry // регистр для HTTP-метрик и /metrics; nil: метрики проверки
	Reporter lighting.Reporter    // дополнительный приёмник нарушений полного обхода
	Cache    cache.ResultCache    // кеш точечных проверок; nil: без кеша
	Events   eventbus.EventBus    // источник для /api/events; nil: поток недоступен
	History  history.Repository   // история полных обходов; nil: в памяти
	// Operators: имя -> bcrypt hash для /api/login
	Operators map[string]string
	Workers   int
	Channels  []world.LightChannel
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewAuditMetrics(config.Registry)
	}
	if config.Registry == nil {
		config.Registry = config.Metrics.Registry()
	}

	// Устанавливаем режим релиза для gin
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("lightcheck_api"))
	router.Use(middleware.NewRequestLogger(nil, "/health", "/metrics").Handler())
	router.Use(middleware.NewHTTPMetrics("lightcheck_api", config.Registry).Handler())
	middleware.MetricsRoute(router, config.Registry)

	server := &RestServer{
		router:    router,
		port:      config.Port,
		world:     config.World,
		metrics:   config.Metrics,
		monitor:   observability.NewProcessMonitor(),
		reporter:  config.Reporter,
		cache:     config.Cache,
		events:    config.Events,
		closing:   make(chan struct{}),
		history:   config.History,
		operators: config.Operators,
		workers:   config.Workers,
		channels:  config.Channels,
		logger:    logging.GetAPILogger(),
	}
	if server.history == nil {
		server.history = history.NewMemoryRepo()
	}
	if w, ok := config.World.(*world.World); ok {
		server.worldNm = w.Name
	}
	server.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// Handler возвращает http.Handler сервера (используется тестами)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	api := rs.router.Group("/api")
	{
		api.GET("/chunks/:x/:y/:z/audit", rs.handleChunkAudit)
		api.GET("/stats", rs.handleStats)
		api.GET("/audits", rs.handleHistory)
		api.GET("/events", rs.handleEvents)
		api.POST("/login", rs.handleLogin)
	}

	// Полный обход доступен только оператору
	protected := api.Group("/")
	protected.Use(rs.operatorMiddleware())
	{
		protected.POST("/audit", rs.handleAudit)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ChunkAuditResponse: результат проверки одного чанка
type ChunkAuditResponse struct {
	Coords     vec.Vec3                `json:"coords"`
	Results    []lighting.ChunkResult  `json:"results"`
	Violations []lighting.Violation    `json:"violations"`
	Failures   []lighting.ChunkFailure `json:"failures,omitempty"`
}

func parseChannels(s string) ([]world.LightChannel, bool) {
	if s == "" || s == "all" {
		return world.Channels[:], true
	}
	ch, ok := world.ParseLightChannel(s)
	if !ok {
		return nil, false
	}
	return []world.LightChannel{ch}, true
}

// handleChunkAudit проверяет один загруженный чанк
func (rs *RestServer) handleChunkAudit(c *gin.Context) {
	var coords [3]int
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.Atoi(c.Param(name))
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Неверная координата чанка " + name,
			})
			return
		}
		coords[i] = v
	}

	channels, ok := parseChannels(c.Query("channel"))
	if !ok {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Канал должен быть sky, block или all",
		})
		return
	}

	key := cache.ChunkKey(rs.worldNm, vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, channels)
	if rs.cache != nil {
		if body, err := rs.cache.Get(c.Request.Context(), key); err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		} else if !cache.IsCacheMiss(err) {
			rs.logger.Warn("Кеш проверок недоступен: %v", err)
		}
	}

	chunk := rs.world.Chunk(coords[0], coords[1], coords[2], world.NoLoad)
	if chunk == nil {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: lighting.ErrChunkNotLoaded.Error(),
		})
		return
	}

	collector := lighting.NewCollector()
	v := lighting.NewVerifier(rs.world,
		lighting.WithReporter(collector),
		lighting.WithChannels(channels...),
		lighting.WithMetrics(rs.metrics),
	)
	results, err := v.CheckChunk(c.Request.Context(), chunk)

	resp := ChunkAuditResponse{
		Coords:     chunk.Coords,
		Results:    results,
		Violations: collector.Violations(),
	}
	if err != nil {
		// errors.Join: каждая ошибка канала отдельно
		var joined interface{ Unwrap() []error }
		errs := []error{err}
		if errors.As(err, &joined) {
			errs = joined.Unwrap()
		}
		for _, e := range errs {
			var ce *lighting.ChunkError
			if errors.As(e, &ce) {
				resp.Failures = append(resp.Failures, lighting.ChunkFailure{Coords: ce.Coords, Channel: ce.Channel, Error: ce.Err.Error()})
			}
		}
	}

	out := GenericResponse{
		Success: len(resp.Failures) == 0,
		Message: "Проверка чанка завершена",
		Data:    resp,
	}
	// Сбои хранилища не кешируются
	if rs.cache == nil || !out.Success {
		c.JSON(http.StatusOK, out)
		return
	}

	body, err := json.Marshal(out)
	if err != nil {
		c.JSON(http.StatusOK, out)
		return
	}
	if err := rs.cache.Set(c.Request.Context(), key, body, 0); err != nil {
		rs.logger.Warn("Не удалось сохранить проверку %s в кеш: %v", key, err)
	}
	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// handleAudit запускает полный обход мира
func (rs *RestServer) handleAudit(c *gin.Context) {
	if !rs.auditing.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, GenericResponse{
			Success: false,
			Message: "Проверка уже выполняется",
		})
		return
	}
	defer rs.auditing.Store(false)

	runID := uuid.NewString()
	opts := []lighting.Option{
		lighting.WithRunID(runID),
		lighting.WithWorkers(rs.workers),
		lighting.WithChannels(rs.channels...),
		lighting.WithMetrics(rs.metrics),
	}
	if rs.reporter != nil {
		if s, ok := rs.reporter.(runIDSetter); ok {
			s.SetRunID(runID)
		}
		opts = append(opts, lighting.WithReporter(rs.reporter))
	}

	rs.logger.Info("Полный обход %s запрошен оператором %s", runID, c.GetString(middleware.SubjectKey))

	summary, err := lighting.NewVerifier(rs.world, opts...).CheckAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Проверка прервана: " + err.Error(),
			Data:    summary,
		})
		return
	}

	rs.SetLastSummary(summary)
	if err := rs.history.Save(c.Request.Context(), history.FromSummary(summary)); err != nil {
		rs.logger.Warn("Не удалось сохранить обход %s в историю: %v", summary.RunID, err)
	}
	if p, ok := rs.reporter.(summaryPublisher); ok {
		if err := p.PublishSummary(summary); err != nil {
			rs.logger.Warn("Итог обхода %s не опубликован: %v", summary.RunID, err)
		}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Проверка завершена",
		Data:    summary,
	})
}

// summaryPublisher: приёмник нарушений, который также рассылает итог обхода
type summaryPublisher interface {
	PublishSummary(s *lighting.Summary) error
}

// runIDSetter: приёмник, помечающий нарушения идентификатором обхода
type runIDSetter interface {
	SetRunID(runID string)
}

// handleHistory возвращает последние полные обходы
func (rs *RestServer) handleHistory(c *gin.Context) {
	limit := history.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "limit должен быть положительным числом",
			})
			return
		}
		limit = n
	}

	worldName := c.DefaultQuery("world", rs.worldNm)
	records, err := rs.history.Recent(c.Request.Context(), worldName, limit)
	if err != nil {
		rs.logger.Error("Ошибка чтения истории проверок: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Внутренняя ошибка сервера",
		})
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "История проверок получена",
		Data:    records,
	})
}

// LoginRequest представляет запрос на вход оператора
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse представляет ответ на вход
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// handleLogin выдаёт JWT оператора по паролю из конфигурации
func (rs *RestServer) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LoginResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}

	if !auth.Authenticate(rs.operators, req.Username, req.Password) {
		rs.logger.Warn("Неудачная попытка входа: %s", req.Username)
		c.JSON(http.StatusUnauthorized, LoginResponse{
			Success: false,
			Message: "Неверное имя пользователя или пароль",
		})
		return
	}

	token, err := auth.GenerateJWT(req.Username, true, auth.DefaultTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, LoginResponse{
			Success: false,
			Message: "Ошибка генерации токена",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		Message: "Успешная авторизация",
	})
}

// LastSummary возвращает итог последнего полного обхода
func (rs *RestServer) LastSummary() *lighting.Summary {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.lastSummary
}

// SetLastSummary сохраняет итог обхода, выполненного вне HTTP (например, при старте)
func (rs *RestServer) SetLastSummary(s *lighting.Summary) {
	rs.mu.Lock()
	rs.lastSummary = s
	rs.mu.Unlock()
}

// handleStats возвращает потребление ресурсов и итог последнего обхода
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := map[string]interface{}{
		"process":     rs.monitor.Snapshot(),
		"auditing":    rs.auditing.Load(),
		"server_time": time.Now().Unix(),
	}
	if w, ok := rs.world.(*world.World); ok {
		stats["world"] = map[string]interface{}{
			"name":    w.Name,
			"chunks":  w.ChunkCount(),
			"regions": len(w.Regions()),
		}
	}
	if s := rs.LastSummary(); s != nil {
		stats["last_audit"] = s
	}
	if rs.cache != nil {
		stats["cache"] = rs.cache.GetMetrics()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.port)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно останавливает REST сервер
// и закрывает потоки событий: Shutdown не ждёт захваченных WebSocket соединений
func (rs *RestServer) Stop(ctx context.Context) error {
	rs.closeOnce.Do(func() { close(rs.closing) })
	return rs.server.Shutdown(ctx)
}
