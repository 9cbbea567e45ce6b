package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/lightcheck/internal/logging"
)

// TraceHeader: заголовок ответа с идентификатором трассы запроса
const TraceHeader = "X-Trace-Id"

// Ключи gin.Context, которые выставляют обработчики и middleware API
const (
	TraceIDKey = "trace_id"
	SubjectKey = "subject"
)

// RequestLogger пишет по строке на запрос к API проверки. Служебные маршруты
// (health, metrics) уходят в DEBUG, чтобы опрос мониторингом не засорял журнал.
type RequestLogger struct {
	logger *logging.Logger
	quiet  map[string]bool
}

// NewRequestLogger создаёт middleware; nil: логгер компонента api
func NewRequestLogger(logger *logging.Logger, quietRoutes ...string) *RequestLogger {
	if logger == nil {
		logger = logging.GetAPILogger()
	}
	quiet := make(map[string]bool, len(quietRoutes))
	for _, r := range quietRoutes {
		quiet[r] = true
	}
	return &RequestLogger{logger: logger, quiet: quiet}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		traceID := uuid.NewString()
		if sc := span.SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceHeader, traceID)

		start := time.Now()
		route := routeOf(c)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		subject := c.GetString(SubjectKey)
		if subject != "" {
			span.SetAttributes(attribute.String("lightcheck.operator", subject))
		}

		switch {
		case status >= 500:
			rl.logger.Error("◀ %s %s %d %s trace=%s errors=%q", c.Request.Method, route, status, latency, traceID, c.Errors.String())
		case rl.quiet[route]:
			rl.logger.Debug("◀ %s %s %d %s", c.Request.Method, route, status, latency)
		case subject != "":
			rl.logger.Info("◀ %s %s %d %s operator=%s trace=%s", c.Request.Method, route, status, latency, subject, traceID)
		default:
			rl.logger.Info("◀ %s %s %d %s ip=%s trace=%s", c.Request.Method, route, status, latency, c.ClientIP(), traceID)
		}
	}
}

// routeOf возвращает шаблон маршрута; для неизвестных путей: "unmatched"
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
