package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics собирает метрики API проверки в отдельный регистр:
//
//	<ns>_http_request_duration_seconds{method,route,code}
//	<ns>_http_requests_inflight
//	<ns>_http_responses_total{route,class} (2xx, 4xx, 5xx)
//
// Метки маршрута берутся из шаблона (/api/chunks/:x/:y/:z/audit), а не из
// сырого пути, иначе каждый чанк дал бы свой ряд.
type HTTPMetrics struct {
	duration  *prometheus.HistogramVec
	inflight  prometheus.Gauge
	responses *prometheus.CounterVec
}

// NewHTTPMetrics регистрирует метрики в reg (nil: регистр по умолчанию)
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &HTTPMetrics{
		// Полный обход большого мира занимает десятки секунд
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность запросов к API проверки.",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 2, 10, 60, 300},
		}, []string{"method", "route", "code"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "Ответы API по классу статуса.",
		}, []string{"route", "class"}),
	}
	reg.MustRegister(m.duration, m.inflight, m.responses)
	return m
}

// Handler подключается через router.Use()
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		c.Next()

		status := c.Writer.Status()
		route := routeOf(c)
		m.duration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		m.responses.WithLabelValues(route, statusClass(status)).Inc()
	}
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// MetricsRoute публикует gatherer по GET /metrics (nil: регистр по умолчанию)
func MetricsRoute(r gin.IRoutes, gatherer prometheus.Gatherer) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
