package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuditMetrics инкапсулирует Prometheus-метрики проверки освещения.
//
// Метрики:
// * lightcheck_chunks_checked_total{channel}: counter
// * lightcheck_violations_total{channel,rule}: counter
// * lightcheck_chunk_failures_total{channel}: counter
// * lightcheck_chunk_check_seconds{channel}: histogram
// * lightcheck_audit_running: gauge
type AuditMetrics struct {
	registry *prometheus.Registry

	chunksChecked *prometheus.CounterVec
	violations    *prometheus.CounterVec
	failures      *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	running       prometheus.Gauge
}

// NewAuditMetrics создаёт метрики и регистрирует их в переданном регистре.
// nil означает новый собственный регистр.
func NewAuditMetrics(reg *prometheus.Registry) *AuditMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	am := &AuditMetrics{
		registry: reg,
		chunksChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightcheck",
			Name:      "chunks_checked_total",
			Help:      "Число проверенных пар (чанк, канал).",
		}, []string{"channel"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightcheck",
			Name:      "violations_total",
			Help:      "Найденные нарушения освещения по каналу и правилу.",
		}, []string{"channel", "rule"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightcheck",
			Name:      "chunk_failures_total",
			Help:      "Проверки чанков, прерванные ошибкой хранилища.",
		}, []string{"channel"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lightcheck",
			Name:      "chunk_check_seconds",
			Help:      "Длительность проверки одного канала чанка.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"channel"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lightcheck",
			Name:      "audit_running",
			Help:      "1, пока идёт полный обход мира.",
		}),
	}

	reg.MustRegister(am.chunksChecked, am.violations, am.failures, am.checkDuration, am.running)
	return am
}

// Registry возвращает регистр, в котором живут метрики
func (am *AuditMetrics) Registry() *prometheus.Registry {
	return am.registry
}

// ObserveChunk учитывает завершённую проверку канала чанка
func (am *AuditMetrics) ObserveChunk(channel string, d time.Duration) {
	if am == nil {
		return
	}
	am.chunksChecked.WithLabelValues(channel).Inc()
	am.checkDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// ObserveViolation учитывает одно нарушение
func (am *AuditMetrics) ObserveViolation(channel, rule string) {
	if am == nil {
		return
	}
	am.violations.WithLabelValues(channel, rule).Inc()
}

// ObserveFailure учитывает прерванную проверку
func (am *AuditMetrics) ObserveFailure(channel string) {
	if am == nil {
		return
	}
	am.failures.WithLabelValues(channel).Inc()
}

// SetRunning отмечает начало и конец полного обхода
func (am *AuditMetrics) SetRunning(running bool) {
	if am == nil {
		return
	}
	if running {
		am.running.Set(1)
	} else {
		am.running.Set(0)
	}
}

// Handler возвращает HTTP-обработчик /metrics для регистра
func (am *AuditMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(am.registry, promhttp.HandlerOpts{})
}
