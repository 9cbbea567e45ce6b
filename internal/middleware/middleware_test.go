package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/lightcheck/internal/logging"
)

func newTestRouter(t *testing.T, buf *bytes.Buffer) (*gin.Engine, *HTTPMetrics, *prometheus.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics("lightcheck_api", reg)
	r := gin.New()
	r.Use(NewRequestLogger(logging.NewWriterLogger("api", buf, logging.DEBUG), "/health").Handler())
	r.Use(m.Handler())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/chunks/:x/:y/:z/audit", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/audit", func(c *gin.Context) {
		c.Set(SubjectKey, "alice")
		c.Status(http.StatusInternalServerError)
	})
	MetricsRoute(r, reg)
	return r, m, reg
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHTTPMetrics_RouteTemplates(t *testing.T) {
	var buf bytes.Buffer
	r, m, _ := newTestRouter(t, &buf)

	serve(r, http.MethodGet, "/api/chunks/0/0/0/audit")
	serve(r, http.MethodGet, "/api/chunks/1/2/3/audit")
	serve(r, http.MethodGet, "/nope")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.responses.WithLabelValues("/api/chunks/:x/:y/:z/audit", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("unmatched", "4xx")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r, _, _ := newTestRouter(t, &buf)

	rec := serve(r, http.MethodGet, "/health")
	assert.NotEmpty(t, rec.Header().Get(TraceHeader))

	serve(r, http.MethodPost, "/api/audit")
	out := buf.String()
	assert.Contains(t, out, "[DEBUG]")
	assert.Contains(t, out, "/api/audit 500")
}

func TestMetricsRoute(t *testing.T) {
	var buf bytes.Buffer
	r, _, _ := newTestRouter(t, &buf)
	serve(r, http.MethodGet, "/health")

	rec := serve(r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lightcheck_api_http_responses_total")
	assert.Equal(t, "2xx", statusClass(204))
}
