package monitoring

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for webhook deliveries
const (
	OutcomeProcessed   = "processed"
	OutcomeIgnored     = "ignored"
	OutcomeUnsupported = "unsupported"
	OutcomeMalformed   = "malformed"
	OutcomeFailed      = "failed"
)

// Results recorded for activity record writes
const (
	ResultCreated = "created"
	ResultFailed  = "failed"
)

// PrometheusMetrics provides Prometheus integration for the hook. A nil
// *PrometheusMetrics is valid and records nothing.
type PrometheusMetrics struct {
	// Webhook metrics
	webhookEventsTotal *prometheus.CounterVec
	activityRecords    *prometheus.CounterVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Registry
	registry *prometheus.Registry
	logger   *slog.Logger
}

// NewPrometheusMetrics creates a new Prometheus metrics collector
func NewPrometheusMetrics(logger *slog.Logger) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		registry: registry,
		logger:   logger,
	}

	pm.webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "git_hook_events_total",
			Help: "Total number of webhook deliveries by event key and outcome",
		},
		[]string{"event_key", "outcome"},
	)

	pm.activityRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "git_hook_records_total",
			Help: "Total number of activity record writes by kind and result",
		},
		[]string{"kind", "result"},
	)

	pm.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "git_hook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	pm.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "git_hook_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	registry.MustRegister(
		pm.webhookEventsTotal,
		pm.activityRecords,
		pm.httpRequestsTotal,
		pm.httpRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return pm
}

// RecordEvent counts one webhook delivery
func (pm *PrometheusMetrics) RecordEvent(eventKey, outcome string) {
	if pm == nil {
		return
	}
	pm.webhookEventsTotal.WithLabelValues(eventKey, outcome).Inc()
}

// RecordActivity counts one activity record write
func (pm *PrometheusMetrics) RecordActivity(kind, result string) {
	if pm == nil {
		return
	}
	pm.activityRecords.WithLabelValues(kind, result).Inc()
}

// RecordHTTPRequest records an HTTP request
func (pm *PrometheusMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if pm == nil {
		return
	}
	pm.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	pm.httpRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(pm.logger.Handler(), slog.LevelError),
	})
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Middleware records the status and duration of every request under endpoint
func (pm *PrometheusMetrics) Middleware(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			pm.RecordHTTPRequest(r.Method, endpoint, rw.StatusCode, time.Since(start))
		})
	}
}
