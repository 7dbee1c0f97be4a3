package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)

	pb := &dto.Metric{}
	require.NoError(t, metric.Write(pb))
	return pb.GetCounter().GetValue()
}

func TestNewPrometheusMetrics(t *testing.T) {
	metrics := NewPrometheusMetrics(testLogger())

	assert.NotNil(t, metrics.registry)
	assert.NotNil(t, metrics.webhookEventsTotal)
	assert.NotNil(t, metrics.activityRecords)
	assert.NotNil(t, metrics.httpRequestsTotal)
	assert.NotNil(t, metrics.httpRequestDuration)
	assert.Same(t, metrics.registry, metrics.GetRegistry())
}

func TestPrometheusMetrics_RecordEvent(t *testing.T) {
	metrics := NewPrometheusMetrics(testLogger())

	metrics.RecordEvent("repo:refs_changed", OutcomeProcessed)
	metrics.RecordEvent("repo:refs_changed", OutcomeProcessed)
	metrics.RecordEvent("pr:opened", OutcomeMalformed)

	assert.Equal(t, float64(2), counterValue(t, metrics.webhookEventsTotal, "repo:refs_changed", OutcomeProcessed))
	assert.Equal(t, float64(1), counterValue(t, metrics.webhookEventsTotal, "pr:opened", OutcomeMalformed))
}

func TestPrometheusMetrics_RecordActivity(t *testing.T) {
	metrics := NewPrometheusMetrics(testLogger())

	metrics.RecordActivity("push", ResultCreated)
	metrics.RecordActivity("push", ResultFailed)
	metrics.RecordActivity("pull_request", ResultCreated)

	assert.Equal(t, float64(1), counterValue(t, metrics.activityRecords, "push", ResultCreated))
	assert.Equal(t, float64(1), counterValue(t, metrics.activityRecords, "push", ResultFailed))
	assert.Equal(t, float64(1), counterValue(t, metrics.activityRecords, "pull_request", ResultCreated))
}

func TestPrometheusMetrics_RecordHTTPRequest(t *testing.T) {
	metrics := NewPrometheusMetrics(testLogger())

	metrics.RecordHTTPRequest(http.MethodPost, "/git-hook", http.StatusOK, 100*time.Millisecond)

	assert.Equal(t, float64(1), counterValue(t, metrics.httpRequestsTotal, http.MethodPost, "/git-hook", "200"))
}

func TestPrometheusMetrics_NilIsNoop(t *testing.T) {
	var metrics *PrometheusMetrics

	assert.NotPanics(t, func() {
		metrics.RecordEvent("pr:opened", OutcomeProcessed)
		metrics.RecordActivity("push", ResultCreated)
		metrics.RecordHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
	})
}

func TestPrometheusMetrics_Middleware(t *testing.T) {
	metrics := NewPrometheusMetrics(testLogger())

	handler := metrics.Middleware("/git-hook")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/git-hook", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, float64(1), counterValue(t, metrics.httpRequestsTotal, http.MethodPost, "/git-hook", "400"))
}

func TestPrometheusMetrics_Handler(t *testing.T) {
	metrics := NewPrometheusMetrics(testLogger())
	metrics.RecordEvent("repo:refs_changed", OutcomeProcessed)
	metrics.RecordActivity("push", ResultCreated)

	server := httptest.NewServer(metrics.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `git_hook_events_total{event_key="repo:refs_changed",outcome="processed"} 1`)
	assert.Contains(t, string(body), `git_hook_records_total{kind="push",result="created"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
