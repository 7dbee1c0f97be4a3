package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticChecker(status HealthStatus, err error) HealthCheckerFunc {
	return func(context.Context) (HealthStatus, string, map[string]interface{}, error) {
		return status, string(status), map[string]interface{}{"detail": string(status)}, err
	}
}

func TestHealthMonitor_RunHealthChecks(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]HealthCheckerFunc
		expected HealthStatus
	}{
		{
			name:     "no checkers",
			expected: HealthStatusHealthy,
		},
		{
			name: "all healthy",
			checkers: map[string]HealthCheckerFunc{
				"database": staticChecker(HealthStatusHealthy, nil),
			},
			expected: HealthStatusHealthy,
		},
		{
			name: "degraded wins over healthy",
			checkers: map[string]HealthCheckerFunc{
				"database": staticChecker(HealthStatusHealthy, nil),
				"cache":    staticChecker(HealthStatusDegraded, nil),
			},
			expected: HealthStatusDegraded,
		},
		{
			name: "unhealthy wins",
			checkers: map[string]HealthCheckerFunc{
				"cache":    staticChecker(HealthStatusDegraded, nil),
				"database": staticChecker(HealthStatusUnhealthy, nil),
			},
			expected: HealthStatusUnhealthy,
		},
		{
			name: "error marks unhealthy",
			checkers: map[string]HealthCheckerFunc{
				"database": staticChecker(HealthStatusHealthy, errors.New("connection refused")),
			},
			expected: HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor := NewHealthMonitor(testLogger(), "1.0.0")
			for name, c := range tt.checkers {
				monitor.RegisterChecker(name, c)
			}

			report := monitor.RunHealthChecks(context.Background())
			assert.Equal(t, tt.expected, report.Status)
			assert.Equal(t, "1.0.0", report.Version)
			assert.Len(t, report.Checks, len(tt.checkers))
		})
	}
}

func TestHealthMonitor_ErrorMessage(t *testing.T) {
	monitor := NewHealthMonitor(testLogger(), "dev")
	monitor.RegisterChecker("database", staticChecker(HealthStatusHealthy, errors.New("disk I/O error")))

	report := monitor.RunHealthChecks(context.Background())
	check := report.Checks["database"]
	assert.Equal(t, HealthStatusUnhealthy, check.Status)
	assert.Equal(t, "Health check failed: disk I/O error", check.Message)
}

func TestHealthMonitor_HandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		monitor := NewHealthMonitor(testLogger(), "dev")
		monitor.RegisterChecker("database", staticChecker(HealthStatusHealthy, nil))

		w := httptest.NewRecorder()
		monitor.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var report HealthReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, HealthStatusHealthy, report.Status)
		assert.Contains(t, report.Checks, "database")
	})

	t.Run("unhealthy", func(t *testing.T) {
		monitor := NewHealthMonitor(testLogger(), "dev")
		monitor.RegisterChecker("database", staticChecker(HealthStatusUnhealthy, nil))

		w := httptest.NewRecorder()
		monitor.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
