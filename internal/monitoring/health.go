package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

// Health statuses
const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a health check for a specific component
type HealthCheck struct {
	Name        string                 `json:"name"`
	Status      HealthStatus           `json:"status"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	DurationMS  int64                  `json:"duration_ms"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// HealthChecker interface for implementing health checks
type HealthChecker interface {
	CheckHealth(ctx context.Context) (HealthStatus, string, map[string]interface{}, error)
}

// HealthCheckerFunc adapts a function to HealthChecker
type HealthCheckerFunc func(ctx context.Context) (HealthStatus, string, map[string]interface{}, error)

// CheckHealth implements HealthChecker
func (f HealthCheckerFunc) CheckHealth(ctx context.Context) (HealthStatus, string, map[string]interface{}, error) {
	return f(ctx)
}

// HealthMonitor runs registered health checks
type HealthMonitor struct {
	logger    *slog.Logger
	checks    map[string]HealthChecker
	mu        sync.RWMutex
	version   string
	startTime time.Time
	timeout   time.Duration
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(logger *slog.Logger, version string) *HealthMonitor {
	return &HealthMonitor{
		logger:    logger,
		checks:    make(map[string]HealthChecker),
		version:   version,
		startTime: time.Now(),
		timeout:   5 * time.Second,
	}
}

// RegisterChecker registers a health checker for a component
func (hm *HealthMonitor) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[name] = checker
	hm.logger.Debug("Registered health checker", "checker", name)
}

// RunHealthChecks runs all registered health checks
func (hm *HealthMonitor) RunHealthChecks(ctx context.Context) HealthReport {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(hm.checks))
	for name, c := range hm.checks {
		checkers[name] = c
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	report := HealthReport{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Version:   hm.version,
		Uptime:    time.Since(hm.startTime).Round(time.Second).String(),
		Checks:    make(map[string]HealthCheck, len(names)),
	}

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
		start := time.Now()
		status, message, details, err := checkers[name].CheckHealth(checkCtx)
		cancel()

		check := HealthCheck{
			Name:        name,
			Status:      status,
			Message:     message,
			Details:     details,
			LastChecked: time.Now(),
			DurationMS:  time.Since(start).Milliseconds(),
		}
		if err != nil {
			check.Message = fmt.Sprintf("Health check failed: %v", err)
			check.Status = HealthStatusUnhealthy
			hm.logger.Warn("Health check failed", "checker", name, "error", err)
		}
		report.Checks[name] = check

		switch {
		case check.Status == HealthStatusUnhealthy:
			report.Status = HealthStatusUnhealthy
		case check.Status == HealthStatusDegraded && report.Status == HealthStatusHealthy:
			report.Status = HealthStatusDegraded
		}
	}

	return report
}

// HandleHealth serves the health report; unhealthy reports get a 503
func (hm *HealthMonitor) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report := hm.RunHealthChecks(r.Context())

	statusCode := http.StatusOK
	if report.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		hm.logger.Error("Failed to encode health response", "error", err)
	}
}
