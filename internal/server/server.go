// Package server wires the webhook, history, health and metrics endpoints
// of the git activity hook into one HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/atlet99/git-activity-hook/internal/bitbucket"
	"github.com/atlet99/git-activity-hook/internal/config"
	apperrors "github.com/atlet99/git-activity-hook/internal/errors"
	"github.com/atlet99/git-activity-hook/internal/monitoring"
	"github.com/atlet99/git-activity-hook/internal/note"
	"github.com/atlet99/git-activity-hook/internal/storage"
	"github.com/atlet99/git-activity-hook/internal/users"
	"github.com/atlet99/git-activity-hook/internal/version"
)

const (
	// Server timeout constants
	readHeaderTimeout = 30 * time.Second
	seedTimeout       = 30 * time.Second

	historyRoute = "/issues/{id}/git-history"
)

// webhookRoutes are the paths Bitbucket may be configured to post to
var webhookRoutes = []string{"/git-hook", "/git_webhooks"}

// Server represents the main application server
type Server struct {
	*http.Server
	config      *config.Config
	logger      *slog.Logger
	metrics     *monitoring.PrometheusMetrics
	tracer      *monitoring.Tracer
	rateLimiter *HTTPRateLimiter
	health      *monitoring.HealthMonitor
	directory   *users.CachedDirectory
	userRepo    *storage.UserRepository
}

// New creates a new server instance on top of an opened and migrated database
func New(cfg *config.Config, logger *slog.Logger, db *storage.DB) (*Server, error) {
	activities := storage.NewActivityRepository(db)
	userRepo := storage.NewUserRepository(db)

	if len(cfg.Users) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
		defer cancel()
		if err := userRepo.Seed(ctx, seedUsers(cfg.Users)); err != nil {
			return nil, fmt.Errorf("failed to seed users: %w", err)
		}
		logger.Info("Seeded users from config", "count", len(cfg.Users))
	}

	directory := users.NewCachedDirectory(userRepo, cfg.UserCacheSize, cfg.UserCacheTTL)

	renderer, err := note.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}

	var tracer *monitoring.Tracer
	tracingConfig := &monitoring.TracingConfig{
		ServiceName:    version.AppName,
		ServiceVersion: version.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		EnableConsole:  cfg.TracingConsole,
		SampleRate:     cfg.TracingSampleRate,
	}
	if tracingConfig.Enabled() {
		tracer, err = monitoring.NewTracer(tracingConfig, logger)
		if err != nil {
			return nil, err
		}
	}

	metrics := monitoring.NewPrometheusMetrics(logger)

	interpreter := bitbucket.NewInterpreter(cfg, activities, directory, renderer, logger)
	interpreter.SetMetrics(metrics)
	hookHandler := bitbucket.NewHandler(interpreter, logger)
	historyHandler := NewHistoryHandler(activities, logger)

	health := monitoring.NewHealthMonitor(logger, version.Version)
	health.RegisterChecker("database", databaseChecker(db, activities))

	rateLimiter := NewHTTPRateLimiter(&RateLimiterConfig{
		DefaultRate:  cfg.RateLimit,
		DefaultBurst: cfg.RateBurst,
		PerIP:        true,
		PerEndpoint:  true,
	})
	limit := RateLimitMiddleware(rateLimiter)

	mux := http.NewServeMux()

	// Webhook method checks stay in the handler so GETs get a 405
	for _, route := range webhookRoutes {
		mux.Handle(route,
			metrics.Middleware(route)(limit(http.HandlerFunc(hookHandler.HandleWebhook))))
	}
	mux.Handle("GET "+historyRoute,
		metrics.Middleware(historyRoute)(limit(http.HandlerFunc(historyHandler.HandleList))))

	// Internal endpoints are not rate limited
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           monitoring.TracingMiddleware(tracer)(apperrors.RecoveryMiddleware(logger)(mux)),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return &Server{
		Server:      srv,
		config:      cfg,
		logger:      logger,
		metrics:     metrics,
		tracer:      tracer,
		rateLimiter: rateLimiter,
		health:      health,
		directory:   directory,
		userRepo:    userRepo,
	}, nil
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "port", s.config.Port)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and flushes traces
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)

	if s.tracer != nil {
		if terr := s.tracer.Shutdown(ctx); terr != nil {
			s.logger.Error("Failed to shut down tracer", "error", terr)
		}
	}
	s.directory.Purge()

	return err
}

// ReloadUsers seeds the users of a reloaded configuration and drops cached
// lookups so new mail addresses resolve immediately
func (s *Server) ReloadUsers(ctx context.Context, cfg *config.Config) error {
	if err := s.userRepo.Seed(ctx, seedUsers(cfg.Users)); err != nil {
		return fmt.Errorf("failed to reload users: %w", err)
	}
	s.directory.Purge()
	s.logger.Info("Reloaded users from config", "count", len(cfg.Users))
	return nil
}

// GetMetrics returns the metrics collector
func (s *Server) GetMetrics() *monitoring.PrometheusMetrics {
	return s.metrics
}

// GetRateLimiter returns the rate limiter instance
func (s *Server) GetRateLimiter() *HTTPRateLimiter {
	return s.rateLimiter
}

func seedUsers(seed []config.UserSeed) []users.User {
	out := make([]users.User, 0, len(seed))
	for _, u := range seed {
		out = append(out, users.User{ID: u.ID, Login: u.Login, Mail: u.Mail})
	}
	return out
}

// databaseChecker pings the database and reports the stored record count
func databaseChecker(db *storage.DB, store *storage.ActivityRepository) monitoring.HealthCheckerFunc {
	return func(ctx context.Context) (monitoring.HealthStatus, string, map[string]interface{}, error) {
		if err := db.PingContext(ctx); err != nil {
			return monitoring.HealthStatusUnhealthy, "", nil, err
		}

		count, err := store.Count(ctx)
		if err != nil {
			return monitoring.HealthStatusDegraded, "Database reachable but records unreadable",
				map[string]interface{}{"driver": db.Driver()}, nil
		}

		return monitoring.HealthStatusHealthy, "Database is healthy", map[string]interface{}{
			"driver":  db.Driver(),
			"records": count,
		}, nil
	}
}
