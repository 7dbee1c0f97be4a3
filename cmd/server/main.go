// Package main provides the entry point for the git activity hook server.
// The server receives Bitbucket webhook deliveries and records them as
// git activity on tracked issues.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlet99/git-activity-hook/internal/config"
	apperrors "github.com/atlet99/git-activity-hook/internal/errors"
	"github.com/atlet99/git-activity-hook/internal/server"
	"github.com/atlet99/git-activity-hook/internal/storage"
	"github.com/atlet99/git-activity-hook/internal/version"
	"github.com/atlet99/git-activity-hook/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options are the command line flags
type options struct {
	showVersion bool
	migrateOnly bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet(version.AppName, flag.ContinueOnError)
	opts := &options{}
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.migrateOnly, "migrate", false, "Apply database migrations and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.showVersion {
		_, err := fmt.Fprintln(stdout, version.Get().String())
		return err
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Starting git activity hook",
		"version", version.Version,
		"commit", version.Commit,
		"dbDriver", cfg.DBDriver,
	)

	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()

	// The database may come up after the hook, e.g. under docker compose
	retryer := apperrors.NewRetryer(apperrors.DefaultRetryConfig(), log)
	if err := retryer.Execute(context.Background(), func(ctx context.Context, _ int) error {
		return db.PingContext(ctx)
	}); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		return err
	}
	if opts.migrateOnly {
		log.Info("Migrations applied")
		return nil
	}

	srv, err := server.New(cfg, log, db)
	if err != nil {
		return err
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if cfg.ConfigPath != "" && cfg.ReloadInterval > 0 {
		go watchConfig(ctx, cfg, srv, log)
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
	return nil
}

// watchConfig re-seeds the user directory whenever the YAML file changes
func watchConfig(ctx context.Context, cfg *config.Config, srv *server.Server, log *slog.Logger) {
	watcher := config.NewWatcher(cfg.ConfigPath, cfg.ReloadInterval, log)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			log.Error("Configuration watcher stopped", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case next := <-watcher.Changes():
			if err := srv.ReloadUsers(ctx, next); err != nil {
				log.Error("Failed to apply reloaded configuration", "error", err)
			}
		}
	}
}
