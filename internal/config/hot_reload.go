package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Watcher polls the YAML config file and publishes a freshly loaded
// Config whenever the file changes. Only the latest unread Config is kept.
type Watcher struct {
	path       string
	interval   time.Duration
	logger     *slog.Logger
	reloadChan chan *Config
	modTime    time.Time
	size       int64
}

// NewWatcher creates a watcher for the file at path
func NewWatcher(path string, interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:       path,
		interval:   interval,
		logger:     logger,
		reloadChan: make(chan *Config, 1),
	}
}

// Changes returns the channel of reloaded configurations
func (w *Watcher) Changes() <-chan *Config {
	return w.reloadChan
}

// Run watches the file until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.snapshot(); err != nil {
		return err
	}

	w.logger.Info("Starting configuration watcher",
		"config_file", w.path,
		"check_interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Check(); err != nil {
				w.logger.Error("Error checking for configuration changes", "error", err)
			}
		}
	}
}

// Check reloads the file if its size or modification time changed
func (w *Watcher) Check() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if !info.ModTime().After(w.modTime) && info.Size() == w.size {
		return nil
	}

	w.logger.Info("Configuration file changed",
		"file", w.path,
		"old_mod_time", w.modTime,
		"new_mod_time", info.ModTime())

	cfg, err := LoadFile(w.path)
	if err != nil {
		return err
	}
	w.modTime = info.ModTime()
	w.size = info.Size()

	// Replace any unread config so consumers see the latest file
	select {
	case <-w.reloadChan:
	default:
	}
	w.reloadChan <- cfg
	return nil
}

func (w *Watcher) snapshot() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	w.modTime = info.ModTime()
	w.size = info.Size()
	return nil
}
