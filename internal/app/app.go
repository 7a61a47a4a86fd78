// Package app provides the top-level application lifecycle for the recap
// tracker. It wires together all dependencies (data source, recap builder,
// checkpoint store, and notification channels) and executes one batch run.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/hyperrecap/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies and executes one
// complete recap run. The process is a one-shot batch job driven by an outside
// scheduler; Run returns when the run finishes or the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	runner := NewRunner(a.cfg, deps.Source, deps.Builder, deps.Notifier, deps.Store, a.logger)
	stats, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("app: run: %w", err)
	}

	a.logger.Info("run finished",
		slog.String("run_id", stats.RunID),
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("failed", stats.Failed),
	)
	return nil
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
