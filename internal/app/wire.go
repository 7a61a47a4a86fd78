package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/hyperrecap/internal/config"
	"github.com/alanyoungcy/hyperrecap/internal/domain"
	"github.com/alanyoungcy/hyperrecap/internal/notify"
	"github.com/alanyoungcy/hyperrecap/internal/platform/hyperliquid"
	"github.com/alanyoungcy/hyperrecap/internal/recap"
	"github.com/alanyoungcy/hyperrecap/internal/state"
)

// Dependencies bundles everything a run needs. It is constructed by Wire and
// torn down by the returned cleanup function.
type Dependencies struct {
	Source   *hyperliquid.Client
	Builder  *recap.Builder
	Notifier *notify.Notifier
	Store    domain.CheckpointStore
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Data source ---
	deps.Source = hyperliquid.NewClient(hyperliquid.ClientConfig{
		BaseURL:         cfg.Hyperliquid.BaseURL,
		Timeout:         cfg.Hyperliquid.Timeout.Duration,
		MaxRetries:      cfg.Hyperliquid.MaxRetries,
		RetryDelay:      cfg.Hyperliquid.RetryDelay.Duration,
		RateLimitPerSec: cfg.Hyperliquid.RateLimitPerSec,
	}, logger)

	deps.Builder = recap.NewBuilder(deps.Source, logger)

	// --- Checkpoint store ---
	switch strings.ToLower(cfg.State.Backend) {
	case "redis":
		store, err := state.NewRedisStore(ctx, state.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis state: %w", err)
		}
		closers = append(closers, func() { _ = store.Close() })
		deps.Store = store
	default:
		deps.Store = state.NewFileStore(cfg.State.Path, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if !cfg.Notify.ConsoleOnly && cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ChatID))
	}
	if cfg.Notify.Console || cfg.Notify.ConsoleOnly {
		senders = append(senders, notify.NewConsoleSender())
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}
