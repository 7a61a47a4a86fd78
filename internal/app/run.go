package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/hyperrecap/internal/config"
	"github.com/alanyoungcy/hyperrecap/internal/domain"
	"github.com/alanyoungcy/hyperrecap/internal/notify"
	"github.com/alanyoungcy/hyperrecap/internal/recap"
)

// DataSource is the upstream read API as the orchestrator sees it.
type DataSource interface {
	AccountState(ctx context.Context, wallet string) (domain.AccountState, error)
	FillsInWindow(ctx context.Context, wallet string, start, end time.Time) ([]domain.Fill, error)
}

// Dispatcher delivers formatted recap messages, reporting success as a bool.
type Dispatcher interface {
	SendStartup(ctx context.Context, scan domain.ScanType, walletCount int) bool
	SendWalletRecap(ctx context.Context, summary domain.WalletSummary) bool
	SendBotSummary(ctx context.Context, bots []domain.WalletSummary) bool
	SendCompletion(ctx context.Context, report notify.RunReport) bool
}

// RunStats aggregates the outcome of one run.
type RunStats struct {
	RunID       string
	ScanType    domain.ScanType
	WindowStart time.Time
	WindowEnd   time.Time
	Succeeded   int
	Failed      int
	Filtered    int
	BotWallets  int
	TotalTrades int
}

// Runner drives one complete recap run: resolve the scan window, process each
// wallet in order, send the bot summary, and persist the checkpoint. Wallets
// are strictly sequential; both the venue API and Telegram throttle bursts,
// so serialization is the rate-limit strategy.
type Runner struct {
	cfg      *config.Config
	source   DataSource
	builder  *recap.Builder
	notifier Dispatcher
	store    domain.CheckpointStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates a Runner over the wired dependencies.
func NewRunner(cfg *config.Config, source DataSource, builder *recap.Builder, notifier Dispatcher, store domain.CheckpointStore, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		source:   source,
		builder:  builder,
		notifier: notifier,
		store:    store,
		logger:   logger.With(slog.String("component", "runner")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one complete recap run. Per-wallet failures are absorbed into
// the returned stats; Run itself only fails on context cancellation.
func (r *Runner) Run(ctx context.Context) (RunStats, error) {
	runStart := r.now()
	scan := r.cfg.ScanType()

	stats := RunStats{
		RunID:    uuid.NewString(),
		ScanType: scan,
	}
	logger := r.logger.With(slog.String("run_id", stats.RunID))

	stats.WindowStart, stats.WindowEnd = r.resolveWindow(ctx, logger, scan, runStart)

	wallets := r.cfg.NormalizedWallets()
	logger.Info("starting recap run",
		slog.String("scan_type", string(scan)),
		slog.Int("wallets", len(wallets)),
		slog.Time("window_start", stats.WindowStart),
		slog.Time("window_end", stats.WindowEnd),
	)

	r.notifier.SendStartup(ctx, scan, len(wallets))

	var bots []domain.WalletSummary
	for _, wallet := range wallets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		r.processWallet(ctx, logger, wallet, scan, stats.WindowStart, stats.WindowEnd, &stats, &bots)
	}

	if len(bots) > 0 {
		stats.BotWallets = len(bots)
		if !r.notifier.SendBotSummary(ctx, bots) {
			logger.Warn("failed to send bot summary")
		}
	}

	r.notifier.SendCompletion(ctx, notify.RunReport{
		Succeeded:   stats.Succeeded,
		Failed:      stats.Failed,
		Filtered:    stats.Filtered,
		BotWallets:  stats.BotWallets,
		TotalTrades: stats.TotalTrades,
	})

	// The checkpoint records the run's start, not its end: fills that
	// executed while the run was in flight fall into the next window.
	if err := r.store.Save(ctx, domain.Checkpoint{
		LastRunMs: runStart.UnixMilli(),
		ScanType:  scan,
	}); err != nil {
		// A lost checkpoint only widens the next incremental run.
		logger.Warn("failed to save checkpoint", slog.String("error", err.Error()))
	}

	logger.Info("recap run complete",
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("failed", stats.Failed),
		slog.Int("filtered", stats.Filtered),
		slog.Int("bot_wallets", stats.BotWallets),
		slog.Int("total_trades", stats.TotalTrades),
	)
	return stats, nil
}

// resolveWindow derives the fill window for this run. Incremental runs start
// at the saved checkpoint; when none exists the run falls back to a trailing
// 24h window (and still saves a fresh checkpoint afterwards, so subsequent
// runs are properly incremental).
func (r *Runner) resolveWindow(ctx context.Context, logger *slog.Logger, scan domain.ScanType, runStart time.Time) (time.Time, time.Time) {
	switch scan {
	case domain.Scan1h:
		return runStart.Add(-time.Hour), runStart
	case domain.ScanIncremental:
		cp, err := r.store.Load(ctx)
		if err != nil {
			logger.Warn("checkpoint load failed, falling back to 24h window",
				slog.String("error", err.Error()),
			)
			return runStart.Add(-24 * time.Hour), runStart
		}
		if cp == nil {
			logger.Info("no checkpoint found, falling back to 24h window")
			return runStart.Add(-24 * time.Hour), runStart
		}
		return time.UnixMilli(cp.LastRunMs).UTC(), runStart
	default:
		return runStart.Add(-24 * time.Hour), runStart
	}
}

// processWallet runs the fetch → build → classify → dispatch sequence for one
// wallet. Every failure is absorbed into stats; the loop never aborts.
func (r *Runner) processWallet(ctx context.Context, logger *slog.Logger, wallet string, scan domain.ScanType, windowStart, windowEnd time.Time, stats *RunStats, bots *[]domain.WalletSummary) {
	short := domain.ShortenAddress(wallet)

	account, accErr := r.source.AccountState(ctx, wallet)
	if accErr != nil {
		logger.Warn("account state fetch failed, degrading to empty positions",
			slog.String("wallet", short),
			slog.String("error", accErr.Error()),
		)
	}

	fills, fillErr := r.source.FillsInWindow(ctx, wallet, windowStart, windowEnd)
	if fillErr != nil {
		logger.Warn("fills fetch failed, degrading to empty window",
			slog.String("wallet", short),
			slog.String("error", fillErr.Error()),
		)
	}

	// Nothing fetched at all: count the wallet as failed instead of
	// misreporting it as merely inactive.
	if accErr != nil && fillErr != nil {
		stats.Failed++
		return
	}

	summary := r.builder.Build(ctx, wallet, scan, account.Value, account.Positions, fills)

	if r.cfg.Filter.Enabled {
		if summary.TradeCount > r.cfg.Filter.BotTradeThreshold {
			logger.Info("bot trader routed to summary bucket",
				slog.String("wallet", short),
				slog.Int("trades", summary.TradeCount),
			)
			*bots = append(*bots, summary)
			stats.Filtered++
			return
		}
		if summary.TradeCount < r.cfg.Filter.MinTradesPerRun {
			logger.Info("inactive wallet filtered",
				slog.String("wallet", short),
				slog.Int("trades", summary.TradeCount),
			)
			stats.Filtered++
			return
		}
	}

	if r.notifier.SendWalletRecap(ctx, summary) {
		stats.Succeeded++
		stats.TotalTrades += summary.TradeCount
		logger.Info("recap sent",
			slog.String("wallet", short),
			slog.Int("trades", summary.TradeCount),
			slog.Float64("window_pnl", summary.WindowPnL),
		)
	} else {
		stats.Failed++
		logger.Warn("recap delivery failed", slog.String("wallet", short))
	}
}
