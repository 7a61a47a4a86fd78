// Package recap turns a wallet's normalized positions and fills into a
// WalletSummary: aggregate P&L, per-fill trade classification, and an ordered
// trade list ready for presentation.
package recap

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

// SymbolResolver maps opaque "@<index>" asset identifiers to tickers.
// Identifiers already in ticker form pass through unchanged.
type SymbolResolver interface {
	ResolveAsset(ctx context.Context, id string) string
}

// Builder constructs wallet summaries. Aside from symbol resolution it is a
// pure transformation of its inputs.
type Builder struct {
	resolver SymbolResolver
	logger   *slog.Logger
}

// NewBuilder creates a Builder. resolver may be nil, in which case raw asset
// identifiers are displayed as-is.
func NewBuilder(resolver SymbolResolver, logger *slog.Logger) *Builder {
	return &Builder{
		resolver: resolver,
		logger:   logger.With(slog.String("component", "recap")),
	}
}

// Build computes the summary for one wallet over one scan window. Degenerate
// input (no positions, no fills) yields a zeroed summary with
// HasActivity=false.
func (b *Builder) Build(ctx context.Context, wallet string, scan domain.ScanType, accountValue float64, positions []domain.Position, fills []domain.Fill) domain.WalletSummary {
	summary := domain.WalletSummary{
		Wallet:        wallet,
		WalletShort:   domain.ShortenAddress(wallet),
		AccountValue:  accountValue,
		OverallPnL:    overallPnL(positions),
		WindowPnL:     windowPnL(fills),
		TradeCount:    len(fills),
		PositionCount: len(positions),
		Trades:        b.buildTrades(ctx, fills),
		HasActivity:   len(fills) > 0,
		ScanType:      scan,
	}

	b.logger.Debug("built summary",
		slog.String("wallet", summary.WalletShort),
		slog.Int("trades", summary.TradeCount),
		slog.Float64("window_pnl", summary.WindowPnL),
	)
	return summary
}

// overallPnL sums unrealized P&L across current positions.
func overallPnL(positions []domain.Position) float64 {
	total := 0.0
	for _, p := range positions {
		total += p.UnrealizedPnL
	}
	return total
}

// windowPnL sums realized P&L across the window's fills.
func windowPnL(fills []domain.Fill) float64 {
	total := 0.0
	for _, f := range fills {
		total += f.ClosedPnL
	}
	return total
}

// buildTrades classifies each fill and returns the result sorted by timestamp
// descending (most recent first).
func (b *Builder) buildTrades(ctx context.Context, fills []domain.Fill) []domain.Trade {
	trades := make([]domain.Trade, 0, len(fills))
	for _, f := range fills {
		coin := f.Coin
		if b.resolver != nil && strings.HasPrefix(coin, "@") {
			coin = b.resolver.ResolveAsset(ctx, coin)
		}

		trades = append(trades, domain.Trade{
			Coin:        coin,
			Action:      Classify(f.Direction, f.StartPosition, f.SignedSize()),
			Direction:   f.Direction,
			Side:        f.Side,
			Price:       f.Price,
			Size:        f.Size,
			Value:       f.Price * f.Size,
			PnL:         f.ClosedPnL,
			TimestampMs: f.TimestampMs,
		})
	}

	sort.Slice(trades, func(i, j int) bool {
		return trades[i].TimestampMs > trades[j].TimestampMs
	})
	return trades
}

// Classify maps a fill to its trade action. The venue's direction label wins
// when it names the action outright ("Open Long", "Close Short"); otherwise
// the action is inferred from the position-size delta. The text match takes
// priority even where delta inference would disagree — this mirrors how the
// venue itself labels fills.
func Classify(direction string, startPosition, signedSize float64) domain.TradeAction {
	dir := strings.ToLower(direction)

	switch {
	case strings.Contains(dir, "open"):
		return domain.ActionOpen
	case strings.Contains(dir, "close"):
		return domain.ActionClose
	}

	after := startPosition + signedSize
	switch {
	case startPosition == 0:
		return domain.ActionOpen
	case math.Abs(after) < math.Abs(startPosition):
		return domain.ActionReduce
	case math.Abs(after) > math.Abs(startPosition):
		return domain.ActionIncrease
	default:
		return domain.ActionClose
	}
}
