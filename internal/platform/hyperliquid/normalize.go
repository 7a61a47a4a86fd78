package hyperliquid

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

// normalizePositions converts the raw clearinghouse state into domain
// positions. Zero-size entries are discarded. The current price is
// approximated as |positionValue / szi| (the API exposes no mark price on this
// payload); this is documented behavior, not a shortcut to fix later.
func (c *Client) normalizePositions(wallet string, state *userStateResponse) []domain.Position {
	if state == nil {
		return nil
	}

	positions := make([]domain.Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		raw := ap.Position

		szi, err := strconv.ParseFloat(raw.Szi, 64)
		if err != nil {
			c.logPosSkip(wallet, raw.Coin, "szi", err)
			continue
		}
		if szi == 0 {
			continue
		}

		entryPx, err := strconv.ParseFloat(raw.EntryPx, 64)
		if err != nil {
			c.logPosSkip(wallet, raw.Coin, "entryPx", err)
			continue
		}
		positionValue, err := strconv.ParseFloat(raw.PositionValue, 64)
		if err != nil {
			c.logPosSkip(wallet, raw.Coin, "positionValue", err)
			continue
		}
		unrealizedPnl, err := strconv.ParseFloat(raw.UnrealizedPnl, 64)
		if err != nil {
			c.logPosSkip(wallet, raw.Coin, "unrealizedPnl", err)
			continue
		}
		marginUsed, err := strconv.ParseFloat(raw.MarginUsed, 64)
		if err != nil {
			c.logPosSkip(wallet, raw.Coin, "marginUsed", err)
			continue
		}

		direction := domain.DirectionLong
		if szi < 0 {
			direction = domain.DirectionShort
		}

		currentPrice := entryPx
		if szi != 0 {
			currentPrice = math.Abs(positionValue / szi)
		}

		pnlPercent := 0.0
		if positionValue != 0 {
			pnlPercent = unrealizedPnl / math.Abs(positionValue) * 100
		}

		var liqPx *float64
		if raw.LiquidationPx != nil {
			if v, err := strconv.ParseFloat(*raw.LiquidationPx, 64); err == nil {
				liqPx = &v
			}
		}

		positions = append(positions, domain.Position{
			Wallet:           wallet,
			Coin:             raw.Coin,
			Direction:        direction,
			Size:             math.Abs(szi),
			NotionalValue:    math.Abs(positionValue),
			EntryPrice:       entryPx,
			CurrentPrice:     currentPrice,
			LiquidationPrice: liqPx,
			UnrealizedPnL:    unrealizedPnl,
			PnLPercent:       pnlPercent,
			MarginUsed:       marginUsed,
		})
	}

	return positions
}

// normalizeFills converts raw fills into domain fills, keeping only those
// inside the window upper bound (the API's startTime is inclusive; endMs keeps
// the window half-open). Malformed fills are skipped, siblings still parse.
func (c *Client) normalizeFills(wallet string, raw []rawFill, endMs int64) []domain.Fill {
	fills := make([]domain.Fill, 0, len(raw))
	for _, rf := range raw {
		if rf.Time >= endMs {
			continue
		}

		px, err := strconv.ParseFloat(rf.Px, 64)
		if err != nil {
			c.logFillSkip(wallet, rf.Coin, "px", err)
			continue
		}
		sz, err := strconv.ParseFloat(rf.Sz, 64)
		if err != nil {
			c.logFillSkip(wallet, rf.Coin, "sz", err)
			continue
		}
		closedPnl, err := strconv.ParseFloat(rf.ClosedPnl, 64)
		if err != nil {
			c.logFillSkip(wallet, rf.Coin, "closedPnl", err)
			continue
		}
		startPosition, err := strconv.ParseFloat(rf.StartPosition, 64)
		if err != nil {
			c.logFillSkip(wallet, rf.Coin, "startPosition", err)
			continue
		}

		fills = append(fills, domain.Fill{
			Wallet:        wallet,
			Coin:          rf.Coin,
			Direction:     rf.Dir,
			Side:          rf.Side,
			Price:         px,
			Size:          math.Abs(sz),
			ClosedPnL:     closedPnl,
			TimestampMs:   rf.Time,
			StartPosition: startPosition,
		})
	}
	return fills
}

func (c *Client) logPosSkip(wallet, coin, field string, err error) {
	c.logger.Warn("skipping malformed position",
		slog.String("wallet", domain.ShortenAddress(wallet)),
		slog.String("coin", coin),
		slog.String("field", field),
		slog.String("error", err.Error()),
	)
}

func (c *Client) logFillSkip(wallet, coin, field string, err error) {
	c.logger.Warn("skipping malformed fill",
		slog.String("wallet", domain.ShortenAddress(wallet)),
		slog.String("coin", coin),
		slog.String("field", field),
		slog.String("error", err.Error()),
	)
}
