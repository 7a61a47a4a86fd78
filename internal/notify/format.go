package notify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

// maxTradesShown caps the enumerated trade list per recap message. Telegram
// rejects messages over 4096 characters; 20 trades stays comfortably under.
const maxTradesShown = 20

// traderURL is the public dashboard a wallet link points at.
const traderURL = "https://hyperdash.info/trader/"

// FormatWalletRecap renders one wallet summary into an HTML message.
func FormatWalletRecap(s domain.WalletSummary, now time.Time) string {
	link := walletLink(s.Wallet, s.WalletShort)

	overallEmoji := "🟢"
	if s.OverallPnL < 0 {
		overallEmoji = "🔴"
	}
	windowEmoji := "📈"
	if s.WindowPnL < 0 {
		windowEmoji = "📉"
	}

	lines := []string{
		fmt.Sprintf("<b>📊 %s Recap: %s</b>", scanLabel(s.ScanType), link),
		fmt.Sprintf("<i>%s</i>", now.Format("Jan 02, 15:04 UTC")),
		"",
		fmt.Sprintf("%s <b>Overall P&amp;L:</b> %s", overallEmoji, signedUSD(s.OverallPnL, 2)),
		fmt.Sprintf("%s <b>%s P&amp;L:</b> %s", windowEmoji, scanLabel(s.ScanType), signedUSD(s.WindowPnL, 2)),
		fmt.Sprintf("📝 <b>Trades:</b> %d | <b>Positions:</b> %d", s.TradeCount, s.PositionCount),
	}
	if s.AccountValue > 0 {
		lines = append(lines, fmt.Sprintf("💰 <b>Account Value:</b> %s", usd(s.AccountValue, 2)))
	}

	if len(s.Trades) > 0 {
		lines = append(lines, "")
		if len(s.Trades) > maxTradesShown {
			lines = append(lines,
				fmt.Sprintf("<b>━━━ LATEST %d TRADES ━━━</b>", maxTradesShown),
				fmt.Sprintf("<i>Showing %d of %d total</i>", maxTradesShown, s.TradeCount),
			)
		} else {
			lines = append(lines, "<b>━━━ TRADES ━━━</b>")
		}
		lines = append(lines, "")

		shown := s.Trades
		if len(shown) > maxTradesShown {
			shown = shown[:maxTradesShown]
		}
		for _, t := range shown {
			lines = append(lines, formatTrade(t))
		}

		if remaining := len(s.Trades) - maxTradesShown; remaining > 0 {
			lines = append(lines, "", fmt.Sprintf("<i>... and %d more trades</i>", remaining))
		}
	} else {
		lines = append(lines, "", fmt.Sprintf("💤 <i>No trades in this %s window</i>", strings.ToLower(scanLabel(s.ScanType))))
	}

	return strings.Join(lines, "\n")
}

// formatTrade renders one classified trade as a three-line block.
func formatTrade(t domain.Trade) string {
	emoji, action := tradeBadge(t)

	pnlStr := ""
	if t.PnL != 0 {
		pnlStr = " | P&amp;L: " + signedUSD(t.PnL, 2)
	}

	return fmt.Sprintf("%s <b>%s</b> %s\n   %s @ %s%s\n   <i>%s</i>",
		emoji, t.Coin, action,
		usd(t.Value, 0), usd(t.Price, 2), pnlStr,
		t.Time().Format("15:04 UTC"),
	)
}

// tradeBadge picks the emoji and action label for a trade line.
func tradeBadge(t domain.Trade) (emoji, action string) {
	side := "SHORT"
	if t.IsLong() {
		side = "LONG"
	}

	switch t.Action {
	case domain.ActionOpen:
		if side == "LONG" {
			return "🟢", "OPEN LONG"
		}
		return "🔴", "OPEN SHORT"
	case domain.ActionClose:
		if side == "LONG" {
			return "✅", "CLOSE LONG"
		}
		return "❌", "CLOSE SHORT"
	case domain.ActionIncrease:
		if side == "LONG" {
			return "📈", "ADD LONG"
		}
		return "📉", "ADD SHORT"
	case domain.ActionReduce:
		return "📊", "REDUCE " + side
	default:
		return "🔵", string(t.Action)
	}
}

// FormatBotSummary renders the aggregated message for wallets routed to the
// bot bucket. Wallets are listed by window P&L, best first.
func FormatBotSummary(bots []domain.WalletSummary, now time.Time) string {
	var totalTrades int
	var totalWindow, totalOverall float64
	for _, b := range bots {
		totalTrades += b.TradeCount
		totalWindow += b.WindowPnL
		totalOverall += b.OverallPnL
	}

	overallEmoji := "🟢"
	if totalOverall < 0 {
		overallEmoji = "🔴"
	}
	windowEmoji := "📈"
	if totalWindow < 0 {
		windowEmoji = "📉"
	}

	lines := []string{
		"<b>🤖 Bot Traders Summary</b>",
		fmt.Sprintf("<i>%s</i>", now.Format("Jan 02, 15:04 UTC")),
		"",
		fmt.Sprintf("<b>%d automated trading wallets</b>", len(bots)),
		"",
		fmt.Sprintf("%s <b>Combined Overall P&amp;L:</b> %s", overallEmoji, signedUSD(totalOverall, 0)),
		fmt.Sprintf("%s <b>Combined Window P&amp;L:</b> %s", windowEmoji, signedUSD(totalWindow, 0)),
		fmt.Sprintf("📊 <b>Total Trades:</b> %s", groupDigits(fmt.Sprintf("%d", totalTrades))),
		"",
		"<b>━━━ INDIVIDUAL BOTS ━━━</b>",
		"",
	}

	sorted := make([]domain.WalletSummary, len(bots))
	copy(sorted, bots)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].WindowPnL > sorted[j-1].WindowPnL; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	for _, b := range sorted {
		pnlEmoji := "💚"
		if b.WindowPnL < 0 {
			pnlEmoji = "💔"
		}
		lines = append(lines, fmt.Sprintf("%s %s\n   Trades: %s | %s",
			pnlEmoji, walletLink(b.Wallet, b.WalletShort),
			groupDigits(fmt.Sprintf("%d", b.TradeCount)),
			signedUSD(b.WindowPnL, 0),
		))
	}

	return strings.Join(lines, "\n")
}

// FormatStartup renders the once-per-run startup notice.
func FormatStartup(scan domain.ScanType, walletCount int, now time.Time) string {
	return fmt.Sprintf(
		"🚀 <b>Hyperliquid %s Tracker Started</b>\n<i>%s</i>\n\nGenerating recaps for %d tracked wallets...",
		scanLabel(scan), now.Format("Jan 02, 2006 15:04 UTC"), walletCount,
	)
}

// FormatCompletion renders the once-per-run completion notice.
func FormatCompletion(r RunReport) string {
	lines := []string{
		"✅ <b>Recap Complete</b>",
		"",
		fmt.Sprintf("Sent: %d | Failed: %d | Filtered: %d", r.Succeeded, r.Failed, r.Filtered),
		fmt.Sprintf("Total trades: %s", groupDigits(fmt.Sprintf("%d", r.TotalTrades))),
	}
	if r.BotWallets > 0 {
		lines = append(lines, fmt.Sprintf("Bot wallets (summarized): %d", r.BotWallets))
	}
	return strings.Join(lines, "\n")
}

// scanLabel maps a scan type to its display label.
func scanLabel(scan domain.ScanType) string {
	switch scan {
	case domain.Scan1h:
		return "1H"
	case domain.ScanIncremental:
		return "Incremental"
	default:
		return "24H"
	}
}

func walletLink(wallet, short string) string {
	return fmt.Sprintf("<a href='%s%s'>%s</a>", traderURL, wallet, short)
}

// usd formats a dollar amount with thousands separators.
func usd(v float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, math.Abs(v))
	intPart, frac, hasFrac := strings.Cut(s, ".")
	out := "$" + groupDigits(intPart)
	if hasFrac {
		out += "." + frac
	}
	if v < 0 {
		return "-" + out
	}
	return out
}

// signedUSD is usd with an explicit "+" on non-negative amounts.
func signedUSD(v float64, decimals int) string {
	if v >= 0 {
		return "+" + usd(v, decimals)
	}
	return usd(v, decimals)
}

// groupDigits inserts commas into a decimal integer string.
func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
