package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

// ConsoleSender mirrors messages to a writer, for dry runs without a Telegram
// credential. Wallet recaps are rendered as a table instead of the chat
// markup.
type ConsoleSender struct {
	out io.Writer
}

// NewConsoleSender creates a ConsoleSender writing to stdout.
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{out: os.Stdout}
}

// NewConsoleWriter creates a ConsoleSender for tests.
func NewConsoleWriter(w io.Writer) *ConsoleSender {
	return &ConsoleSender{out: w}
}

// Send prints the message with HTML markup stripped.
func (c *ConsoleSender) Send(_ context.Context, text string) error {
	fmt.Fprintln(c.out, stripHTML(text))
	fmt.Fprintln(c.out)
	return nil
}

// SendSummary prints a wallet recap as a trade table.
func (c *ConsoleSender) SendSummary(_ context.Context, s domain.WalletSummary) error {
	fmt.Fprintf(c.out, "\n=== %s Recap %s — overall %s | window %s | %d trades | %d positions ===\n",
		scanLabel(s.ScanType), s.WalletShort,
		signedUSD(s.OverallPnL, 2), signedUSD(s.WindowPnL, 2),
		s.TradeCount, s.PositionCount,
	)

	if len(s.Trades) == 0 {
		fmt.Fprintln(c.out, "  no trades in window")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Coin", "Action", "Price", "Size", "Value", "PnL")

	shown := s.Trades
	if len(shown) > maxTradesShown {
		shown = shown[:maxTradesShown]
	}
	for _, t := range shown {
		_, action := tradeBadge(t)
		table.Append(
			t.Time().Format("01-02 15:04"),
			t.Coin,
			action,
			usd(t.Price, 2),
			fmt.Sprintf("%.4f", t.Size),
			usd(t.Value, 0),
			signedUSD(t.PnL, 2),
		)
	}
	table.Render()

	if remaining := len(s.Trades) - maxTradesShown; remaining > 0 {
		fmt.Fprintf(c.out, "  ... and %d more trades\n", remaining)
	}
	return nil
}

// Name returns the sender identifier.
func (c *ConsoleSender) Name() string {
	return "console"
}

var htmlTagRe = regexp.MustCompile(`</?[a-z][^>]*>`)

// stripHTML removes the limited markup the formatter emits.
func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	return strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">").Replace(s)
}
