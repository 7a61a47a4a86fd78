// Package notify renders wallet summaries into chat messages and delivers
// them. Delivery is synchronous from the caller's point of view: the wallet
// loop blocks until success or failure is known, which keeps message ordering
// deterministic on a rate-sensitive channel.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

// Sender is a delivery channel for pre-formatted message text.
type Sender interface {
	// Send delivers one message. Formatting markup is HTML.
	Send(ctx context.Context, text string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// RunReport carries the per-run statistics shown in the completion message.
type RunReport struct {
	Succeeded   int
	Failed      int
	Filtered    int
	BotWallets  int
	TotalTrades int
}

// Notifier formats summaries and dispatches them through the configured
// senders. Sender failures are logged and reported as a boolean; they never
// propagate as errors past this boundary.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
	now     func() time.Time
}

// NewNotifier creates a Notifier delivering to the given senders.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SummarySender is an optional Sender extension for channels that can render
// a structured summary better than chat markup (the console table).
type SummarySender interface {
	SendSummary(ctx context.Context, s domain.WalletSummary) error
}

// SendWalletRecap delivers the per-wallet recap message. It reports whether
// every sender confirmed delivery.
func (n *Notifier) SendWalletRecap(ctx context.Context, summary domain.WalletSummary) bool {
	if len(n.senders) == 0 {
		n.logger.Warn("no senders configured, dropping message")
		return false
	}

	text := ""
	ok := true
	for _, s := range n.senders {
		var err error
		if ss, structured := s.(SummarySender); structured {
			err = ss.SendSummary(ctx, summary)
		} else {
			if text == "" {
				text = FormatWalletRecap(summary, n.now())
			}
			err = s.Send(ctx, text)
		}
		if err != nil {
			n.logger.Error("sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			ok = false
		}
	}
	return ok
}

// SendBotSummary delivers the aggregated bot-traders message. An empty list is
// a no-op reported as success.
func (n *Notifier) SendBotSummary(ctx context.Context, bots []domain.WalletSummary) bool {
	if len(bots) == 0 {
		return true
	}
	return n.dispatch(ctx, FormatBotSummary(bots, n.now()))
}

// SendStartup delivers the once-per-run startup notice.
func (n *Notifier) SendStartup(ctx context.Context, scan domain.ScanType, walletCount int) bool {
	return n.dispatch(ctx, FormatStartup(scan, walletCount, n.now()))
}

// SendCompletion delivers the once-per-run completion notice.
func (n *Notifier) SendCompletion(ctx context.Context, report RunReport) bool {
	return n.dispatch(ctx, FormatCompletion(report))
}

// dispatch sends text through every sender. A failure on one sender does not
// prevent delivery to the remaining senders; the result is true only when all
// senders succeeded.
func (n *Notifier) dispatch(ctx context.Context, text string) bool {
	if len(n.senders) == 0 {
		n.logger.Warn("no senders configured, dropping message")
		return false
	}

	ok := true
	for _, s := range n.senders {
		if err := s.Send(ctx, text); err != nil {
			n.logger.Error("sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			ok = false
		} else {
			n.logger.Debug("message sent", slog.String("sender", s.Name()))
		}
	}
	return ok
}
