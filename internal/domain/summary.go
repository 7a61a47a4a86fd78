package domain

import "strings"

// WalletSummary is the per-wallet output of one recap run. OverallPnL reflects
// current open exposure (unrealized); WindowPnL reflects realized events
// inside the scan window. The two are independent sums and must never be
// conflated.
type WalletSummary struct {
	Wallet        string
	WalletShort   string
	AccountValue  float64
	OverallPnL    float64
	WindowPnL     float64
	TradeCount    int
	PositionCount int
	Trades        []Trade // sorted by timestamp descending
	HasActivity   bool
	ScanType      ScanType
}

// ShortenAddress formats a wallet address for display (0x1a2b3c…7x8y). The
// full address is kept separately for linking.
func ShortenAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
