package domain

import "time"

// Fill is a single executed trade reported by the venue for one wallet.
// Numeric fields are already parsed from the API's string encoding; anything
// that failed to parse was skipped during normalization.
type Fill struct {
	Wallet        string
	Coin          string  // may still be in "@<index>" form before resolution
	Direction     string  // venue label, e.g. "Open Long", "Close Short"
	Side          string  // "B" buy, "A" sell
	Price         float64
	Size          float64 // magnitude, >= 0
	ClosedPnL     float64 // realized P&L attributed to this fill
	TimestampMs   int64   // unix milliseconds
	StartPosition float64 // signed position size immediately before the fill
}

// SignedSize returns the fill size with its direction applied: buys add to the
// position, sells subtract.
func (f Fill) SignedSize() float64 {
	if f.Side == "A" {
		return -f.Size
	}
	return f.Size
}

// Time returns the fill's execution time.
func (f Fill) Time() time.Time {
	return time.UnixMilli(f.TimestampMs).UTC()
}

// TradeAction classifies what a fill did to the wallet's position.
type TradeAction string

const (
	ActionOpen     TradeAction = "OPEN"
	ActionIncrease TradeAction = "INCREASE"
	ActionReduce   TradeAction = "REDUCE"
	ActionClose    TradeAction = "CLOSE"
)

// Trade is a Fill enriched with its classification and display fields.
type Trade struct {
	Coin        string
	Action      TradeAction
	Direction   string // raw venue label, kept for display
	Side        string
	Price       float64
	Size        float64 // magnitude
	Value       float64 // price * size
	PnL         float64
	TimestampMs int64
}

// Time returns the trade's execution time.
func (t Trade) Time() time.Time {
	return time.UnixMilli(t.TimestampMs).UTC()
}

// IsLong reports whether the venue direction label refers to a long position.
func (t Trade) IsLong() bool {
	return containsFold(t.Direction, "long")
}
