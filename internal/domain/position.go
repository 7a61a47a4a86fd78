package domain

// PositionDirection is the side of an open perp position.
type PositionDirection string

const (
	DirectionLong  PositionDirection = "LONG"
	DirectionShort PositionDirection = "SHORT"
)

// AccountState is a wallet's normalized clearinghouse snapshot: total equity
// plus every open position.
type AccountState struct {
	Wallet    string
	Value     float64 // total account equity in USD
	Positions []Position
}

// Position is a wallet's open exposure in one instrument, re-derived fresh on
// every fetch. Positions with zero size are dropped during normalization and
// never reach this type.
type Position struct {
	Wallet           string
	Coin             string
	Direction        PositionDirection
	Size             float64 // magnitude, always > 0
	NotionalValue    float64 // magnitude of positionValue
	EntryPrice       float64
	CurrentPrice     float64 // approximated as |positionValue / szi|, see normalize
	LiquidationPrice *float64
	UnrealizedPnL    float64
	PnLPercent       float64
	MarginUsed       float64
}
