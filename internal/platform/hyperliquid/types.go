package hyperliquid

// infoRequest is the request envelope for the Hyperliquid /info endpoint.
// Every read call is a POST with a "type" discriminator.
type infoRequest struct {
	Type            string `json:"type"`
	User            string `json:"user,omitempty"`
	StartTime       int64  `json:"startTime,omitempty"`
	EndTime         int64  `json:"endTime,omitempty"`
	AggregateByTime bool   `json:"aggregateByTime,omitempty"`
}

// userStateResponse is the clearinghouseState payload. Numeric fields arrive
// as JSON strings and are parsed during normalization.
type userStateResponse struct {
	AssetPositions []assetPosition `json:"assetPositions"`
	MarginSummary  marginSummary   `json:"marginSummary"`
}

type assetPosition struct {
	Type     string      `json:"type"`
	Position rawPosition `json:"position"`
}

type rawPosition struct {
	Coin          string  `json:"coin"`
	Szi           string  `json:"szi"`
	EntryPx       string  `json:"entryPx"`
	PositionValue string  `json:"positionValue"`
	UnrealizedPnl string  `json:"unrealizedPnl"`
	LiquidationPx *string `json:"liquidationPx"`
	MarginUsed    string  `json:"marginUsed"`
}

type marginSummary struct {
	AccountValue string `json:"accountValue"`
	TotalNtlPos  string `json:"totalNtlPos"`
	TotalRawUsd  string `json:"totalRawUsd"`
}

// rawFill is one entry of the userFillsByTime response.
type rawFill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"` // "B" buy, "A" sell
	Dir           string `json:"dir"`  // e.g. "Open Long", "Close Short"
	Time          int64  `json:"time"` // unix milliseconds
	StartPosition string `json:"startPosition"`
	ClosedPnl     string `json:"closedPnl"`
	Hash          string `json:"hash"`
	Oid           int64  `json:"oid"`
	Fee           string `json:"fee"`
}

// metaResponse is the perp metadata payload. The position of an asset in
// Universe is the numeric index behind "@<index>" symbols.
type metaResponse struct {
	Universe []assetMeta `json:"universe"`
}

type assetMeta struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	MaxLeverage int    `json:"maxLeverage"`
}
