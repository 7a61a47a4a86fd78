package hyperliquid

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:         baseURL,
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		RetryDelay:      time.Millisecond,
		RateLimitPerSec: 1000,
	}, testLogger())
}

func TestAccountState(t *testing.T) {
	liq := "58000.0"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "clearinghouseState", req.Type)
		assert.Equal(t, "0xabc", req.User)

		json.NewEncoder(w).Encode(userStateResponse{
			MarginSummary: marginSummary{AccountValue: "125000.5"},
			AssetPositions: []assetPosition{
				{Position: rawPosition{
					Coin: "BTC", Szi: "2.0", EntryPx: "60000",
					PositionValue: "124000", UnrealizedPnl: "2000",
					MarginUsed: "12400", LiquidationPx: &liq,
				}},
				{Position: rawPosition{
					Coin: "ETH", Szi: "0", EntryPx: "3000",
					PositionValue: "0", UnrealizedPnl: "0", MarginUsed: "0",
				}},
				{Position: rawPosition{
					Coin: "SOL", Szi: "-100", EntryPx: "150",
					PositionValue: "-14000", UnrealizedPnl: "1000",
					MarginUsed: "1400",
				}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	state, err := c.AccountState(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.InDelta(t, 125000.5, state.Value, 1e-9)
	// Zero-size position is dropped.
	require.Len(t, state.Positions, 2)

	btc := state.Positions[0]
	assert.Equal(t, domain.DirectionLong, btc.Direction)
	assert.InDelta(t, 2.0, btc.Size, 1e-9)
	// Mark price is |positionValue / szi|.
	assert.InDelta(t, 62000, btc.CurrentPrice, 1e-9)
	require.NotNil(t, btc.LiquidationPrice)
	assert.InDelta(t, 58000, *btc.LiquidationPrice, 1e-9)
	assert.InDelta(t, 2000.0/124000*100, btc.PnLPercent, 1e-9)

	sol := state.Positions[1]
	assert.Equal(t, domain.DirectionShort, sol.Direction)
	assert.InDelta(t, 100, sol.Size, 1e-9)
	assert.InDelta(t, 14000, sol.NotionalValue, 1e-9)
	assert.InDelta(t, 140, sol.CurrentPrice, 1e-9)
	assert.Nil(t, sol.LiquidationPrice)
}

func TestAccountState_MalformedPositionSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(userStateResponse{
			MarginSummary: marginSummary{AccountValue: "not-a-number"},
			AssetPositions: []assetPosition{
				{Position: rawPosition{
					Coin: "BTC", Szi: "garbage", EntryPx: "60000",
					PositionValue: "124000", UnrealizedPnl: "2000", MarginUsed: "1",
				}},
				{Position: rawPosition{
					Coin: "ETH", Szi: "1", EntryPx: "3000",
					PositionValue: "3000", UnrealizedPnl: "-50", MarginUsed: "300",
				}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	state, err := c.AccountState(context.Background(), "0xabc")
	require.NoError(t, err)

	// Unparsable account value degrades to zero instead of failing the call.
	assert.Zero(t, state.Value)
	require.Len(t, state.Positions, 1)
	assert.Equal(t, "ETH", state.Positions[0].Coin)
}

func TestFillsInWindow(t *testing.T) {
	start := time.UnixMilli(1_000_000)
	end := time.UnixMilli(2_000_000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "userFillsByTime", req.Type)
		assert.Equal(t, start.UnixMilli(), req.StartTime)
		assert.Equal(t, end.UnixMilli(), req.EndTime)
		assert.True(t, req.AggregateByTime)

		json.NewEncoder(w).Encode([]rawFill{
			{Coin: "BTC", Px: "60000", Sz: "-0.5", Side: "A", Dir: "Close Long", Time: 1_500_000, StartPosition: "0.5", ClosedPnl: "250"},
			{Coin: "ETH", Px: "bad", Sz: "1", Side: "B", Dir: "Open Long", Time: 1_600_000, StartPosition: "0", ClosedPnl: "0"},
			{Coin: "SOL", Px: "150", Sz: "10", Side: "B", Dir: "Open Long", Time: 2_000_000, StartPosition: "0", ClosedPnl: "0"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	fills, err := c.FillsInWindow(context.Background(), "0xabc", start, end)
	require.NoError(t, err)

	// Malformed ETH fill skipped; SOL fill at the window upper bound excluded.
	require.Len(t, fills, 1)
	f := fills[0]
	assert.Equal(t, "BTC", f.Coin)
	assert.InDelta(t, 0.5, f.Size, 1e-9) // magnitude
	assert.InDelta(t, -0.5, f.SignedSize(), 1e-9)
	assert.InDelta(t, 250, f.ClosedPnL, 1e-9)
}

func TestDoInfo_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]rawFill{})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FillsInWindow(context.Background(), "0xabc", time.UnixMilli(0), time.UnixMilli(1000))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoInfo_ExhaustedRetriesIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FillsInWindow(context.Background(), "0xabc", time.UnixMilli(0), time.UnixMilli(1000))
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestDoInfo_ClientErrorFailsFast(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FillsInWindow(context.Background(), "0xabc", time.UnixMilli(0), time.UnixMilli(1000))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsUnavailable(err))
}

func TestResolveAsset(t *testing.T) {
	var metaCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "meta", req.Type)
		metaCalls++
		json.NewEncoder(w).Encode(metaResponse{Universe: []assetMeta{
			{Name: "BTC"}, {Name: "ETH"}, {Name: "HYPE"},
		}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	ctx := context.Background()

	assert.Equal(t, "HYPE", c.ResolveAsset(ctx, "@2"))
	assert.Equal(t, "BTC", c.ResolveAsset(ctx, "@0"))
	assert.Equal(t, "@99", c.ResolveAsset(ctx, "@99"))
	assert.Equal(t, "SOL", c.ResolveAsset(ctx, "SOL"))

	// Mapping is cached after the first successful fetch.
	assert.Equal(t, 1, metaCalls)
}
