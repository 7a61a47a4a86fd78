package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hyperrecap/internal/config"
	"github.com/alanyoungcy/hyperrecap/internal/domain"
	"github.com/alanyoungcy/hyperrecap/internal/notify"
	"github.com/alanyoungcy/hyperrecap/internal/recap"
)

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0x2222222222222222222222222222222222222222"
)

var fixedNow = time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	accounts map[string]domain.AccountState
	fills    map[string][]domain.Fill
	accErr   map[string]error
	fillErr  map[string]error

	fillWindows []fillWindow
}

type fillWindow struct {
	wallet     string
	start, end time.Time
}

func (f *fakeSource) AccountState(_ context.Context, wallet string) (domain.AccountState, error) {
	if err := f.accErr[wallet]; err != nil {
		return domain.AccountState{}, err
	}
	return f.accounts[wallet], nil
}

func (f *fakeSource) FillsInWindow(_ context.Context, wallet string, start, end time.Time) ([]domain.Fill, error) {
	f.fillWindows = append(f.fillWindows, fillWindow{wallet, start, end})
	if err := f.fillErr[wallet]; err != nil {
		return nil, err
	}
	return f.fills[wallet], nil
}

type fakeDispatcher struct {
	recaps      []domain.WalletSummary
	bots        [][]domain.WalletSummary
	startups    int
	completions []notify.RunReport
	recapOK     bool
}

func (d *fakeDispatcher) SendStartup(context.Context, domain.ScanType, int) bool {
	d.startups++
	return true
}

func (d *fakeDispatcher) SendWalletRecap(_ context.Context, s domain.WalletSummary) bool {
	d.recaps = append(d.recaps, s)
	return d.recapOK
}

func (d *fakeDispatcher) SendBotSummary(_ context.Context, bots []domain.WalletSummary) bool {
	d.bots = append(d.bots, bots)
	return true
}

func (d *fakeDispatcher) SendCompletion(_ context.Context, r notify.RunReport) bool {
	d.completions = append(d.completions, r)
	return true
}

type fakeStore struct {
	loaded  *domain.Checkpoint
	loadErr error
	saved   []domain.Checkpoint
	saveErr error
}

func (s *fakeStore) Load(context.Context) (*domain.Checkpoint, error) {
	return s.loaded, s.loadErr
}

func (s *fakeStore) Save(_ context.Context, cp domain.Checkpoint) error {
	s.saved = append(s.saved, cp)
	return s.saveErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(mode string, wallets ...string) *config.Config {
	cfg := config.Defaults()
	cfg.Notify.ConsoleOnly = true
	cfg.Mode = mode
	cfg.Wallets = wallets
	return &cfg
}

func newTestRunner(cfg *config.Config, source *fakeSource, dispatcher *fakeDispatcher, store *fakeStore) *Runner {
	logger := testLogger()
	r := NewRunner(cfg, source, recap.NewBuilder(nil, logger), dispatcher, store, logger)
	r.now = func() time.Time { return fixedNow }
	return r
}

func nFills(n int) []domain.Fill {
	fills := make([]domain.Fill, n)
	for i := range fills {
		fills[i] = domain.Fill{
			Coin: "BTC", Direction: "Open Long", Side: "B",
			Price: 60000, Size: 0.1, TimestampMs: int64(1724700000000 + i),
		}
	}
	return fills
}

func TestRun_HappyPath(t *testing.T) {
	source := &fakeSource{
		accounts: map[string]domain.AccountState{
			walletA: {Wallet: walletA, Value: 1000, Positions: []domain.Position{{Coin: "BTC", UnrealizedPnL: 50}}},
		},
		fills: map[string][]domain.Fill{walletA: nFills(3)},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{}

	r := newTestRunner(testConfig("24h", walletA), source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Succeeded)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Filtered)
	assert.Equal(t, 3, stats.TotalTrades)
	assert.NotEmpty(t, stats.RunID)

	assert.Equal(t, 1, dispatcher.startups)
	require.Len(t, dispatcher.recaps, 1)
	assert.InDelta(t, 50, dispatcher.recaps[0].OverallPnL, 1e-9)
	assert.Empty(t, dispatcher.bots)
	require.Len(t, dispatcher.completions, 1)
	assert.Equal(t, 1, dispatcher.completions[0].Succeeded)

	// 24h trailing window ending at the run start.
	require.Len(t, source.fillWindows, 1)
	assert.Equal(t, fixedNow.Add(-24*time.Hour), source.fillWindows[0].start)
	assert.Equal(t, fixedNow, source.fillWindows[0].end)

	// Checkpoint saved once with the run start time.
	require.Len(t, store.saved, 1)
	assert.Equal(t, fixedNow.UnixMilli(), store.saved[0].LastRunMs)
	assert.Equal(t, domain.Scan24h, store.saved[0].ScanType)
}

func TestRun_BotWalletRoutedToSummary(t *testing.T) {
	source := &fakeSource{
		accounts: map[string]domain.AccountState{walletA: {Wallet: walletA}},
		fills:    map[string][]domain.Fill{walletA: nFills(600)},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{}

	cfg := testConfig("24h", walletA) // threshold defaults to 500
	r := newTestRunner(cfg, source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.Succeeded)
	assert.Equal(t, 1, stats.Filtered)
	assert.Equal(t, 1, stats.BotWallets)
	assert.Empty(t, dispatcher.recaps)
	require.Len(t, dispatcher.bots, 1)
	require.Len(t, dispatcher.bots[0], 1)
	assert.Equal(t, 600, dispatcher.bots[0][0].TradeCount)
}

func TestRun_InactiveWalletFiltered(t *testing.T) {
	source := &fakeSource{
		accounts: map[string]domain.AccountState{walletA: {Wallet: walletA}},
		fills:    map[string][]domain.Fill{walletA: nil}, // zero trades < min 1
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{}

	r := newTestRunner(testConfig("24h", walletA), source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Filtered)
	assert.Empty(t, dispatcher.recaps)
	assert.Empty(t, dispatcher.bots)
}

func TestRun_FilterDisabledSendsEverything(t *testing.T) {
	source := &fakeSource{
		accounts: map[string]domain.AccountState{walletA: {Wallet: walletA}},
		fills:    map[string][]domain.Fill{walletA: nil},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{}

	cfg := testConfig("24h", walletA)
	cfg.Filter.Enabled = false
	r := newTestRunner(cfg, source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Succeeded)
	assert.Zero(t, stats.Filtered)
	require.Len(t, dispatcher.recaps, 1)
	assert.False(t, dispatcher.recaps[0].HasActivity)
}

func TestRun_BothFetchesFailCountsAsFailed(t *testing.T) {
	boom := errors.New("boom")
	source := &fakeSource{
		accErr:  map[string]error{walletA: boom},
		fillErr: map[string]error{walletA: boom},
		accounts: map[string]domain.AccountState{
			walletB: {Wallet: walletB},
		},
		fills: map[string][]domain.Fill{walletB: nFills(2)},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{}

	r := newTestRunner(testConfig("24h", walletA, walletB), source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	// Wallet A failed outright; wallet B still processed.
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Succeeded)
	require.Len(t, dispatcher.recaps, 1)
	assert.Equal(t, walletB, dispatcher.recaps[0].Wallet)
}

func TestRun_PartialFetchDegrades(t *testing.T) {
	source := &fakeSource{
		accErr: map[string]error{walletA: errors.New("boom")},
		fills:  map[string][]domain.Fill{walletA: nFills(2)},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{}

	r := newTestRunner(testConfig("24h", walletA), source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	// Positions degraded to empty, fills still recapped.
	assert.Equal(t, 1, stats.Succeeded)
	require.Len(t, dispatcher.recaps, 1)
	assert.Zero(t, dispatcher.recaps[0].PositionCount)
	assert.Equal(t, 2, dispatcher.recaps[0].TradeCount)
}

func TestRun_DeliveryFailureCountsAsFailed(t *testing.T) {
	source := &fakeSource{
		accounts: map[string]domain.AccountState{walletA: {Wallet: walletA}},
		fills:    map[string][]domain.Fill{walletA: nFills(2)},
	}
	dispatcher := &fakeDispatcher{recapOK: false}
	store := &fakeStore{}

	r := newTestRunner(testConfig("24h", walletA), source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Succeeded)
	assert.Zero(t, stats.TotalTrades)
}

func TestRun_IncrementalUsesCheckpoint(t *testing.T) {
	last := fixedNow.Add(-3 * time.Hour)
	source := &fakeSource{
		accounts: map[string]domain.AccountState{walletA: {Wallet: walletA}},
		fills:    map[string][]domain.Fill{walletA: nFills(1)},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{loaded: &domain.Checkpoint{LastRunMs: last.UnixMilli(), ScanType: domain.ScanIncremental}}

	r := newTestRunner(testConfig("incremental", walletA), source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, last, stats.WindowStart)
	assert.Equal(t, fixedNow, stats.WindowEnd)
	require.Len(t, source.fillWindows, 1)
	assert.Equal(t, last, source.fillWindows[0].start)

	require.Len(t, store.saved, 1)
	assert.Equal(t, domain.ScanIncremental, store.saved[0].ScanType)
}

func TestRun_IncrementalWithoutCheckpointFallsBack(t *testing.T) {
	source := &fakeSource{
		accounts: map[string]domain.AccountState{walletA: {Wallet: walletA}},
		fills:    map[string][]domain.Fill{walletA: nFills(1)},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{} // no prior checkpoint

	r := newTestRunner(testConfig("incremental", walletA), source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	// Falls back to a trailing 24h window; the saved checkpoint still
	// records the incremental mode so the next run is properly incremental.
	assert.Equal(t, fixedNow.Add(-24*time.Hour), stats.WindowStart)
	require.Len(t, store.saved, 1)
	assert.Equal(t, domain.ScanIncremental, store.saved[0].ScanType)
}

func TestRun_OneHourWindow(t *testing.T) {
	source := &fakeSource{
		accounts: map[string]domain.AccountState{walletA: {Wallet: walletA}},
		fills:    map[string][]domain.Fill{walletA: nFills(1)},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{}

	r := newTestRunner(testConfig("1h", walletA), source, dispatcher, store)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixedNow.Add(-time.Hour), stats.WindowStart)
	assert.Equal(t, domain.Scan1h, stats.ScanType)
}

func TestRun_SaveFailureDoesNotFailRun(t *testing.T) {
	source := &fakeSource{
		accounts: map[string]domain.AccountState{walletA: {Wallet: walletA}},
		fills:    map[string][]domain.Fill{walletA: nFills(1)},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{saveErr: errors.New("disk full")}

	r := newTestRunner(testConfig("24h", walletA), source, dispatcher, store)
	_, err := r.Run(context.Background())
	assert.NoError(t, err)
}

func TestRun_CancelledContextStopsLoop(t *testing.T) {
	source := &fakeSource{
		accounts: map[string]domain.AccountState{walletA: {Wallet: walletA}},
		fills:    map[string][]domain.Fill{walletA: nFills(1)},
	}
	dispatcher := &fakeDispatcher{recapOK: true}
	store := &fakeStore{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(testConfig("24h", walletA), source, dispatcher, store)
	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dispatcher.recaps)
}
