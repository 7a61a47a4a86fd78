// Package config defines the configuration for the hyperrecap tracker and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by HYPERRECAP_* environment variables.
type Config struct {
	Telegram    TelegramConfig    `toml:"telegram"`
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Filter      FilterConfig      `toml:"filter"`
	State       StateConfig       `toml:"state"`
	Redis       RedisConfig       `toml:"redis"`
	Notify      NotifyConfig      `toml:"notify"`
	Wallets     []string          `toml:"wallets"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// TelegramConfig holds the bot credential and target chat.
type TelegramConfig struct {
	Token  string `toml:"token"`
	ChatID string `toml:"chat_id"`
}

// HyperliquidConfig holds the upstream read-API endpoint and retry policy.
type HyperliquidConfig struct {
	BaseURL         string   `toml:"base_url"`
	Timeout         duration `toml:"timeout"`
	MaxRetries      int      `toml:"max_retries"`
	RetryDelay      duration `toml:"retry_delay"`
	RateLimitPerSec int      `toml:"rate_limit_per_sec"`
}

// FilterConfig holds the bot/inactivity routing thresholds.
type FilterConfig struct {
	Enabled             bool    `toml:"enabled"`
	BotTradeThreshold   int     `toml:"bot_trade_threshold"`
	MinTradesPerRun     int     `toml:"min_trades_per_run"`
	PositionThreshold   float64 `toml:"position_threshold"`
	SizeChangeThreshold float64 `toml:"size_change_threshold"`
}

// StateConfig selects where the run checkpoint is persisted.
type StateConfig struct {
	Backend string `toml:"backend"` // "file" or "redis"
	Path    string `toml:"path"`
}

// RedisConfig holds Redis connection parameters for the redis state backend.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// NotifyConfig holds delivery-channel switches.
type NotifyConfig struct {
	// Console mirrors every message to stdout; useful for dry runs without a
	// Telegram credential.
	Console bool `toml:"console"`
	// ConsoleOnly disables Telegram entirely.
	ConsoleOnly bool `toml:"console_only"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "10s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Hyperliquid: HyperliquidConfig{
			BaseURL:         "https://api.hyperliquid.xyz",
			Timeout:         duration{10 * time.Second},
			MaxRetries:      3,
			RetryDelay:      duration{5 * time.Second},
			RateLimitPerSec: 5,
		},
		Filter: FilterConfig{
			Enabled:             true,
			BotTradeThreshold:   500,
			MinTradesPerRun:     1,
			PositionThreshold:   50_000,
			SizeChangeThreshold: 50_000,
		},
		State: StateConfig{
			Backend: "file",
			Path:    "data/state.json",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		Mode:     string(domain.Scan24h),
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validStateBackends enumerates the accepted values for StateConfig.Backend.
var validStateBackends = map[string]bool{
	"file":  true,
	"redis": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !domain.ScanType(strings.ToLower(c.Mode)).Valid() {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: 24h, 1h, incremental)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Telegram — required unless running console-only.
	if !c.Notify.ConsoleOnly {
		if c.Telegram.Token == "" {
			errs = append(errs, "telegram: token must not be empty (or set notify.console_only)")
		}
		if c.Telegram.ChatID == "" {
			errs = append(errs, "telegram: chat_id must not be empty (or set notify.console_only)")
		}
	}

	if c.Hyperliquid.BaseURL == "" {
		errs = append(errs, "hyperliquid: base_url must not be empty")
	}
	if c.Hyperliquid.MaxRetries < 0 {
		errs = append(errs, "hyperliquid: max_retries must be >= 0")
	}
	if c.Hyperliquid.RetryDelay.Duration <= 0 {
		errs = append(errs, "hyperliquid: retry_delay must be > 0")
	}
	if c.Hyperliquid.RateLimitPerSec < 1 {
		errs = append(errs, "hyperliquid: rate_limit_per_sec must be >= 1")
	}

	if len(c.Wallets) == 0 {
		errs = append(errs, "wallets: at least one wallet address must be configured")
	}
	for _, w := range c.Wallets {
		if !common.IsHexAddress(w) {
			errs = append(errs, fmt.Sprintf("wallets: %q is not a valid hex address", w))
		}
	}

	if c.Filter.BotTradeThreshold < 1 {
		errs = append(errs, "filter: bot_trade_threshold must be >= 1")
	}
	if c.Filter.MinTradesPerRun < 0 {
		errs = append(errs, "filter: min_trades_per_run must be >= 0")
	}
	if c.Filter.MinTradesPerRun > c.Filter.BotTradeThreshold {
		errs = append(errs, "filter: min_trades_per_run must not exceed bot_trade_threshold")
	}

	if !validStateBackends[strings.ToLower(c.State.Backend)] {
		errs = append(errs, fmt.Sprintf("state: unknown backend %q (valid: file, redis)", c.State.Backend))
	}
	if strings.ToLower(c.State.Backend) == "file" && c.State.Path == "" {
		errs = append(errs, "state: path must not be empty for the file backend")
	}
	if strings.ToLower(c.State.Backend) == "redis" && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty for the redis state backend")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ScanType returns the configured scan mode as a domain type. Call only after
// Validate.
func (c *Config) ScanType() domain.ScanType {
	return domain.ScanType(strings.ToLower(c.Mode))
}

// NormalizedWallets returns the configured wallet list with addresses
// checksummed and duplicates removed, preserving first-seen order. The source
// lists are curated by hand and routinely contain repeats; processing a wallet
// twice would double-send its recap.
func (c *Config) NormalizedWallets() []string {
	seen := make(map[string]bool, len(c.Wallets))
	out := make([]string, 0, len(c.Wallets))
	for _, w := range c.Wallets {
		addr := common.HexToAddress(w).Hex()
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}
