package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies HYPERRECAP_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HYPERRECAP_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject the bot credential at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Telegram ──
	setStr(&cfg.Telegram.Token, "HYPERRECAP_TELEGRAM_TOKEN")
	setStr(&cfg.Telegram.ChatID, "HYPERRECAP_TELEGRAM_CHAT_ID")

	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.BaseURL, "HYPERRECAP_HYPERLIQUID_BASE_URL")
	setDuration(&cfg.Hyperliquid.Timeout, "HYPERRECAP_HYPERLIQUID_TIMEOUT")
	setInt(&cfg.Hyperliquid.MaxRetries, "HYPERRECAP_HYPERLIQUID_MAX_RETRIES")
	setDuration(&cfg.Hyperliquid.RetryDelay, "HYPERRECAP_HYPERLIQUID_RETRY_DELAY")
	setInt(&cfg.Hyperliquid.RateLimitPerSec, "HYPERRECAP_HYPERLIQUID_RATE_LIMIT_PER_SEC")

	// ── Filter ──
	setBool(&cfg.Filter.Enabled, "HYPERRECAP_FILTER_ENABLED")
	setInt(&cfg.Filter.BotTradeThreshold, "HYPERRECAP_FILTER_BOT_TRADE_THRESHOLD")
	setInt(&cfg.Filter.MinTradesPerRun, "HYPERRECAP_FILTER_MIN_TRADES_PER_RUN")
	setFloat64(&cfg.Filter.PositionThreshold, "HYPERRECAP_FILTER_POSITION_THRESHOLD")
	setFloat64(&cfg.Filter.SizeChangeThreshold, "HYPERRECAP_FILTER_SIZE_CHANGE_THRESHOLD")

	// ── State ──
	setStr(&cfg.State.Backend, "HYPERRECAP_STATE_BACKEND")
	setStr(&cfg.State.Path, "HYPERRECAP_STATE_PATH")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "HYPERRECAP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HYPERRECAP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HYPERRECAP_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "HYPERRECAP_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "HYPERRECAP_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "HYPERRECAP_REDIS_TLS_ENABLED")

	// ── Notify ──
	setBool(&cfg.Notify.Console, "HYPERRECAP_NOTIFY_CONSOLE")
	setBool(&cfg.Notify.ConsoleOnly, "HYPERRECAP_NOTIFY_CONSOLE_ONLY")

	// ── Top-level ──
	setStringSlice(&cfg.Wallets, "HYPERRECAP_WALLETS")
	setStr(&cfg.Mode, "HYPERRECAP_MODE")
	setStr(&cfg.LogLevel, "HYPERRECAP_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
