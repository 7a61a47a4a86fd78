// Package hyperliquid is the REST client for the Hyperliquid public read API.
// It fetches account state, trade fills, and asset metadata, retries transient
// failures with exponential backoff, and normalizes raw records into domain
// positions and fills.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

// ClientConfig holds connection and retry parameters for the client.
type ClientConfig struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	RateLimitPerSec int
}

// Client is the Hyperliquid /info API client. All reads go through a shared
// rate limiter; the public API throttles bursts aggressively.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger

	mu         sync.Mutex
	assetNames map[string]string // "@<index>" -> ticker, populated once per process
}

// NewClient creates a Hyperliquid client from the given configuration.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSec := cfg.RateLimitPerSec
	if perSec < 1 {
		perSec = 5
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSec), perSec),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger.With(slog.String("component", "hyperliquid")),
	}
}

// AccountState fetches and normalizes the wallet's clearinghouse state: its
// total equity and open positions. Zero-size entries are dropped; malformed
// entries are skipped and logged. An exhausted retry budget returns an error
// wrapping domain.ErrSourceUnavailable.
func (c *Client) AccountState(ctx context.Context, wallet string) (domain.AccountState, error) {
	state, err := c.userState(ctx, wallet)
	if err != nil {
		return domain.AccountState{}, fmt.Errorf("hyperliquid: user state %s: %w", domain.ShortenAddress(wallet), err)
	}

	// Account value is informational; a parse failure degrades to zero
	// rather than dropping the positions alongside it.
	value, err := strconv.ParseFloat(state.MarginSummary.AccountValue, 64)
	if err != nil {
		c.logger.Warn("unparsable account value",
			slog.String("wallet", domain.ShortenAddress(wallet)),
			slog.String("error", err.Error()),
		)
		value = 0
	}

	return domain.AccountState{
		Wallet:    wallet,
		Value:     value,
		Positions: c.normalizePositions(wallet, state),
	}, nil
}

// FillsInWindow fetches the wallet's fills whose timestamp falls in
// [start, end). Malformed fills are skipped and logged.
func (c *Client) FillsInWindow(ctx context.Context, wallet string, start, end time.Time) ([]domain.Fill, error) {
	var raw []rawFill
	req := infoRequest{
		Type:            "userFillsByTime",
		User:            wallet,
		StartTime:       start.UnixMilli(),
		EndTime:         end.UnixMilli(),
		AggregateByTime: true,
	}
	if err := c.doInfo(ctx, req, &raw); err != nil {
		return nil, fmt.Errorf("hyperliquid: fills %s: %w", domain.ShortenAddress(wallet), err)
	}
	return c.normalizeFills(wallet, raw, end.UnixMilli()), nil
}

// ResolveAsset converts an "@<index>" asset identifier to its ticker using the
// cached metadata mapping. Identifiers that are not in index form, or that are
// unknown, pass through unchanged.
func (c *Client) ResolveAsset(ctx context.Context, id string) string {
	if !strings.HasPrefix(id, "@") {
		return id
	}
	if name, ok := c.assetNameMapping(ctx)[id]; ok {
		return name
	}
	return id
}

// userState fetches the raw clearinghouse state for a wallet.
func (c *Client) userState(ctx context.Context, wallet string) (*userStateResponse, error) {
	var state userStateResponse
	if err := c.doInfo(ctx, infoRequest{Type: "clearinghouseState", User: wallet}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// assetNameMapping returns the "@<index>" -> ticker mapping, fetching the perp
// metadata on first use. The mapping is cached for the process lifetime on
// success only; a failed fetch returns an empty map and the next call tries
// again.
func (c *Client) assetNameMapping(ctx context.Context) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.assetNames != nil {
		return c.assetNames
	}

	var meta metaResponse
	if err := c.doInfo(ctx, infoRequest{Type: "meta"}, &meta); err != nil {
		c.logger.Warn("failed to fetch asset metadata", slog.String("error", err.Error()))
		return map[string]string{}
	}

	mapping := make(map[string]string, len(meta.Universe))
	for i, asset := range meta.Universe {
		name := asset.Name
		if name == "" {
			name = fmt.Sprintf("@%d", i)
		}
		mapping[fmt.Sprintf("@%d", i)] = name
	}
	c.assetNames = mapping
	c.logger.Info("cached asset name mappings", slog.Int("count", len(mapping)))
	return mapping
}

// doInfo posts an /info request with retry and exponential backoff. Transport
// errors, 429s, and 5xx responses are retried up to maxRetries times with a
// wait of retryDelay * 2^attempt; other 4xx responses fail immediately. An
// exhausted budget returns an error wrapping domain.ErrSourceUnavailable.
func (c *Client) doInfo(ctx context.Context, payload infoRequest, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/info"
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("api call failed",
				slog.String("type", payload.Type),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			if !c.sleep(ctx, attempt) {
				return ctx.Err()
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
			c.logger.Warn("api call failed",
				slog.String("type", payload.Type),
				slog.Int("attempt", attempt+1),
				slog.Int("status", resp.StatusCode),
			)
			if !c.sleep(ctx, attempt) {
				return ctx.Err()
			}
			continue
		}

		if resp.StatusCode >= 400 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("%w: %s failed after %d retries: %v",
		domain.ErrSourceUnavailable, payload.Type, c.maxRetries, lastErr)
}

// sleep waits retryDelay * 2^attempt respecting the context. It returns false
// when the context was cancelled during the wait.
func (c *Client) sleep(ctx context.Context, attempt int) bool {
	wait := c.retryDelay << attempt
	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		return false
	}
}

// IsUnavailable reports whether err means the upstream exhausted its retries.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrSourceUnavailable)
}
