package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"volume-surge-alerts/internal/market"
)

const (
	ticker24hPath = "/fapi/v1/ticker/24hr"
	klinesPath    = "/fapi/v1/klines"

	dailyInterval = "1d"
)

// BinanceOptions parameterise the futures REST client.
type BinanceOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Binance fetches universe snapshots and daily candles from the futures API.
type Binance struct {
	opts    BinanceOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBinance constructs a futures REST client.
func NewBinance(opts BinanceOptions, logger zerolog.Logger) *Binance {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://fapi.binance.com"
	}

	return &Binance{
		opts:    opts,
		logger:  logger.With().Str("component", "binance_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchUniverse retrieves the 24h ticker statistics for every tradable symbol.
func (b *Binance) FetchUniverse(ctx context.Context) ([]market.UniverseTicker, error) {
	payload, err := b.get(ctx, ticker24hPath, nil)
	if err != nil {
		return nil, err
	}

	var rows []ticker24hRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("decode ticker universe: %w", err)
	}

	tickers := make([]market.UniverseTicker, 0, len(rows))
	for _, row := range rows {
		if row.Symbol == "" {
			continue
		}
		tickers = append(tickers, market.UniverseTicker{
			Symbol:    row.Symbol,
			ChangePct: parseDecimalField(row.PriceChangePercent),
			LastPrice: parseDecimalField(row.LastPrice),
		})
	}

	b.logger.Debug().Int("symbols", len(tickers)).Msg("universe snapshot fetched")
	return tickers, nil
}

// FetchDailyCandles retrieves the most recent daily candles in chronological order.
func (b *Binance) FetchDailyCandles(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if limit <= 0 {
		limit = 7
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", dailyInterval)
	query.Set("limit", strconv.Itoa(limit))

	payload, err := b.get(ctx, klinesPath, query)
	if err != nil {
		return nil, err
	}

	// Kline rows are positional arrays mixing numbers and strings:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("decode klines for %s: %w", symbol, err)
	}

	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row for %s has %d fields", symbol, len(row))
		}

		var openTimeMs int64
		if err := json.Unmarshal(row[0], &openTimeMs); err != nil {
			return nil, fmt.Errorf("parse kline open time for %s: %w", symbol, err)
		}

		closePrice, err := parseQuotedDecimal(row[4])
		if err != nil {
			return nil, fmt.Errorf("parse kline close for %s: %w", symbol, err)
		}
		volume, err := parseQuotedDecimal(row[5])
		if err != nil {
			return nil, fmt.Errorf("parse kline volume for %s: %w", symbol, err)
		}

		candles = append(candles, market.Candle{
			OpenTime: time.UnixMilli(openTimeMs).UTC(),
			Close:    closePrice,
			Volume:   volume,
		})
	}

	return candles, nil
}

func (b *Binance) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := b.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(b.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "surgewatcher/1.0")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}
	return payload, nil
}

type ticker24hRow struct {
	Symbol             string `json:"symbol"`
	PriceChangePercent string `json:"priceChangePercent"`
	LastPrice          string `json:"lastPrice"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("binance api error (%d): %s", status, apiErr.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("binance api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("binance api error (%d)", status)
}

// parseDecimalField tolerates malformed numeric strings by returning zero; a
// single bad ticker row must not fail the whole universe snapshot.
func parseDecimalField(raw string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func parseQuotedDecimal(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
