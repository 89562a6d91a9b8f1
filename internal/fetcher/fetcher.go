package fetcher

import (
	"context"

	"volume-surge-alerts/internal/market"
)

// UniverseFetcher retrieves the full 24h ticker universe.
type UniverseFetcher interface {
	FetchUniverse(ctx context.Context) ([]market.UniverseTicker, error)
}

// CandleFetcher retrieves recent daily candles for one instrument.
type CandleFetcher interface {
	FetchDailyCandles(ctx context.Context, symbol string, limit int) ([]market.Candle, error)
}
