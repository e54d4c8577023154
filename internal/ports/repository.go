package ports

import (
	"context"
	"time"

	"perpPatternBot/internal/domain"
)

// CandleRepository defines the interface for the local candle archive used
// by the fetch and backtest tooling.
type CandleRepository interface {
	// SaveCandles persists a batch of candles, ignoring duplicates.
	SaveCandles(ctx context.Context, candles []*domain.Candle) (int, error)
	// FindCandles retrieves archived candles for a symbol and interval within a time range,
	// ordered by open time ascending.
	FindCandles(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Candle, error)
	// CountCandles returns the number of archived candles for a symbol and interval.
	CountCandles(ctx context.Context, symbol, interval string) (int, error)
}
