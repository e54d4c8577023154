package ports

import (
	"context"

	"perpPatternBot/internal/domain"
)

// PatternStrategy defines the interface for pattern-detection strategies.
// Detect is a pure function of the supplied candles: strategies never fetch
// data themselves, which keeps them usable in backtests without changes.
type PatternStrategy interface {
	// Name returns the strategy identifier used in signals and logs.
	Name() string

	// RequiredDataPoints returns the minimum number of candles needed per timeframe.
	RequiredDataPoints() int

	// Detect scans the supplied candles and returns zero or more trade
	// proposals. Candles are keyed by interval, ordered oldest first.
	Detect(ctx context.Context, symbol string, candlesByTimeframe map[string][]*domain.Candle) ([]*domain.TradingSignal, error)
}
