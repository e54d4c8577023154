// Package strategies contains the pattern-detection strategies. Each one
// implements ports.PatternStrategy: a pure scan over pre-fetched candles so
// the same code serves live trading and backtests.
package strategies

import (
	"perpPatternBot/internal/ports"
)

// BaseStrategy provides common functionality for strategies
type BaseStrategy struct {
	logger ports.Logger
}

// NewBaseStrategy creates a new base strategy instance
func NewBaseStrategy(logger ports.Logger) *BaseStrategy {
	return &BaseStrategy{
		logger: logger,
	}
}
