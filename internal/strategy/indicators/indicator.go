package indicators

import (
	"context"

	"perpPatternBot/internal/domain"
)

// Indicator is a technical indicator computed over a candle series.
// Candles are ordered oldest to newest.
type Indicator interface {
	// Calculate returns the indicator value for the series, or
	// ports.ErrInsufficientData when the history is too short.
	Calculate(ctx context.Context, candles []*domain.Candle) (float64, error)

	// RequiredDataPoints is the minimum series length Calculate accepts.
	RequiredDataPoints() int

	Name() string
}

// IndicatorConfig holds the settings shared by all indicators.
type IndicatorConfig struct {
	Period int
}

// BaseIndicator carries the config and the default data-point bound.
type BaseIndicator struct {
	Config IndicatorConfig
}

func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}
