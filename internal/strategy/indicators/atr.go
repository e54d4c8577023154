package indicators

import (
	"context"
	"fmt"
	"math"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"
)

// ATRConfig holds configuration for the Average True Range indicator.
type ATRConfig struct {
	IndicatorConfig
}

// ATR measures volatility as the smoothed average true range.
type ATR struct {
	config ATRConfig
}

func NewATR(config ATRConfig) *ATR {
	return &ATR{config: config}
}

func (a *ATR) Name() string {
	return "ATR"
}

// RequiredDataPoints needs one extra candle for the first previous-close.
func (a *ATR) RequiredDataPoints() int {
	return a.config.Period + 1
}

// Calculate returns the ATR over the series using Wilder's smoothing:
// a simple average seeds the first value, then each true range is folded
// in with weight 1/period.
func (a *ATR) Calculate(ctx context.Context, candles []*domain.Candle) (float64, error) {
	period := a.config.Period
	if len(candles) < period+1 {
		return 0, fmt.Errorf("%w: ATR(%d) needs %d candles, got %d",
			ports.ErrInsufficientData, period, period+1, len(candles))
	}

	trueRanges := make([]float64, len(candles))
	trueRanges[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		c, prev := candles[i], candles[i-1]
		tr := c.High - c.Low
		tr = math.Max(tr, math.Abs(c.High-prev.Close))
		tr = math.Max(tr, math.Abs(c.Low-prev.Close))
		trueRanges[i] = tr
	}

	var atr float64
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(candles); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}
	return atr, nil
}
