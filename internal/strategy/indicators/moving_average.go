package indicators

import (
	"context"
	"fmt"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageSource selects which candle field the average is taken over.
type MovingAverageSource string

const (
	SourceClose  MovingAverageSource = "close"
	SourceVolume MovingAverageSource = "volume"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type   MovingAverageType
	Source MovingAverageSource // Defaults to close prices when empty
}

// MovingAverage implements both SMA and EMA indicators over close or volume
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	if config.Source == "" {
		config.Source = SourceClose
	}
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (m *MovingAverage) Name() string {
	return string(m.config.Type)
}

func (m *MovingAverage) value(c *domain.Candle) float64 {
	if m.config.Source == SourceVolume {
		return c.Volume
	}
	return c.Close
}

// Calculate computes the moving average value based on the configured type
func (m *MovingAverage) Calculate(ctx context.Context, candles []*domain.Candle) (float64, error) {
	switch m.config.Type {
	case SimpleMovingAverage:
		return m.calculateSMA(candles)
	case ExponentialMovingAverage:
		return m.calculateEMA(candles)
	default:
		return 0, fmt.Errorf("unsupported moving average type: %s", m.config.Type)
	}
}

// calculateSMA computes the Simple Moving Average
func (m *MovingAverage) calculateSMA(candles []*domain.Candle) (float64, error) {
	if len(candles) < m.Config.Period {
		return 0, fmt.Errorf("%w: SMA(%d) got %d candles", ports.ErrInsufficientData, m.Config.Period, len(candles))
	}

	total := 0.0
	for i := len(candles) - m.Config.Period; i < len(candles); i++ {
		total += m.value(candles[i])
	}
	return total / float64(m.Config.Period), nil
}

// calculateEMA computes the Exponential Moving Average
func (m *MovingAverage) calculateEMA(candles []*domain.Candle) (float64, error) {
	if len(candles) < m.Config.Period {
		return 0, fmt.Errorf("%w: EMA(%d) got %d candles", ports.ErrInsufficientData, m.Config.Period, len(candles))
	}

	multiplier := 2.0 / float64(m.Config.Period+1)

	// Calculate initial SMA for the first 'period' candles
	initialSMA, err := m.calculateSMA(candles[:m.Config.Period])
	if err != nil {
		return 0, fmt.Errorf("failed to calculate initial SMA for EMA: %w", err)
	}
	ema := initialSMA

	// Apply EMA formula for the rest of the candles
	for i := m.Config.Period; i < len(candles); i++ {
		v := m.value(candles[i])
		ema = (v-ema)*multiplier + ema
	}

	return ema, nil
}
