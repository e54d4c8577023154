package strategies

import (
	"context"
	"fmt"
	"math"
	"time"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"
	"perpPatternBot/internal/strategy/indicators"
)

// FakeoutConfig holds configuration for the fake-breakout strategy
type FakeoutConfig struct {
	Timeframe          string  // Interval the strategy scans (e.g., "5m")
	SwingPeriod        int     // Symmetric window for swing detection (e.g., 3)
	MaxStructureLevels int     // Bounded history of structure levels (e.g., 20)
	StructureValidBars int     // Levels older than this many bars are ignored (e.g., 50)
	RecentCandles      int     // Breakout/rejection scan window (e.g., 10)
	MinStrength        float64 // Breakout and rejection must each exceed this fraction of the level
	ATRPeriod          int
	VolumePeriod       int
	ATRStopMultiplier  float64 // Stop distance in ATRs (e.g., 2)
	ATRTargetMult      float64 // Target distance in ATRs (e.g., 4)
}

// DefaultFakeoutConfig returns the standard fakeout parameters.
func DefaultFakeoutConfig() FakeoutConfig {
	return FakeoutConfig{
		Timeframe:          "5m",
		SwingPeriod:        3,
		MaxStructureLevels: 20,
		StructureValidBars: 50,
		RecentCandles:      10,
		MinStrength:        0.001,
		ATRPeriod:          14,
		VolumePeriod:       20,
		ATRStopMultiplier:  2,
		ATRTargetMult:      4,
	}
}

// Fakeout detects failed breakouts of swing structure levels: a close
// beyond a level followed by a close back across it. A failed break above
// resistance is a long setup (trapped breakout buyers), a failed break
// below support is a short.
type Fakeout struct {
	*BaseStrategy
	config FakeoutConfig
	atr    *indicators.ATR
	volMA  *indicators.MovingAverage
}

// NewFakeout creates a fake-breakout strategy instance.
func NewFakeout(config FakeoutConfig, logger ports.Logger) (*Fakeout, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	def := DefaultFakeoutConfig()
	if config.Timeframe == "" {
		config.Timeframe = def.Timeframe
	}
	if config.SwingPeriod <= 0 {
		config.SwingPeriod = def.SwingPeriod
	}
	if config.MaxStructureLevels <= 0 {
		config.MaxStructureLevels = def.MaxStructureLevels
	}
	if config.StructureValidBars <= 0 {
		config.StructureValidBars = def.StructureValidBars
	}
	if config.RecentCandles <= 0 {
		config.RecentCandles = def.RecentCandles
	}
	if config.MinStrength <= 0 {
		config.MinStrength = def.MinStrength
	}
	if config.ATRPeriod <= 0 {
		config.ATRPeriod = def.ATRPeriod
	}
	if config.VolumePeriod <= 0 {
		config.VolumePeriod = def.VolumePeriod
	}
	if config.ATRStopMultiplier <= 0 {
		config.ATRStopMultiplier = def.ATRStopMultiplier
	}
	if config.ATRTargetMult <= 0 {
		config.ATRTargetMult = def.ATRTargetMult
	}
	return &Fakeout{
		BaseStrategy: NewBaseStrategy(logger),
		config:       config,
		atr: indicators.NewATR(indicators.ATRConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.ATRPeriod},
		}),
		volMA: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.VolumePeriod},
			Type:            indicators.SimpleMovingAverage,
			Source:          indicators.SourceVolume,
		}),
	}, nil
}

// Name returns the strategy identifier.
func (f *Fakeout) Name() string {
	return "fakeout"
}

// RequiredDataPoints returns the minimum number of candles needed.
func (f *Fakeout) RequiredDataPoints() int {
	return 20
}

// Detect scans the strategy's timeframe for fake-breakout setups.
func (f *Fakeout) Detect(ctx context.Context, symbol string, candlesByTimeframe map[string][]*domain.Candle) ([]*domain.TradingSignal, error) {
	candles := candlesByTimeframe[f.config.Timeframe]
	if len(candles) < f.RequiredDataPoints() {
		return nil, nil
	}

	atr, err := f.atr.Calculate(ctx, candles)
	if err != nil {
		return nil, fmt.Errorf("ATR for %s: %w", symbol, err)
	}
	volMA, err := f.volMA.Calculate(ctx, candles)
	if err != nil {
		return nil, fmt.Errorf("volume MA for %s: %w", symbol, err)
	}

	levels := f.identifyStructureLevels(candles)

	recent := candles
	if len(recent) > f.config.RecentCandles {
		recent = recent[len(recent)-f.config.RecentCandles:]
	}
	latest := candles[len(candles)-1]
	barDuration := f.barDuration(candles)
	maxAge := time.Duration(f.config.StructureValidBars) * barDuration

	var signals []*domain.TradingSignal
	for _, level := range levels {
		if latest.OpenTime.Sub(level.Timestamp) > maxAge {
			continue
		}
		var signal *domain.TradingSignal
		switch level.Type {
		case domain.SwingHigh:
			signal = f.checkFailedBreakUp(symbol, recent, level, atr, volMA, latest)
		case domain.SwingLow:
			signal = f.checkFailedBreakDown(symbol, recent, level, atr, volMA, latest)
		}
		if signal != nil {
			signals = append(signals, signal)
		}
	}
	return signals, nil
}

func (f *Fakeout) barDuration(candles []*domain.Candle) time.Duration {
	if len(candles) >= 2 {
		if d := candles[1].OpenTime.Sub(candles[0].OpenTime); d > 0 {
			return d
		}
	}
	return 5 * time.Minute
}

// identifyStructureLevels finds swing highs and lows over a symmetric
// window, keeping only the most recent MaxStructureLevels.
func (f *Fakeout) identifyStructureLevels(candles []*domain.Candle) []*domain.StructureLevel {
	var levels []*domain.StructureLevel
	p := f.config.SwingPeriod

	for i := p; i < len(candles)-p; i++ {
		current := candles[i]

		isSwingHigh := true
		for j := i - p; j <= i+p; j++ {
			if j != i && candles[j].High >= current.High {
				isSwingHigh = false
				break
			}
		}
		if isSwingHigh {
			levels = append(levels, &domain.StructureLevel{
				Level:     current.High,
				Type:      domain.SwingHigh,
				Timestamp: current.OpenTime,
				Confirmed: true,
			})
		}

		isSwingLow := true
		for j := i - p; j <= i+p; j++ {
			if j != i && candles[j].Low <= current.Low {
				isSwingLow = false
				break
			}
		}
		if isSwingLow {
			levels = append(levels, &domain.StructureLevel{
				Level:     current.Low,
				Type:      domain.SwingLow,
				Timestamp: current.OpenTime,
				Confirmed: true,
			})
		}
	}

	if len(levels) > f.config.MaxStructureLevels {
		levels = levels[len(levels)-f.config.MaxStructureLevels:]
	}
	return levels
}

// checkFailedBreakUp looks for a close above a swing high followed by a
// close back below it, and emits a long signal at the level.
func (f *Fakeout) checkFailedBreakUp(symbol string, recent []*domain.Candle, level *domain.StructureLevel, atr, volMA float64, latest *domain.Candle) *domain.TradingSignal {
	breakoutIdx := -1
	for i, c := range recent {
		if c.Close > level.Level {
			breakoutIdx = i
		}
	}
	if breakoutIdx < 0 || breakoutIdx >= len(recent)-1 {
		return nil
	}
	breakout := recent[breakoutIdx]

	for _, c := range recent[breakoutIdx+1:] {
		if c.Close < level.Level {
			breakoutStrength := (breakout.High - level.Level) / level.Level
			rejectionStrength := (level.Level - c.Low) / level.Level
			if breakoutStrength > f.config.MinStrength && rejectionStrength > f.config.MinStrength {
				return f.buildSignal(symbol, domain.Long, breakout, c, level, atr, volMA, latest)
			}
		}
	}
	return nil
}

// checkFailedBreakDown is the mirror image: a close below a swing low
// followed by a close back above it yields a short signal. Unlike the
// bullish side, which anchors on the latest breakout candle, this side
// anchors on the earliest breakdown candle in the window.
func (f *Fakeout) checkFailedBreakDown(symbol string, recent []*domain.Candle, level *domain.StructureLevel, atr, volMA float64, latest *domain.Candle) *domain.TradingSignal {
	breakdownIdx := -1
	for i, c := range recent {
		if c.Close < level.Level {
			breakdownIdx = i
			break
		}
	}
	if breakdownIdx < 0 || breakdownIdx >= len(recent)-1 {
		return nil
	}
	breakdown := recent[breakdownIdx]

	for _, c := range recent[breakdownIdx+1:] {
		if c.Close > level.Level {
			breakdownStrength := (level.Level - breakdown.Low) / level.Level
			rejectionStrength := (c.High - level.Level) / level.Level
			if breakdownStrength > f.config.MinStrength && rejectionStrength > f.config.MinStrength {
				return f.buildSignal(symbol, domain.Short, breakdown, c, level, atr, volMA, latest)
			}
		}
	}
	return nil
}

func (f *Fakeout) buildSignal(symbol string, side domain.Side, breakout, rejection *domain.Candle, level *domain.StructureLevel, atr, volMA float64, latest *domain.Candle) *domain.TradingSignal {
	entry := level.Level
	var stop, target float64
	var reason string
	if side == domain.Long {
		stop = level.Level - atr*f.config.ATRStopMultiplier
		target = level.Level + atr*f.config.ATRTargetMult
		reason = fmt.Sprintf("failed break above %.2f, rejection back below", level.Level)
	} else {
		stop = level.Level + atr*f.config.ATRStopMultiplier
		target = level.Level - atr*f.config.ATRTargetMult
		reason = fmt.Sprintf("failed break below %.2f, rejection back above", level.Level)
	}

	return &domain.TradingSignal{
		Symbol:     symbol,
		Side:       side,
		Strategy:   f.Name(),
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: f.confidence(breakout, rejection, side, atr, volMA, latest),
		Reason:     reason,
		Timeframe:  f.config.Timeframe,
		CreatedAt:  time.Now(),
	}
}

// confidence starts at 0.5 and accrues bonuses for a decisive rejection
// body, elevated volume, a long opposing wick and a healthy ATR regime.
func (f *Fakeout) confidence(breakout, rejection *domain.Candle, side domain.Side, atr, volMA float64, latest *domain.Candle) float64 {
	confidence := 0.5

	if rejection.BodySize() > breakout.BodySize()*0.5 {
		confidence += 0.1
	}

	if volMA > 0 && latest.Volume > volMA*1.2 {
		confidence += 0.15
	}

	if side == domain.Long {
		if rejection.LowerWick() > rejection.BodySize() {
			confidence += 0.15
		}
	} else {
		if rejection.UpperWick() > rejection.BodySize() {
			confidence += 0.15
		}
	}

	if latest.Close > 0 {
		atrRatio := atr / latest.Close
		if atrRatio >= 0.005 && atrRatio <= 0.02 {
			confidence += 0.1
		}
	}

	return math.Min(0.95, confidence)
}
