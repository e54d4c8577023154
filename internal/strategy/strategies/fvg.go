package strategies

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"
	"perpPatternBot/internal/strategy/indicators"
)

// FVGConfig holds configuration for the fair-value-gap strategy
type FVGConfig struct {
	Timeframe         string
	MinFVGSizePercent float64       // Minimum gap size as a fraction of the midpoint
	MaxFVGAge         time.Duration // Gaps older than this are stale
	Lookback          int           // Candles scanned for gaps
	EntryTolerance    float64       // Entry offset from the near gap boundary
	MinRiskReward     float64       // Signals below this RR are discarded
	SLATRRatio        float64       // Stop distance beyond the boundary, in ATRs
	TPRRRatio         float64       // Target distance as a multiple of risk
	ATRPeriod         int
}

// DefaultFVGConfig returns the standard FVG parameters.
func DefaultFVGConfig() FVGConfig {
	return FVGConfig{
		Timeframe:         "5m",
		MinFVGSizePercent: 0.0005,
		MaxFVGAge:         60 * time.Minute,
		Lookback:          100,
		EntryTolerance:    0.0002,
		MinRiskReward:     2.0,
		SLATRRatio:        1.5,
		TPRRRatio:         2.5,
		ATRPeriod:         14,
	}
}

// FVGStrategy trades retracements into unfilled fair value gaps. Gap
// detection, fill tracking and signal generation are pure functions of the
// supplied candles.
type FVGStrategy struct {
	*BaseStrategy
	config FVGConfig
	atr    *indicators.ATR
}

// NewFVG creates a fair-value-gap strategy instance.
func NewFVG(config FVGConfig, logger ports.Logger) (*FVGStrategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	def := DefaultFVGConfig()
	if config.Timeframe == "" {
		config.Timeframe = def.Timeframe
	}
	if config.MinFVGSizePercent <= 0 {
		config.MinFVGSizePercent = def.MinFVGSizePercent
	}
	if config.MaxFVGAge <= 0 {
		config.MaxFVGAge = def.MaxFVGAge
	}
	if config.Lookback <= 0 {
		config.Lookback = def.Lookback
	}
	if config.EntryTolerance <= 0 {
		config.EntryTolerance = def.EntryTolerance
	}
	if config.MinRiskReward <= 0 {
		config.MinRiskReward = def.MinRiskReward
	}
	if config.SLATRRatio <= 0 {
		config.SLATRRatio = def.SLATRRatio
	}
	if config.TPRRRatio <= 0 {
		config.TPRRRatio = def.TPRRRatio
	}
	if config.ATRPeriod <= 0 {
		config.ATRPeriod = def.ATRPeriod
	}
	return &FVGStrategy{
		BaseStrategy: NewBaseStrategy(logger),
		config:       config,
		atr: indicators.NewATR(indicators.ATRConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.ATRPeriod},
		}),
	}, nil
}

// Name returns the strategy identifier.
func (f *FVGStrategy) Name() string {
	return "fvg"
}

// RequiredDataPoints returns the minimum number of candles needed.
func (f *FVGStrategy) RequiredDataPoints() int {
	return f.config.ATRPeriod + 1
}

// Detect finds unfilled, fresh gaps and emits signals for price returning
// into them, sorted by confidence descending.
func (f *FVGStrategy) Detect(ctx context.Context, symbol string, candlesByTimeframe map[string][]*domain.Candle) ([]*domain.TradingSignal, error) {
	candles := candlesByTimeframe[f.config.Timeframe]
	if len(candles) < 3 || len(candles) < f.RequiredDataPoints() {
		return nil, nil
	}
	if len(candles) > f.config.Lookback {
		candles = candles[len(candles)-f.config.Lookback:]
	}

	atr, err := f.atr.Calculate(ctx, candles)
	if err != nil {
		return nil, fmt.Errorf("ATR for %s: %w", symbol, err)
	}
	if atr == 0 {
		return nil, nil
	}

	latest := candles[len(candles)-1]
	currentPrice := latest.Close
	now := latest.CloseTime

	gaps := f.IdentifyFVGs(candles)
	f.UpdateFillState(gaps, candles)

	var signals []*domain.TradingSignal
	for _, gap := range gaps {
		if !f.validate(gap, now) {
			continue
		}
		var signal *domain.TradingSignal
		if gap.Type == domain.FVGBullish {
			signal = f.bullishSignal(symbol, gap, currentPrice, atr, now)
		} else {
			signal = f.bearishSignal(symbol, gap, currentPrice, atr, now)
		}
		if signal != nil {
			signals = append(signals, signal)
		}
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})
	return signals, nil
}

// IdentifyFVGs scans consecutive candle triples for gaps meeting the
// minimum size.
func (f *FVGStrategy) IdentifyFVGs(candles []*domain.Candle) []*domain.FVG {
	var gaps []*domain.FVG
	for i := 1; i < len(candles)-1; i++ {
		prev := candles[i-1]
		curr := candles[i]
		next := candles[i+1]

		if next.High > prev.Low {
			gapHigh, gapLow := next.High, prev.Low
			size := gapHigh - gapLow
			mid := (gapHigh + gapLow) / 2
			sizePercent := size / mid
			if sizePercent >= f.config.MinFVGSizePercent {
				gaps = append(gaps, &domain.FVG{
					Type:          domain.FVGBullish,
					HighBound:     gapHigh,
					LowBound:      gapLow,
					Size:          size,
					SizePercent:   sizePercent,
					FormationTime: curr.CloseTime,
					CandleIndex:   i,
				})
			}
		}

		if next.Low < prev.High {
			gapHigh, gapLow := prev.High, next.Low
			size := gapHigh - gapLow
			mid := (gapHigh + gapLow) / 2
			sizePercent := size / mid
			if sizePercent >= f.config.MinFVGSizePercent {
				gaps = append(gaps, &domain.FVG{
					Type:          domain.FVGBearish,
					HighBound:     gapHigh,
					LowBound:      gapLow,
					Size:          size,
					SizePercent:   sizePercent,
					FormationTime: curr.CloseTime,
					CandleIndex:   i,
				})
			}
		}
	}
	return gaps
}

// UpdateFillState marks gaps filled once any later candle reaches the far
// boundary: lows into the lower bound for bullish gaps, highs into the
// upper bound for bearish.
func (f *FVGStrategy) UpdateFillState(gaps []*domain.FVG, candles []*domain.Candle) {
	for _, gap := range gaps {
		if gap.Filled || gap.CandleIndex+2 >= len(candles) {
			continue
		}
		for _, c := range candles[gap.CandleIndex+2:] {
			if gap.Type == domain.FVGBullish {
				if c.Low <= gap.LowBound {
					gap.MarkFilled(c.CloseTime)
					break
				}
			} else {
				if c.High >= gap.HighBound {
					gap.MarkFilled(c.CloseTime)
					break
				}
			}
		}
	}
}

func (f *FVGStrategy) validate(gap *domain.FVG, now time.Time) bool {
	if gap.Filled {
		return false
	}
	if gap.Age(now) > f.config.MaxFVGAge {
		return false
	}
	return gap.SizePercent >= f.config.MinFVGSizePercent
}

func (f *FVGStrategy) bullishSignal(symbol string, gap *domain.FVG, currentPrice, atr float64, now time.Time) *domain.TradingSignal {
	entry := gap.LowBound * (1 + f.config.EntryTolerance)
	stop := gap.LowBound - atr*f.config.SLATRRatio
	risk := entry - stop
	target := entry + risk*f.config.TPRRRatio

	rr := 0.0
	if risk > 0 {
		rr = (target - entry) / risk
	}
	if rr < f.config.MinRiskReward {
		return nil
	}

	return &domain.TradingSignal{
		Symbol:     symbol,
		Side:       domain.Long,
		Strategy:   f.Name(),
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: f.confidence(gap, currentPrice, rr, now),
		Reason:     fmt.Sprintf("bullish FVG retrace, gap size %.3f%%", gap.SizePercent*100),
		Timeframe:  f.config.Timeframe,
		CreatedAt:  now,
	}
}

func (f *FVGStrategy) bearishSignal(symbol string, gap *domain.FVG, currentPrice, atr float64, now time.Time) *domain.TradingSignal {
	entry := gap.HighBound * (1 - f.config.EntryTolerance)
	stop := gap.HighBound + atr*f.config.SLATRRatio
	risk := stop - entry
	target := entry - risk*f.config.TPRRRatio

	rr := 0.0
	if risk > 0 {
		rr = (entry - target) / risk
	}
	if rr < f.config.MinRiskReward {
		return nil
	}

	return &domain.TradingSignal{
		Symbol:     symbol,
		Side:       domain.Short,
		Strategy:   f.Name(),
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: f.confidence(gap, currentPrice, rr, now),
		Reason:     fmt.Sprintf("bearish FVG retrace, gap size %.3f%%", gap.SizePercent*100),
		Timeframe:  f.config.Timeframe,
		CreatedAt:  now,
	}
}

// confidence scores the setup out of 100 points: gap size (30), freshness
// (25), price proximity to the gap midpoint (25) and risk/reward (20).
func (f *FVGStrategy) confidence(gap *domain.FVG, currentPrice, rr float64, now time.Time) float64 {
	score := 0.0

	switch {
	case gap.SizePercent >= 0.002:
		score += 30
	case gap.SizePercent >= 0.001:
		score += 20
	case gap.SizePercent >= 0.0005:
		score += 10
	}

	ageMinutes := gap.Age(now).Minutes()
	switch {
	case ageMinutes < 10:
		score += 25
	case ageMinutes < 30:
		score += 20
	case ageMinutes < 60:
		score += 15
	case ageMinutes < 120:
		score += 10
	}

	distancePercent := math.Abs(currentPrice-gap.Midpoint()) / gap.Midpoint()
	switch {
	case distancePercent < 0.0005:
		score += 25
	case distancePercent < 0.001:
		score += 20
	case distancePercent < 0.002:
		score += 15
	case distancePercent < 0.005:
		score += 10
	}

	switch {
	case rr >= 2.5:
		score += 20
	case rr >= 2.0:
		score += 15
	case rr >= 1.5:
		score += 10
	}

	return math.Min(score/100.0, 1.0)
}
