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

// LiquiditySweepConfig holds configuration for the liquidity-sweep strategy
type LiquiditySweepConfig struct {
	Timeframe          string
	SwingLookback      int     // Candles scanned for swing points
	LiquidityThreshold float64 // Minimum zone strength to keep
	MergeDistance      float64 // Zones within this fraction of price are merged
	SweepThreshold     float64 // Pierce depth beyond the level, as a fraction
	SweepRetreat       float64 // Required same-candle retreat off the extreme
	MaxSweepAge        int     // Sweeps are only valid within this many candles
	ATRPeriod          int
	SLATRRatio         float64 // Stop distance beyond the level, in ATRs
	TargetATRRatio     float64 // Target distance from the level, in ATRs
}

// DefaultLiquiditySweepConfig returns the standard sweep parameters.
func DefaultLiquiditySweepConfig() LiquiditySweepConfig {
	return LiquiditySweepConfig{
		Timeframe:          "5m",
		SwingLookback:      100,
		LiquidityThreshold: 0.001,
		MergeDistance:      0.001,
		SweepThreshold:     0.0003,
		SweepRetreat:       0.0005,
		MaxSweepAge:        10,
		ATRPeriod:          14,
		SLATRRatio:         1.5,
		TargetATRRatio:     2.0,
	}
}

// LiquiditySweep detects stop hunts: a candle wicking through a liquidity
// zone and closing back on the original side. Sweeping buyside liquidity
// (below price) is a long setup, sweeping sellside a short.
type LiquiditySweep struct {
	*BaseStrategy
	config LiquiditySweepConfig
	atr    *indicators.ATR
}

// NewLiquiditySweep creates a liquidity-sweep strategy instance.
func NewLiquiditySweep(config LiquiditySweepConfig, logger ports.Logger) (*LiquiditySweep, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	def := DefaultLiquiditySweepConfig()
	if config.Timeframe == "" {
		config.Timeframe = def.Timeframe
	}
	if config.SwingLookback <= 0 {
		config.SwingLookback = def.SwingLookback
	}
	if config.LiquidityThreshold <= 0 {
		config.LiquidityThreshold = def.LiquidityThreshold
	}
	if config.MergeDistance <= 0 {
		config.MergeDistance = def.MergeDistance
	}
	if config.SweepThreshold <= 0 {
		config.SweepThreshold = def.SweepThreshold
	}
	if config.SweepRetreat <= 0 {
		config.SweepRetreat = def.SweepRetreat
	}
	if config.MaxSweepAge <= 0 {
		config.MaxSweepAge = def.MaxSweepAge
	}
	if config.ATRPeriod <= 0 {
		config.ATRPeriod = def.ATRPeriod
	}
	if config.SLATRRatio <= 0 {
		config.SLATRRatio = def.SLATRRatio
	}
	if config.TargetATRRatio <= 0 {
		config.TargetATRRatio = def.TargetATRRatio
	}
	return &LiquiditySweep{
		BaseStrategy: NewBaseStrategy(logger),
		config:       config,
		atr: indicators.NewATR(indicators.ATRConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.ATRPeriod},
		}),
	}, nil
}

// Name returns the strategy identifier.
func (l *LiquiditySweep) Name() string {
	return "liquidity_sweep"
}

// RequiredDataPoints returns the minimum number of candles needed.
func (l *LiquiditySweep) RequiredDataPoints() int {
	return l.config.ATRPeriod + 1
}

// Detect builds liquidity zones from swing structure and emits a signal for
// every zone swept within the recent window, sorted by confidence.
func (l *LiquiditySweep) Detect(ctx context.Context, symbol string, candlesByTimeframe map[string][]*domain.Candle) ([]*domain.TradingSignal, error) {
	candles := candlesByTimeframe[l.config.Timeframe]
	if len(candles) < 5 || len(candles) < l.RequiredDataPoints() {
		return nil, nil
	}
	if len(candles) > l.config.SwingLookback {
		candles = candles[len(candles)-l.config.SwingLookback:]
	}

	atr, err := l.atr.Calculate(ctx, candles)
	if err != nil {
		return nil, fmt.Errorf("ATR for %s: %w", symbol, err)
	}
	if atr == 0 {
		return nil, nil
	}

	currentPrice := candles[len(candles)-1].Close
	swingHighs, swingLows := l.identifySwingPoints(candles)

	buyside := l.buildZones(symbol, swingLows, currentPrice, domain.Buyside)
	sellside := l.buildZones(symbol, swingHighs, currentPrice, domain.Sellside)

	recent := candles
	if len(recent) > l.config.MaxSweepAge {
		recent = recent[len(recent)-l.config.MaxSweepAge:]
	}

	var signals []*domain.TradingSignal
	for _, zone := range append(buyside, sellside...) {
		sweep := l.detectSweep(zone, recent)
		if sweep == nil {
			continue
		}
		if signal := l.buildSignal(symbol, zone, sweep, atr); signal != nil {
			signals = append(signals, signal)
		}
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})
	return signals, nil
}

// swingPoint is a local extremum used to seed liquidity zones.
type swingPoint struct {
	price float64
	time  time.Time
	index int
}

// identifySwingPoints finds local extrema over a fixed 2-candle symmetric
// comparison window.
func (l *LiquiditySweep) identifySwingPoints(candles []*domain.Candle) (highs, lows []swingPoint) {
	for i := 2; i < len(candles)-2; i++ {
		current := candles[i]

		if current.High > candles[i-1].High && current.High > candles[i-2].High &&
			current.High > candles[i+1].High && current.High > candles[i+2].High {
			highs = append(highs, swingPoint{price: current.High, time: current.CloseTime, index: i})
		}

		if current.Low < candles[i-1].Low && current.Low < candles[i-2].Low &&
			current.Low < candles[i+1].Low && current.Low < candles[i+2].Low {
			lows = append(lows, swingPoint{price: current.Low, time: current.CloseTime, index: i})
		}
	}
	return highs, lows
}

// buildZones turns swing points on the wrong side of price into liquidity
// zones. The two most recent swings are skipped (they may still be in
// play), nearby zones are merged instead of duplicated, and the result is
// sorted strongest first.
func (l *LiquiditySweep) buildZones(symbol string, swings []swingPoint, currentPrice float64, side domain.LiquiditySide) []*domain.LiquidityZone {
	var zones []*domain.LiquidityZone

	for i, swing := range swings {
		if i >= len(swings)-2 {
			continue
		}

		if side == domain.Buyside && swing.price >= currentPrice {
			continue
		}
		if side == domain.Sellside && swing.price <= currentPrice {
			continue
		}

		distance := math.Abs(currentPrice - swing.price)
		strength := 1.0 - math.Min(1.0, distance/(currentPrice*0.01))
		if strength < l.config.LiquidityThreshold {
			continue
		}

		merged := false
		for _, zone := range zones {
			if math.Abs(zone.Level-swing.price) < currentPrice*l.config.MergeDistance {
				zone.Strength = math.Max(zone.Strength, strength)
				zone.TouchedCount++
				merged = true
				break
			}
		}
		if !merged {
			zones = append(zones, &domain.LiquidityZone{
				Symbol:    symbol,
				Side:      side,
				Level:     swing.price,
				Strength:  strength,
				CreatedAt: swing.time,
			})
		}
	}

	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].Strength > zones[j].Strength
	})
	return zones
}

// detectSweep scans the recent candles, newest first, for a pierce beyond
// the zone level with a same-candle close back off the extreme.
func (l *LiquiditySweep) detectSweep(zone *domain.LiquidityZone, recent []*domain.Candle) *domain.LiquiditySweepEvent {
	for i := len(recent) - 1; i >= 0; i-- {
		c := recent[i]
		if zone.Side == domain.Buyside {
			if c.Low <= zone.Level*(1-l.config.SweepThreshold) &&
				c.Close > c.Low*(1+l.config.SweepRetreat) {
				zone.SweptCount++
				return &domain.LiquiditySweepEvent{Zone: zone, SweepCandle: c, SweepTime: c.CloseTime}
			}
		} else {
			if c.High >= zone.Level*(1+l.config.SweepThreshold) &&
				c.Close < c.High*(1-l.config.SweepRetreat) {
				zone.SweptCount++
				return &domain.LiquiditySweepEvent{Zone: zone, SweepCandle: c, SweepTime: c.CloseTime}
			}
		}
	}
	return nil
}

func (l *LiquiditySweep) buildSignal(symbol string, zone *domain.LiquidityZone, sweep *domain.LiquiditySweepEvent, atr float64) *domain.TradingSignal {
	entry := sweep.SweepCandle.Close
	targetDistance := atr * l.config.TargetATRRatio

	var side domain.Side
	var stop, target, risk, reward float64
	if zone.Side == domain.Buyside {
		side = domain.Long
		stop = zone.Level - atr*l.config.SLATRRatio
		target = zone.Level + targetDistance
		risk = entry - stop
		reward = target - entry
	} else {
		side = domain.Short
		stop = zone.Level + atr*l.config.SLATRRatio
		target = zone.Level - targetDistance
		risk = stop - entry
		reward = entry - target
	}

	riskReward := 0.0
	if risk > 0 {
		riskReward = reward / risk
	}

	confidence := zone.Strength * 0.7
	if riskReward >= 2.0 {
		confidence += 0.2
	} else if riskReward >= 1.5 {
		confidence += 0.1
	}
	confidence = math.Min(confidence, 1.0)

	return &domain.TradingSignal{
		Symbol:     symbol,
		Side:       side,
		Strategy:   l.Name(),
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: confidence,
		Reason:     fmt.Sprintf("%s liquidity sweep, zone strength %.2f", zone.Side, zone.Strength),
		Timeframe:  l.config.Timeframe,
		CreatedAt:  sweep.SweepTime,
	}
}
