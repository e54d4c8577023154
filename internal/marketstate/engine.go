// Package marketstate classifies market conditions per symbol into
// SLEEP / ACTIVE / AGGRESSIVE using ATR, volume and funding rate.
package marketstate

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"
	"perpPatternBot/internal/strategy/indicators"
)

// Config holds the classifier thresholds. Zero values are replaced by
// DefaultConfig values in NewEngine.
type Config struct {
	Interval               string
	CandleLimit            int
	ATRPeriod              int
	VolumePeriod           int
	ATRSleepThreshold      float64 // ATR/price below this is sleep territory
	ATRActiveThreshold     float64 // ATR/price above this is aggressive
	VolumeActiveMultiplier float64
	FundingSleepThreshold  float64 // Funding below this (negative) is adverse
	FundingAggrThreshold   float64 // Funding above this marks crowded longs
	EnableSleepFilter      bool
	MaxHistoryLength       int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		Interval:               "5m",
		CandleLimit:            100,
		ATRPeriod:              14,
		VolumePeriod:           20,
		ATRSleepThreshold:      0.005,
		ATRActiveThreshold:     0.02,
		VolumeActiveMultiplier: 1.5,
		FundingSleepThreshold:  -0.0001,
		FundingAggrThreshold:   0.0001,
		EnableSleepFilter:      true,
		MaxHistoryLength:       100,
	}
}

// Engine classifies market state for a single symbol. It keeps a rolling
// ATR history so the current ATR can be compared against its own recent
// average; use one engine instance per symbol.
type Engine struct {
	client ports.MarketDataClient
	logger ports.Logger
	symbol string
	cfg    Config

	atr   *indicators.ATR
	volMA *indicators.MovingAverage

	mu                sync.Mutex
	atrHistory        []float64
	enableSleepFilter bool
}

// NewEngine creates a state engine for one symbol.
func NewEngine(client ports.MarketDataClient, logger ports.Logger, symbol string, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Interval == "" {
		cfg.Interval = def.Interval
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = def.CandleLimit
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.VolumePeriod <= 0 {
		cfg.VolumePeriod = def.VolumePeriod
	}
	if cfg.MaxHistoryLength <= 0 {
		cfg.MaxHistoryLength = def.MaxHistoryLength
	}
	return &Engine{
		client: client,
		logger: logger,
		symbol: symbol,
		cfg:    cfg,
		atr: indicators.NewATR(indicators.ATRConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod},
		}),
		volMA: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.VolumePeriod},
			Type:            indicators.SimpleMovingAverage,
			Source:          indicators.SourceVolume,
		}),
		enableSleepFilter: cfg.EnableSleepFilter,
	}
}

// SetSleepFilter toggles the sleep classification. With the filter off the
// engine can only return ACTIVE or AGGRESSIVE.
func (e *Engine) SetSleepFilter(enable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enableSleepFilter = enable
}

// SleepFilterEnabled reports the current filter setting.
func (e *Engine) SleepFilterEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enableSleepFilter
}

// Analyze fetches fresh data and classifies the current market state.
func (e *Engine) Analyze(ctx context.Context) (*domain.StateAnalysis, error) {
	candles, err := e.client.GetKlines(ctx, e.symbol, e.cfg.Interval, e.cfg.CandleLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s: %w", e.symbol, err)
	}
	if len(candles) < e.cfg.ATRPeriod+1 || len(candles) < e.cfg.VolumePeriod {
		return nil, fmt.Errorf("%w: got %d candles for %s", ports.ErrInsufficientData, len(candles), e.symbol)
	}

	currentPrice := candles[len(candles)-1].Close
	latestVolume := candles[len(candles)-1].Volume

	atr, err := e.atr.Calculate(ctx, candles)
	if err != nil {
		return nil, fmt.Errorf("ATR for %s: %w", e.symbol, err)
	}
	volMA, err := e.volMA.Calculate(ctx, candles)
	if err != nil {
		return nil, fmt.Errorf("volume MA for %s: %w", e.symbol, err)
	}

	// Funding is advisory; a fetch failure just drops it from the rules.
	fundingRate, hasFunding := 0.0, false
	if fr, err := e.client.GetFundingRate(ctx, e.symbol); err != nil {
		e.logger.Warn(ctx, "funding rate unavailable, ignoring", map[string]interface{}{"symbol": e.symbol, "error": err.Error()})
	} else {
		fundingRate, hasFunding = fr, true
	}

	atrRatio := 0.0
	if currentPrice > 0 {
		atrRatio = atr / currentPrice
	}
	volumeRatio := 1.0
	if volMA > 0 {
		volumeRatio = latestVolume / volMA
	}

	e.mu.Lock()
	e.atrHistory = append(e.atrHistory, atr)
	if len(e.atrHistory) > e.cfg.MaxHistoryLength {
		e.atrHistory = e.atrHistory[1:]
	}
	atrAvg := 0.0
	for _, v := range e.atrHistory {
		atrAvg += v
	}
	atrAvg /= float64(len(e.atrHistory))
	sleepFilter := e.enableSleepFilter
	e.mu.Unlock()

	atrAvgRatio := 1.0
	if atrAvg > 0 {
		atrAvgRatio = atr / atrAvg
	}

	state, reason := e.determineState(atrRatio, volumeRatio, fundingRate, hasFunding, atrAvgRatio, sleepFilter)
	score := e.calculateScore(state, atrRatio, volumeRatio, fundingRate, hasFunding)

	return &domain.StateAnalysis{
		Symbol:      e.symbol,
		State:       state,
		Score:       score,
		ATR:         atr,
		ATRRatio:    atrRatio,
		AvgATRRatio: atrAvgRatio,
		VolumeRatio: volumeRatio,
		FundingRate: fundingRate,
		Reason:      reason,
		AnalyzedAt:  time.Now(),
	}, nil
}

func (e *Engine) determineState(atrRatio, volumeRatio, fundingRate float64, hasFunding bool, atrAvgRatio float64, sleepFilter bool) (domain.MarketState, string) {
	if sleepFilter &&
		(atrRatio < e.cfg.ATRSleepThreshold ||
			atrAvgRatio < 0.8 ||
			(hasFunding && fundingRate < e.cfg.FundingSleepThreshold)) {
		reason := "low volatility"
		if volumeRatio < 1.0 {
			reason += ", weak volume"
		}
		if hasFunding && fundingRate < e.cfg.FundingSleepThreshold {
			reason += ", negative funding"
		}
		return domain.StateSleep, reason
	}

	if atrRatio > e.cfg.ATRActiveThreshold ||
		atrAvgRatio > 2.0 ||
		volumeRatio > e.cfg.VolumeActiveMultiplier*2 ||
		(hasFunding && fundingRate > e.cfg.FundingAggrThreshold) {
		reason := "high volatility"
		if atrRatio > e.cfg.ATRActiveThreshold {
			reason += ", ATR breakout"
		}
		if volumeRatio > e.cfg.VolumeActiveMultiplier*2 {
			reason += ", volume surge"
		}
		if hasFunding && fundingRate > e.cfg.FundingAggrThreshold {
			reason += ", positive funding"
		}
		return domain.StateAggressive, reason
	}

	reason := "normal volatility"
	if volumeRatio > e.cfg.VolumeActiveMultiplier {
		reason += ", active volume"
	}
	return domain.StateActive, reason
}

func (e *Engine) calculateScore(state domain.MarketState, atrRatio, volumeRatio, fundingRate float64, hasFunding bool) float64 {
	baseScore := 50.0
	switch state {
	case domain.StateSleep:
		baseScore = 10
	case domain.StateActive:
		baseScore = 50
	case domain.StateAggressive:
		baseScore = 80
	}

	atrScore := math.Min(30, atrRatio*1000)
	volumeScore := math.Min(20, (volumeRatio-1)*20)

	fundingScore := 0.0
	if hasFunding {
		if fundingRate > 0 {
			fundingScore = math.Min(10, fundingRate*100000)
		} else {
			fundingScore = -math.Min(5, math.Abs(fundingRate)*100000)
		}
	}

	total := baseScore + atrScore + volumeScore + fundingScore
	return math.Max(0, math.Min(100, total))
}

// IsTradeable reports whether the symbol is in a tradeable state.
func (e *Engine) IsTradeable(ctx context.Context) (bool, error) {
	analysis, err := e.Analyze(ctx)
	if err != nil {
		return false, err
	}
	return analysis.State != domain.StateSleep, nil
}

// AnalyzeBatch classifies a set of symbols independently, one fresh engine
// per symbol. A failure on one symbol must not abort the batch: the failed
// symbol gets a SLEEP result with score zero and the loop continues.
func AnalyzeBatch(ctx context.Context, client ports.MarketDataClient, logger ports.Logger, symbols []string, cfg Config) map[string]*domain.StateAnalysis {
	results := make(map[string]*domain.StateAnalysis, len(symbols))
	for _, symbol := range symbols {
		engine := NewEngine(client, logger, symbol, cfg)
		analysis, err := engine.Analyze(ctx)
		if err != nil {
			logger.Warn(ctx, "market state analysis failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
			results[symbol] = &domain.StateAnalysis{
				Symbol:     symbol,
				State:      domain.StateSleep,
				Score:      0,
				Reason:     "analysis failed",
				AnalyzedAt: time.Now(),
			}
			continue
		}
		results[symbol] = analysis
	}
	return results
}

// TradeableSymbols returns the symbols whose state is not SLEEP.
func TradeableSymbols(ctx context.Context, client ports.MarketDataClient, logger ports.Logger, symbols []string, cfg Config) []string {
	var out []string
	for symbol, analysis := range AnalyzeBatch(ctx, client, logger, symbols, cfg) {
		if analysis.State != domain.StateSleep {
			out = append(out, symbol)
		}
	}
	return out
}
