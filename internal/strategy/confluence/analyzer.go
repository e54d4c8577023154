// Package confluence combines pattern signals across timeframes and
// declares a direction only when the weighted evidence agrees.
package confluence

import (
	"context"
	"math"
	"sort"
	"time"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"
)

// Config holds the aggregation parameters.
type Config struct {
	PrimaryTimeframe string
	Weights          map[string]float64 // Per-timeframe weight, default 1.0
	MinScore         float64            // Absolute floor a direction must clear
	ConfidenceBoost  float64            // Agreement multiplier on the final confidence
}

// DefaultConfig returns the standard timeframe weighting.
func DefaultConfig() Config {
	return Config{
		PrimaryTimeframe: "5m",
		Weights:          map[string]float64{"5m": 1.0, "15m": 2.0, "1h": 3.0},
		MinScore:         0.3,
		ConfidenceBoost:  1.2,
	}
}

// TimeframeAnalysis is the detection outcome for one timeframe. A failed
// timeframe is marked invalid and contributes nothing to confluence.
type TimeframeAnalysis struct {
	Timeframe  string
	Signals    []*domain.TradingSignal
	Valid      bool
	AnalyzedAt time.Time
}

// Analyzer runs a set of pattern strategies per timeframe and scores the
// cross-timeframe agreement of their signals.
type Analyzer struct {
	logger ports.Logger
	cfg    Config
	// Strategies keyed by the timeframe they are configured to scan.
	strategies map[string][]ports.PatternStrategy
}

// NewAnalyzer creates a multi-timeframe analyzer. The strategies map is
// keyed by timeframe; each strategy must be configured for the timeframe
// it is registered under.
func NewAnalyzer(strategies map[string][]ports.PatternStrategy, logger ports.Logger, cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.PrimaryTimeframe == "" {
		cfg.PrimaryTimeframe = def.PrimaryTimeframe
	}
	if cfg.Weights == nil {
		cfg.Weights = def.Weights
	}
	if cfg.MinScore == 0 {
		cfg.MinScore = def.MinScore
	}
	if cfg.ConfidenceBoost == 0 {
		cfg.ConfidenceBoost = def.ConfidenceBoost
	}
	return &Analyzer{
		logger:     logger,
		cfg:        cfg,
		strategies: strategies,
	}
}

func (a *Analyzer) weight(timeframe string) float64 {
	if w, ok := a.cfg.Weights[timeframe]; ok {
		return w
	}
	return 1.0
}

// AnalyzeTimeframes runs the registered strategies per timeframe. A
// strategy error invalidates only that timeframe; the others still count.
func (a *Analyzer) AnalyzeTimeframes(ctx context.Context, symbol string, candlesByTimeframe map[string][]*domain.Candle) map[string]*TimeframeAnalysis {
	results := make(map[string]*TimeframeAnalysis, len(a.strategies))
	for timeframe, strategies := range a.strategies {
		analysis := &TimeframeAnalysis{
			Timeframe:  timeframe,
			Valid:      true,
			AnalyzedAt: time.Now(),
		}
		for _, strat := range strategies {
			signals, err := strat.Detect(ctx, symbol, candlesByTimeframe)
			if err != nil {
				a.logger.Warn(ctx, "timeframe analysis failed", map[string]interface{}{
					"symbol": symbol, "timeframe": timeframe, "strategy": strat.Name(), "error": err.Error(),
				})
				analysis.Valid = false
				analysis.Signals = nil
				break
			}
			analysis.Signals = append(analysis.Signals, signals...)
		}
		results[timeframe] = analysis
	}
	return results
}

// DetectConfluence scores cross-timeframe agreement. It returns nil when
// no direction both beats the other and clears the absolute floor.
func (a *Analyzer) DetectConfluence(symbol string, analyses map[string]*TimeframeAnalysis) *domain.ConfluenceResult {
	valid := make(map[string]*TimeframeAnalysis)
	for tf, analysis := range analyses {
		if analysis.Valid && len(analysis.Signals) > 0 {
			valid[tf] = analysis
		}
	}
	if len(valid) == 0 {
		return nil
	}

	var longSignals, shortSignals []*domain.TradingSignal
	for _, analysis := range valid {
		for _, s := range analysis.Signals {
			if s.Side == domain.Long {
				longSignals = append(longSignals, s)
			} else {
				shortSignals = append(shortSignals, s)
			}
		}
	}

	longScore := a.weightedScore(longSignals)
	shortScore := a.weightedScore(shortSignals)

	var side domain.Side
	var score float64
	switch {
	case longScore > shortScore && longScore > a.cfg.MinScore:
		side, score = domain.Long, longScore
	case shortScore > longScore && shortScore > a.cfg.MinScore:
		side, score = domain.Short, shortScore
	default:
		return nil
	}

	var primary *domain.TradingSignal
	if pa, ok := valid[a.cfg.PrimaryTimeframe]; ok {
		for _, s := range pa.Signals {
			if s.Side == side {
				primary = s
				break
			}
		}
	}

	var support []*domain.TradingSignal
	var timeframes []string
	for tf, analysis := range valid {
		contributed := false
		for _, s := range analysis.Signals {
			if s.Side != side {
				continue
			}
			contributed = true
			if tf != a.cfg.PrimaryTimeframe {
				support = append(support, s)
			}
		}
		if contributed {
			timeframes = append(timeframes, tf)
		}
	}
	sort.Strings(timeframes)

	return &domain.ConfluenceResult{
		Symbol:         symbol,
		Side:           side,
		Score:          score,
		Confidence:     math.Min(score*a.cfg.ConfidenceBoost, 1.0),
		PrimarySignal:  primary,
		SupportSignals: support,
		Timeframes:     timeframes,
	}
}

// weightedScore averages signal confidences weighted by their timeframe.
func (a *Analyzer) weightedScore(signals []*domain.TradingSignal) float64 {
	if len(signals) == 0 {
		return 0
	}
	total, totalWeight := 0.0, 0.0
	for _, s := range signals {
		w := a.weight(s.Timeframe)
		total += s.Confidence * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return total / totalWeight
}

// Detect is the full pipeline: per-timeframe analysis followed by
// confluence scoring.
func (a *Analyzer) Detect(ctx context.Context, symbol string, candlesByTimeframe map[string][]*domain.Candle) *domain.ConfluenceResult {
	analyses := a.AnalyzeTimeframes(ctx, symbol, candlesByTimeframe)
	return a.DetectConfluence(symbol, analyses)
}

// BestSignals flattens all timeframe signals, scales each confidence by
// its timeframe weight (capped at 1.0) and returns them strongest first.
func (a *Analyzer) BestSignals(analyses map[string]*TimeframeAnalysis, limit int) []*domain.TradingSignal {
	var out []*domain.TradingSignal
	for tf, analysis := range analyses {
		if !analysis.Valid {
			continue
		}
		for _, s := range analysis.Signals {
			adjusted := *s
			adjusted.Confidence = math.Min(s.Confidence*a.weight(tf), 1.0)
			out = append(out, &adjusted)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
