package domain

import "time"

// TradingSignal is a fully specified trade proposal produced by a pattern
// strategy. Entry, stop and target are absolute price levels; Confidence is
// in [0,1].
type TradingSignal struct {
	Symbol     string
	Side       Side
	Strategy   string  // Name of the strategy that produced the signal
	Entry      float64 // Proposed entry price
	StopLoss   float64 // Protective stop price
	TakeProfit float64 // Target price
	Confidence float64
	Reason     string    // Human-readable description of the setup
	Timeframe  string    // Interval the signal was detected on
	CreatedAt  time.Time // When the signal was generated
}

// RiskReward returns the ratio of target distance to stop distance.
// Returns 0 when the stop distance is not positive.
func (s *TradingSignal) RiskReward() float64 {
	var risk, reward float64
	if s.Side == Long {
		risk = s.Entry - s.StopLoss
		reward = s.TakeProfit - s.Entry
	} else {
		risk = s.StopLoss - s.Entry
		reward = s.Entry - s.TakeProfit
	}
	if risk <= 0 {
		return 0
	}
	return reward / risk
}

// ConfluenceResult is the outcome of combining signals across timeframes.
type ConfluenceResult struct {
	Symbol         string
	Side           Side
	Score          float64        // Weighted agreement score for the winning side
	Confidence     float64        // Final boosted confidence, capped at 1.0
	PrimarySignal  *TradingSignal // Signal from the primary timeframe, if any
	SupportSignals []*TradingSignal
	Timeframes     []string // Timeframes that contributed to the winning side
}

// StateAnalysis is the market state classification for one symbol.
type StateAnalysis struct {
	Symbol      string
	State       MarketState
	Score       float64 // Opportunity score in [0,100]
	ATR         float64
	ATRRatio    float64 // ATR relative to current price
	AvgATRRatio float64 // Current ATR relative to rolling average ATR
	VolumeRatio float64 // Last volume relative to volume SMA
	FundingRate float64
	Reason      string
	AnalyzedAt  time.Time
}
