// Package worthtrading decides, before any strategy runs, whether a
// symbol's expected move can cover round-trip trading costs.
package worthtrading

import (
	"context"
	"fmt"
	"math"
	"time"

	"perpPatternBot/internal/ports"
	"perpPatternBot/internal/strategy/indicators"
)

// Cost breaks down the round-trip cost of a market entry and exit.
type Cost struct {
	TakerFee      float64 // Per-side taker fee rate
	MakerFee      float64
	FundingImpact float64 // Absolute funding rate, informational
	SpreadCost    float64 // Bid/ask spread as a fraction of price
	Slippage      float64 // Estimated slippage, scaled with volatility
}

// Total returns the round-trip cost fraction: two taker fills plus spread
// and slippage. Funding is informational and excluded.
func (c Cost) Total() float64 {
	return c.TakerFee*2 + c.SpreadCost + c.Slippage
}

// Result is the outcome of a worth-trading check. Reasons are populated for
// passing and failing checks alike so a rejection can be explained.
type Result struct {
	IsWorthTrading  bool
	ExpectedMove    float64
	TotalCost       float64
	RiskRewardRatio float64
	MinProfitTarget float64
	MinStopLoss     float64
	Reasons         []string
	Timestamp       time.Time
}

// Config holds the filter thresholds.
type Config struct {
	Interval        string
	ATRPeriod       int
	CandleLimit     int
	TakerFee        float64
	MakerFee        float64
	MinRRRatio      float64 // Minimum acceptable reward:risk
	MinExpectedMove float64 // Minimum expected move as a fraction of price
	CostMultiplier  float64 // Expected move must exceed cost by this factor
}

// DefaultConfig returns the standard fee and threshold settings.
func DefaultConfig() Config {
	return Config{
		Interval:        "5m",
		ATRPeriod:       14,
		CandleLimit:     100,
		TakerFee:        0.0005,
		MakerFee:        0.0002,
		MinRRRatio:      2.0,
		MinExpectedMove: 0.005,
		CostMultiplier:  2.0,
	}
}

// Filter answers "is this move worth paying for". It is query-only and
// holds no mutable state beyond its configuration.
type Filter struct {
	client ports.MarketDataClient
	logger ports.Logger
	cfg    Config
	atr    *indicators.ATR
}

// NewFilter creates a worth-trading filter.
func NewFilter(client ports.MarketDataClient, logger ports.Logger, cfg Config) *Filter {
	def := DefaultConfig()
	if cfg.Interval == "" {
		cfg.Interval = def.Interval
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = def.CandleLimit
	}
	if cfg.TakerFee == 0 {
		cfg.TakerFee = def.TakerFee
	}
	if cfg.MakerFee == 0 {
		cfg.MakerFee = def.MakerFee
	}
	if cfg.MinRRRatio == 0 {
		cfg.MinRRRatio = def.MinRRRatio
	}
	if cfg.MinExpectedMove == 0 {
		cfg.MinExpectedMove = def.MinExpectedMove
	}
	if cfg.CostMultiplier == 0 {
		cfg.CostMultiplier = def.CostMultiplier
	}
	return &Filter{
		client: client,
		logger: logger,
		cfg:    cfg,
		atr: indicators.NewATR(indicators.ATRConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod},
		}),
	}
}

// CheckParams optionally override the derived inputs of Check. Zero values
// mean "derive from market data".
type CheckParams struct {
	ExpectedMove float64 // Fraction of price, e.g. 0.01 for 1%
	StopLoss     float64 // Stop distance fraction; with TakeProfit set, fixes the RR
	TakeProfit   float64
}

// Check evaluates whether the symbol is currently worth trading.
func (f *Filter) Check(ctx context.Context, symbol string, params CheckParams) (*Result, error) {
	currentPrice, err := f.client.GetCurrentPrice(ctx, symbol)
	if err != nil || currentPrice == 0 {
		return &Result{
			IsWorthTrading: false,
			Reasons:        []string{"current price unavailable"},
			Timestamp:      time.Now(),
		}, nil
	}

	atr, err := f.currentATR(ctx, symbol)
	if err != nil || atr == 0 {
		return &Result{
			IsWorthTrading: false,
			Reasons:        []string{"ATR unavailable"},
			Timestamp:      time.Now(),
		}, nil
	}

	cost := f.tradingCost(ctx, symbol, currentPrice, atr)
	totalCost := cost.Total()

	expectedMove := params.ExpectedMove
	if expectedMove == 0 {
		expectedMove = atr / currentPrice
	}

	riskReward := 0.0
	if params.StopLoss > 0 && params.TakeProfit > 0 {
		riskReward = params.TakeProfit / params.StopLoss
	} else if expectedMove > 0 && totalCost > 0 {
		riskReward = expectedMove / (totalCost * f.cfg.CostMultiplier)
	}

	isWorth := true
	var reasons []string

	if expectedMove < f.cfg.MinExpectedMove {
		isWorth = false
		reasons = append(reasons, fmt.Sprintf("expected move %.2f%% < minimum %.2f%%", expectedMove*100, f.cfg.MinExpectedMove*100))
	} else {
		reasons = append(reasons, fmt.Sprintf("expected move %.2f%% >= minimum", expectedMove*100))
	}

	costThreshold := expectedMove / f.cfg.CostMultiplier
	if totalCost > costThreshold {
		isWorth = false
		reasons = append(reasons, fmt.Sprintf("trading cost %.2f%% > %.0f%% of expected move", totalCost*100, 1/f.cfg.CostMultiplier*100))
	} else {
		reasons = append(reasons, fmt.Sprintf("trading cost %.3f%% acceptable", totalCost*100))
	}

	if riskReward > 0 && riskReward < f.cfg.MinRRRatio {
		isWorth = false
		reasons = append(reasons, fmt.Sprintf("risk/reward %.2f < minimum %.1f", riskReward, f.cfg.MinRRRatio))
	} else if riskReward > 0 {
		reasons = append(reasons, fmt.Sprintf("risk/reward %.2f acceptable", riskReward))
	}

	minProfitTarget := math.Max(expectedMove, totalCost*f.cfg.CostMultiplier)

	return &Result{
		IsWorthTrading:  isWorth,
		ExpectedMove:    expectedMove,
		TotalCost:       totalCost,
		RiskRewardRatio: riskReward,
		MinProfitTarget: minProfitTarget,
		MinStopLoss:     minProfitTarget / f.cfg.MinRRRatio,
		Reasons:         reasons,
		Timestamp:       time.Now(),
	}, nil
}

func (f *Filter) currentATR(ctx context.Context, symbol string) (float64, error) {
	candles, err := f.client.GetKlines(ctx, symbol, f.cfg.Interval, f.cfg.CandleLimit)
	if err != nil {
		return 0, err
	}
	return f.atr.Calculate(ctx, candles)
}

func (f *Filter) tradingCost(ctx context.Context, symbol string, currentPrice, atr float64) Cost {
	cost := Cost{
		TakerFee: f.cfg.TakerFee,
		MakerFee: f.cfg.MakerFee,
		Slippage: 0.0005,
	}

	if spread, err := f.client.GetSpread(ctx, symbol); err == nil {
		cost.SpreadCost = spread
	} else {
		f.logger.Debug(ctx, "spread unavailable, assuming zero", map[string]interface{}{"symbol": symbol})
	}

	if funding, err := f.client.GetFundingRate(ctx, symbol); err == nil {
		cost.FundingImpact = math.Abs(funding)
	}

	// Slippage widens with volatility.
	atrRatio := atr / currentPrice
	if atrRatio > 0.02 {
		cost.Slippage = 0.001
	} else if atrRatio > 0.01 {
		cost.Slippage = 0.0007
	}

	return cost
}

// CalculatePositionSize sizes a position so that a 2xATR adverse move loses
// exactly balance*riskPerTrade: (balance × risk) / (2×ATR) × price, in
// quote currency.
func (f *Filter) CalculatePositionSize(ctx context.Context, symbol string, accountBalance, riskPerTrade float64) (float64, error) {
	atr, err := f.currentATR(ctx, symbol)
	if err != nil {
		return 0, err
	}
	currentPrice, err := f.client.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if atr == 0 || currentPrice == 0 {
		return 0, nil
	}

	stopDistance := atr * 2
	riskAmount := accountBalance * riskPerTrade
	return riskAmount / stopDistance * currentPrice, nil
}

// CalculateStopLoss places a stop a configurable ATR multiple away from entry.
func CalculateStopLoss(entryPrice, atr, multiplier float64, isLong bool) float64 {
	stopDistance := atr * multiplier
	if isLong {
		return entryPrice - stopDistance
	}
	return entryPrice + stopDistance
}

// CalculateTakeProfit projects a target at rrRatio times the stop distance.
func CalculateTakeProfit(entryPrice, stopLoss, rrRatio float64, isLong bool) float64 {
	riskDistance := math.Abs(entryPrice - stopLoss)
	rewardDistance := riskDistance * rrRatio
	if isLong {
		return entryPrice + rewardDistance
	}
	return entryPrice - rewardDistance
}
