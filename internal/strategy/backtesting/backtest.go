// Package backtesting replays archived candles through a pattern strategy
// and reports the trade outcomes it would have produced.
package backtesting

import (
	"context"
	"fmt"
	"math"
	"time"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"
)

// Config holds the backtest parameters. Quantity is the notional position
// size in quote currency; fees are charged per side as a fraction of it.
type Config struct {
	Symbol       string
	Timeframe    string
	InitialFunds float64
	Quantity     float64
	TakerFee     float64
	MinGapBars   int // Bars to wait after a close before re-entering
}

// DefaultConfig returns the standard backtest settings.
func DefaultConfig() Config {
	return Config{
		Timeframe:    "5m",
		InitialFunds: 10000,
		Quantity:     1000,
		TakerFee:     0.0005,
		MinGapBars:   3,
	}
}

// Result aggregates the outcome of a single backtest run.
type Result struct {
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64
	TotalProfit        float64
	MaxDrawdown        float64 // Peak-to-trough equity loss as a fraction
	ProfitFactor       float64
	AverageWin         float64
	AverageLoss        float64
	SharpeRatio        float64
	FinalBalance       float64
	ReturnOnInvestment float64
	Trades             []*domain.TradeRecord
}

// Run replays the candle series through the strategy. At each bar the open
// position is checked against its stop and target using the bar's high and
// low; when flat, the strategy is asked for a signal on the history up to
// and including the current bar.
func Run(ctx context.Context, strat ports.PatternStrategy, candles []*domain.Candle, cfg Config) (*Result, error) {
	if strat == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	if len(candles) < strat.RequiredDataPoints() {
		return nil, fmt.Errorf("%w: need %d candles, got %d", ports.ErrInsufficientData, strat.RequiredDataPoints(), len(candles))
	}
	def := DefaultConfig()
	if cfg.Timeframe == "" {
		cfg.Timeframe = def.Timeframe
	}
	if cfg.InitialFunds <= 0 {
		cfg.InitialFunds = def.InitialFunds
	}
	if cfg.Quantity <= 0 {
		cfg.Quantity = def.Quantity
	}

	result := &Result{FinalBalance: cfg.InitialFunds}
	peakBalance := cfg.InitialFunds

	var open *domain.Position
	lastExitBar := -cfg.MinGapBars

	for i := strat.RequiredDataPoints(); i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := candles[i]

		if open != nil {
			exitPrice, reason, status := checkExit(open, bar)
			if reason != "" {
				record := closeTrade(open, bar, exitPrice, reason, status, cfg)
				result.Trades = append(result.Trades, record)
				applyTrade(result, &peakBalance, record.PNL)
				open = nil
				lastExitBar = i
			}
			continue
		}

		if i-lastExitBar < cfg.MinGapBars {
			continue
		}

		history := candles[:i+1]
		signals, err := strat.Detect(ctx, cfg.Symbol, map[string][]*domain.Candle{cfg.Timeframe: history})
		if err != nil {
			return nil, fmt.Errorf("detection failed at bar %d: %w", i, err)
		}
		if len(signals) == 0 {
			continue
		}

		sig := bestSignal(signals)
		open = &domain.Position{
			Symbol:     cfg.Symbol,
			Side:       sig.Side,
			EntryPrice: bar.Close,
			Quantity:   cfg.Quantity,
			StopLoss:   sig.StopLoss,
			TakeProfit: sig.TakeProfit,
			Strategy:   sig.Strategy,
			EntryTime:  bar.CloseTime,
			Status:     domain.StatusActive,
		}
		result.TotalTrades++
	}

	// A position still open at the end is closed at the last price.
	if open != nil {
		last := candles[len(candles)-1]
		status := domain.StatusStopped
		if open.PnLAt(last.Close) > 0 {
			status = domain.StatusProfitTaken
		}
		record := closeTrade(open, last, last.Close, "end of data", status, cfg)
		result.Trades = append(result.Trades, record)
		applyTrade(result, &peakBalance, record.PNL)
	}

	finalize(result, cfg)
	return result, nil
}

// checkExit tests the bar's range against the stop and target. When both
// levels fall inside one bar the stop is assumed to fill first.
func checkExit(pos *domain.Position, bar *domain.Candle) (price float64, reason string, status domain.PositionStatus) {
	if pos.Side == domain.Long {
		if bar.Low <= pos.StopLoss {
			return pos.StopLoss, "stop loss hit", domain.StatusStopped
		}
		if bar.High >= pos.TakeProfit {
			return pos.TakeProfit, "take profit hit", domain.StatusProfitTaken
		}
		return 0, "", ""
	}
	if bar.High >= pos.StopLoss {
		return pos.StopLoss, "stop loss hit", domain.StatusStopped
	}
	if bar.Low <= pos.TakeProfit {
		return pos.TakeProfit, "take profit hit", domain.StatusProfitTaken
	}
	return 0, "", ""
}

func closeTrade(pos *domain.Position, bar *domain.Candle, exitPrice float64, reason string, status domain.PositionStatus, cfg Config) *domain.TradeRecord {
	pnl := pos.PnLAt(exitPrice) - 2*cfg.TakerFee*cfg.Quantity
	return &domain.TradeRecord{
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   pos.Quantity,
		PNL:        pnl,
		Strategy:   pos.Strategy,
		EntryTime:  pos.EntryTime,
		ExitTime:   bar.CloseTime,
		Status:     status,
		Reason:     reason,
	}
}

func bestSignal(signals []*domain.TradingSignal) *domain.TradingSignal {
	best := signals[0]
	for _, sig := range signals[1:] {
		if sig.Confidence > best.Confidence {
			best = sig
		}
	}
	return best
}

func applyTrade(result *Result, peakBalance *float64, pnl float64) {
	result.TotalProfit += pnl
	result.FinalBalance += pnl
	if pnl > 0 {
		result.WinningTrades++
		result.AverageWin = (result.AverageWin*float64(result.WinningTrades-1) + pnl) / float64(result.WinningTrades)
	} else {
		result.LosingTrades++
		result.AverageLoss = (result.AverageLoss*float64(result.LosingTrades-1) + pnl) / float64(result.LosingTrades)
	}
	if result.FinalBalance > *peakBalance {
		*peakBalance = result.FinalBalance
	}
	if *peakBalance > 0 {
		drawdown := (*peakBalance - result.FinalBalance) / *peakBalance
		if drawdown > result.MaxDrawdown {
			result.MaxDrawdown = drawdown
		}
	}
}

func finalize(result *Result, cfg Config) {
	closed := result.WinningTrades + result.LosingTrades
	if closed > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(closed)
	}
	if result.AverageLoss != 0 {
		result.ProfitFactor = result.AverageWin / -result.AverageLoss
	}
	result.ReturnOnInvestment = (result.FinalBalance - cfg.InitialFunds) / cfg.InitialFunds
	result.SharpeRatio = sharpeRatio(result.Trades, cfg.Quantity)
}

// sharpeRatio computes the per-trade Sharpe ratio over trade returns
// relative to the position size, with a zero risk-free rate.
func sharpeRatio(trades []*domain.TradeRecord, quantity float64) float64 {
	if len(trades) < 2 || quantity == 0 {
		return 0
	}
	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.PNL / quantity
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}
	return mean / stdDev
}

// RunWindow slices the candle series to [start, end) by close time before
// running the backtest.
func RunWindow(ctx context.Context, strat ports.PatternStrategy, candles []*domain.Candle, start, end time.Time, cfg Config) (*Result, error) {
	window := make([]*domain.Candle, 0, len(candles))
	for _, c := range candles {
		if !c.CloseTime.Before(start) && c.CloseTime.Before(end) {
			window = append(window, c)
		}
	}
	return Run(ctx, strat, window, cfg)
}
