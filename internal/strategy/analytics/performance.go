// Package analytics computes performance reports from closed trade
// records, either live trade history or backtest output.
package analytics

import (
	"math"
	"sort"
	"time"

	"perpPatternBot/internal/domain"
)

// PerformanceMetrics summarizes a series of closed trades.
type PerformanceMetrics struct {
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64
	TotalProfit        float64
	MaxDrawdown        float64 // Peak-to-trough equity loss as a fraction
	ProfitFactor       float64
	AverageWin         float64
	AverageLoss        float64
	FinalBalance       float64
	ReturnOnInvestment float64

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration
	Expectancy           float64 // Expected PnL per trade

	// Breakdown by the strategy that produced each trade and by the
	// reason the position was closed.
	ByStrategy    map[string]*StrategyBreakdown
	ByCloseReason map[string]int

	MonthlyReturns map[string]float64
	Drawdowns      []Drawdown
	EquityCurve    []EquityPoint
}

// StrategyBreakdown is the per-strategy slice of the overall metrics.
type StrategyBreakdown struct {
	Trades        int
	WinningTrades int
	TotalProfit   float64
}

// Drawdown is one peak-to-recovery equity excursion.
type Drawdown struct {
	StartTime  time.Time
	EndTime    time.Time
	StartValue float64
	EndValue   float64
	Depth      float64
	Duration   time.Duration
}

// EquityPoint is one point on the post-trade equity curve.
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// AnalyzePerformance calculates the full metric set from closed trades.
// Trades are processed in entry-time order; the input slice is not
// modified.
func AnalyzePerformance(trades []*domain.TradeRecord, initialBalance float64) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		FinalBalance:   initialBalance,
		ByStrategy:     make(map[string]*StrategyBreakdown),
		ByCloseReason:  make(map[string]int),
		MonthlyReturns: make(map[string]float64),
		Drawdowns:      make([]Drawdown, 0),
		EquityCurve:    make([]EquityPoint, 0),
	}
	if len(trades) == 0 {
		return metrics
	}

	ordered := make([]*domain.TradeRecord, len(trades))
	copy(ordered, trades)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].EntryTime.Before(ordered[j].EntryTime)
	})

	balance := initialBalance
	peak := initialBalance
	var currentDrawdown *Drawdown
	var streakWins, streakLosses int
	var totalDuration time.Duration

	for _, trade := range ordered {
		metrics.TotalTrades++
		if trade.PNL > 0 {
			metrics.WinningTrades++
			streakWins++
			streakLosses = 0
			metrics.AverageWin = (metrics.AverageWin*float64(metrics.WinningTrades-1) + trade.PNL) / float64(metrics.WinningTrades)
		} else {
			metrics.LosingTrades++
			streakLosses++
			streakWins = 0
			metrics.AverageLoss = (metrics.AverageLoss*float64(metrics.LosingTrades-1) + trade.PNL) / float64(metrics.LosingTrades)
		}
		if streakWins > metrics.MaxConsecutiveWins {
			metrics.MaxConsecutiveWins = streakWins
		}
		if streakLosses > metrics.MaxConsecutiveLosses {
			metrics.MaxConsecutiveLosses = streakLosses
		}

		balance += trade.PNL
		metrics.TotalProfit += trade.PNL
		metrics.FinalBalance = balance
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)

		breakdown := metrics.ByStrategy[trade.Strategy]
		if breakdown == nil {
			breakdown = &StrategyBreakdown{}
			metrics.ByStrategy[trade.Strategy] = breakdown
		}
		breakdown.Trades++
		breakdown.TotalProfit += trade.PNL
		if trade.PNL > 0 {
			breakdown.WinningTrades++
		}
		if trade.Reason != "" {
			metrics.ByCloseReason[trade.Reason]++
		}

		metrics.MonthlyReturns[trade.ExitTime.Format("2006-01")] += trade.PNL

		if balance > peak {
			peak = balance
			if currentDrawdown != nil {
				currentDrawdown.EndTime = trade.ExitTime
				currentDrawdown.EndValue = balance
				currentDrawdown.Duration = currentDrawdown.EndTime.Sub(currentDrawdown.StartTime)
				metrics.Drawdowns = append(metrics.Drawdowns, *currentDrawdown)
				currentDrawdown = nil
			}
		} else {
			// Depth is undefined without a positive peak, as when the
			// analysis starts from a zero balance.
			depth := 0.0
			if peak > 0 {
				depth = (peak - balance) / peak
			}
			if currentDrawdown == nil {
				currentDrawdown = &Drawdown{
					StartTime:  trade.ExitTime,
					StartValue: peak,
					Depth:      depth,
				}
			} else {
				currentDrawdown.Depth = math.Max(currentDrawdown.Depth, depth)
			}
			if depth > metrics.MaxDrawdown {
				metrics.MaxDrawdown = depth
			}
		}

		point := EquityPoint{Time: trade.ExitTime, Value: balance}
		if peak > 0 {
			point.Drawdown = (peak - balance) / peak
		}
		metrics.EquityCurve = append(metrics.EquityCurve, point)
	}

	if currentDrawdown != nil {
		currentDrawdown.EndTime = ordered[len(ordered)-1].ExitTime
		currentDrawdown.EndValue = balance
		currentDrawdown.Duration = currentDrawdown.EndTime.Sub(currentDrawdown.StartTime)
		metrics.Drawdowns = append(metrics.Drawdowns, *currentDrawdown)
	}

	metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.TotalTrades)
	if metrics.AverageLoss != 0 {
		metrics.ProfitFactor = metrics.AverageWin / -metrics.AverageLoss
	}
	if initialBalance > 0 {
		metrics.ReturnOnInvestment = (metrics.FinalBalance - initialBalance) / initialBalance
	}
	metrics.AverageTradeDuration = totalDuration / time.Duration(len(ordered))
	metrics.Expectancy = metrics.WinRate*metrics.AverageWin + (1-metrics.WinRate)*metrics.AverageLoss

	return metrics
}

// MonthlyReturn is one month's realized PnL.
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}

// GetMonthlyReturns returns the monthly PnL in chronological order.
func (m *PerformanceMetrics) GetMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, profit := range m.MonthlyReturns {
		date, err := time.Parse("2006-01", month)
		if err != nil {
			continue
		}
		returns = append(returns, MonthlyReturn{Month: date, Return: profit})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}
