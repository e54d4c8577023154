package analytics

import (
	"math"
	"testing"
	"time"

	"perpPatternBot/internal/domain"
)

func record(strategy string, pnl float64, entry, exit time.Time, reason string) *domain.TradeRecord {
	status := domain.StatusProfitTaken
	if pnl <= 0 {
		status = domain.StatusStopped
	}
	return &domain.TradeRecord{
		Symbol:     "ETHUSDT",
		Side:       domain.Long,
		EntryPrice: 100,
		ExitPrice:  100 + pnl/10,
		Quantity:   1000,
		PNL:        pnl,
		Strategy:   strategy,
		EntryTime:  entry,
		ExitTime:   exit,
		Status:     status,
		Reason:     reason,
	}
}

func TestAnalyzePerformance_Empty(t *testing.T) {
	metrics := AnalyzePerformance(nil, 10000)
	if metrics.TotalTrades != 0 {
		t.Errorf("TotalTrades = %d, want 0", metrics.TotalTrades)
	}
	if metrics.FinalBalance != 10000 {
		t.Errorf("FinalBalance = %v, want untouched initial balance", metrics.FinalBalance)
	}
}

func TestAnalyzePerformance_Metrics(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	hour := time.Hour
	trades := []*domain.TradeRecord{
		record("fakeout", 100, base, base.Add(hour), "take profit hit"),
		record("fvg", -40, base.Add(2*hour), base.Add(3*hour), "stop loss hit"),
		record("fvg", -40, base.Add(4*hour), base.Add(5*hour), "stop loss hit"),
		record("fakeout", 60, base.Add(6*hour), base.Add(8*hour), "take profit hit"),
	}

	metrics := AnalyzePerformance(trades, 10000)

	if metrics.TotalTrades != 4 {
		t.Fatalf("TotalTrades = %d, want 4", metrics.TotalTrades)
	}
	if metrics.WinningTrades != 2 || metrics.LosingTrades != 2 {
		t.Errorf("wins/losses = %d/%d, want 2/2", metrics.WinningTrades, metrics.LosingTrades)
	}
	if metrics.WinRate != 0.5 {
		t.Errorf("WinRate = %v, want 0.5", metrics.WinRate)
	}
	if metrics.TotalProfit != 80 {
		t.Errorf("TotalProfit = %v, want 80", metrics.TotalProfit)
	}
	if metrics.FinalBalance != 10080 {
		t.Errorf("FinalBalance = %v, want 10080", metrics.FinalBalance)
	}
	if metrics.AverageWin != 80 {
		t.Errorf("AverageWin = %v, want 80", metrics.AverageWin)
	}
	if metrics.AverageLoss != -40 {
		t.Errorf("AverageLoss = %v, want -40", metrics.AverageLoss)
	}
	if metrics.ProfitFactor != 2 {
		t.Errorf("ProfitFactor = %v, want 2", metrics.ProfitFactor)
	}
	if metrics.MaxConsecutiveLosses != 2 {
		t.Errorf("MaxConsecutiveLosses = %d, want 2", metrics.MaxConsecutiveLosses)
	}
	// (0.5 * 80) + (0.5 * -40)
	if metrics.Expectancy != 20 {
		t.Errorf("Expectancy = %v, want 20", metrics.Expectancy)
	}
	if metrics.AverageTradeDuration != 75*time.Minute {
		t.Errorf("AverageTradeDuration = %v, want 1h15m", metrics.AverageTradeDuration)
	}
}

func TestAnalyzePerformance_Breakdowns(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	trades := []*domain.TradeRecord{
		record("fakeout", 100, base, base.Add(time.Hour), "take profit hit"),
		record("fvg", -40, base.Add(2*time.Hour), base.Add(3*time.Hour), "stop loss hit"),
		record("fvg", 30, base.Add(4*time.Hour), base.Add(5*time.Hour), "take profit hit"),
	}

	metrics := AnalyzePerformance(trades, 10000)

	fvg := metrics.ByStrategy["fvg"]
	if fvg == nil || fvg.Trades != 2 || fvg.WinningTrades != 1 {
		t.Fatalf("fvg breakdown = %+v, want 2 trades with 1 win", fvg)
	}
	if fvg.TotalProfit != -10 {
		t.Errorf("fvg TotalProfit = %v, want -10", fvg.TotalProfit)
	}
	if metrics.ByCloseReason["stop loss hit"] != 1 {
		t.Errorf("stop loss count = %d, want 1", metrics.ByCloseReason["stop loss hit"])
	}
	if metrics.ByCloseReason["take profit hit"] != 2 {
		t.Errorf("take profit count = %d, want 2", metrics.ByCloseReason["take profit hit"])
	}
}

func TestAnalyzePerformance_DrawdownTracking(t *testing.T) {
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	trades := []*domain.TradeRecord{
		record("fakeout", 200, base, base.Add(time.Hour), "take profit hit"),
		record("fakeout", -510, base.Add(2*time.Hour), base.Add(3*time.Hour), "stop loss hit"),
		record("fakeout", 600, base.Add(4*time.Hour), base.Add(5*time.Hour), "take profit hit"),
	}

	metrics := AnalyzePerformance(trades, 10000)

	// Peak 10200, trough 9690.
	want := 510.0 / 10200.0
	if metrics.MaxDrawdown != want {
		t.Errorf("MaxDrawdown = %v, want %v", metrics.MaxDrawdown, want)
	}
	if len(metrics.Drawdowns) != 1 {
		t.Fatalf("Drawdowns = %d, want 1 recovered excursion", len(metrics.Drawdowns))
	}
	dd := metrics.Drawdowns[0]
	if dd.StartValue != 10200 || dd.EndValue != 10290 {
		t.Errorf("drawdown %v -> %v, want 10200 -> 10290", dd.StartValue, dd.EndValue)
	}
	if len(metrics.EquityCurve) != 3 {
		t.Errorf("EquityCurve points = %d, want 3", len(metrics.EquityCurve))
	}
}

func TestGetMonthlyReturns_Sorted(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	trades := []*domain.TradeRecord{
		record("fakeout", 50, feb, feb.Add(time.Hour), "take profit hit"),
		record("fakeout", -20, jan, jan.Add(time.Hour), "stop loss hit"),
	}

	metrics := AnalyzePerformance(trades, 10000)
	returns := metrics.GetMonthlyReturns()
	if len(returns) != 2 {
		t.Fatalf("months = %d, want 2", len(returns))
	}
	if returns[0].Return != -20 || returns[1].Return != 50 {
		t.Errorf("returns = %v then %v, want -20 then 50", returns[0].Return, returns[1].Return)
	}
}

func TestAnalyzePerformance_ZeroInitialBalance(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	trades := []*domain.TradeRecord{
		record("fakeout", -50, base, base.Add(time.Hour), "stop loss hit"),
		record("fakeout", 120, base.Add(2*time.Hour), base.Add(3*time.Hour), "take profit hit"),
	}

	metrics := AnalyzePerformance(trades, 0)
	if math.IsInf(metrics.MaxDrawdown, 0) || math.IsNaN(metrics.MaxDrawdown) {
		t.Fatalf("MaxDrawdown = %v, want finite with no starting balance", metrics.MaxDrawdown)
	}
	if metrics.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0 without a positive peak", metrics.MaxDrawdown)
	}
	for _, p := range metrics.EquityCurve {
		if math.IsInf(p.Drawdown, 0) || math.IsNaN(p.Drawdown) {
			t.Fatalf("equity point drawdown = %v, want finite", p.Drawdown)
		}
	}
	if metrics.TotalProfit != 70 {
		t.Errorf("TotalProfit = %v, want 70", metrics.TotalProfit)
	}
}
