// Command backtest_runner replays archived candles through each pattern
// strategy and prints a performance report per strategy.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"perpPatternBot/config"
	"perpPatternBot/internal/adapters/logger"
	"perpPatternBot/internal/adapters/sqlite"
	"perpPatternBot/internal/ports"
	"perpPatternBot/internal/strategy/analytics"
	"perpPatternBot/internal/strategy/backtesting"
	"perpPatternBot/internal/strategy/strategies"
)

func main() {
	symbol := flag.String("symbol", "ETHUSDT", "Symbol to backtest")
	interval := flag.String("interval", "5m", "Candle interval to replay")
	days := flag.Int("days", 90, "How many days of archived history to use")
	funds := flag.Float64("funds", 10000, "Initial balance")
	quantity := flag.Float64("quantity", 1000, "Notional position size per trade")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	ctx := context.Background()

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to open candle archive")
		log.Fatalf("FATAL: Failed to open candle archive: %v", err)
	}
	defer repo.Close()

	end := time.Now()
	start := end.AddDate(0, 0, -*days)
	candles, err := repo.FindCandles(ctx, *symbol, *interval, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load candles")
		log.Fatalf("FATAL: Failed to load candles: %v", err)
	}
	if len(candles) == 0 {
		log.Fatalf("No archived candles for %s %s; run fetch_klines first", *symbol, *interval)
	}
	appLogger.Info(ctx, "Loaded candles", map[string]interface{}{
		"symbol": *symbol, "interval": *interval, "count": len(candles),
	})

	strats, err := buildStrategies(*interval, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to build strategies: %v", err)
	}

	btCfg := backtesting.Config{
		Symbol:       *symbol,
		Timeframe:    *interval,
		InitialFunds: *funds,
		Quantity:     *quantity,
		TakerFee:     0.0005,
		MinGapBars:   3,
	}

	type outcome struct {
		name   string
		result *backtesting.Result
		err    error
	}
	results := make([]outcome, len(strats))

	var wg sync.WaitGroup
	for i, strat := range strats {
		wg.Add(1)
		go func(i int, strat ports.PatternStrategy) {
			defer wg.Done()
			res, err := backtesting.Run(ctx, strat, candles, btCfg)
			results[i] = outcome{name: strat.Name(), result: res, err: err}
		}(i, strat)
	}
	wg.Wait()

	for _, out := range results {
		if out.err != nil {
			appLogger.Error(ctx, out.err, "Backtest failed", map[string]interface{}{"strategy": out.name})
			continue
		}
		printReport(out.name, out.result, *funds)
	}
}

func buildStrategies(interval string, appLogger ports.Logger) ([]ports.PatternStrategy, error) {
	fakeoutCfg := strategies.DefaultFakeoutConfig()
	fakeoutCfg.Timeframe = interval
	fakeout, err := strategies.NewFakeout(fakeoutCfg, appLogger)
	if err != nil {
		return nil, err
	}

	fvgCfg := strategies.DefaultFVGConfig()
	fvgCfg.Timeframe = interval
	fvg, err := strategies.NewFVG(fvgCfg, appLogger)
	if err != nil {
		return nil, err
	}

	sweepCfg := strategies.DefaultLiquiditySweepConfig()
	sweepCfg.Timeframe = interval
	sweep, err := strategies.NewLiquiditySweep(sweepCfg, appLogger)
	if err != nil {
		return nil, err
	}

	return []ports.PatternStrategy{fakeout, fvg, sweep}, nil
}

func printReport(name string, result *backtesting.Result, funds float64) {
	metrics := analytics.AnalyzePerformance(result.Trades, funds)

	fmt.Printf("\n=== %s ===\n", name)
	fmt.Printf("Trades:          %d (%d wins, %d losses)\n",
		metrics.TotalTrades, metrics.WinningTrades, metrics.LosingTrades)
	fmt.Printf("Win rate:        %.1f%%\n", metrics.WinRate*100)
	fmt.Printf("Total profit:    %.2f USDT\n", metrics.TotalProfit)
	fmt.Printf("Final balance:   %.2f USDT (ROI %.2f%%)\n",
		metrics.FinalBalance, metrics.ReturnOnInvestment*100)
	fmt.Printf("Avg win/loss:    %.2f / %.2f\n", metrics.AverageWin, metrics.AverageLoss)
	fmt.Printf("Profit factor:   %.2f\n", metrics.ProfitFactor)
	fmt.Printf("Max drawdown:    %.2f%%\n", metrics.MaxDrawdown*100)
	fmt.Printf("Sharpe ratio:    %.2f\n", result.SharpeRatio)
	fmt.Printf("Expectancy:      %.2f USDT/trade\n", metrics.Expectancy)
	fmt.Printf("Avg duration:    %s\n", metrics.AverageTradeDuration)

	if len(metrics.ByCloseReason) > 0 {
		fmt.Println("Close reasons:")
		for reason, count := range metrics.ByCloseReason {
			fmt.Printf("  %-18s %d\n", reason, count)
		}
	}

	monthly := metrics.GetMonthlyReturns()
	if len(monthly) > 0 {
		fmt.Println("Monthly returns:")
		for _, m := range monthly {
			fmt.Printf("  %s  %+.2f USDT\n", m.Month.Format("2006-01"), m.Return)
		}
	}
}
