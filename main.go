package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"perpPatternBot/config"
	"perpPatternBot/internal/adapters/binanceclient"
	"perpPatternBot/internal/adapters/logger"
	"perpPatternBot/internal/adapters/sqlite"
	"perpPatternBot/internal/app"
	"perpPatternBot/internal/execution"
	"perpPatternBot/internal/marketstate"
	"perpPatternBot/internal/ports"
	"perpPatternBot/internal/position"
	"perpPatternBot/internal/risk"
	"perpPatternBot/internal/strategy/analytics"
	"perpPatternBot/internal/strategy/confluence"
	"perpPatternBot/internal/strategy/strategies"
	"perpPatternBot/internal/worthtrading"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	params, err := config.LoadParams(cfg.StrategyParams)
	if err != nil {
		log.Fatalf("FATAL: Failed to load strategy parameters: %v", err)
	}
	store := config.NewStore(cfg, params)

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()
	appLogger.Info(ctx, "Database repository initialized")

	// 4. Initialize Exchange Client (Binance Futures Adapter)
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(ctx, "Binance client initialized", map[string]interface{}{
		"testnet": cfg.IsTestnet, "simulation": cfg.EnableSimulation,
	})

	// 5. Build the pattern strategies per timeframe.
	strategyMap, err := buildStrategies(cfg.Timeframes, params, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize pattern strategies")
		log.Fatalf("FATAL: Failed to initialize pattern strategies: %v", err)
	}

	confluenceCfg := confluence.DefaultConfig()
	confluenceCfg.PrimaryTimeframe = cfg.PrimaryTimeframe
	if len(params.Confluence.Weights) > 0 {
		confluenceCfg.Weights = params.Confluence.Weights
	}
	if params.Confluence.MinScore > 0 {
		confluenceCfg.MinScore = params.Confluence.MinScore
	}
	analyzer := confluence.NewAnalyzer(strategyMap, appLogger, confluenceCfg)

	// 6. Risk, position and execution layers.
	riskMgr := risk.NewManager(risk.Config{
		MaxDrawdownPercent:   cfg.MaxDrawdownPercent,
		MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		DailyLossLimit:       cfg.DailyLossLimit,
		CooldownPeriod:       time.Duration(cfg.CooldownMinutes) * time.Minute,
	})
	positions := position.NewManager(position.Config{MaxPositions: cfg.MaxPositions})
	gate := execution.NewGate(execution.Config{
		MinTradeInterval: time.Duration(cfg.MinTradeIntervalMinutes) * time.Minute,
		MinBodyRatio:     cfg.MinBodyRatio,
	}, positions)

	worthCfg := worthtrading.DefaultConfig()
	worthCfg.Interval = cfg.PrimaryTimeframe
	if params.WorthTrading.MinExpectedMove > 0 {
		worthCfg.MinExpectedMove = params.WorthTrading.MinExpectedMove
	}
	if params.WorthTrading.MinRiskReward > 0 {
		worthCfg.MinRRRatio = params.WorthTrading.MinRiskReward
	}
	worth := worthtrading.NewFilter(client, appLogger, worthCfg)

	stateCfg := marketstate.DefaultConfig()
	stateCfg.Interval = cfg.PrimaryTimeframe
	if params.MarketState.MinATRRatio > 0 {
		stateCfg.ATRSleepThreshold = params.MarketState.MinATRRatio
	}
	if params.MarketState.MaxATRRatio > 0 {
		stateCfg.ATRActiveThreshold = params.MarketState.MaxATRRatio
	}
	if params.MarketState.EnableSleepFilter != nil {
		stateCfg.EnableSleepFilter = *params.MarketState.EnableSleepFilter
	}

	// 7. Assemble the trading engine.
	var executor ports.OrderExecutor
	if !cfg.EnableSimulation {
		executor = client
	}
	engine, err := app.NewEngine(app.Config{
		Symbols:          cfg.Symbols,
		Timeframes:       cfg.Timeframes,
		PrimaryTimeframe: cfg.PrimaryTimeframe,
		PollInterval:     cfg.PollInterval,
		EnableSimulation: cfg.EnableSimulation,
		RiskPerTrade:     cfg.RiskPerTrade,
		MinStopDistance:  cfg.MinStopDistance,
	}, app.Deps{
		Logger:     appLogger,
		Market:     client,
		Executor:   executor,
		Candles:    repo,
		Store:      store,
		Risk:       riskMgr,
		Gate:       gate,
		Positions:  positions,
		Worth:      worth,
		Confluence: analyzer,
		StateCfg:   stateCfg,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading engine")
		log.Fatalf("FATAL: Failed to initialize trading engine: %v", err)
	}
	appLogger.Info(ctx, "Trading engine initialized", map[string]interface{}{
		"symbols": cfg.Symbols, "timeframes": cfg.Timeframes,
	})

	// 8. Reload configuration on SIGHUP; the engine picks up tunables on
	// its next cycle.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			newCfg, err := config.LoadConfig()
			if err != nil {
				appLogger.Warn(ctx, "Config reload failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			newParams, err := config.LoadParams(newCfg.StrategyParams)
			if err != nil {
				appLogger.Warn(ctx, "Strategy parameter reload failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			store.Reload(newCfg)
			store.ReloadParams(newParams)
			appLogger.Info(ctx, "Configuration reloaded")
		}
	}()

	// 9. Run until interrupted.
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(runCtx); err != nil {
		appLogger.Error(ctx, err, "Trading engine exited with error")
		log.Fatalf("FATAL: Trading engine exited with error: %v", err)
	}

	if trades := engine.TradeHistory(); len(trades) > 0 {
		metrics := analytics.AnalyzePerformance(trades, 0)
		appLogger.Info(ctx, "Session summary", map[string]interface{}{
			"trades":   metrics.TotalTrades,
			"winRate":  metrics.WinRate,
			"totalPnl": metrics.TotalProfit,
		})
	}
	appLogger.Info(ctx, "Application finished gracefully.")
}

// buildStrategies instantiates the three pattern detectors for every
// configured timeframe, applying YAML overrides on top of the defaults.
func buildStrategies(timeframes []string, params *config.Params, appLogger ports.Logger) (map[string][]ports.PatternStrategy, error) {
	out := make(map[string][]ports.PatternStrategy, len(timeframes))
	for _, tf := range timeframes {
		fakeoutCfg := strategies.DefaultFakeoutConfig()
		fakeoutCfg.Timeframe = tf
		if params.Fakeout.SwingPeriod > 0 {
			fakeoutCfg.SwingPeriod = params.Fakeout.SwingPeriod
		}
		if params.Fakeout.MaxStructureLevels > 0 {
			fakeoutCfg.MaxStructureLevels = params.Fakeout.MaxStructureLevels
		}
		if params.Fakeout.StructureValidBars > 0 {
			fakeoutCfg.StructureValidBars = params.Fakeout.StructureValidBars
		}
		if params.Fakeout.MinStrength > 0 {
			fakeoutCfg.MinStrength = params.Fakeout.MinStrength
		}
		fakeout, err := strategies.NewFakeout(fakeoutCfg, appLogger)
		if err != nil {
			return nil, err
		}

		fvgCfg := strategies.DefaultFVGConfig()
		fvgCfg.Timeframe = tf
		if params.FVG.MinSizePercent > 0 {
			fvgCfg.MinFVGSizePercent = params.FVG.MinSizePercent
		}
		if params.FVG.MaxAgeMinutes > 0 {
			fvgCfg.MaxFVGAge = time.Duration(params.FVG.MaxAgeMinutes) * time.Minute
		}
		if params.FVG.MinRiskReward > 0 {
			fvgCfg.MinRiskReward = params.FVG.MinRiskReward
		}
		fvg, err := strategies.NewFVG(fvgCfg, appLogger)
		if err != nil {
			return nil, err
		}

		sweepCfg := strategies.DefaultLiquiditySweepConfig()
		sweepCfg.Timeframe = tf
		if params.LiquiditySweep.SweepLookback > 0 {
			sweepCfg.SwingLookback = params.LiquiditySweep.SweepLookback
		}
		if params.LiquiditySweep.MinStrength > 0 {
			sweepCfg.LiquidityThreshold = params.LiquiditySweep.MinStrength
		}
		if params.LiquiditySweep.MaxSweepAge > 0 {
			sweepCfg.MaxSweepAge = params.LiquiditySweep.MaxSweepAge
		}
		sweep, err := strategies.NewLiquiditySweep(sweepCfg, appLogger)
		if err != nil {
			return nil, err
		}

		out[tf] = []ports.PatternStrategy{fakeout, fvg, sweep}
	}
	return out, nil
}
