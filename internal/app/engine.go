package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"perpPatternBot/config"
	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/execution"
	"perpPatternBot/internal/marketstate"
	"perpPatternBot/internal/ports"
	"perpPatternBot/internal/position"
	"perpPatternBot/internal/risk"
	"perpPatternBot/internal/strategy/confluence"
	"perpPatternBot/internal/utils"
	"perpPatternBot/internal/worthtrading"
)

// Config holds the engine's pipeline settings.
type Config struct {
	Symbols          []string
	Timeframes       []string
	PrimaryTimeframe string
	CandleLimit      int // Candles fetched per timeframe each cycle

	PollInterval    time.Duration
	ErrorBackoff    time.Duration // Wait after a failed cycle
	MonitorInterval time.Duration // Poll interval of the position monitor

	EnableSimulation bool
	RiskPerTrade     float64
	MinStopDistance  float64 // Passed to the execution gate
	MinConfidence    float64 // Confluence results below this are dropped
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		PrimaryTimeframe: "5m",
		Timeframes:       []string{"5m", "15m", "1h"},
		CandleLimit:      100,
		PollInterval:     5 * time.Second,
		ErrorBackoff:     10 * time.Second,
		MonitorInterval:  2 * time.Second,
		EnableSimulation: true,
		RiskPerTrade:     0.02,
		MinStopDistance:  0.005,
		MinConfidence:    0.5,
	}
}

// Stats is a snapshot of the engine's counters.
type Stats struct {
	CyclesCompleted int
	CycleErrors     int
	SignalsFound    int
	TradesExecuted  int
	FailedOrders    int
	Skips           map[string]int
	LastCycle       time.Time
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Logger     ports.Logger
	Market     ports.MarketDataClient
	Executor   ports.OrderExecutor
	Candles    ports.CandleRepository // Optional; nil disables candle archiving
	Store      *config.Store          // Optional; live tunables are re-read each cycle
	Risk       *risk.Manager
	Gate       *execution.Gate
	Positions  *position.Manager
	Worth      *worthtrading.Filter
	Confluence *confluence.Analyzer
	Hooks      ports.Hooks
	StateCfg   marketstate.Config
}

// Engine runs the signal pipeline on a fixed polling interval: health
// check, circuit breaker, then per symbol market state, worth-trading
// filter, multi-timeframe pattern detection, confluence, execution gate
// and order placement. One cycle's failure never stops the loop.
type Engine struct {
	cfg  Config
	deps Deps

	mu    sync.Mutex
	stats Stats
	// Closed trades for this run. History does not survive a restart.
	trades []*domain.TradeRecord

	simCounter atomic.Int64
	wg         sync.WaitGroup
}

// NewEngine creates the trading engine. Zero-value config fields fall
// back to defaults.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if deps.Logger == nil || deps.Market == nil || deps.Risk == nil ||
		deps.Gate == nil || deps.Positions == nil || deps.Worth == nil || deps.Confluence == nil {
		return nil, fmt.Errorf("missing required dependencies for trading engine")
	}
	if !cfg.EnableSimulation && deps.Executor == nil {
		return nil, fmt.Errorf("order executor is required when simulation is disabled")
	}
	if deps.Hooks == nil {
		deps.Hooks = ports.NoopHooks{}
	}
	if deps.StateCfg == (marketstate.Config{}) {
		deps.StateCfg = marketstate.DefaultConfig()
	}

	def := DefaultConfig()
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = def.Timeframes
	}
	if cfg.PrimaryTimeframe == "" {
		cfg.PrimaryTimeframe = def.PrimaryTimeframe
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = def.CandleLimit
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = def.MonitorInterval
	}
	if cfg.RiskPerTrade <= 0 {
		cfg.RiskPerTrade = def.RiskPerTrade
	}
	if cfg.MinStopDistance <= 0 {
		cfg.MinStopDistance = def.MinStopDistance
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}

	return &Engine{
		cfg:   cfg,
		deps:  deps,
		stats: Stats{Skips: make(map[string]int)},
	}, nil
}

// Run executes the polling loop until ctx is cancelled. Cycle failures
// are logged and followed by a backoff wait; the loop itself never
// terminates on error.
func (e *Engine) Run(ctx context.Context) error {
	e.deps.Logger.Info(ctx, "Trading engine started", map[string]interface{}{
		"symbols":      e.cfg.Symbols,
		"timeframes":   e.cfg.Timeframes,
		"pollInterval": e.cfg.PollInterval.String(),
		"simulation":   e.cfg.EnableSimulation,
	})

	if balance, err := e.accountBalance(ctx); err == nil {
		e.deps.Risk.SetInitialBalance(balance)
	} else {
		e.deps.Logger.Warn(ctx, "Could not fetch initial balance", map[string]interface{}{"error": err.Error()})
	}

	for {
		wait := e.cfg.PollInterval
		if err := e.runCycle(ctx); err != nil {
			e.deps.Logger.Error(ctx, err, "Trading cycle failed")
			e.deps.Hooks.OnError("", err)
			e.mu.Lock()
			e.stats.CycleErrors++
			e.mu.Unlock()
			wait = e.cfg.ErrorBackoff
		}

		select {
		case <-ctx.Done():
			e.deps.Logger.Info(ctx, "Trading engine stopping, waiting for position monitors")
			e.waitBounded(10 * time.Second)
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// waitBounded waits for background monitors up to the given timeout.
func (e *Engine) waitBounded(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// runCycle performs one full pass of the pipeline.
func (e *Engine) runCycle(ctx context.Context) error {
	e.refreshTunables()

	if err := e.deps.Market.Ping(ctx); err != nil {
		e.skip("health_check")
		return fmt.Errorf("health check failed: %w", err)
	}

	if allowed, reason := e.deps.Risk.IsAllowedToTrade(); !allowed {
		e.skip("risk_manager")
		e.deps.Logger.Debug(ctx, "Circuit breaker blocked trading", map[string]interface{}{"reason": reason})
		e.finishCycle()
		return nil
	}

	best := e.analyzeSymbols(ctx)
	if best == nil {
		e.finishCycle()
		return nil
	}

	e.deps.Logger.Info(ctx, "Best confluence signal selected", map[string]interface{}{
		"symbol":     best.Symbol,
		"side":       best.Side,
		"score":      best.Score,
		"confidence": best.Confidence,
		"timeframes": best.Timeframes,
	})

	if best.PrimarySignal == nil {
		e.skip("no_primary_signal")
		e.finishCycle()
		return nil
	}
	e.deps.Hooks.OnSignal(best.PrimarySignal)

	candles, err := e.deps.Market.GetKlines(ctx, best.Symbol, e.cfg.PrimaryTimeframe, e.cfg.CandleLimit)
	if err != nil {
		e.skip("no_data")
		e.finishCycle()
		return fmt.Errorf("fetching gate candles for %s: %w", best.Symbol, err)
	}
	e.archiveCandles(ctx, best.Symbol, candles)

	if allowed, reason := e.deps.Gate.Check(best.PrimarySignal, candles, e.cfg.MinStopDistance); !allowed {
		e.skip("execution_gate")
		e.deps.Logger.Info(ctx, "Execution gate rejected trade", map[string]interface{}{"symbol": best.Symbol, "reason": reason})
		e.deps.Hooks.OnError(best.Symbol, fmt.Errorf("execution gate: %s", reason))
		e.finishCycle()
		return nil
	}

	e.executeTrade(ctx, best)
	e.finishCycle()
	return nil
}

func (e *Engine) finishCycle() {
	e.mu.Lock()
	e.stats.CyclesCompleted++
	e.stats.LastCycle = time.Now()
	e.mu.Unlock()
}

// refreshTunables pulls the live tunables from the config store so a
// Reload takes effect on the next cycle without a restart.
func (e *Engine) refreshTunables() {
	if e.deps.Store == nil {
		return
	}
	cfg := e.deps.Store.Current()
	if cfg == nil {
		return
	}
	if cfg.RiskPerTrade > 0 {
		e.cfg.RiskPerTrade = cfg.RiskPerTrade
	}
	if cfg.MinStopDistance > 0 {
		e.cfg.MinStopDistance = cfg.MinStopDistance
	}
	if cfg.PollInterval > 0 {
		e.cfg.PollInterval = cfg.PollInterval
	}
}

func (e *Engine) skip(reason string) {
	e.mu.Lock()
	e.stats.Skips[reason]++
	e.mu.Unlock()
}

// analyzeSymbols runs the per-symbol analysis pipeline and returns the
// confluence with the highest confidence, or nil when nothing qualifies.
func (e *Engine) analyzeSymbols(ctx context.Context) *domain.ConfluenceResult {
	states := marketstate.AnalyzeBatch(ctx, e.deps.Market, e.deps.Logger, e.cfg.Symbols, e.deps.StateCfg)

	var results []*domain.ConfluenceResult
	for _, symbol := range e.cfg.Symbols {
		state, ok := states[symbol]
		if !ok {
			continue
		}
		if state.State == domain.StateSleep {
			e.skip("market_sleep")
			continue
		}
		// Symbols already holding a position are skipped, one position
		// per symbol.
		if _, open := e.deps.Positions.Get(symbol); open {
			e.skip("position_open")
			continue
		}

		worth, err := e.deps.Worth.Check(ctx, symbol, worthtrading.CheckParams{})
		if err != nil {
			e.skip("no_data")
			continue
		}
		if !worth.IsWorthTrading {
			e.skip("not_worth")
			continue
		}

		candlesByTimeframe := make(map[string][]*domain.Candle, len(e.cfg.Timeframes))
		for _, tf := range e.cfg.Timeframes {
			var candles []*domain.Candle
			err := utils.WithRetry(ctx, utils.DefaultRetryConfig(), func(ctx context.Context) error {
				var fetchErr error
				candles, fetchErr = e.deps.Market.GetKlines(ctx, symbol, tf, e.cfg.CandleLimit)
				return fetchErr
			})
			if err != nil {
				e.deps.Logger.Warn(ctx, "Failed to fetch candles for timeframe", map[string]interface{}{
					"symbol": symbol, "timeframe": tf, "error": err.Error(),
				})
				continue
			}
			candlesByTimeframe[tf] = candles
		}
		if len(candlesByTimeframe) == 0 {
			e.skip("no_data")
			continue
		}

		result := e.deps.Confluence.Detect(ctx, symbol, candlesByTimeframe)
		if result == nil || result.Confidence < e.cfg.MinConfidence {
			continue
		}
		results = append(results, result)
		e.mu.Lock()
		e.stats.SignalsFound++
		e.mu.Unlock()
	}

	if len(results) == 0 {
		return nil
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Confidence > results[j].Confidence })
	return results[0]
}

// executeTrade places the order (real or simulated) and registers the
// resulting position.
func (e *Engine) executeTrade(ctx context.Context, conf *domain.ConfluenceResult) {
	signal := conf.PrimarySignal

	balance, err := e.accountBalance(ctx)
	if err != nil {
		e.deps.Logger.Error(ctx, err, "Failed to fetch balance for position sizing", map[string]interface{}{"symbol": conf.Symbol})
		e.deps.Hooks.OnError(conf.Symbol, err)
		return
	}

	size, err := e.deps.Worth.CalculatePositionSize(ctx, conf.Symbol, balance, e.cfg.RiskPerTrade)
	if err != nil || size <= 0 {
		e.deps.Logger.Warn(ctx, "Position size unavailable, skipping trade", map[string]interface{}{"symbol": conf.Symbol})
		return
	}

	var order *ports.OrderResponse
	if e.cfg.EnableSimulation {
		order = e.simulatedFill(conf.Symbol, signal, size)
		e.deps.Logger.Info(ctx, "Simulated trade", map[string]interface{}{
			"symbol": conf.Symbol, "side": conf.Side, "entry": signal.Entry,
			"stopLoss": signal.StopLoss, "takeProfit": signal.TakeProfit, "size": size,
		})
	} else {
		quantity := size / signal.Entry
		order, err = e.deps.Executor.PlaceMarketOrder(ctx, conf.Symbol, conf.Side, quantity)
		if err != nil {
			e.mu.Lock()
			e.stats.FailedOrders++
			e.mu.Unlock()
			e.deps.Logger.Error(ctx, err, "Order placement failed", map[string]interface{}{"symbol": conf.Symbol})
			e.deps.Hooks.OnOrder(nil, err)
			return
		}
	}

	pos := &domain.Position{
		Symbol:     conf.Symbol,
		Side:       conf.Side,
		EntryPrice: signal.Entry,
		Quantity:   size,
		StopLoss:   signal.StopLoss,
		TakeProfit: signal.TakeProfit,
		OrderID:    order.OrderID,
		Strategy:   signal.Strategy,
		EntryTime:  time.Now(),
		Status:     domain.StatusActive,
	}
	if err := e.deps.Positions.AddPosition(pos); err != nil {
		e.deps.Logger.Error(ctx, err, "Failed to register position", map[string]interface{}{"symbol": conf.Symbol})
		e.deps.Hooks.OnError(conf.Symbol, err)
		if !e.cfg.EnableSimulation {
			// The order went through; flatten it immediately rather
			// than carrying an untracked position.
			e.emergencyClose(ctx, conf.Symbol, conf.Side, size/signal.Entry)
		}
		return
	}

	e.deps.Gate.RecordTrade()
	e.mu.Lock()
	e.stats.TradesExecuted++
	e.mu.Unlock()
	e.deps.Hooks.OnOrder(order, nil)

	e.wg.Add(1)
	go e.monitorPosition(ctx, conf.Symbol)
}

// simulatedFill fabricates a filled order for dry runs.
func (e *Engine) simulatedFill(symbol string, signal *domain.TradingSignal, size float64) *ports.OrderResponse {
	n := e.simCounter.Add(1)
	side := "BUY"
	if signal.Side == domain.Short {
		side = "SELL"
	}
	return &ports.OrderResponse{
		OrderID:      fmt.Sprintf("SIM-%d", n),
		Symbol:       symbol,
		AvgPrice:     signal.Entry,
		OrigQuantity: size / signal.Entry,
		ExecutedQty:  size / signal.Entry,
		Status:       "FILLED",
		Type:         "MARKET",
		Side:         side,
		Timestamp:    time.Now(),
	}
}

// emergencyClose flattens exposure after bookkeeping failed.
func (e *Engine) emergencyClose(ctx context.Context, symbol string, side domain.Side, quantity float64) {
	closeSide := domain.Short
	if side == domain.Short {
		closeSide = domain.Long
	}
	if _, err := e.deps.Executor.PlaceMarketOrder(ctx, symbol, closeSide, quantity); err != nil {
		e.deps.Logger.Error(ctx, err, "EMERGENCY CLOSE FAILED", map[string]interface{}{"symbol": symbol})
	}
}

// monitorPosition polls the current price until the position's stop or
// target is touched, then closes it via RecordTradeOutcome.
func (e *Engine) monitorPosition(ctx context.Context, symbol string) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.MonitorInterval):
		}

		pos, ok := e.deps.Positions.Get(symbol)
		if !ok || !pos.IsActive() {
			return
		}

		price, err := e.deps.Market.GetCurrentPrice(ctx, symbol)
		if err != nil {
			e.deps.Logger.Debug(ctx, "Price fetch failed in position monitor", map[string]interface{}{"symbol": symbol, "error": err.Error()})
			continue
		}

		var reason string
		switch {
		case pos.ShouldStopLoss(price):
			reason = "stop loss hit"
		case pos.ShouldTakeProfit(price):
			reason = "take profit hit"
		default:
			continue
		}

		if !e.cfg.EnableSimulation {
			closeSide := domain.Short
			if pos.Side == domain.Short {
				closeSide = domain.Long
			}
			if _, err := e.deps.Executor.PlaceMarketOrder(ctx, symbol, closeSide, pos.Quantity/pos.EntryPrice); err != nil {
				e.deps.Logger.Error(ctx, err, "Failed to close position", map[string]interface{}{"symbol": symbol, "reason": reason})
				continue
			}
		}

		if _, err := e.RecordTradeOutcome(ctx, symbol, price, reason); err != nil {
			e.deps.Logger.Error(ctx, err, "Failed to record trade outcome", map[string]interface{}{"symbol": symbol})
		}
		return
	}
}

// RecordTradeOutcome is the single path from a closed position to the
// risk metrics: it closes the position, forwards the realized PnL to the
// risk manager and appends the record to the in-memory trade history.
func (e *Engine) RecordTradeOutcome(ctx context.Context, symbol string, exitPrice float64, reason string) (*domain.TradeRecord, error) {
	record, err := e.deps.Positions.ClosePosition(symbol, exitPrice, reason)
	if err != nil {
		return nil, err
	}

	e.deps.Risk.UpdatePnL(record.PNL)

	e.mu.Lock()
	e.trades = append(e.trades, record)
	e.mu.Unlock()

	e.deps.Logger.Info(ctx, "Position closed", map[string]interface{}{
		"symbol": symbol, "pnl": record.PNL, "status": record.Status, "reason": reason,
	})
	return record, nil
}

// archiveCandles stores fetched candles in the local archive so later
// backtests can replay the periods the bot actually traded. Failures are
// logged and ignored.
func (e *Engine) archiveCandles(ctx context.Context, symbol string, candles []*domain.Candle) {
	if e.deps.Candles == nil {
		return
	}
	if _, err := e.deps.Candles.SaveCandles(ctx, candles); err != nil {
		e.deps.Logger.Warn(ctx, "Failed to archive candles", map[string]interface{}{
			"symbol": symbol, "error": err.Error(),
		})
	}
}

// TradeHistory returns a copy of the trades closed during this run.
func (e *Engine) TradeHistory() []*domain.TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.TradeRecord, len(e.trades))
	copy(out, e.trades)
	return out
}

// accountBalance returns the USDT balance, or a fixed paper balance in
// simulation mode without an executor.
func (e *Engine) accountBalance(ctx context.Context) (float64, error) {
	if e.deps.Executor == nil {
		return 10000, nil
	}
	return e.deps.Executor.GetAccountBalance(ctx, "USDT")
}

// GetStats returns a copy of the engine counters.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.stats
	out.Skips = make(map[string]int, len(e.stats.Skips))
	for k, v := range e.stats.Skips {
		out.Skips[k] = v
	}
	return out
}
