package execution

import (
	"fmt"
	"math"
	"sync"
	"time"

	"perpPatternBot/internal/domain"
)

// CapacityProvider answers whether another position may be opened.
// Satisfied by the position manager.
type CapacityProvider interface {
	HasCapacity() bool
	ActiveCount() int
}

// Config holds the pre-trade check parameters.
type Config struct {
	// MinTradeInterval is the minimum time between recorded trades.
	MinTradeInterval time.Duration
	// MinBodyRatio rejects trading on candles whose body is a smaller
	// fraction of the full range than this.
	MinBodyRatio float64
}

// DefaultConfig returns the default gate parameters.
func DefaultConfig() Config {
	return Config{
		MinTradeInterval: 10 * time.Minute,
		MinBodyRatio:     0.3,
	}
}

// Gate runs the final checklist before an order is placed. Check is
// query-only; callers must invoke RecordTrade after an order actually
// goes out.
type Gate struct {
	config    Config
	positions CapacityProvider

	mu            sync.Mutex
	lastTradeTime time.Time

	now func() time.Time
}

// NewGate creates an execution gate. Zero-value config fields fall
// back to defaults.
func NewGate(cfg Config, positions CapacityProvider) *Gate {
	def := DefaultConfig()
	if cfg.MinTradeInterval <= 0 {
		cfg.MinTradeInterval = def.MinTradeInterval
	}
	if cfg.MinBodyRatio <= 0 {
		cfg.MinBodyRatio = def.MinBodyRatio
	}
	return &Gate{
		config:    cfg,
		positions: positions,
		now:       time.Now,
	}
}

// Check evaluates the pre-trade checklist in order and returns the
// first failure. candles must be the latest data for the signal's
// timeframe; minStopDistance is the required stop distance as a
// fraction of the entry price.
func (g *Gate) Check(signal *domain.TradingSignal, candles []*domain.Candle, minStopDistance float64) (bool, string) {
	g.mu.Lock()
	lastTrade := g.lastTradeTime
	g.mu.Unlock()

	if !lastTrade.IsZero() {
		elapsed := g.now().Sub(lastTrade)
		if elapsed < g.config.MinTradeInterval {
			remaining := g.config.MinTradeInterval - elapsed
			return false, fmt.Sprintf("trade interval not met, %.0f seconds remaining", remaining.Seconds())
		}
	}

	if g.positions != nil && !g.positions.HasCapacity() {
		return false, fmt.Sprintf("position limit reached with %d open", g.positions.ActiveCount())
	}

	if len(candles) > 0 {
		latest := candles[len(candles)-1]
		if r := latest.Range(); r > 0 {
			if latest.BodySize()/r < g.config.MinBodyRatio {
				return false, "indecisive candle, body too small"
			}
		}
	}

	if signal != nil && signal.Entry > 0 && signal.StopLoss > 0 {
		stopDistance := math.Abs(signal.StopLoss-signal.Entry) / signal.Entry
		if stopDistance < minStopDistance {
			return false, fmt.Sprintf("stop distance %.2f%% < required %.2f%%", stopDistance*100, minStopDistance*100)
		}
	}

	return true, "all checks passed"
}

// RecordTrade marks now as the last trade time for the interval check.
func (g *Gate) RecordTrade() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastTradeTime = g.now()
}
