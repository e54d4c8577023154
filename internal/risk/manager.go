package risk

import (
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState describes whether trading is allowed.
type CircuitBreakerState string

const (
	StateNormal CircuitBreakerState = "NORMAL"
	// StatePaused is reserved for a future manual-pause feature and is
	// never entered automatically.
	StatePaused    CircuitBreakerState = "PAUSED"
	StateTriggered CircuitBreakerState = "TRIGGERED"
)

// Config holds the circuit breaker limits.
type Config struct {
	// MaxDrawdownPercent trips the breaker when the peak-to-balance
	// drawdown reaches this percentage.
	MaxDrawdownPercent float64
	// MaxConsecutiveLosses trips the breaker on a losing streak.
	MaxConsecutiveLosses int
	// DailyLossLimit trips the breaker when daily PnL reaches this loss
	// in quote currency.
	DailyLossLimit float64
	// CooldownPeriod is how long the breaker stays tripped before
	// trading is automatically re-allowed.
	CooldownPeriod time.Duration
}

// DefaultConfig returns conservative circuit breaker limits.
func DefaultConfig() Config {
	return Config{
		MaxDrawdownPercent:   5.0,
		MaxConsecutiveLosses: 3,
		DailyLossLimit:       30.0,
		CooldownPeriod:       30 * time.Minute,
	}
}

// Metrics is a read-only snapshot of the manager's counters.
type Metrics struct {
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	WinRate              float64
	TotalPnL             float64
	CurrentBalance       float64
	MaxDrawdown          float64
	ConsecutiveLosses    int
	MaxConsecutiveLosses int
	AvgWin               float64
	AvgLoss              float64
	DailyPnL             float64
	CircuitBreakerState  CircuitBreakerState
	LastTripReason       string
}

// Manager tracks realized PnL and enforces a circuit breaker over
// drawdown, losing streaks and daily loss. All methods are safe for
// concurrent use.
type Manager struct {
	config Config

	mu             sync.RWMutex
	state          CircuitBreakerState
	triggeredAt    time.Time
	lastTripReason string
	dailyStart     time.Time
	dailyPnL       float64
	initialBalance float64
	peakBalance    float64

	totalTrades          int
	winningTrades        int
	losingTrades         int
	totalPnL             float64
	consecutiveLosses    int
	maxConsecutiveLosses int
	avgWin               float64
	avgLoss              float64
	maxDrawdown          float64

	now func() time.Time
}

// NewManager creates a risk manager with the given limits. Zero-value
// fields in cfg fall back to defaults.
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.MaxDrawdownPercent <= 0 {
		cfg.MaxDrawdownPercent = def.MaxDrawdownPercent
	}
	if cfg.MaxConsecutiveLosses <= 0 {
		cfg.MaxConsecutiveLosses = def.MaxConsecutiveLosses
	}
	if cfg.DailyLossLimit <= 0 {
		cfg.DailyLossLimit = def.DailyLossLimit
	}
	if cfg.CooldownPeriod <= 0 {
		cfg.CooldownPeriod = def.CooldownPeriod
	}
	return &Manager{
		config:     cfg,
		state:      StateNormal,
		dailyStart: time.Now(),
		now:        time.Now,
	}
}

// SetInitialBalance records the account balance that drawdown is
// measured against.
func (m *Manager) SetInitialBalance(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialBalance = balance
	if balance > m.peakBalance {
		m.peakBalance = balance
	}
}

// UpdatePnL records the realized PnL of one closed trade and
// re-evaluates the circuit breaker.
func (m *Manager) UpdatePnL(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalPnL += pnl
	m.dailyPnL += pnl
	m.totalTrades++

	if pnl > 0 {
		// Running-sum update so no trade history needs to be kept.
		total := m.avgWin * float64(m.winningTrades)
		m.winningTrades++
		m.consecutiveLosses = 0
		m.avgWin = (total + pnl) / float64(m.winningTrades)
	} else if pnl < 0 {
		total := m.avgLoss * float64(m.losingTrades)
		m.losingTrades++
		m.consecutiveLosses++
		if m.consecutiveLosses > m.maxConsecutiveLosses {
			m.maxConsecutiveLosses = m.consecutiveLosses
		}
		m.avgLoss = (total + pnl) / float64(m.losingTrades)
	}

	balance := m.initialBalance + m.totalPnL
	if balance > m.peakBalance {
		m.peakBalance = balance
	}
	if m.peakBalance > 0 {
		drawdown := (m.peakBalance - balance) / m.peakBalance * 100
		if drawdown > m.maxDrawdown {
			m.maxDrawdown = drawdown
		}
	}

	m.checkCircuitBreaker()
}

// checkCircuitBreaker trips the breaker on the first limit breached.
// Caller must hold m.mu.
func (m *Manager) checkCircuitBreaker() {
	if m.maxDrawdown >= m.config.MaxDrawdownPercent {
		m.trigger(fmt.Sprintf("max drawdown reached %.2f%%", m.maxDrawdown))
		return
	}
	if m.consecutiveLosses >= m.config.MaxConsecutiveLosses {
		m.trigger(fmt.Sprintf("%d consecutive losses", m.consecutiveLosses))
		return
	}
	if m.dailyPnL <= -m.config.DailyLossLimit {
		m.trigger(fmt.Sprintf("daily loss reached %.2f USDT", -m.dailyPnL))
	}
}

// trigger moves the breaker to TRIGGERED. Caller must hold m.mu.
func (m *Manager) trigger(reason string) {
	m.state = StateTriggered
	m.triggeredAt = m.now()
	m.lastTripReason = reason
}

// IsAllowedToTrade reports whether a new trade may be opened. When the
// breaker has been tripped and the cooldown has elapsed it resets to
// NORMAL automatically before answering.
func (m *Manager) IsAllowedToTrade() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateTriggered {
		elapsed := m.now().Sub(m.triggeredAt)
		if elapsed > m.config.CooldownPeriod {
			m.resetLocked()
		} else {
			remaining := m.config.CooldownPeriod - elapsed
			return false, fmt.Sprintf("circuit breaker tripped, %.0f minutes remaining", remaining.Minutes())
		}
	}

	if m.dailyPnL <= -m.config.DailyLossLimit {
		return false, fmt.Sprintf("daily loss limit %.2f USDT reached", m.config.DailyLossLimit)
	}
	if m.consecutiveLosses >= m.config.MaxConsecutiveLosses {
		return false, fmt.Sprintf("%d consecutive losses", m.consecutiveLosses)
	}
	return true, "trading allowed"
}

// ResetCircuitBreaker clears the tripped state and the daily PnL
// window.
func (m *Manager) ResetCircuitBreaker() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

// resetLocked clears forward-looking daily/circuit state only.
// MaxDrawdown, trade counts and the losing-streak high-water mark are
// lifetime statistics and survive a reset. Caller must hold m.mu.
func (m *Manager) resetLocked() {
	m.state = StateNormal
	m.triggeredAt = time.Time{}
	m.lastTripReason = ""
	m.dailyPnL = 0
	m.dailyStart = m.now()
	// The running streak restarts after a reset, otherwise the breaker
	// would re-trip on its first check. maxConsecutiveLosses keeps the
	// historical record.
	m.consecutiveLosses = 0
}

// Metrics returns a snapshot of the current counters.
func (m *Manager) Metrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	winRate := 0.0
	if m.totalTrades > 0 {
		winRate = float64(m.winningTrades) / float64(m.totalTrades)
	}
	return Metrics{
		TotalTrades:          m.totalTrades,
		WinningTrades:        m.winningTrades,
		LosingTrades:         m.losingTrades,
		WinRate:              winRate,
		TotalPnL:             m.totalPnL,
		CurrentBalance:       m.initialBalance + m.totalPnL,
		MaxDrawdown:          m.maxDrawdown,
		ConsecutiveLosses:    m.consecutiveLosses,
		MaxConsecutiveLosses: m.maxConsecutiveLosses,
		AvgWin:               m.avgWin,
		AvgLoss:              m.avgLoss,
		DailyPnL:             m.dailyPnL,
		CircuitBreakerState:  m.state,
		LastTripReason:       m.lastTripReason,
	}
}
