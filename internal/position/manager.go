package position

import (
	"fmt"
	"sync"
	"time"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"
)

// Config holds position manager limits.
type Config struct {
	MaxPositions int
}

// DefaultConfig returns the default position limits.
func DefaultConfig() Config {
	return Config{MaxPositions: 3}
}

// Summary is a read-only snapshot of the open positions.
type Summary struct {
	ActiveCount  int
	MaxPositions int
	Symbols      []string
}

// Manager holds the open positions, at most one per symbol. All
// methods are safe for concurrent use.
type Manager struct {
	config Config

	mu        sync.Mutex
	positions map[string]*domain.Position
}

// NewManager creates a position manager. A non-positive MaxPositions
// falls back to the default.
func NewManager(cfg Config) *Manager {
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = DefaultConfig().MaxPositions
	}
	return &Manager{
		config:    cfg,
		positions: make(map[string]*domain.Position),
	}
}

// AddPosition registers a newly opened position. It fails when the
// manager is at capacity or a position for the symbol already exists.
func (m *Manager) AddPosition(pos *domain.Position) error {
	if pos == nil {
		return fmt.Errorf("%w: position is nil", ports.ErrInvalidRequest)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) >= m.config.MaxPositions {
		return fmt.Errorf("%w: position limit %d reached", ports.ErrInvalidRequest, m.config.MaxPositions)
	}
	if _, exists := m.positions[pos.Symbol]; exists {
		return fmt.Errorf("%w: position for %s already open", ports.ErrDuplicateEntry, pos.Symbol)
	}
	if pos.Status == "" {
		pos.Status = domain.StatusActive
	}
	m.positions[pos.Symbol] = pos
	return nil
}

// ClosePosition removes the position for symbol, computing its
// realized PnL at exitPrice. The caller is responsible for forwarding
// the PnL to the risk manager.
func (m *Manager) ClosePosition(symbol string, exitPrice float64, reason string) (*domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no open position for %s", ports.ErrNotFound, symbol)
	}
	delete(m.positions, symbol)

	pos.ExitPrice = exitPrice
	pos.ExitTime = time.Now()
	pos.PNL = pos.PnLAt(exitPrice)
	if pos.PNL > 0 {
		pos.Status = domain.StatusProfitTaken
	} else {
		pos.Status = domain.StatusStopped
	}
	return &domain.TradeRecord{
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  pos.ExitPrice,
		Quantity:   pos.Quantity,
		PNL:        pos.PNL,
		Strategy:   pos.Strategy,
		EntryTime:  pos.EntryTime,
		ExitTime:   pos.ExitTime,
		Status:     pos.Status,
		Reason:     reason,
	}, nil
}

// Get returns the open position for symbol, if any.
func (m *Manager) Get(symbol string) (*domain.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[symbol]
	return pos, ok
}

// ActiveCount returns the number of open positions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

// HasCapacity reports whether another position can be opened.
func (m *Manager) HasCapacity() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions) < m.config.MaxPositions
}

// ActivePositions returns a copy of the open position list.
func (m *Manager) ActivePositions() []*domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, pos)
	}
	return out
}

// GetSummary returns a snapshot of the open positions, safe to call
// from a reporting goroutine at any time.
func (m *Manager) GetSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		ActiveCount:  len(m.positions),
		MaxPositions: m.config.MaxPositions,
		Symbols:      make([]string, 0, len(m.positions)),
	}
	for symbol := range m.positions {
		s.Symbols = append(s.Symbols, symbol)
	}
	return s
}
