package domain

import "time"

// Position represents a live or closed trading position.
type Position struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	ExitPrice  float64 // 0 while the position is active
	Quantity   float64 // Position size in quote currency terms
	StopLoss   float64
	TakeProfit float64
	OrderID    string // Exchange (or synthetic) order id that opened the position
	Strategy   string // Name of the strategy whose signal opened it
	EntryTime  time.Time
	ExitTime   time.Time // Zero value while active
	Status     PositionStatus
	PNL        float64 // Set when the position is closed
}

// IsActive reports whether the position is still open.
func (p *Position) IsActive() bool {
	return p.Status == StatusActive
}

// PnLAt returns the profit or loss if the position were closed at the given
// price: percentage move from entry scaled by quantity, sign flipped for
// shorts.
func (p *Position) PnLAt(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	pnl := (price - p.EntryPrice) / p.EntryPrice * p.Quantity
	if p.Side == Short {
		pnl = -pnl
	}
	return pnl
}

// ShouldStopLoss reports whether the given price has reached the stop level.
// Always false once the position is no longer active or when no stop is set.
func (p *Position) ShouldStopLoss(price float64) bool {
	if !p.IsActive() || p.StopLoss == 0 {
		return false
	}
	if p.Side == Long {
		return price <= p.StopLoss
	}
	return price >= p.StopLoss
}

// ShouldTakeProfit reports whether the given price has reached the target.
// Always false once the position is no longer active or when no target is set.
func (p *Position) ShouldTakeProfit(price float64) bool {
	if !p.IsActive() || p.TakeProfit == 0 {
		return false
	}
	if p.Side == Long {
		return price >= p.TakeProfit
	}
	return price <= p.TakeProfit
}

// TradeRecord is the immutable summary of a closed position handed to the
// risk manager and any reporting hooks.
type TradeRecord struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PNL        float64
	Strategy   string
	EntryTime  time.Time
	ExitTime   time.Time
	Status     PositionStatus
	Reason     string // Why the position was closed
}
