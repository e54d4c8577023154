package ports

import "perpPatternBot/internal/domain"

// Hooks receives fire-and-forget notifications from the trading engine.
// Implementations must not block; the engine calls them inline from its
// polling loop. All methods are optional via NoopHooks embedding.
type Hooks interface {
	// OnSignal is called for every signal that passes confluence, before gating.
	OnSignal(signal *domain.TradingSignal)
	// OnOrder is called after an order attempt with the outcome.
	OnOrder(order *OrderResponse, err error)
	// OnError is called with cycle-level failures and policy rejections.
	OnError(symbol string, err error)
}

// NoopHooks is a Hooks implementation that ignores every event.
type NoopHooks struct{}

func (NoopHooks) OnSignal(*domain.TradingSignal) {}
func (NoopHooks) OnOrder(*OrderResponse, error)  {}
func (NoopHooks) OnError(string, error)          {}
