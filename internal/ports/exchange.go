package ports

import (
	"context"
	"time"

	"perpPatternBot/internal/domain"
)

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID       string    // Exchange's order ID (synthetic in simulation mode)
	Symbol        string    // Symbol for the order
	ClientOrderID string    // User-defined order ID
	AvgPrice      float64   // Average filled price
	OrigQuantity  float64   // Original quantity requested
	ExecutedQty   float64   // Quantity filled
	Status        string    // Order status (e.g., NEW, FILLED, CANCELED)
	Type          string    // Order type (e.g., MARKET)
	Side          string    // Order side (BUY, SELL)
	Timestamp     time.Time // Time the order response was generated
}

// MarketDataClient provides read-only market data from the exchange.
// The analysis pipeline depends only on this interface, never on a concrete
// exchange implementation.
type MarketDataClient interface {
	// GetKlines retrieves the most recent candles for the given symbol and interval.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)

	// GetKlinesRange retrieves candles between two points in time.
	GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]*domain.Candle, error)

	// GetCurrentPrice retrieves the last traded price for a symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// GetFundingRate retrieves the current funding rate for a perpetual symbol.
	GetFundingRate(ctx context.Context, symbol string) (float64, error)

	// GetSpread retrieves the current bid/ask spread as a fraction of the mid price.
	GetSpread(ctx context.Context, symbol string) (float64, error)

	// Ping checks connectivity to the exchange API.
	Ping(ctx context.Context) error
}

// OrderExecutor places orders on the exchange. Kept separate from market
// data so the backtest and simulation paths can swap it out.
type OrderExecutor interface {
	// PlaceMarketOrder places a market order and returns the fill details.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, quantity float64) (*OrderResponse, error)

	// GetAccountBalance retrieves the available balance for an asset (e.g., "USDT").
	GetAccountBalance(ctx context.Context, asset string) (float64, error)
}
