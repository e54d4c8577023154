package domain

// Side represents the direction of a signal or position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// PositionStatus represents the lifecycle state of a trading position.
type PositionStatus string

const (
	StatusActive      PositionStatus = "ACTIVE"
	StatusProfitTaken PositionStatus = "PROFIT_TAKEN"
	StatusStopped     PositionStatus = "STOPPED"
)

// MarketState classifies current market conditions for a symbol.
type MarketState string

const (
	// StateSleep marks dead or adverse conditions where trading costs
	// outweigh any realistic edge.
	StateSleep MarketState = "SLEEP"
	// StateActive marks normal tradeable conditions.
	StateActive MarketState = "ACTIVE"
	// StateAggressive marks elevated volatility or volume where larger
	// moves are expected.
	StateAggressive MarketState = "AGGRESSIVE"
)

// LiquiditySide identifies which side of price a liquidity zone sits on.
type LiquiditySide string

const (
	// Buyside liquidity rests below price (clustered stops under swing lows).
	Buyside LiquiditySide = "BUYSIDE"
	// Sellside liquidity rests above price (clustered stops over swing highs).
	Sellside LiquiditySide = "SELLSIDE"
)
