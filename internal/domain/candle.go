package domain

import (
	"math"
	"time"
)

// Candle represents a single OHLCV candlestick.
// Sequences of candles are always ordered oldest first; derived values are
// computed from the raw fields and never stored.
type Candle struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Interval  string    // Candle interval (e.g., "1m", "5m", "1h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Trading volume
	IsFinal   bool      // Whether this candle is the final one for the interval
}

// BodySize returns the absolute distance between open and close.
func (c *Candle) BodySize() float64 {
	return math.Abs(c.Close - c.Open)
}

// UpperWick returns the distance from the body top to the high.
func (c *Candle) UpperWick() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

// LowerWick returns the distance from the body bottom to the low.
func (c *Candle) LowerWick() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

// Range returns the full high-low extent of the candle.
func (c *Candle) Range() float64 {
	return c.High - c.Low
}

// IsBullish reports whether the candle closed above its open.
func (c *Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c *Candle) IsBearish() bool {
	return c.Close < c.Open
}
