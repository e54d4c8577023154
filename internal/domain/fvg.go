package domain

import "time"

// FVGType distinguishes bullish from bearish fair value gaps.
type FVGType string

const (
	FVGBullish FVGType = "BULLISH"
	FVGBearish FVGType = "BEARISH"
)

// FVG is a fair value gap: a 3-candle price imbalance bounded by HighBound
// and LowBound. The only mutable state is the fill flag, which transitions
// one way; a filled gap is never a signal basis again.
type FVG struct {
	Type          FVGType
	HighBound     float64
	LowBound      float64
	Size          float64 // HighBound - LowBound
	SizePercent   float64 // Size relative to the gap midpoint
	FormationTime time.Time
	CandleIndex   int // Index of the middle candle in the scanned window
	Filled        bool
	FillTime      time.Time // Zero value while unfilled
}

// MarkFilled flips the fill flag. The transition is one-way: repeated calls
// keep the original fill time.
func (f *FVG) MarkFilled(at time.Time) {
	if f.Filled {
		return
	}
	f.Filled = true
	f.FillTime = at
}

// Age returns how long ago the gap formed.
func (f *FVG) Age(now time.Time) time.Duration {
	return now.Sub(f.FormationTime)
}

// Midpoint returns the center price of the gap.
func (f *FVG) Midpoint() float64 {
	return (f.HighBound + f.LowBound) / 2
}
