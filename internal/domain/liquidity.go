package domain

import "time"

// LiquidityZone is a price level where resting stop orders are assumed to
// cluster, derived from a swing high or low on the wrong side of current
// price. Strength is in [0,1] and only ever decays as the level is touched.
type LiquidityZone struct {
	Symbol       string
	Side         LiquiditySide
	Level        float64
	Strength     float64
	TouchedCount int
	SweptCount   int
	CreatedAt    time.Time
}

// IncrementTouch records another test of the level and decays its strength.
// Strength is monotone non-increasing over the zone's lifetime.
func (z *LiquidityZone) IncrementTouch() {
	z.TouchedCount++
	z.Strength *= 0.8
}

// LiquiditySweepEvent records a candle piercing a zone's level and closing
// back on the original side, the classic stop-hunt signature.
type LiquiditySweepEvent struct {
	Zone        *LiquidityZone
	SweepCandle *Candle
	SweepTime   time.Time
}
