package domain

import "time"

// StructureType tags a structure level as a swing high or swing low.
type StructureType string

const (
	SwingHigh StructureType = "SWING_HIGH"
	SwingLow  StructureType = "SWING_LOW"
)

// StructureLevel is a swing high or low detected over a symmetric lookback
// window. Levels are kept in a bounded most-recent history and age out by
// eviction, never by explicit deletion.
type StructureLevel struct {
	Level       float64
	Type        StructureType
	Timestamp   time.Time // Open time of the candle that formed the level
	Confirmed   bool
	TestedCount int
}
