package indicators

import (
	"context"
	"math"
	"testing"
	"time"

	"perpPatternBot/internal/domain"
)

func TestMovingAverage_Calculate(t *testing.T) {
	now := time.Now()
	candles := []*domain.Candle{
		{OpenTime: now.Add(-4 * time.Hour), Close: 100.0, Volume: 10},
		{OpenTime: now.Add(-3 * time.Hour), Close: 102.0, Volume: 20},
		{OpenTime: now.Add(-2 * time.Hour), Close: 101.0, Volume: 30},
		{OpenTime: now.Add(-1 * time.Hour), Close: 103.0, Volume: 40},
		{OpenTime: now, Close: 104.0, Volume: 50},
	}

	tests := []struct {
		name          string
		config        MovingAverageConfig
		candles       []*domain.Candle
		expectedValue float64
		expectError   bool
	}{
		{
			name: "SMA with sufficient data",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 3},
				Type:            SimpleMovingAverage,
			},
			candles:       candles,
			expectedValue: 102.666667, // (101 + 103 + 104) / 3
			expectError:   false,
		},
		{
			name: "SMA over volume",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 3},
				Type:            SimpleMovingAverage,
				Source:          SourceVolume,
			},
			candles:       candles,
			expectedValue: 40.0, // (30 + 40 + 50) / 3
			expectError:   false,
		},
		{
			name: "SMA with insufficient data",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 10},
				Type:            SimpleMovingAverage,
			},
			candles:     candles,
			expectError: true,
		},
		{
			name: "unsupported type",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 3},
				Type:            MovingAverageType("WMA"),
			},
			candles:     candles,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma := NewMovingAverage(tt.config)
			got, err := ma.Calculate(context.Background(), tt.candles)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got value %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.expectedValue) > 1e-4 {
				t.Errorf("expected %v, got %v", tt.expectedValue, got)
			}
		})
	}
}

func TestMovingAverage_EMA(t *testing.T) {
	candles := []*domain.Candle{
		{Close: 10}, {Close: 11}, {Close: 12}, {Close: 13}, {Close: 14},
	}
	ma := NewMovingAverage(MovingAverageConfig{
		IndicatorConfig: IndicatorConfig{Period: 3},
		Type:            ExponentialMovingAverage,
	})
	got, err := ma.Calculate(context.Background(), candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Initial SMA = 11, then EMA with multiplier 0.5 over 13 and 14.
	expected := 13.0
	if math.Abs(got-expected) > 1e-9 {
		t.Errorf("expected %v, got %v", expected, got)
	}
}
