package strategies

import (
	"context"
	"math"
	"testing"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/strategy/indicators"
)

// sweepScenario builds 40 candles with swing lows at 1990 (twice, merged),
// 1985 and 1992, and a final stretch where candle 35 wicks through the
// 1990 level and closes back at 2000.
func sweepScenario() []*domain.Candle {
	candles := make([]*domain.Candle, 40)
	for i := range candles {
		candles[i] = baseCandle(i, 2000, 2004, 1996, 2000)
	}
	candles[5] = baseCandle(5, 2000, 2004, 1990, 2000)
	candles[12] = baseCandle(12, 2000, 2004, 1985, 2000)
	candles[19] = baseCandle(19, 2000, 2004, 1990, 2000)
	candles[26] = baseCandle(26, 2000, 2004, 1992, 2000)
	candles[35] = baseCandle(35, 2000, 2004, 1988, 2000) // sweep of the 1990 level
	return candles
}

func TestLiquiditySweep_DetectsBuysideSweep(t *testing.T) {
	strat, err := NewLiquiditySweep(DefaultLiquiditySweepConfig(), noopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candles := sweepScenario()
	signals, err := strat.Detect(context.Background(), "ETHUSDT", map[string][]*domain.Candle{"5m": candles})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}

	sig := signals[0]
	if sig.Side != domain.Long {
		t.Errorf("expected LONG after a buyside sweep, got %s", sig.Side)
	}
	// Entry is the sweep candle's close.
	if sig.Entry != 2000 {
		t.Errorf("expected entry 2000, got %v", sig.Entry)
	}

	atrInd := indicators.NewATR(indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: 14}})
	atr, err := atrInd.Calculate(context.Background(), candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sig.StopLoss-(1990-1.5*atr)) > 1e-9 {
		t.Errorf("expected stop %v, got %v", 1990-1.5*atr, sig.StopLoss)
	}
	if math.Abs(sig.TakeProfit-(1990+2*atr)) > 1e-9 {
		t.Errorf("expected target %v, got %v", 1990+2*atr, sig.TakeProfit)
	}

	// Zone strength: 1990 sits 10 away from price 2000, half the 1% window.
	rr := sig.RiskReward()
	expected := 0.5 * 0.7
	if rr >= 2.0 {
		expected += 0.2
	} else if rr >= 1.5 {
		expected += 0.1
	}
	if math.Abs(sig.Confidence-expected) > 1e-9 {
		t.Errorf("expected confidence %v, got %v", expected, sig.Confidence)
	}
}

func TestLiquiditySweep_NoSweepNoSignal(t *testing.T) {
	strat, err := NewLiquiditySweep(DefaultLiquiditySweepConfig(), noopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candles := sweepScenario()
	// Remove the sweep wick; nothing pierces a zone in the recent window.
	candles[35] = baseCandle(35, 2000, 2004, 1996, 2000)

	signals, err := strat.Detect(context.Background(), "ETHUSDT", map[string][]*domain.Candle{"5m": candles})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("expected no signals, got %d", len(signals))
	}
}

func TestLiquiditySweep_DeepBreakIsNotASweep(t *testing.T) {
	strat, err := NewLiquiditySweep(DefaultLiquiditySweepConfig(), noopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candles := sweepScenario()
	// Candle pierces the level but closes on its low: a genuine breakdown,
	// not a wick-and-reject.
	candles[35] = baseCandle(35, 2000, 2001, 1988, 1988)

	signals, err := strat.Detect(context.Background(), "ETHUSDT", map[string][]*domain.Candle{"5m": candles})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("expected no signals for a held breakdown, got %d", len(signals))
	}
}

func TestLiquidityZone_StrengthDecay(t *testing.T) {
	zone := &domain.LiquidityZone{Side: domain.Buyside, Level: 1990, Strength: 0.8}
	prev := zone.Strength
	for i := 0; i < 5; i++ {
		zone.IncrementTouch()
		if zone.Strength > prev {
			t.Fatalf("strength increased on touch %d: %v -> %v", i, prev, zone.Strength)
		}
		prev = zone.Strength
	}
	if zone.TouchedCount != 5 {
		t.Errorf("expected 5 touches, got %d", zone.TouchedCount)
	}
	if math.Abs(zone.Strength-0.8*math.Pow(0.8, 5)) > 1e-12 {
		t.Errorf("unexpected strength after decay: %v", zone.Strength)
	}
}
