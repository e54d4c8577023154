package strategies

import (
	"context"
	"testing"
	"time"

	"perpPatternBot/internal/domain"
)

// gapScenario builds candles with a clear bullish imbalance: the candle
// after the gap trades well above the candle before it.
func gapScenario() []*domain.Candle {
	candles := make([]*domain.Candle, 30)
	for i := range candles {
		candles[i] = baseCandle(i, 2000, 2004, 1996, 2000)
	}
	// Strong impulse leaves a gap between candle 24's low and candle 26's high.
	candles[24] = baseCandle(24, 2000, 2004, 1998, 2003)
	candles[25] = baseCandle(25, 2003, 2015, 2002, 2014)
	candles[26] = baseCandle(26, 2014, 2020, 2010, 2018)
	candles[27] = baseCandle(27, 2018, 2021, 2012, 2015)
	candles[28] = baseCandle(28, 2015, 2018, 2008, 2010)
	candles[29] = baseCandle(29, 2010, 2012, 2004, 2006)
	return candles
}

func TestFVG_IdentifyAndFill(t *testing.T) {
	strat, err := NewFVG(DefaultFVGConfig(), noopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candles := gapScenario()
	gaps := strat.IdentifyFVGs(candles)
	if len(gaps) == 0 {
		t.Fatal("expected at least one gap")
	}

	// The impulse triple (24,25,26) must yield a bullish gap 1998..2020.
	var impulse *domain.FVG
	for _, g := range gaps {
		if g.Type == domain.FVGBullish && g.CandleIndex == 25 {
			impulse = g
		}
	}
	if impulse == nil {
		t.Fatal("expected bullish gap at the impulse triple")
	}
	if impulse.LowBound != 1998 || impulse.HighBound != 2020 {
		t.Errorf("unexpected bounds: %v..%v", impulse.LowBound, impulse.HighBound)
	}

	// No later candle trades down to 1998, so the gap stays unfilled.
	strat.UpdateFillState(gaps, candles)
	if impulse.Filled {
		t.Error("gap should be unfilled")
	}

	// A candle reaching the lower bound fills it.
	extended := append(candles, baseCandle(30, 2006, 2008, 1997, 2000))
	strat.UpdateFillState(gaps, extended)
	if !impulse.Filled {
		t.Error("gap should be filled after price reached the lower bound")
	}
}

func TestFVG_FillIsOneWay(t *testing.T) {
	gap := &domain.FVG{Type: domain.FVGBullish, LowBound: 1998, HighBound: 2020}
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	gap.MarkFilled(first)
	gap.MarkFilled(first.Add(time.Hour))
	if !gap.Filled {
		t.Fatal("gap must stay filled")
	}
	if !gap.FillTime.Equal(first) {
		t.Errorf("fill time must not change, got %v", gap.FillTime)
	}
}

func TestFVG_DetectEmitsSignal(t *testing.T) {
	strat, err := NewFVG(DefaultFVGConfig(), noopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candles := gapScenario()
	signals, err := strat.Detect(context.Background(), "ETHUSDT", map[string][]*domain.Candle{"5m": candles})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) == 0 {
		t.Fatal("expected at least one signal")
	}
	for _, sig := range signals {
		if sig.Confidence < 0 || sig.Confidence > 1 {
			t.Errorf("confidence out of range: %v", sig.Confidence)
		}
		if rr := sig.RiskReward(); rr < DefaultFVGConfig().MinRiskReward-1e-9 {
			t.Errorf("signal below minimum risk/reward: %v", rr)
		}
	}
	// Sorted by confidence descending.
	for i := 1; i < len(signals); i++ {
		if signals[i].Confidence > signals[i-1].Confidence {
			t.Error("signals must be sorted by confidence descending")
		}
	}
}

func TestFVG_StaleGapRejected(t *testing.T) {
	cfg := DefaultFVGConfig()
	cfg.MaxFVGAge = 5 * time.Minute // every gap is older than this by the last candle
	strat, err := NewFVG(cfg, noopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candles := gapScenario()
	// Age the existing gaps by appending candles whose range stays below
	// the minimum gap size, so the padding forms no fresh gaps of its own.
	for i := 30; i < 36; i++ {
		candles = append(candles, baseCandle(i, 2006, 2006.4, 2005.8, 2006))
	}

	signals, err := strat.Detect(context.Background(), "ETHUSDT", map[string][]*domain.Candle{"5m": candles})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Every unfilled gap in this scenario formed more than 5 minutes
	// before the final candle, so nothing may be emitted.
	if len(signals) != 0 {
		t.Errorf("expected no signals for stale gaps, got %d", len(signals))
	}
}
