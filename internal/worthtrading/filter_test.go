package worthtrading

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"perpPatternBot/internal/domain"
)

type stubClient struct {
	candles []*domain.Candle
	price   float64
	spread  float64
	funding float64
}

func (s *stubClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	return s.candles, nil
}

func (s *stubClient) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]*domain.Candle, error) {
	return s.candles, nil
}

func (s *stubClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return s.price, nil
}

func (s *stubClient) GetFundingRate(ctx context.Context, symbol string) (float64, error) {
	return s.funding, nil
}

func (s *stubClient) GetSpread(ctx context.Context, symbol string) (float64, error) {
	return s.spread, nil
}

func (s *stubClient) Ping(ctx context.Context) error { return nil }

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func candlesWithRange(n int, price, candleRange float64) []*domain.Candle {
	out := make([]*domain.Candle, n)
	for i := range out {
		out[i] = &domain.Candle{
			Open:  price,
			High:  price + candleRange/2,
			Low:   price - candleRange/2,
			Close: price,
		}
	}
	return out
}

func TestFilter_RejectsLowVolatility(t *testing.T) {
	client := &stubClient{
		candles: candlesWithRange(100, 2000, 30), // ATR 30 on 2000 = 1.5%
		price:   2000,
	}
	f := NewFilter(client, noopLogger{}, DefaultConfig())

	res, err := f.Check(context.Background(), "ETHUSDT", CheckParams{ExpectedMove: 0.002})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsWorthTrading {
		t.Fatal("expected rejection for low expected move")
	}
	found := false
	for _, r := range res.Reasons {
		if strings.Contains(r, "0.20%") && strings.Contains(r, "0.50%") {
			found = true
		}
	}
	if !found {
		t.Errorf("rejection reason must contain both values, got %v", res.Reasons)
	}
}

func TestFilter_AcceptsHealthyMove(t *testing.T) {
	client := &stubClient{
		candles: candlesWithRange(100, 2000, 30), // expected move 1.5%
		price:   2000,
		spread:  0.0001,
	}
	f := NewFilter(client, noopLogger{}, DefaultConfig())

	res, err := f.Check(context.Background(), "ETHUSDT", CheckParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// cost = 2*0.0005 + 0.0001 + 0.0007 (slippage above 1% ATR) = 0.0018
	// threshold = 0.015/2 = 0.0075, rr = 0.015/0.0036 ≈ 4.17
	if !res.IsWorthTrading {
		t.Fatalf("expected acceptance, reasons: %v", res.Reasons)
	}
	if math.Abs(res.TotalCost-0.0018) > 1e-9 {
		t.Errorf("expected total cost 0.0018, got %v", res.TotalCost)
	}
	if res.RiskRewardRatio < 4 {
		t.Errorf("unexpected risk/reward: %v", res.RiskRewardRatio)
	}
	if len(res.Reasons) != 3 {
		t.Errorf("expected 3 reasons (all checks reported), got %v", res.Reasons)
	}
}

func TestFilter_RejectsExcessiveCost(t *testing.T) {
	client := &stubClient{
		candles: candlesWithRange(100, 2000, 12), // ATR 12 -> move 0.6%, passes minimum
		price:   2000,
		spread:  0.005, // absurd spread pushes cost over the threshold
	}
	f := NewFilter(client, noopLogger{}, DefaultConfig())

	res, err := f.Check(context.Background(), "ETHUSDT", CheckParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsWorthTrading {
		t.Fatal("expected rejection for excessive cost")
	}
}

func TestFilter_ExplicitStopAndTarget(t *testing.T) {
	client := &stubClient{
		candles: candlesWithRange(100, 2000, 30),
		price:   2000,
	}
	f := NewFilter(client, noopLogger{}, DefaultConfig())

	// TP/SL of 3:1 beats the 2.0 minimum.
	res, err := f.Check(context.Background(), "ETHUSDT", CheckParams{StopLoss: 0.005, TakeProfit: 0.015})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.RiskRewardRatio-3.0) > 1e-9 {
		t.Errorf("expected rr 3.0, got %v", res.RiskRewardRatio)
	}
	if !res.IsWorthTrading {
		t.Errorf("expected acceptance, reasons: %v", res.Reasons)
	}
}

func TestCalculateStopLossAndTakeProfit(t *testing.T) {
	sl := CalculateStopLoss(2000, 10, 2.0, true)
	if sl != 1980 {
		t.Errorf("expected long stop 1980, got %v", sl)
	}
	sl = CalculateStopLoss(2000, 10, 2.0, false)
	if sl != 2020 {
		t.Errorf("expected short stop 2020, got %v", sl)
	}

	tp := CalculateTakeProfit(2000, 1980, 2.0, true)
	if tp != 2040 {
		t.Errorf("expected long target 2040, got %v", tp)
	}
	tp = CalculateTakeProfit(2000, 2020, 2.0, false)
	if tp != 1960 {
		t.Errorf("expected short target 1960, got %v", tp)
	}
}

func TestFilter_PositionSize(t *testing.T) {
	client := &stubClient{
		candles: candlesWithRange(100, 2000, 30), // ATR 30
		price:   2000,
	}
	f := NewFilter(client, noopLogger{}, DefaultConfig())

	size, err := f.CalculatePositionSize(context.Background(), "ETHUSDT", 10000, 0.02)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (10000 * 0.02) / (2*30) * 2000
	expected := 200.0 / 60.0 * 2000.0
	if math.Abs(size-expected) > 1e-6 {
		t.Errorf("expected %v, got %v", expected, size)
	}
}
