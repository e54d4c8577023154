package marketstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"
)

// stubClient serves canned candles and funding per symbol.
type stubClient struct {
	candles map[string][]*domain.Candle
	funding map[string]float64
	err     map[string]error
}

func (s *stubClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	if err, ok := s.err[symbol]; ok {
		return nil, err
	}
	return s.candles[symbol], nil
}

func (s *stubClient) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]*domain.Candle, error) {
	return s.GetKlines(ctx, symbol, interval, limit)
}

func (s *stubClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	candles := s.candles[symbol]
	if len(candles) == 0 {
		return 0, ports.ErrInsufficientData
	}
	return candles[len(candles)-1].Close, nil
}

func (s *stubClient) GetFundingRate(ctx context.Context, symbol string) (float64, error) {
	if f, ok := s.funding[symbol]; ok {
		return f, nil
	}
	return 0, errors.New("no funding data")
}

func (s *stubClient) GetSpread(ctx context.Context, symbol string) (float64, error) {
	return 0.0001, nil
}

func (s *stubClient) Ping(ctx context.Context) error { return nil }

// flatCandles builds n identical candles around the given price with the
// given high-low range and volume.
func flatCandles(n int, price, candleRange, volume float64) []*domain.Candle {
	out := make([]*domain.Candle, n)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = &domain.Candle{
			OpenTime:  base.Add(time.Duration(i) * 5 * time.Minute),
			CloseTime: base.Add(time.Duration(i+1) * 5 * time.Minute),
			Open:      price,
			High:      price + candleRange/2,
			Low:       price - candleRange/2,
			Close:     price,
			Volume:    volume,
		}
	}
	return out
}

func TestEngine_SleepOnLowVolatility(t *testing.T) {
	client := &stubClient{candles: map[string][]*domain.Candle{
		// ATR = 10 on price 10000 -> ratio 0.001, well under the 0.5% floor.
		"ETHUSDT": flatCandles(100, 10000, 10, 100),
	}}
	engine := NewEngine(client, noopLogger{}, "ETHUSDT", DefaultConfig())

	analysis, err := engine.Analyze(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.State != domain.StateSleep {
		t.Errorf("expected SLEEP, got %s", analysis.State)
	}
	// base 10 + ATR bonus 0.001*1000 = 11
	if analysis.Score != 11 {
		t.Errorf("expected score 11, got %v", analysis.Score)
	}
	if analysis.Reason == "" {
		t.Error("expected a reason")
	}
}

func TestEngine_SleepFilterDisabled(t *testing.T) {
	client := &stubClient{candles: map[string][]*domain.Candle{
		"ETHUSDT": flatCandles(100, 10000, 10, 100),
	}}
	cfg := DefaultConfig()
	cfg.EnableSleepFilter = false
	engine := NewEngine(client, noopLogger{}, "ETHUSDT", cfg)

	analysis, err := engine.Analyze(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// With the filter off the state can never be SLEEP.
	if analysis.State != domain.StateActive {
		t.Errorf("expected ACTIVE, got %s", analysis.State)
	}
}

func TestEngine_AggressiveOnHighATR(t *testing.T) {
	client := &stubClient{candles: map[string][]*domain.Candle{
		// ATR = 300 on price 10000 -> ratio 0.03, over the 2% threshold.
		"ETHUSDT": flatCandles(100, 10000, 300, 100),
	}}
	engine := NewEngine(client, noopLogger{}, "ETHUSDT", DefaultConfig())

	analysis, err := engine.Analyze(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.State != domain.StateAggressive {
		t.Errorf("expected AGGRESSIVE, got %s", analysis.State)
	}
	if analysis.Score < 80 || analysis.Score > 100 {
		t.Errorf("score outside expected band: %v", analysis.Score)
	}
}

func TestEngine_NegativeFundingForcesSleep(t *testing.T) {
	client := &stubClient{
		candles: map[string][]*domain.Candle{
			// Healthy volatility so only funding can trigger sleep.
			"ETHUSDT": flatCandles(100, 10000, 100, 100),
		},
		funding: map[string]float64{"ETHUSDT": -0.0005},
	}
	engine := NewEngine(client, noopLogger{}, "ETHUSDT", DefaultConfig())

	analysis, err := engine.Analyze(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.State != domain.StateSleep {
		t.Errorf("expected SLEEP on negative funding, got %s", analysis.State)
	}
}

func TestAnalyzeBatch_IsolatesFailures(t *testing.T) {
	client := &stubClient{
		candles: map[string][]*domain.Candle{
			"ETHUSDT": flatCandles(100, 10000, 100, 100),
		},
		err: map[string]error{"BADUSDT": errors.New("boom")},
	}

	results := AnalyzeBatch(context.Background(), client, noopLogger{}, []string{"ETHUSDT", "BADUSDT"}, DefaultConfig())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	bad := results["BADUSDT"]
	if bad.State != domain.StateSleep || bad.Score != 0 || bad.Reason != "analysis failed" {
		t.Errorf("failed symbol not substituted correctly: %+v", bad)
	}
	if results["ETHUSDT"].State == domain.StateSleep {
		t.Errorf("healthy symbol should not be SLEEP: %+v", results["ETHUSDT"])
	}
}

func TestTradeableSymbols(t *testing.T) {
	client := &stubClient{
		candles: map[string][]*domain.Candle{
			"ETHUSDT": flatCandles(100, 10000, 100, 100),
			"XRPUSDT": flatCandles(100, 10000, 10, 100), // low volatility -> SLEEP
		},
	}
	symbols := TradeableSymbols(context.Background(), client, noopLogger{}, []string{"ETHUSDT", "XRPUSDT"}, DefaultConfig())
	if len(symbols) != 1 || symbols[0] != "ETHUSDT" {
		t.Errorf("expected [ETHUSDT], got %v", symbols)
	}
}

// noopLogger satisfies ports.Logger for tests.
type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}
