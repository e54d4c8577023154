package execution

import (
	"strings"
	"testing"
	"time"

	"perpPatternBot/internal/domain"
)

type stubCapacity struct {
	hasCapacity bool
	active      int
}

func (s *stubCapacity) HasCapacity() bool { return s.hasCapacity }
func (s *stubCapacity) ActiveCount() int  { return s.active }

func decisiveCandles() []*domain.Candle {
	// Body 8 of range 10.
	return []*domain.Candle{{
		Open:  100,
		High:  109,
		Low:   99,
		Close: 108,
	}}
}

func testSignal() *domain.TradingSignal {
	return &domain.TradingSignal{
		Symbol:   "BTCUSDT",
		Side:     domain.Long,
		Entry:    100,
		StopLoss: 98,
	}
}

func TestCheck_RejectsRapidReTrading(t *testing.T) {
	g := NewGate(Config{MinTradeInterval: 10 * time.Minute}, &stubCapacity{hasCapacity: true})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	ok, _ := g.Check(testSignal(), decisiveCandles(), 0.005)
	if !ok {
		t.Fatal("first check should pass")
	}
	g.RecordTrade()

	g.now = func() time.Time { return base.Add(1 * time.Minute) }
	ok, reason := g.Check(testSignal(), decisiveCandles(), 0.005)
	if ok {
		t.Fatal("check within the trade interval should fail")
	}
	if !strings.Contains(reason, "540 seconds") {
		t.Errorf("reason %q should mention the 540 remaining seconds", reason)
	}

	g.now = func() time.Time { return base.Add(11 * time.Minute) }
	if ok, reason := g.Check(testSignal(), decisiveCandles(), 0.005); !ok {
		t.Errorf("check after the interval should pass, got: %s", reason)
	}
}

func TestCheck_RejectsAtCapacity(t *testing.T) {
	g := NewGate(DefaultConfig(), &stubCapacity{hasCapacity: false, active: 3})

	ok, reason := g.Check(testSignal(), decisiveCandles(), 0.005)
	if ok {
		t.Fatal("check at capacity should fail")
	}
	if !strings.Contains(reason, "position limit") {
		t.Errorf("reason %q should mention the position limit", reason)
	}
}

func TestCheck_RejectsIndecisiveCandle(t *testing.T) {
	g := NewGate(DefaultConfig(), &stubCapacity{hasCapacity: true})
	// Body 1 of range 10.
	candles := []*domain.Candle{{Open: 100, High: 106, Low: 96, Close: 101}}

	ok, reason := g.Check(testSignal(), candles, 0.005)
	if ok {
		t.Fatal("check on a small-body candle should fail")
	}
	if !strings.Contains(reason, "body") {
		t.Errorf("reason %q should mention the candle body", reason)
	}
}

func TestCheck_RejectsTightStop(t *testing.T) {
	g := NewGate(DefaultConfig(), &stubCapacity{hasCapacity: true})
	sig := testSignal()
	sig.StopLoss = 99.9 // 0.10% away

	ok, reason := g.Check(sig, decisiveCandles(), 0.005)
	if ok {
		t.Fatal("check with a tight stop should fail")
	}
	if !strings.Contains(reason, "0.10%") || !strings.Contains(reason, "0.50%") {
		t.Errorf("reason %q should carry computed and required distances", reason)
	}
}

func TestCheck_IsQueryOnly(t *testing.T) {
	g := NewGate(DefaultConfig(), &stubCapacity{hasCapacity: true})

	for i := 0; i < 3; i++ {
		if ok, reason := g.Check(testSignal(), decisiveCandles(), 0.005); !ok {
			t.Fatalf("repeated check %d should pass, got: %s", i, reason)
		}
	}
}
