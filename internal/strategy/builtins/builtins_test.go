package builtins

import (
	"reflect"
	"testing"
	"time"

	"backlab/internal/domain"
)

// mkBars builds a daily series from closing prices, starting 2024-01-02.
func mkBars(closes ...float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "TEST",
			Timestamp: ts.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestDefaultRegistryCatalog(t *testing.T) {
	r := DefaultRegistry()
	want := []string{"buy-hold", "sma-cross", "macd-cross", "kdj-cross"}
	if got := r.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("DefaultRegistry().List() = %v, want %v", got, want)
	}
}

func TestBuyHoldSingleSignal(t *testing.T) {
	s := NewBuyHold()
	bars := mkBars(100, 110, 90)

	signals := s.Signals(bars)
	if len(signals) != 1 {
		t.Fatalf("buy-hold emitted %d signals, want 1", len(signals))
	}
	if signals[0].Type != domain.SignalBuy {
		t.Errorf("signal type = %q, want buy", signals[0].Type)
	}
	if !signals[0].Timestamp.Equal(bars[0].Timestamp) {
		t.Errorf("signal timestamp = %v, want first bar %v", signals[0].Timestamp, bars[0].Timestamp)
	}
}

func TestBuyHoldEmptySeries(t *testing.T) {
	if got := NewBuyHold().Signals(nil); got != nil {
		t.Errorf("buy-hold on empty series = %v, want nil", got)
	}
}

func TestSMACrossInvalidWindows(t *testing.T) {
	for _, c := range []struct{ short, long int }{{0, 10}, {10, 10}, {20, 5}, {-1, 5}} {
		if _, err := NewSMACross(c.short, c.long); err == nil {
			t.Errorf("NewSMACross(%d, %d) accepted invalid windows", c.short, c.long)
		}
	}
}

func TestSMACrossShortSeriesNoSignals(t *testing.T) {
	s, err := NewSMACross(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	bars := mkBars(1, 2, 3, 4) // fewer bars than the long window
	if got := s.Signals(bars); len(got) != 0 {
		t.Errorf("series shorter than long window emitted %d signals, want 0", len(got))
	}
}

func TestSMACrossBuyThenSell(t *testing.T) {
	s, err := NewSMACross(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	// Flat, then a rally that lifts the short SMA above the long SMA,
	// then a slide that drops it back below.
	bars := mkBars(10, 10, 10, 10, 12, 14, 16, 10, 6, 4)

	signals := s.Signals(bars)
	if len(signals) < 2 {
		t.Fatalf("expected at least a buy and a sell, got %v", signals)
	}
	if signals[0].Type != domain.SignalBuy {
		t.Errorf("first signal = %q, want buy", signals[0].Type)
	}
	var sawSell bool
	for _, sig := range signals[1:] {
		if sig.Type == domain.SignalSell {
			sawSell = true
			break
		}
	}
	if !sawSell {
		t.Errorf("no sell signal after the slide: %v", signals)
	}
}

func TestSMACrossRestartable(t *testing.T) {
	s, err := NewSMACross(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	bars := mkBars(10, 10, 10, 10, 12, 14, 16, 10, 6, 4)

	first := s.Signals(bars)
	second := s.Signals(bars)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated Signals calls differ:\n  first  %v\n  second %v", first, second)
	}
}

func TestMACDCrossWarmup(t *testing.T) {
	s := NewMACDCross()
	bars := mkBars(make([]float64, 30)...) // shorter than slow+signal warmup
	for i := range bars {
		bars[i].Close = 100
	}
	if got := s.Signals(bars); len(got) != 0 {
		t.Errorf("macd-cross emitted %d signals inside warmup, want 0", len(got))
	}
}

func TestMACDCrossDetectsTurn(t *testing.T) {
	s := NewMACDCross()

	// Long downtrend followed by a strong recovery: MACD must cross up.
	closes := make([]float64, 120)
	for i := 0; i < 60; i++ {
		closes[i] = 200 - float64(i)
	}
	for i := 60; i < 120; i++ {
		closes[i] = 140 + 2*float64(i-60)
	}
	signals := s.Signals(mkBars(closes...))

	var sawBuy bool
	for _, sig := range signals {
		if sig.Type == domain.SignalBuy {
			sawBuy = true
			break
		}
	}
	if !sawBuy {
		t.Errorf("no buy signal after trend reversal, signals: %v", signals)
	}
}

// mkRangeBars builds a daily series with explicit high/low ranges, starting
// 2024-01-02.
func mkRangeBars(highs, lows, closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range closes {
		bars[i] = domain.Bar{
			Symbol:    "TEST",
			Timestamp: ts.AddDate(0, 0, i),
			Open:      closes[i],
			High:      highs[i],
			Low:       lows[i],
			Close:     closes[i],
			Volume:    1000,
		}
	}
	return bars
}

func TestKDJCrossSignals(t *testing.T) {
	// Decline pinned to the rolling low, a small bounce while still
	// oversold, a rally, then a breakdown that sends K back under D.
	bars := mkRangeBars(
		[]float64{12, 11, 10, 9, 8, 7, 6, 8, 9, 9, 8},
		[]float64{10, 9, 8, 7, 6, 5, 5, 6, 7, 6, 5.5},
		[]float64{10, 9, 8, 7, 6, 5, 5.6, 7.8, 8.8, 6.2, 5.6},
	)

	s := &KDJCross{n: 3, kPeriod: 3, dPeriod: 3, oversold: 20}
	signals := s.Signals(bars)
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want buy then sell: %+v", len(signals), signals)
	}
	if signals[0].Type != domain.SignalBuy || !signals[0].Timestamp.Equal(bars[6].Timestamp) {
		t.Errorf("first signal = %+v, want buy at the oversold upcross on bar 6", signals[0])
	}
	if signals[1].Type != domain.SignalSell || !signals[1].Timestamp.Equal(bars[10].Timestamp) {
		t.Errorf("second signal = %+v, want sell at the downcross on bar 10", signals[1])
	}
}

func TestKDJCrossOversoldFilter(t *testing.T) {
	// K crosses above D on the bounce, but J is well above the threshold,
	// so no entry fires.
	bars := mkRangeBars(
		[]float64{11, 10, 9, 8, 7, 7.9},
		[]float64{9, 8, 7, 6, 5, 5.9},
		[]float64{10, 9, 8, 7, 6, 6.9},
	)

	s := &KDJCross{n: 3, kPeriod: 3, dPeriod: 3, oversold: 20}
	if signals := s.Signals(bars); len(signals) != 0 {
		t.Errorf("got %d signals, want the upcross filtered out: %+v", len(signals), signals)
	}
}

func TestKDJCrossShortSeries(t *testing.T) {
	s := NewKDJCross()
	if signals := s.Signals(mkBars(100, 101, 102)); signals != nil {
		t.Errorf("got %v on a series shorter than the warmup, want none", signals)
	}
}
