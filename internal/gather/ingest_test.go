package gather

import (
	"context"
	"errors"
	"testing"
	"time"

	"backlab/internal/domain"
	"backlab/internal/store"
)

// fakeSource serves a fixed set of bars and records how it was called.
type fakeSource struct {
	bars       []domain.Bar
	err        error
	latest     time.Time
	calls      int
	gotSymbols []string
}

func (f *fakeSource) DailyBars(_ context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	f.calls++
	f.gotSymbols = symbols
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Bar
	for _, b := range f.bars {
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeSource) LatestTradingDay(context.Context) (time.Time, error) {
	if f.latest.IsZero() {
		return time.Time{}, errors.New("calendar unavailable")
	}
	return f.latest, nil
}

func tradingDay(d int) time.Time {
	return time.Date(2024, 1, d, 5, 0, 0, 0, time.UTC)
}

func sourceBars() []domain.Bar {
	var bars []domain.Bar
	for d := 2; d <= 5; d++ {
		bars = append(bars, domain.Bar{
			Symbol: "AAPL", Timestamp: tradingDay(d),
			Open: 100, High: 102, Low: 99, Close: 101, Volume: 1000,
		})
	}
	return bars
}

func TestIngestorFetch(t *testing.T) {
	src := &fakeSource{bars: sourceBars()}
	ps := store.NewParquetStore(t.TempDir())
	ing := NewIngestor(src, ps, 0, 1, time.Time{})

	res, err := ing.Fetch(context.Background(), []string{" aapl "}, tradingDay(1), tradingDay(31))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.BarsFetched != 4 || res.BarsWritten != 4 {
		t.Errorf("result = fetched %d written %d, want 4/4", res.BarsFetched, res.BarsWritten)
	}
	if len(src.gotSymbols) != 1 || src.gotSymbols[0] != "AAPL" {
		t.Errorf("source received symbols %v, want [AAPL] after normalization", src.gotSymbols)
	}

	got, err := ps.ReadBars(context.Background(), "AAPL", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("store holds %d bars, want 4", len(got))
	}
}

func TestIngestorFetchIdempotent(t *testing.T) {
	src := &fakeSource{bars: sourceBars()}
	ps := store.NewParquetStore(t.TempDir())
	ing := NewIngestor(src, ps, 0, 1, time.Time{})
	ctx := context.Background()

	if _, err := ing.Fetch(ctx, []string{"AAPL"}, tradingDay(1), tradingDay(31)); err != nil {
		t.Fatalf("Fetch (first): %v", err)
	}
	res, err := ing.Fetch(ctx, []string{"AAPL"}, tradingDay(1), tradingDay(31))
	if err != nil {
		t.Fatalf("Fetch (second): %v", err)
	}
	if res.BarsWritten != 0 {
		t.Errorf("second fetch wrote %d new rows, want 0", res.BarsWritten)
	}
	if res.BarsFetched != 4 {
		t.Errorf("second fetch still fetched %d bars, want 4", res.BarsFetched)
	}
}

func TestIngestorFetchClampsEnd(t *testing.T) {
	src := &fakeSource{bars: sourceBars(), latest: tradingDay(4)}
	ps := store.NewParquetStore(t.TempDir())
	ing := NewIngestor(src, ps, 0, 1, time.Time{})

	res, err := ing.Fetch(context.Background(), []string{"AAPL"}, tradingDay(1), time.Time{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.End.Equal(tradingDay(4)) {
		t.Errorf("End = %v, want clamped to latest trading day %v", res.End, tradingDay(4))
	}
	if res.BarsFetched != 3 {
		t.Errorf("fetched %d bars through day 4, want 3", res.BarsFetched)
	}
}

func TestIngestorDefaultStart(t *testing.T) {
	src := &fakeSource{bars: sourceBars()}
	ps := store.NewParquetStore(t.TempDir())
	ing := NewIngestor(src, ps, 0, 1, tradingDay(3))

	res, err := ing.Fetch(context.Background(), []string{"AAPL"}, time.Time{}, tradingDay(31))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.Start.Equal(tradingDay(3)) {
		t.Errorf("Start = %v, want configured default %v", res.Start, tradingDay(3))
	}
	if res.BarsFetched != 3 {
		t.Errorf("fetched %d bars from day 3 on, want 3", res.BarsFetched)
	}
}

func TestIngestorFetchValidation(t *testing.T) {
	src := &fakeSource{bars: sourceBars()}
	ing := NewIngestor(src, store.NewParquetStore(t.TempDir()), 0, 1, time.Time{})
	ctx := context.Background()

	cases := []struct {
		name    string
		symbols []string
		start   time.Time
		end     time.Time
	}{
		{"no symbols", nil, tradingDay(1), tradingDay(5)},
		{"blank symbol", []string{"AAPL", "  "}, tradingDay(1), tradingDay(5)},
		{"missing start", []string{"AAPL"}, time.Time{}, tradingDay(5)},
		{"end before start", []string{"AAPL"}, tradingDay(5), tradingDay(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ing.Fetch(ctx, tc.symbols, tc.start, tc.end)
			if !domain.IsValidation(err) {
				t.Errorf("Fetch error = %v, want validation", err)
			}
		})
	}

	if src.calls != 0 {
		t.Errorf("source was called %d times for invalid requests, want 0", src.calls)
	}
}

func TestIngestorFetchUpstreamDown(t *testing.T) {
	src := &fakeSource{err: errors.New("dial tcp: connection refused")}
	ing := NewIngestor(src, store.NewParquetStore(t.TempDir()), 0, 2, time.Time{})

	_, err := ing.Fetch(context.Background(), []string{"AAPL"}, tradingDay(1), tradingDay(5))
	if !domain.IsIngestion(err) {
		t.Fatalf("Fetch error = %v, want ingestion", err)
	}
	if src.calls != 2 {
		t.Errorf("source called %d times, want 2 (retried)", src.calls)
	}
}

func TestIngestorFetchMalformedBar(t *testing.T) {
	src := &fakeSource{bars: []domain.Bar{
		{Symbol: "AAPL", Timestamp: tradingDay(2), Open: 100, High: 90, Low: 99, Close: 101, Volume: 10},
	}}
	ps := store.NewParquetStore(t.TempDir())
	ing := NewIngestor(src, ps, 0, 1, time.Time{})

	_, err := ing.Fetch(context.Background(), []string{"AAPL"}, tradingDay(1), tradingDay(5))
	if !domain.IsIngestion(err) {
		t.Fatalf("Fetch error = %v, want ingestion for high below low", err)
	}
	// Nothing persisted on rejection.
	if _, err := ps.ReadBars(context.Background(), "AAPL", time.Time{}, time.Time{}); !domain.IsNotFound(err) {
		t.Errorf("store should stay empty after rejected batch, got err = %v", err)
	}
}

func TestIngestorFetchNegativeValues(t *testing.T) {
	cases := []struct {
		name string
		bar  domain.Bar
	}{
		{
			name: "negative low",
			bar:  domain.Bar{Symbol: "AAPL", Timestamp: tradingDay(2), Open: 100, High: 102, Low: -5, Close: 101, Volume: 10},
		},
		{
			name: "negative volume",
			bar:  domain.Bar{Symbol: "AAPL", Timestamp: tradingDay(2), Open: 100, High: 102, Low: 99, Close: 101, Volume: -1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{bars: []domain.Bar{tc.bar}}
			ps := store.NewParquetStore(t.TempDir())
			ing := NewIngestor(src, ps, 0, 1, time.Time{})

			_, err := ing.Fetch(context.Background(), []string{"AAPL"}, tradingDay(1), tradingDay(5))
			if !domain.IsIngestion(err) {
				t.Fatalf("Fetch error = %v, want ingestion for %s", err, tc.name)
			}
		})
	}
}
