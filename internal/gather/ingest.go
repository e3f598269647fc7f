package gather

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"backlab/internal/domain"
	"backlab/internal/store"
	"backlab/internal/util"
)

// Ingestor coordinates fetching bars from a Source and persisting them.
type Ingestor struct {
	source       Source
	store        store.BarStore
	limiter      *util.RateLimiter
	retries      int
	defaultStart time.Time
	log          *slog.Logger
}

// NewIngestor creates an Ingestor writing to the given store. perMinute
// limits upstream calls; zero disables the limit. defaultStart is used for
// requests that omit a start date; a zero defaultStart makes start required.
func NewIngestor(source Source, s store.BarStore, perMinute, retries int, defaultStart time.Time) *Ingestor {
	if retries <= 0 {
		retries = 3
	}
	return &Ingestor{
		source:       source,
		store:        s,
		limiter:      util.NewRateLimiter(perMinute),
		retries:      retries,
		defaultStart: defaultStart,
		log:          slog.Default().With("component", "ingestor"),
	}
}

// Result summarizes one ingestion request.
type Result struct {
	Symbols     []string  `json:"symbols"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	BarsFetched int       `json:"bars_fetched"`
	BarsWritten int       `json:"bars_written"`
}

// Fetch pulls daily bars for the symbols within [start, end] and merges them
// into the store. A zero end is clamped to the latest finished trading day.
// Re-running the same request is idempotent: already stored rows do not
// count toward BarsWritten.
func (in *Ingestor) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*Result, error) {
	cleaned, err := normalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = in.defaultStart
	}
	if start.IsZero() {
		return nil, domain.Validationf("start date is required")
	}

	if end.IsZero() {
		end, err = in.source.LatestTradingDay(ctx)
		if err != nil {
			return nil, domain.Ingestionf(err, "determining latest trading day")
		}
	}
	if end.Before(start) {
		return nil, domain.Validationf("end %s precedes start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	if err := in.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var bars []domain.Bar
	err = util.Retry(ctx, in.retries, time.Second, func() error {
		var ferr error
		bars, ferr = in.source.DailyBars(ctx, cleaned, start, end)
		return ferr
	})
	if err != nil {
		return nil, domain.Ingestionf(err, "fetching bars for %s", strings.Join(cleaned, ","))
	}

	if err := validateBars(bars); err != nil {
		return nil, err
	}

	written, err := in.store.WriteBars(ctx, bars)
	if err != nil {
		return nil, domain.Internalf(err, "persisting bars")
	}

	in.log.Info("ingested bars",
		"symbols", strings.Join(cleaned, ","),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"fetched", len(bars),
		"written", written,
	)
	return &Result{
		Symbols:     cleaned,
		Start:       start,
		End:         end,
		BarsFetched: len(bars),
		BarsWritten: written,
	}, nil
}

// normalizeSymbols trims, uppercases, and deduplicates the request symbols,
// preserving first-seen order.
func normalizeSymbols(symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, domain.Validationf("at least one symbol is required")
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			return nil, domain.Validationf("empty symbol in request")
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out, nil
}

// validateBars rejects upstream rows that cannot be a real daily bar.
func validateBars(bars []domain.Bar) error {
	for _, b := range bars {
		switch {
		case b.Symbol == "":
			return domain.Ingestionf(nil, "upstream bar with empty symbol")
		case b.Timestamp.IsZero():
			return domain.Ingestionf(nil, "upstream bar for %s with zero timestamp", b.Symbol)
		case b.Close <= 0 || b.Open <= 0:
			return domain.Ingestionf(nil, "upstream bar for %s at %s with non-positive price",
				b.Symbol, b.Timestamp.Format("2006-01-02"))
		case b.High < b.Low:
			return domain.Ingestionf(nil, "upstream bar for %s at %s with high below low",
				b.Symbol, b.Timestamp.Format("2006-01-02"))
		case b.Low < 0 || b.High < 0:
			return domain.Ingestionf(nil, "upstream bar for %s at %s with negative price",
				b.Symbol, b.Timestamp.Format("2006-01-02"))
		case b.Volume < 0:
			return domain.Ingestionf(nil, "upstream bar for %s at %s with negative volume",
				b.Symbol, b.Timestamp.Format("2006-01-02"))
		}
	}
	return nil
}
