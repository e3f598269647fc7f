// Package gather fetches daily bar data from upstream market-data providers
// and ingests it into the bar store.
package gather

import (
	"context"
	"time"

	"backlab/internal/domain"
)

// Source is a provider of daily OHLCV bars.
type Source interface {
	// DailyBars fetches daily bars for the symbols within [start, end].
	DailyBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error)

	// LatestTradingDay returns the most recent trading day whose market
	// session has ended.
	LatestTradingDay(ctx context.Context) (time.Time, error)
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}
