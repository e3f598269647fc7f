// Package store defines the storage interfaces for the platform: durable
// per-symbol bar series and the history of completed backtest runs.
package store

import (
	"context"
	"time"

	"backlab/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars merges a batch of bars into storage, deduplicating by
	// (symbol, timestamp) with last write winning. It returns the number
	// of rows that did not previously exist.
	WriteBars(ctx context.Context, bars []domain.Bar) (int, error)

	// ReadBars returns the bars for symbol within [start, end] inclusive,
	// ascending by timestamp. A zero start or end leaves that side
	// unbounded. A symbol with no stored bars yields a not-found error.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all symbols with at least one stored bar,
	// sorted ascending.
	ListSymbols(ctx context.Context) ([]string, error)
}

// Run is one completed backtest run: the request, its outputs, and the
// derived report.
type Run struct {
	ID        int64                `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Strategy  string               `json:"strategy"`
	Symbols   []string             `json:"symbols"`
	StartCash float64              `json:"start_cash"`
	Report    domain.Report        `json:"report"`
	Trades    []domain.Trade       `json:"trades"`
	History   []domain.EquityPoint `json:"history"`
}

// RunSummary is the listing row for a stored run.
type RunSummary struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Strategy    string    `json:"strategy"`
	Symbols     []string  `json:"symbols"`
	StartCash   float64   `json:"start_cash"`
	TotalReturn float64   `json:"total_return"`
	NumTrades   int       `json:"num_trades"`
}

// RunStore persists completed backtest runs.
type RunStore interface {
	// SaveRun inserts the run and fills in its ID and CreatedAt.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID, or a not-found error.
	GetRun(ctx context.Context, id int64) (*Run, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}
