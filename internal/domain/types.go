// Package domain defines the core value types shared across the backtesting
// platform: price bars, strategy signals, simulated trades, equity snapshots,
// and performance reports.
package domain

import "time"

// Bar is one OHLCV record for one symbol on one trading day. Bars are
// immutable once ingested.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// SignalType is a strategy's recommendation at a point in time.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
)

// Signal is emitted by a strategy for one bar of its input series. Signals
// are ephemeral: produced and consumed within a single backtest run.
type Signal struct {
	Timestamp time.Time  `json:"timestamp"`
	Type      SignalType `json:"type"`
	Strength  float64    `json:"strength,omitempty"`
}

// Side of a filled trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is a realized, filled execution within a backtest run.
// Qty is always positive; the Side carries the direction.
type Trade struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Price     float64   `json:"price"`
	Qty       int64     `json:"quantity"`
}

// EquityPoint is the total portfolio value (cash plus mark-to-market
// positions) after one simulated day.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Report maps metric names to values, derived once at the end of a run.
type Report map[string]float64
