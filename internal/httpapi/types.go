package httpapi

import (
	"time"

	"backlab/internal/domain"
	"backlab/internal/store"
)

// BarJSON is the wire shape of one daily bar. The capitalized OHLCV field
// names are fixed for the chart front-ends.
type BarJSON struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"Open"`
	High      float64 `json:"High"`
	Low       float64 `json:"Low"`
	Close     float64 `json:"Close"`
	Volume    int64   `json:"Volume"`
}

func toBarJSON(b domain.Bar) BarJSON {
	return BarJSON{
		Timestamp: b.Timestamp.UTC().Format(time.RFC3339),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}
}

// SymbolsResponse lists the stored symbols.
type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// StrategiesResponse lists the registered strategy names in catalog order.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// DataResponse is one symbol's bar series.
type DataResponse struct {
	Symbol string    `json:"symbol"`
	Data   []BarJSON `json:"data"`
}

// FetchRequest asks the server to ingest bars from the upstream source.
// Either a single symbol or a list is accepted.
type FetchRequest struct {
	Symbol  string   `json:"symbol,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
	Start   string   `json:"start"`
	End     string   `json:"end,omitempty"`
}

// FetchResponse reports how many new rows the ingestion stored.
type FetchResponse struct {
	Rows int `json:"rows"`
}

// BacktestRequest runs a strategy over stored data. Either a single symbol
// or a list is accepted; cash defaults when omitted or zero.
type BacktestRequest struct {
	Symbol   string   `json:"symbol,omitempty"`
	Symbols  []string `json:"symbols,omitempty"`
	Strategy string   `json:"strategy"`
	Cash     float64  `json:"cash,omitempty"`
	Start    string   `json:"start,omitempty"`
	End      string   `json:"end,omitempty"`
}

// BacktestResponse carries the run outputs plus the stored run ID.
type BacktestResponse struct {
	History []domain.EquityPoint `json:"history"`
	Trades  []domain.Trade       `json:"trades"`
	Report  domain.Report        `json:"report"`
	RunID   int64                `json:"run_id,omitempty"`
}

// RunsResponse lists stored runs, newest first.
type RunsResponse struct {
	Runs []store.RunSummary `json:"runs"`
}

// ErrorResponse is the error body for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
