// Package backlab provides a Go SDK for the backlab-server API.
package backlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to a backlab-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backlab: %s (code %s, http %d)", e.Message, e.Code, e.Status)
}

// Bar is one daily OHLCV bar as served by the API.
type Bar struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"Open"`
	High      float64 `json:"High"`
	Low       float64 `json:"Low"`
	Close     float64 `json:"Close"`
	Volume    int64   `json:"Volume"`
}

// Trade is one executed simulated trade.
type Trade struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Price     float64   `json:"price"`
	Qty       int64     `json:"quantity"`
}

// EquityPoint is one point of a run's equity curve.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// BacktestResult is the full output of a backtest run.
type BacktestResult struct {
	History []EquityPoint      `json:"history"`
	Trades  []Trade            `json:"trades"`
	Report  map[string]float64 `json:"report"`
	RunID   int64              `json:"run_id"`
}

// RunSummary is one row of the stored run history.
type RunSummary struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Strategy    string    `json:"strategy"`
	Symbols     []string  `json:"symbols"`
	StartCash   float64   `json:"start_cash"`
	TotalReturn float64   `json:"total_return"`
	NumTrades   int       `json:"num_trades"`
}

// Run is one stored run with its full outputs.
type Run struct {
	ID        int64              `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Strategy  string             `json:"strategy"`
	Symbols   []string           `json:"symbols"`
	StartCash float64            `json:"start_cash"`
	Report    map[string]float64 `json:"report"`
	Trades    []Trade            `json:"trades"`
	History   []EquityPoint      `json:"history"`
}

// Symbols lists the symbols with stored data.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.get(ctx, "/symbols", &resp); err != nil {
		return nil, err
	}
	return resp.Symbols, nil
}

// Strategies lists the available strategy names.
func (c *Client) Strategies(ctx context.Context) ([]string, error) {
	var resp struct {
		Strategies []string `json:"strategies"`
	}
	if err := c.get(ctx, "/strategies", &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// Data retrieves a symbol's bars. Zero start or end leaves that side
// unbounded.
func (c *Client) Data(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("start", start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		q.Set("end", end.Format("2006-01-02"))
	}
	path := "/data/" + url.PathEscape(symbol)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Symbol string `json:"symbol"`
		Data   []Bar  `json:"data"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Fetch asks the server to ingest bars for the symbols from its upstream
// source. It returns the number of newly stored rows.
func (c *Client) Fetch(ctx context.Context, symbols []string, start, end time.Time) (int, error) {
	req := map[string]any{
		"symbols": symbols,
		"start":   start.Format("2006-01-02"),
	}
	if !end.IsZero() {
		req["end"] = end.Format("2006-01-02")
	}

	var resp struct {
		Rows int `json:"rows"`
	}
	if err := c.post(ctx, "/fetch", req, &resp); err != nil {
		return 0, err
	}
	return resp.Rows, nil
}

// BacktestRequest parameterizes a run. Cash zero uses the server default;
// dates are YYYY-MM-DD and empty leaves that side unbounded.
type BacktestRequest struct {
	Symbols  []string `json:"symbols"`
	Strategy string   `json:"strategy"`
	Cash     float64  `json:"cash,omitempty"`
	Start    string   `json:"start,omitempty"`
	End      string   `json:"end,omitempty"`
}

// Backtest runs a strategy on the server and returns the full result.
func (c *Client) Backtest(ctx context.Context, req BacktestRequest) (*BacktestResult, error) {
	var resp BacktestResult
	if err := c.post(ctx, "/backtest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Runs lists stored runs, newest first. limit zero uses the server default.
func (c *Client) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	path := "/runs"
	if limit > 0 {
		path = fmt.Sprintf("/runs?limit=%d", limit)
	}
	var resp struct {
		Runs []RunSummary `json:"runs"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Run retrieves one stored run by ID.
func (c *Client) Run(ctx context.Context, id int64) (*Run, error) {
	var run Run
	if err := c.get(ctx, fmt.Sprintf("/runs/%d", id), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
