// Package httpapi exposes the platform over HTTP: stored data, strategy
// catalog, ingestion, and backtest runs.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backlab/internal/backtest"
	"backlab/internal/domain"
	"backlab/internal/gather"
	"backlab/internal/store"
	"backlab/internal/strategy"
)

// Server serves the HTTP API.
type Server struct {
	bars     store.BarStore
	runs     store.RunStore
	registry *strategy.Registry
	ingestor *gather.Ingestor
	engine   *backtest.Engine
	defaults Defaults
	log      *slog.Logger
}

// Defaults are the request-level fallbacks. Zero values defer to the engine
// and store defaults.
type Defaults struct {
	StartCash float64 // cash when a backtest request omits it
	RunsLimit int     // page size when /runs omits limit
}

// NewServer creates a Server over the given stores, registry, ingestor, and
// engine.
func NewServer(bars store.BarStore, runs store.RunStore, reg *strategy.Registry, ing *gather.Ingestor, eng *backtest.Engine, def Defaults) *Server {
	return &Server{
		bars:     bars,
		runs:     runs,
		registry: reg,
		ingestor: ing,
		engine:   eng,
		defaults: def,
		log:      slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /symbols", s.handleSymbols)
	mux.HandleFunc("GET /strategies", s.handleStrategies)
	mux.HandleFunc("GET /data/{symbol}", s.handleData)
	mux.HandleFunc("POST /fetch", s.handleFetch)
	mux.HandleFunc("POST /backtest", s.handleBacktest)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(code))
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error(), Code: string(code)})
}

// statusFor maps error codes to HTTP status.
func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeIngestion:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseDate accepts YYYY-MM-DD or RFC3339. Empty is the zero time.
func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, domain.Validationf("invalid %s date %q, want YYYY-MM-DD", field, s)
}

// requestSymbols merges the single-symbol and list request fields.
func requestSymbols(symbol string, symbols []string) []string {
	if len(symbols) > 0 {
		return symbols
	}
	if strings.TrimSpace(symbol) != "" {
		return []string{symbol}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.bars.ListSymbols(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, SymbolsResponse{Symbols: symbols})
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, StrategiesResponse{Strategies: s.registry.List()})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	start, err := parseDate("start", r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := parseDate("end", r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, err)
		return
	}

	bars, err := s.bars.ReadBars(r.Context(), symbol, start, end)
	if err != nil {
		writeError(w, err)
		return
	}

	data := make([]BarJSON, len(bars))
	for i, b := range bars {
		data[i] = toBarJSON(b)
	}
	writeJSON(w, DataResponse{Symbol: strings.ToUpper(symbol), Data: data})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Validationf("decoding request body: %v", err))
		return
	}

	start, err := parseDate("start", req.Start)
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.ingestor.Fetch(r.Context(), requestSymbols(req.Symbol, req.Symbols), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, FetchResponse{Rows: res.BarsWritten})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Validationf("decoding request body: %v", err))
		return
	}

	start, err := parseDate("start", req.Start)
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Cash == 0 {
		req.Cash = s.defaults.StartCash
	}

	res, err := s.engine.Run(r.Context(), backtest.Request{
		Symbols:   requestSymbols(req.Symbol, req.Symbols),
		Strategy:  req.Strategy,
		StartCash: req.Cash,
		Start:     start,
		End:       end,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := BacktestResponse{
		History: res.History,
		Trades:  res.Trades,
		Report:  res.Report,
	}
	if resp.Trades == nil {
		resp.Trades = []domain.Trade{}
	}

	run := &store.Run{
		Strategy:  req.Strategy,
		Symbols:   requestSymbols(req.Symbol, req.Symbols),
		StartCash: req.Cash,
		Report:    res.Report,
		Trades:    res.Trades,
		History:   res.History,
	}
	if run.StartCash == 0 {
		run.StartCash = backtest.DefaultStartCash
	}
	if err := s.runs.SaveRun(r.Context(), run); err != nil {
		// The run itself succeeded; losing its history row is not fatal.
		s.log.Warn("saving run", "error", err)
	} else {
		resp.RunID = run.ID
	}
	writeJSON(w, resp)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := s.defaults.RunsLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, domain.Validationf("invalid limit %q", q))
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, RunsResponse{Runs: runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, domain.Validationf("invalid run id %q", r.PathValue("id")))
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, run)
}
