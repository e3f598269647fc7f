// Package backtest simulates trading strategies over stored bar series and
// summarizes the resulting equity curve.
package backtest

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"backlab/internal/domain"
	"backlab/internal/store"
	"backlab/internal/strategy"
)

// DefaultStartCash is the portfolio size used when a request leaves cash
// unset.
const DefaultStartCash = 1_000_000

// Engine runs backtests against a bar store and a strategy registry.
type Engine struct {
	bars     store.BarStore
	registry *strategy.Registry
	log      *slog.Logger
}

// NewEngine creates an Engine reading bars from s and strategies from reg.
func NewEngine(s store.BarStore, reg *strategy.Registry) *Engine {
	return &Engine{
		bars:     s,
		registry: reg,
		log:      slog.Default().With("component", "backtest"),
	}
}

// Request describes one backtest run. A zero StartCash means
// DefaultStartCash; negative values are rejected.
type Request struct {
	Symbols   []string
	Strategy  string
	StartCash float64
	Start     time.Time
	End       time.Time
}

// Result is the output of one run.
type Result struct {
	Trades  []domain.Trade       `json:"trades"`
	History []domain.EquityPoint `json:"history"`
	Report  domain.Report        `json:"report"`
}

// event is one symbol's bar slot on the merged timeline, with the signal
// the strategy emitted for that bar, if any.
type event struct {
	bar    domain.Bar
	signal *domain.Signal
}

// Run simulates the requested strategy over the merged timeline of all
// requested symbols. The run is deterministic: no randomness and no
// wall-clock reads. Validation and lookups happen before any simulation;
// once the loop starts, nothing aborts it.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	symbols, err := validateRequest(req)
	if err != nil {
		return nil, err
	}
	startCash := req.StartCash
	if startCash == 0 {
		startCash = DefaultStartCash
	}
	cash := startCash

	strat, err := e.registry.Get(req.Strategy)
	if err != nil {
		return nil, err
	}

	// Load each symbol's series and compute its signals once over the
	// whole series. Strategies are pure, so signal timestamps always
	// coincide with bar timestamps.
	events := make(map[time.Time][]event)
	for _, sym := range symbols {
		bars, err := e.bars.ReadBars(ctx, sym, req.Start, req.End)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			return nil, domain.NotFoundf("symbol %s has no bars in the requested range", sym)
		}

		signals := strat.Signals(bars)
		sigAt := make(map[time.Time]domain.Signal, len(signals))
		for _, sig := range signals {
			sigAt[sig.Timestamp] = sig
		}
		for _, bar := range bars {
			ev := event{bar: bar}
			if sig, ok := sigAt[bar.Timestamp]; ok {
				s := sig
				ev.signal = &s
			}
			events[bar.Timestamp] = append(events[bar.Timestamp], ev)
		}
	}

	timeline := make([]time.Time, 0, len(events))
	for ts := range events {
		timeline = append(timeline, ts)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Before(timeline[j]) })

	var (
		trades    []domain.Trade
		history   []domain.EquityPoint
		positions = make(map[string]int64)
		lastClose = make(map[string]float64)
	)

	for _, ts := range timeline {
		slots := events[ts]
		// Symbols sharing a timestamp trade in ascending symbol order.
		sort.Slice(slots, func(i, j int) bool {
			return slots[i].bar.Symbol < slots[j].bar.Symbol
		})

		for _, ev := range slots {
			sym := ev.bar.Symbol
			price := ev.bar.Close
			lastClose[sym] = price
			if ev.signal == nil {
				continue
			}

			switch ev.signal.Type {
			case domain.SignalBuy:
				qty := int64(math.Floor(cash / price))
				if qty < 1 {
					continue
				}
				cash -= float64(qty) * price
				positions[sym] += qty
				trades = append(trades, domain.Trade{
					Timestamp: ts,
					Symbol:    sym,
					Side:      domain.SideBuy,
					Price:     price,
					Qty:       qty,
				})
			case domain.SignalSell:
				qty := positions[sym]
				if qty == 0 {
					// Selling with no position is not a failure.
					continue
				}
				cash += float64(qty) * price
				positions[sym] = 0
				trades = append(trades, domain.Trade{
					Timestamp: ts,
					Symbol:    sym,
					Side:      domain.SideSell,
					Price:     price,
					Qty:       qty,
				})
			}
		}

		// One equity point per timeline timestamp, valuing open positions
		// at the latest close seen for each symbol. Summing in sorted
		// symbol order keeps the float addition order, and so the curve,
		// identical across runs.
		value := cash
		for _, sym := range symbols {
			if qty := positions[sym]; qty != 0 {
				value += float64(qty) * lastClose[sym]
			}
		}
		history = append(history, domain.EquityPoint{Timestamp: ts, Value: value})
	}

	report := Summarize(trades, history, startCash)

	e.log.Info("run complete",
		"strategy", strat.Name(),
		"symbols", strings.Join(symbols, ","),
		"bars", len(timeline),
		"trades", len(trades),
		"total_return", report["total_return"],
	)
	return &Result{Trades: trades, History: history, Report: report}, nil
}

// validateRequest checks the request shape and returns the normalized,
// sorted symbol list.
func validateRequest(req Request) ([]string, error) {
	if len(req.Symbols) == 0 {
		return nil, domain.Validationf("at least one symbol is required")
	}
	if req.StartCash < 0 {
		return nil, domain.Validationf("start cash must be positive, got %v", req.StartCash)
	}
	if req.Strategy == "" {
		return nil, domain.Validationf("strategy name is required")
	}

	seen := make(map[string]struct{}, len(req.Symbols))
	out := make([]string, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			return nil, domain.Validationf("empty symbol in request")
		}
		if _, dup := seen[sym]; dup {
			return nil, domain.Validationf("duplicate symbol %s in request", sym)
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}
