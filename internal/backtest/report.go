package backtest

import (
	"math"

	"backlab/internal/domain"
)

// tradingDaysPerYear annualizes daily-return statistics.
const tradingDaysPerYear = 252

// Summarize derives the performance report from a run's trades and equity
// history. An empty history yields a report with every metric at zero.
func Summarize(trades []domain.Trade, history []domain.EquityPoint, startCash float64) domain.Report {
	report := domain.Report{
		"total_return":  0,
		"max_drawdown":  0,
		"num_trades":    float64(len(trades)),
		"win_rate":      0,
		"sharpe_ratio":  0,
		"final_value":   0,
		"annual_return": 0,
		"profit_factor": 0,
	}
	if len(history) == 0 {
		report["num_trades"] = 0
		return report
	}

	final := history[len(history)-1].Value
	report["final_value"] = final
	if startCash > 0 {
		report["total_return"] = (final - startCash) / startCash
	}

	report["max_drawdown"] = maxDrawdown(history)
	report["sharpe_ratio"] = sharpeRatio(history)

	wins, losses, grossProfit, grossLoss := roundTrips(trades)
	if total := wins + losses; total > 0 {
		report["win_rate"] = float64(wins) / float64(total)
	}
	if grossLoss > 0 {
		report["profit_factor"] = grossProfit / grossLoss
	}

	if n := len(history); n > 1 && startCash > 0 {
		growth := final / startCash
		if growth > 0 {
			report["annual_return"] = math.Pow(growth, tradingDaysPerYear/float64(n)) - 1
		}
	}
	return report
}

// maxDrawdown is the largest peak-to-trough decline as a positive fraction.
func maxDrawdown(history []domain.EquityPoint) float64 {
	var peak, maxDD float64
	for _, p := range history {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio is mean/stdev of daily returns scaled by sqrt(252), using the
// sample standard deviation. Fewer than two equity points, or a flat return
// series, yields zero.
func sharpeRatio(history []domain.EquityPoint) float64 {
	if len(history) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Value
		if prev == 0 {
			return 0
		}
		returns = append(returns, history[i].Value/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}

// roundTrips pairs each symbol's buys with the sell that liquidates them,
// FIFO, and tallies realized P&L. Under all-in sizing a sell closes every
// open lot for its symbol at once.
func roundTrips(trades []domain.Trade) (wins, losses int, grossProfit, grossLoss float64) {
	type lot struct {
		price float64
		qty   int64
	}
	open := make(map[string][]lot)

	for _, t := range trades {
		switch t.Side {
		case domain.SideBuy:
			open[t.Symbol] = append(open[t.Symbol], lot{price: t.Price, qty: t.Qty})
		case domain.SideSell:
			lots := open[t.Symbol]
			if len(lots) == 0 {
				continue
			}
			var pnl float64
			for _, l := range lots {
				pnl += (t.Price - l.price) * float64(l.qty)
			}
			open[t.Symbol] = nil
			if pnl > 0 {
				wins++
				grossProfit += pnl
			} else {
				losses++
				grossLoss += -pnl
			}
		}
	}
	return wins, losses, grossProfit, grossLoss
}
