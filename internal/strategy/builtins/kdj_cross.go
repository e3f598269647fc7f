package builtins

import (
	"backlab/internal/domain"
	"backlab/internal/indicators"
	"backlab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*KDJCross)(nil)

// KDJCross buys when the stochastic K line crosses above D while the J line
// is below the oversold threshold, and sells when K crosses back below D.
// The J filter keeps entries to crosses that happen near the bottom of the
// recent range.
type KDJCross struct {
	n        int
	kPeriod  int
	dPeriod  int
	oversold float64
}

// NewKDJCross creates a KDJCross strategy with the conventional 9/3/3
// periods and an oversold threshold of 20.
func NewKDJCross() *KDJCross {
	return &KDJCross{n: 9, kPeriod: 3, dPeriod: 3, oversold: 20}
}

// Name returns "kdj-cross".
func (s *KDJCross) Name() string { return "kdj-cross" }

// Signals emits K/D crossover signals. No signals are emitted before the
// n-bar rolling range has warmed up.
func (s *KDJCross) Signals(bars []domain.Bar) []domain.Signal {
	if len(bars) <= s.n {
		return nil
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	k, d, j := indicators.KDJ(highs, lows, closes, s.n, s.kPeriod, s.dPeriod)

	var signals []domain.Signal
	for i := s.n; i < len(bars); i++ {
		prevDiff := k[i-1] - d[i-1]
		diff := k[i] - d[i]

		switch {
		case prevDiff <= 0 && diff > 0 && j[i] < s.oversold:
			signals = append(signals, domain.Signal{
				Timestamp: bars[i].Timestamp,
				Type:      domain.SignalBuy,
				Strength:  diff,
			})
		case prevDiff >= 0 && diff < 0:
			signals = append(signals, domain.Signal{
				Timestamp: bars[i].Timestamp,
				Type:      domain.SignalSell,
				Strength:  -diff,
			})
		}
	}
	return signals
}
