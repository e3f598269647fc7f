package builtins

import (
	"backlab/internal/domain"
	"backlab/internal/indicators"
	"backlab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MACDCross)(nil)

// MACDCross buys when the MACD line crosses above its signal line and sells
// on the opposite cross.
type MACDCross struct {
	fast   int
	slow   int
	signal int
}

// NewMACDCross creates a MACDCross strategy with the conventional 12/26/9
// periods.
func NewMACDCross() *MACDCross {
	return &MACDCross{fast: 12, slow: 26, signal: 9}
}

// Name returns "macd-cross".
func (s *MACDCross) Name() string { return "macd-cross" }

// Signals emits MACD/signal-line crossover signals. No signals are emitted
// before the slow EMA and signal EMA have both warmed up.
func (s *MACDCross) Signals(bars []domain.Bar) []domain.Signal {
	warmup := s.slow + s.signal
	if len(bars) <= warmup {
		return nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	macd, signalLine := indicators.MACD(closes, s.fast, s.slow, s.signal)

	var signals []domain.Signal
	for i := warmup; i < len(bars); i++ {
		prevDiff := macd[i-1] - signalLine[i-1]
		diff := macd[i] - signalLine[i]

		switch {
		case prevDiff <= 0 && diff > 0:
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
