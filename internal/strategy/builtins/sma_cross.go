package builtins

import (
	"fmt"

	"backlab/internal/domain"
	"backlab/internal/indicators"
	"backlab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross is a simple moving average crossover strategy. It emits a buy
// signal when the short-period SMA crosses above the long-period SMA, and a
// sell signal when it crosses below. A series with fewer bars than the long
// window produces no signals.
type SMACross struct {
	shortWindow int
	longWindow  int
}

// NewSMACross creates an SMACross strategy. The short window must be
// strictly smaller than the long window.
func NewSMACross(short, long int) (*SMACross, error) {
	if short <= 0 || long <= 0 || short >= long {
		return nil, fmt.Errorf("sma-cross: invalid windows short=%d long=%d", short, long)
	}
	return &SMACross{shortWindow: short, longWindow: long}, nil
}

// Name returns "sma-cross".
func (s *SMACross) Name() string { return "sma-cross" }

// Signals emits crossover signals over the series.
func (s *SMACross) Signals(bars []domain.Bar) []domain.Signal {
	if len(bars) < s.longWindow {
		return nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	short := indicators.SMA(closes, s.shortWindow)
	long := indicators.SMA(closes, s.longWindow)

	var signals []domain.Signal
	// A cross needs a valid previous value for both averages, so the
	// first comparable index is longWindow (previous bar at longWindow-1).
	for i := s.longWindow; i < len(bars); i++ {
		crossedUp := short[i-1] <= long[i-1] && short[i] > long[i]
		crossedDown := short[i-1] >= long[i-1] && short[i] < long[i]

		switch {
		case crossedUp:
			signals = append(signals, domain.Signal{
				Timestamp: bars[i].Timestamp,
				Type:      domain.SignalBuy,
				Strength:  short[i] - long[i],
			})
		case crossedDown:
			signals = append(signals, domain.Signal{
				Timestamp: bars[i].Timestamp,
				Type:      domain.SignalSell,
				Strength:  long[i] - short[i],
			})
		}
	}
	return signals
}
