// Package builtins provides the built-in strategy implementations that ship
// with the platform. The catalog is closed: new strategies are added here
// and registered in DefaultRegistry, not loaded at runtime.
package builtins

import (
	"backlab/internal/domain"
	"backlab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BuyHold)(nil)

// BuyHold is the buy-and-hold baseline: a single buy signal on the first
// bar and nothing after.
type BuyHold struct{}

// NewBuyHold creates the buy-and-hold strategy.
func NewBuyHold() *BuyHold { return &BuyHold{} }

// Name returns "buy-hold".
func (s *BuyHold) Name() string { return "buy-hold" }

// Signals emits one buy signal at the first bar of the series.
func (s *BuyHold) Signals(bars []domain.Bar) []domain.Signal {
	if len(bars) == 0 {
		return nil
	}
	return []domain.Signal{{
		Timestamp: bars[0].Timestamp,
		Type:      domain.SignalBuy,
		Strength:  1,
	}}
}
