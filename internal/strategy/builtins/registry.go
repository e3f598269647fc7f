package builtins

import (
	"backlab/internal/strategy"
)

// Default SMA crossover windows, matching the original platform defaults.
const (
	DefaultShortWindow = 20
	DefaultLongWindow  = 50
)

// DefaultRegistry returns a Registry with every built-in strategy
// registered. The registration order fixes the catalog order exposed over
// the API.
func DefaultRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(NewBuyHold())

	smaCross, err := NewSMACross(DefaultShortWindow, DefaultLongWindow)
	if err != nil {
		// Unreachable with the constants above.
		panic(err)
	}
	r.Register(smaCross)
	r.Register(NewMACDCross())
	r.Register(NewKDJCross())
	return r
}
