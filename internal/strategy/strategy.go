// Package strategy defines the Strategy interface for backtest trading
// strategies and provides a Registry for looking them up by name.
package strategy

import (
	"backlab/internal/domain"
)

// Strategy turns a price series into trade signals.
//
// Signals must be pure: one pass over the series, no hidden state across
// calls, and identical output for identical input. The engine relies on
// this to precompute each symbol's signals before replaying the timeline.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Signals returns the signals this strategy emits over the given
	// series, in series order. Bars are ascending by timestamp and all
	// belong to one symbol.
	Signals(bars []domain.Bar) []domain.Signal
}

// Registry holds a named collection of strategies. The catalog order is the
// registration order, which keeps the list stable across processes.
type Registry struct {
	names      []string
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy, keyed by its Name(). Registering the same name
// twice is a programmer error and panics.
func (r *Registry) Register(s Strategy) {
	name := s.Name()
	if _, dup := r.strategies[name]; dup {
		panic("strategy: duplicate registration of " + name)
	}
	r.names = append(r.names, name)
	r.strategies[name] = s
}

// Get retrieves a strategy by name, or a not-found error if absent.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, domain.NotFoundf("unknown strategy %q", name)
	}
	return s, nil
}

// List returns all registered strategy names in registration order.
func (r *Registry) List() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
