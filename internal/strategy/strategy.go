// Package strategy defines the SignalGenerator interface for trading
// strategies and provides a Registry for managing multiple strategy
// implementations.
package strategy

import (
	"context"
	"sort"
	"time"

	"quantpak/internal/domain"
)

// SignalGenerator is the interface that all trading strategies must
// implement. A strategy maps price history to trade recommendations and has
// no knowledge of execution, costs, or portfolio state.
type SignalGenerator interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Params returns the strategy's parameter set. The set of parameter
	// names is fixed at construction time.
	Params() Params

	// GenerateSignals produces zero or more signals for the cursor time.
	// history holds, per symbol, every bar with timestamp at or before
	// cursor; implementations must not assume any future bar exists.
	// Returned signals must be timestamped at or before cursor and are
	// applied in the order produced.
	GenerateSignals(ctx context.Context, history map[string][]domain.Bar, cursor time.Time) ([]domain.Signal, error)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]SignalGenerator
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]SignalGenerator),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s SignalGenerator) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (SignalGenerator, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
