// Package backtest replays historical bars through a strategy, simulates
// order execution against a portfolio ledger, and assembles performance
// results. A single run is strictly sequential in time; independent runs are
// parallelized by the batch runner.
package backtest

// FillRule selects which bar price a signal executes at.
type FillRule string

const (
	// FillNextOpen executes a signal at the following bar's open. This is
	// the default: it prevents a signal computed from a bar's close from
	// also filling at that close.
	FillNextOpen FillRule = "next_bar_open"

	// FillSameClose executes a signal at the close of the bar that
	// produced it.
	FillSameClose FillRule = "same_bar_close"
)

// Config holds the execution parameters of a backtest run.
type Config struct {
	// InitialCapital is the starting cash balance.
	InitialCapital float64

	// CostRate is the proportional transaction cost per fill
	// (cost = |qty| * price * CostRate + FixedFee).
	CostRate float64

	// FixedFee is the flat fee charged per fill.
	FixedFee float64

	// FillRule selects the fill price timing.
	FillRule FillRule

	// AllowShort permits negative position quantities. When false, sells
	// are clamped at flat.
	AllowShort bool

	// AllowMargin permits negative cash. When false, any fill whose net
	// cash outflow exceeds available cash is rejected.
	AllowMargin bool

	// RiskFreeRate is the annual risk-free rate used for excess-return
	// metrics.
	RiskFreeRate float64

	// PeriodsPerYear is the number of bars per year on the timestamp grid
	// (252 for daily data).
	PeriodsPerYear float64
}

// applyDefaults fills zero-valued fields with sane defaults.
func (c *Config) applyDefaults() {
	if c.InitialCapital <= 0 {
		c.InitialCapital = 100000
	}
	if c.FillRule == "" {
		c.FillRule = FillNextOpen
	}
	if c.PeriodsPerYear <= 0 {
		c.PeriodsPerYear = 252
	}
}
