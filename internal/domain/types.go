// Package domain defines the core value types shared across the quantpak
// backtesting engine: price bars, trading signals, fills, positions, and
// portfolio snapshots.
package domain

import "time"

// SignalKind identifies the action a strategy recommends.
type SignalKind string

// Signal kinds.
const (
	SignalBuy  SignalKind = "buy"
	SignalSell SignalKind = "sell"
	SignalHold SignalKind = "hold"
)

// Side identifies the direction of an executed fill.
type Side string

// Fill sides.
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Bar is a single OHLCV price bar. Bars for one symbol are ordered by
// strictly increasing Timestamp.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Signal is a strategy's recommendation for one symbol at one point in time.
// A signal may size itself either with an explicit Quantity (share count) or
// with a TargetWeight (fraction of portfolio equity); TargetWeight takes
// precedence when set. Signals are produced only from bars with timestamps
// at or before Signal.Timestamp.
type Signal struct {
	Timestamp    time.Time  `json:"timestamp"`
	Symbol       string     `json:"symbol"`
	Kind         SignalKind `json:"kind"`
	Quantity     float64    `json:"quantity,omitempty"`
	TargetWeight *float64   `json:"target_weight,omitempty"`
}

// Fill is the simulated execution of a signal. Fills are immutable once
// recorded.
type Fill struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"fill_price"`
	Cost      float64   `json:"transaction_cost"`
}

// Position is the holding in a single symbol. Quantity is zero when flat and
// negative when short.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgCost  float64 `json:"average_cost_basis"`
}

// PortfolioState is a point-in-time snapshot of cash and holdings.
type PortfolioState struct {
	Timestamp time.Time           `json:"timestamp"`
	Cash      float64             `json:"cash"`
	Positions map[string]Position `json:"positions"`
}

// EquityPoint is one entry of an equity curve: total portfolio value
// (cash plus marked positions) at a timestamp.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}
