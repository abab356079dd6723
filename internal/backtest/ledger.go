package backtest

import (
	"math"
	"time"

	"quantpak/internal/domain"
)

// Ledger is the portfolio bookkeeper for one backtest run: cash, per-symbol
// positions, and the running equity curve. It knows nothing about strategies
// or signals. After every call the equity invariant holds:
// equity = cash + Σ position.Quantity * mark(symbol).
type Ledger struct {
	positions map[string]domain.Position
	marks     map[string]float64
	curve     []domain.EquityPoint
	balance   float64
	realized  float64
	ts        time.Time
}

// NewLedger creates a Ledger with the given starting cash.
func NewLedger(initialCash float64) *Ledger {
	return &Ledger{
		positions: make(map[string]domain.Position),
		marks:     make(map[string]float64),
		balance:   initialCash,
	}
}

// ApplyFill books a fill: cash moves by notional plus cost, the position
// updates with weighted-average cost basis on increases and realized P&L on
// decreases, and the symbol is marked at the fill price until the next
// mark-to-market.
func (l *Ledger) ApplyFill(f domain.Fill) {
	delta := f.Quantity
	if f.Side == domain.SideSell {
		delta = -delta
	}

	l.balance -= delta*f.Price + f.Cost

	pos := l.positions[f.Symbol]
	pos.Symbol = f.Symbol
	newQty := pos.Quantity + delta

	switch {
	case pos.Quantity == 0:
		pos.AvgCost = f.Price
	case sameSign(pos.Quantity, delta):
		// Increasing exposure: weighted-average cost basis.
		pos.AvgCost = (pos.AvgCost*math.Abs(pos.Quantity) + f.Price*math.Abs(delta)) /
			math.Abs(newQty)
	default:
		// Reducing or reversing: book realized P&L on the closed portion.
		closed := math.Min(math.Abs(delta), math.Abs(pos.Quantity))
		direction := 1.0
		if pos.Quantity < 0 {
			direction = -1
		}
		l.realized += (f.Price - pos.AvgCost) * closed * direction
		if math.Abs(delta) > math.Abs(pos.Quantity) {
			// Crossed through flat: the remainder opens at the fill price.
			pos.AvgCost = f.Price
		}
	}

	pos.Quantity = newQty
	if pos.Quantity == 0 {
		delete(l.positions, f.Symbol)
	} else {
		l.positions[f.Symbol] = pos
	}
	l.marks[f.Symbol] = f.Price
	l.ts = f.Timestamp
}

// MarkToMarket revalues open positions at the given prices, appends an
// equity-curve entry for the timestamp, and returns the resulting equity.
func (l *Ledger) MarkToMarket(ts time.Time, prices map[string]float64) float64 {
	for symbol, price := range prices {
		l.marks[symbol] = price
	}
	l.ts = ts
	equity := l.Equity()
	l.curve = append(l.curve, domain.EquityPoint{Timestamp: ts, Equity: equity})
	return equity
}

// Equity returns cash plus every position marked at its latest known price.
func (l *Ledger) Equity() float64 {
	equity := l.balance
	for symbol, pos := range l.positions {
		equity += pos.Quantity * l.marks[symbol]
	}
	return equity
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.balance
}

// RealizedPnL returns the cumulative realized profit and loss.
func (l *Ledger) RealizedPnL() float64 {
	return l.realized
}

// Position returns the current position for a symbol; a zero-quantity
// Position is returned for flat symbols.
func (l *Ledger) Position(symbol string) domain.Position {
	return l.positions[symbol]
}

// Curve returns the equity curve recorded so far. The returned slice is
// owned by the Ledger; callers must not mutate it.
func (l *Ledger) Curve() []domain.EquityPoint {
	return l.curve
}

// Snapshot returns a deep copy of the current portfolio state.
func (l *Ledger) Snapshot() domain.PortfolioState {
	positions := make(map[string]domain.Position, len(l.positions))
	for symbol, pos := range l.positions {
		positions[symbol] = pos
	}
	return domain.PortfolioState{
		Timestamp: l.ts,
		Cash:      l.balance,
		Positions: positions,
	}
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}
