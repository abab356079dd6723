package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"quantpak/internal/domain"
	"quantpak/internal/strategy"
)

// Engine steps a strategy through an aligned multi-symbol price series,
// converts its signals into simulated fills, and records the equity curve.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// New creates an Engine. Zero-valued Config fields are filled with defaults.
func New(cfg Config, log *slog.Logger) *Engine {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}
}

// Run executes one backtest of gen over series. series maps each symbol to
// its bars; all symbols must share one strictly-increasing timestamp grid
// (pre-aligned by the data layer). The run is deterministic: identical
// inputs produce identical results.
//
// Misaligned or empty series and conflicting signals abort the run.
// Rejected fills (insufficient funds) and causality-violating signals are
// logged and skipped.
func (e *Engine) Run(ctx context.Context, gen strategy.SignalGenerator, series map[string][]domain.Bar) (*Result, error) {
	grid, err := timestampGrid(series)
	if err != nil {
		return nil, err
	}

	ledger := NewLedger(e.cfg.InitialCapital)
	fills := make([]domain.Fill, 0)
	var pending []domain.Signal

	history := make(map[string][]domain.Bar, len(series))

	for i, t := range grid {
		// Cooperative cancellation at per-step granularity.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Fill signals deferred from the previous step at this bar's open.
		for _, sig := range pending {
			f, err := e.execute(ledger, sig, series[sig.Symbol][i].Open, t)
			if err != nil {
				e.log.Warn("fill rejected",
					"strategy", gen.Name(), "symbol", sig.Symbol, "error", err)
				continue
			}
			if f != nil {
				fills = append(fills, *f)
			}
		}
		pending = pending[:0]

		for symbol, bars := range series {
			history[symbol] = bars[:i+1]
		}

		signals, err := gen.GenerateSignals(ctx, history, t)
		if err != nil {
			return nil, fmt.Errorf("strategy %s at %s: %w", gen.Name(), t.Format(time.RFC3339), err)
		}

		if err := checkConflicts(signals); err != nil {
			return nil, err
		}

		for _, sig := range signals {
			if sig.Timestamp.After(t) {
				// A signal dated past the cursor was computed from data
				// that does not exist yet. Reject it rather than fill it.
				e.log.Warn("signal rejected",
					"strategy", gen.Name(), "symbol", sig.Symbol,
					"signal_time", sig.Timestamp, "cursor", t,
					"error", domain.ErrCausalityViolation)
				continue
			}
			if sig.Kind == domain.SignalHold {
				continue
			}
			if _, ok := series[sig.Symbol]; !ok {
				e.log.Warn("signal for unknown symbol",
					"strategy", gen.Name(), "symbol", sig.Symbol)
				continue
			}

			if e.cfg.FillRule == FillSameClose {
				f, err := e.execute(ledger, sig, series[sig.Symbol][i].Close, t)
				if err != nil {
					e.log.Warn("fill rejected",
						"strategy", gen.Name(), "symbol", sig.Symbol, "error", err)
					continue
				}
				if f != nil {
					fills = append(fills, *f)
				}
				continue
			}

			if i == len(grid)-1 {
				// No next bar to fill against; the signal expires.
				e.log.Debug("signal expired at end of series",
					"strategy", gen.Name(), "symbol", sig.Symbol)
				continue
			}
			pending = append(pending, sig)
		}

		closes := make(map[string]float64, len(series))
		for symbol, bars := range series {
			closes[symbol] = bars[i].Close
		}
		ledger.MarkToMarket(t, closes)
	}

	return newResult(gen.Name(), e.cfg, ledger, fills, grid), nil
}

// execute sizes and books a single signal at the given price. It returns a
// nil fill when the signal resolves to a zero quantity.
func (e *Engine) execute(l *Ledger, sig domain.Signal, price float64, ts time.Time) (*domain.Fill, error) {
	if price <= 0 {
		return nil, fmt.Errorf("non-positive fill price %v for %s", price, sig.Symbol)
	}

	current := l.Position(sig.Symbol).Quantity

	var delta float64
	if sig.TargetWeight != nil {
		target := math.Floor(*sig.TargetWeight * l.Equity() / price)
		delta = target - current
	} else {
		delta = sig.Quantity
		if sig.Kind == domain.SignalSell {
			delta = -delta
		}
	}

	// Default policy forbids short positions: clamp sells at flat.
	if !e.cfg.AllowShort && current+delta < 0 {
		delta = -current
	}
	if delta == 0 {
		return nil, nil
	}

	cost := math.Abs(delta)*price*e.cfg.CostRate + e.cfg.FixedFee

	// Net cash outflow of the fill. A sell whose cost exceeds its proceeds
	// drains cash too, so the no-margin check covers both directions.
	if outflow := delta*price + cost; !e.cfg.AllowMargin && outflow > l.Cash() {
		return nil, fmt.Errorf("%w: need %.2f, have %.2f",
			domain.ErrInsufficientFunds, outflow, l.Cash())
	}

	side := domain.SideBuy
	if delta < 0 {
		side = domain.SideSell
	}
	fill := domain.Fill{
		Timestamp: ts,
		Symbol:    sig.Symbol,
		Side:      side,
		Quantity:  math.Abs(delta),
		Price:     price,
		Cost:      cost,
	}
	l.ApplyFill(fill)
	return &fill, nil
}

// checkConflicts rejects contradictory buy and sell signals for one symbol
// at one timestamp; that is a strategy configuration error, not a market
// condition, so it aborts the run.
func checkConflicts(signals []domain.Signal) error {
	seen := make(map[string]domain.SignalKind, len(signals))
	for _, sig := range signals {
		if sig.Kind != domain.SignalBuy && sig.Kind != domain.SignalSell {
			continue
		}
		key := sig.Symbol + "@" + sig.Timestamp.Format(time.RFC3339Nano)
		if prev, ok := seen[key]; ok && prev != sig.Kind {
			return fmt.Errorf("%w: %s and %s for %s at %s",
				domain.ErrConflictingSignal, prev, sig.Kind, sig.Symbol, sig.Timestamp.Format(time.RFC3339))
		}
		seen[key] = sig.Kind
	}
	return nil
}

// timestampGrid validates the series and returns the shared timestamp grid.
// Every symbol must carry bars at exactly the same strictly-increasing
// timestamps; anything else is a setup defect that aborts the run.
func timestampGrid(series map[string][]domain.Bar) ([]time.Time, error) {
	if len(series) == 0 {
		return nil, domain.ErrEmptySeries
	}

	var grid []time.Time
	var reference string
	for symbol, bars := range series {
		if len(bars) == 0 {
			return nil, fmt.Errorf("%w: symbol %s has no bars", domain.ErrEmptySeries, symbol)
		}
		for i := 1; i < len(bars); i++ {
			if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
				return nil, fmt.Errorf("%w: %s timestamps not strictly increasing at %s",
					domain.ErrMisalignedSeries, symbol, bars[i].Timestamp.Format(time.RFC3339))
			}
		}
		if grid == nil {
			grid = make([]time.Time, len(bars))
			for i, b := range bars {
				grid[i] = b.Timestamp
			}
			reference = symbol
			continue
		}
		if len(bars) != len(grid) {
			return nil, fmt.Errorf("%w: %s has %d bars, %s has %d",
				domain.ErrMisalignedSeries, symbol, len(bars), reference, len(grid))
		}
		for i, b := range bars {
			if !b.Timestamp.Equal(grid[i]) {
				return nil, fmt.Errorf("%w: %s and %s diverge at index %d",
					domain.ErrMisalignedSeries, symbol, reference, i)
			}
		}
	}
	return grid, nil
}
