// Package store persists and retrieves the price bars a backtest consumes,
// with Parquet and SQLite backends, and provides the grid-alignment helpers
// that prepare multi-symbol series for the execution simulator.
package store

import (
	"context"
	"time"

	"quantpak/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// ordered by timestamp.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in storage.
	ListSymbols(ctx context.Context) ([]string, error)
}

// SignalStore records the signals emitted during backtest runs for later
// inspection.
type SignalStore interface {
	// SaveSignal appends a signal produced by the named strategy.
	SaveSignal(ctx context.Context, strategyName string, sig domain.Signal) error

	// ListSignals returns the most recent signals for a strategy, up to
	// limit, newest first.
	ListSignals(ctx context.Context, strategyName string, limit int) ([]domain.Signal, error)
}
