// Package provider fetches historical price series from external market-data
// APIs and materializes them into a bar store before a backtest runs.
package provider

import (
	"context"
	"time"

	"quantpak/internal/domain"
)

// Provider is the interface for all price-series providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// FetchBars returns daily bars for the given symbols within
	// [start, end].
	FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error)
}
