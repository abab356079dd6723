package store

import (
	"fmt"
	"sort"
	"time"

	"quantpak/internal/domain"
)

// ValidateSeries checks that one symbol's bars carry strictly increasing
// timestamps.
func ValidateSeries(bars []domain.Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: %s timestamps not strictly increasing at %s",
				domain.ErrMisalignedSeries, bars[i].Symbol, bars[i].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Align restricts every symbol's series to the timestamps all symbols share,
// producing the common grid the execution simulator requires. Symbols
// frequently differ at the edges (listings, halts); Align keeps only the
// intersection. It fails when any series is unsorted or when no common
// timestamp exists.
func Align(series map[string][]domain.Bar) (map[string][]domain.Bar, error) {
	if len(series) == 0 {
		return nil, domain.ErrEmptySeries
	}

	for _, bars := range series {
		if err := ValidateSeries(bars); err != nil {
			return nil, err
		}
	}

	// Count how many symbols carry each timestamp.
	counts := make(map[int64]int)
	for _, bars := range series {
		for _, b := range bars {
			counts[b.Timestamp.UnixMilli()]++
		}
	}
	shared := make(map[int64]bool, len(counts))
	for ts, n := range counts {
		if n == len(series) {
			shared[ts] = true
		}
	}
	if len(shared) == 0 {
		return nil, fmt.Errorf("%w: no common timestamps across %d symbols",
			domain.ErrMisalignedSeries, len(series))
	}

	aligned := make(map[string][]domain.Bar, len(series))
	for symbol, bars := range series {
		kept := make([]domain.Bar, 0, len(shared))
		for _, b := range bars {
			if shared[b.Timestamp.UnixMilli()] {
				kept = append(kept, b)
			}
		}
		aligned[symbol] = kept
	}
	return aligned, nil
}

// Grid returns the sorted shared timestamps of an aligned series map.
func Grid(series map[string][]domain.Bar) []time.Time {
	for _, bars := range series {
		grid := make([]time.Time, len(bars))
		for i, b := range bars {
			grid[i] = b.Timestamp
		}
		sort.Slice(grid, func(i, j int) bool { return grid[i].Before(grid[j]) })
		return grid
	}
	return nil
}
