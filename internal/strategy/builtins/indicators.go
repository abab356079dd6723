package builtins

import (
	"math"
	"sort"
	"time"

	"quantpak/internal/domain"
)

// closesUpTo returns the close prices of bars with timestamps at or before
// cursor. Strategies call this rather than reading the raw slice so a bar
// accidentally delivered from the future can never influence a signal.
func closesUpTo(bars []domain.Bar, cursor time.Time) []float64 {
	closes := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp.After(cursor) {
			break
		}
		closes = append(closes, b.Close)
	}
	return closes
}

// sma returns the simple moving average of the last p values of x. x must
// hold at least p values.
func sma(x []float64, p int) float64 {
	var sum float64
	for _, v := range x[len(x)-p:] {
		sum += v
	}
	return sum / float64(p)
}

// meanStd returns the population mean and standard deviation of the last p
// values of x. x must hold at least p values.
func meanStd(x []float64, p int) (mean, std float64) {
	window := x[len(x)-p:]
	for _, v := range window {
		mean += v
	}
	mean /= float64(p)
	var varsum float64
	for _, v := range window {
		d := v - mean
		varsum += d * d
	}
	return mean, math.Sqrt(varsum / float64(p))
}

// sortedSymbols returns the map keys in sorted order so signal emission is
// deterministic across runs.
func sortedSymbols(history map[string][]domain.Bar) []string {
	symbols := make([]string, 0, len(history))
	for sym := range history {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
