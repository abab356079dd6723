// Package analytics computes performance and risk statistics over equity
// curves and return series. All functions are pure: they never mutate their
// inputs and have no side effects.
package analytics

import "math"

// SimpleReturns converts consecutive equity values into arithmetic returns.
// The result has length len(equity)-1.
func SimpleReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			returns[i-1] = 0
			continue
		}
		returns[i-1] = equity[i]/equity[i-1] - 1
	}
	return returns
}

// LogReturns converts consecutive equity values into log returns. The result
// has length len(equity)-1.
func LogReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] <= 0 || equity[i] <= 0 {
			returns[i-1] = 0
			continue
		}
		returns[i-1] = math.Log(equity[i] / equity[i-1])
	}
	return returns
}

// mean returns the arithmetic mean of x, or 0 for an empty slice.
func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// stdev returns the sample standard deviation of x, or 0 when x has fewer
// than two observations.
func stdev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	m := mean(x)
	var varsum float64
	for _, v := range x {
		d := v - m
		varsum += d * d
	}
	return math.Sqrt(varsum / float64(len(x)-1))
}
