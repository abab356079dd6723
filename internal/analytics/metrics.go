package analytics

import (
	"encoding/json"
	"math"
)

// Metric is a statistic that may be undefined for a degenerate input (for
// example a Sharpe ratio over a zero-variance return series). An undefined
// Metric carries NaN and serializes to JSON null.
type Metric struct {
	Value     float64
	Undefined bool
}

// Defined wraps a computed value.
func Defined(v float64) Metric {
	return Metric{Value: v}
}

// Undefined marks a metric that cannot be computed from the input.
func Undefined() Metric {
	return Metric{Value: math.NaN(), Undefined: true}
}

// MarshalJSON emits the value, or null when the metric is undefined.
func (m Metric) MarshalJSON() ([]byte, error) {
	if m.Undefined || math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON parses either null or a number.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined()
		return nil
	}
	m.Undefined = false
	return json.Unmarshal(data, &m.Value)
}

// TotalReturn is the overall fractional gain of the equity curve.
func TotalReturn(equity []float64) float64 {
	if len(equity) < 2 || equity[0] == 0 {
		return 0
	}
	return equity[len(equity)-1]/equity[0] - 1
}

// AnnualizedReturn compounds the curve's per-period growth to a yearly rate.
// periodsPerYear is the number of equity observations per year (252 for a
// daily grid).
func AnnualizedReturn(equity []float64, periodsPerYear float64) float64 {
	if len(equity) < 2 || equity[0] <= 0 || equity[len(equity)-1] <= 0 {
		return 0
	}
	periods := float64(len(equity) - 1)
	growth := equity[len(equity)-1] / equity[0]
	return math.Pow(growth, periodsPerYear/periods) - 1
}

// Volatility is the annualized sample standard deviation of the return
// series.
func Volatility(returns []float64, periodsPerYear float64) float64 {
	return stdev(returns) * math.Sqrt(periodsPerYear)
}

// SharpeRatio is mean excess return over its standard deviation, annualized.
// riskFreeRate is an annual rate and is deflated to per-period before
// differencing. Undefined when there are fewer than two returns or the
// excess-return series has zero variance.
func SharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) Metric {
	if len(returns) < 2 {
		return Undefined()
	}
	excess := make([]float64, len(returns))
	perPeriodRF := riskFreeRate / periodsPerYear
	for i, r := range returns {
		excess[i] = r - perPeriodRF
	}
	sd := stdev(excess)
	if sd == 0 {
		return Undefined()
	}
	return Defined(mean(excess) / sd * math.Sqrt(periodsPerYear))
}

// SortinoRatio is mean excess return over downside deviation, annualized.
// Undefined when no excess return is negative.
func SortinoRatio(returns []float64, riskFreeRate, periodsPerYear float64) Metric {
	if len(returns) < 2 {
		return Undefined()
	}
	perPeriodRF := riskFreeRate / periodsPerYear
	var exsum, downsum float64
	for _, r := range returns {
		e := r - perPeriodRF
		exsum += e
		if e < 0 {
			downsum += e * e
		}
	}
	downside := math.Sqrt(downsum / float64(len(returns)))
	if downside == 0 {
		return Undefined()
	}
	return Defined(exsum / float64(len(returns)) / downside * math.Sqrt(periodsPerYear))
}

// MaxDrawdown is the deepest decline from a running equity peak, as a
// fraction in [-1, 0]. A monotonically non-decreasing curve yields 0.
func MaxDrawdown(equity []float64) float64 {
	var maxDD float64
	peak := math.Inf(-1)
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := e/peak - 1
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	if maxDD < -1 {
		maxDD = -1
	}
	return maxDD
}

// CalmarRatio is annualized return over the magnitude of maximum drawdown.
// Undefined for a flat (zero-drawdown) curve.
func CalmarRatio(annualizedReturn, maxDrawdown float64) Metric {
	if maxDrawdown == 0 {
		return Undefined()
	}
	return Defined(annualizedReturn / math.Abs(maxDrawdown))
}

// Report bundles the derived metrics of a finished backtest. Ratio metrics
// carry explicit undefined markers so one degenerate run does not poison a
// batch.
type Report struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      Metric  `json:"sharpe_ratio"`
	SortinoRatio     Metric  `json:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	CalmarRatio      Metric  `json:"calmar_ratio"`
}

// NewReport derives the full metric set from an equity curve.
// periodsPerYear describes the curve's sampling grid; riskFreeRate is an
// annual rate.
func NewReport(equity []float64, riskFreeRate, periodsPerYear float64) Report {
	returns := SimpleReturns(equity)
	annualized := AnnualizedReturn(equity, periodsPerYear)
	maxDD := MaxDrawdown(equity)
	return Report{
		TotalReturn:      TotalReturn(equity),
		AnnualizedReturn: annualized,
		Volatility:       Volatility(returns, periodsPerYear),
		SharpeRatio:      SharpeRatio(returns, riskFreeRate, periodsPerYear),
		SortinoRatio:     SortinoRatio(returns, riskFreeRate, periodsPerYear),
		MaxDrawdown:      maxDD,
		CalmarRatio:      CalmarRatio(annualized, maxDD),
	}
}
