package domain

import "errors"

// Error taxonomy for the backtesting engine. Data-integrity errors
// (ErrMisalignedSeries, ErrEmptySeries, ErrConflictingSignal) abort a run;
// per-fill rejections (ErrInsufficientFunds) and per-signal rejections
// (ErrCausalityViolation) are logged and skipped so a batch stays robust.
var (
	// ErrCausalityViolation reports a signal or fill that would require
	// price data from the future.
	ErrCausalityViolation = errors.New("causality violation")

	// ErrInsufficientFunds reports a buy whose notional plus cost exceeds
	// available cash under the current margin policy.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflictingSignal reports contradictory buy and sell signals for
	// the same symbol at the same timestamp.
	ErrConflictingSignal = errors.New("conflicting signal")

	// ErrUnknownParameter reports a strategy parameter lookup miss.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidConfidence reports a risk-metric confidence level outside
	// the open interval (0, 1).
	ErrInvalidConfidence = errors.New("invalid confidence level")

	// ErrDegenerateSeries reports a return series that cannot feed a ratio
	// metric (zero variance or too few observations).
	ErrDegenerateSeries = errors.New("degenerate return series")

	// ErrMisalignedSeries reports symbol series that do not share a common
	// timestamp grid, or bars out of order within one series.
	ErrMisalignedSeries = errors.New("misaligned price series")

	// ErrEmptySeries reports a backtest attempted over no price data.
	ErrEmptySeries = errors.New("empty price series")
)
