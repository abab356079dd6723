// Package builtins provides built-in strategy implementations that ship with
// the quantpak platform.
package builtins

import (
	"context"
	"time"

	"quantpak/internal/domain"
	"quantpak/internal/strategy"
)

// Compile-time interface check.
var _ strategy.SignalGenerator = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It emits a
// buy signal targeting `weight` of equity when the short-period SMA crosses
// above the long-period SMA, and a sell signal targeting a flat position when
// it crosses below.
type SMACross struct {
	shortPeriod int
	longPeriod  int
	weight      float64
	params      strategy.Params
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods. weight is the fraction of portfolio equity to
// hold while the short average is above the long average.
func NewSMACross(short, long int, weight float64) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
		weight:      weight,
		params: strategy.NewParams(map[string]float64{
			"short_period": float64(short),
			"long_period":  float64(long),
			"weight":       weight,
		}),
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Params returns the strategy parameters.
func (s *SMACross) Params() strategy.Params {
	return s.params
}

// GenerateSignals detects a crossover completing at the cursor bar for each
// symbol and emits at most one signal per symbol.
func (s *SMACross) GenerateSignals(_ context.Context, history map[string][]domain.Bar, cursor time.Time) ([]domain.Signal, error) {
	var signals []domain.Signal
	for _, symbol := range sortedSymbols(history) {
		closes := closesUpTo(history[symbol], cursor)
		// A crossover needs the long SMA at the cursor bar and the bar before.
		if len(closes) < s.longPeriod+1 {
			continue
		}
		shortNow := sma(closes, s.shortPeriod)
		longNow := sma(closes, s.longPeriod)
		prev := closes[:len(closes)-1]
		shortPrev := sma(prev, s.shortPeriod)
		longPrev := sma(prev, s.longPeriod)

		switch {
		case shortPrev <= longPrev && shortNow > longNow:
			w := s.weight
			signals = append(signals, domain.Signal{
				Timestamp:    cursor,
				Symbol:       symbol,
				Kind:         domain.SignalBuy,
				TargetWeight: &w,
			})
		case shortPrev >= longPrev && shortNow < longNow:
			w := 0.0
			signals = append(signals, domain.Signal{
				Timestamp:    cursor,
				Symbol:       symbol,
				Kind:         domain.SignalSell,
				TargetWeight: &w,
			})
		}
	}
	return signals, nil
}
