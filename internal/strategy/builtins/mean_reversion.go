package builtins

import (
	"context"
	"time"

	"quantpak/internal/domain"
	"quantpak/internal/strategy"
)

// Compile-time interface check.
var _ strategy.SignalGenerator = (*MeanReversion)(nil)

// MeanReversion buys when the latest close sits more than entryZ standard
// deviations below its rolling mean and exits when it reverts above the mean.
type MeanReversion struct {
	lookback int
	entryZ   float64
	weight   float64
	params   strategy.Params
}

// NewMeanReversion creates a MeanReversion strategy. lookback is the rolling
// window length, entryZ the z-score entry threshold, and weight the fraction
// of equity to hold while in a position.
func NewMeanReversion(lookback int, entryZ, weight float64) *MeanReversion {
	return &MeanReversion{
		lookback: lookback,
		entryZ:   entryZ,
		weight:   weight,
		params: strategy.NewParams(map[string]float64{
			"lookback": float64(lookback),
			"entry_z":  entryZ,
			"weight":   weight,
		}),
	}
}

// Name returns "mean-reversion".
func (s *MeanReversion) Name() string {
	return "mean-reversion"
}

// Params returns the strategy parameters.
func (s *MeanReversion) Params() strategy.Params {
	return s.params
}

// GenerateSignals computes the z-score of the cursor close against the
// rolling window per symbol and emits entry/exit signals.
func (s *MeanReversion) GenerateSignals(_ context.Context, history map[string][]domain.Bar, cursor time.Time) ([]domain.Signal, error) {
	var signals []domain.Signal
	for _, symbol := range sortedSymbols(history) {
		closes := closesUpTo(history[symbol], cursor)
		if len(closes) < s.lookback {
			continue
		}
		mean, std := meanStd(closes, s.lookback)
		if std == 0 {
			continue
		}
		z := (closes[len(closes)-1] - mean) / std

		switch {
		case z < -s.entryZ:
			w := s.weight
			signals = append(signals, domain.Signal{
				Timestamp:    cursor,
				Symbol:       symbol,
				Kind:         domain.SignalBuy,
				TargetWeight: &w,
			})
		case z > 0:
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
