package builtins

import (
	"context"
	"sort"
	"time"

	"quantpak/internal/domain"
	"quantpak/internal/strategy"
)

// Compile-time interface check.
var _ strategy.SignalGenerator = (*Momentum)(nil)

// Momentum is a cross-sectional factor strategy: it ranks symbols by their
// trailing return over the lookback window, holds the top N equal-weighted,
// and exits everything else.
type Momentum struct {
	lookback int
	topN     int
	params   strategy.Params
}

// NewMomentum creates a Momentum strategy holding the topN symbols by
// lookback-period return.
func NewMomentum(lookback, topN int) *Momentum {
	return &Momentum{
		lookback: lookback,
		topN:     topN,
		params: strategy.NewParams(map[string]float64{
			"lookback": float64(lookback),
			"top_n":    float64(topN),
		}),
	}
}

// Name returns "momentum".
func (s *Momentum) Name() string {
	return "momentum"
}

// Params returns the strategy parameters.
func (s *Momentum) Params() strategy.Params {
	return s.params
}

// GenerateSignals ranks the universe at the cursor and emits target-weight
// signals: buys for the top N, exits for the rest.
func (s *Momentum) GenerateSignals(_ context.Context, history map[string][]domain.Bar, cursor time.Time) ([]domain.Signal, error) {
	type ranked struct {
		symbol string
		ret    float64
	}

	var universe []ranked
	for _, symbol := range sortedSymbols(history) {
		closes := closesUpTo(history[symbol], cursor)
		if len(closes) < s.lookback+1 {
			continue
		}
		past := closes[len(closes)-1-s.lookback]
		if past == 0 {
			continue
		}
		universe = append(universe, ranked{
			symbol: symbol,
			ret:    closes[len(closes)-1]/past - 1,
		})
	}
	if len(universe) == 0 {
		return nil, nil
	}

	// Stable sort keeps the alphabetical order as a tie-break.
	sort.SliceStable(universe, func(i, j int) bool {
		return universe[i].ret > universe[j].ret
	})

	n := s.topN
	if n > len(universe) {
		n = len(universe)
	}

	var signals []domain.Signal
	w := 1.0 / float64(n)
	for i, r := range universe {
		if i < n {
			weight := w
			signals = append(signals, domain.Signal{
				Timestamp:    cursor,
				Symbol:       r.symbol,
				Kind:         domain.SignalBuy,
				TargetWeight: &weight,
			})
		} else {
			weight := 0.0
			signals = append(signals, domain.Signal{
				Timestamp:    cursor,
				Symbol:       r.symbol,
				Kind:         domain.SignalSell,
				TargetWeight: &weight,
			})
		}
	}
	return signals, nil
}
