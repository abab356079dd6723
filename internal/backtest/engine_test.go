package backtest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"quantpak/internal/domain"
	"quantpak/internal/strategy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(n int) time.Time {
	return time.Date(2024, 6, n, 0, 0, 0, 0, time.UTC)
}

// makeBars builds a daily series for symbol; opens and closes must have the
// same length.
func makeBars(symbol string, opens, closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(opens))
	for i := range opens {
		bars[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: day(i + 1),
			Open:      opens[i],
			High:      maxf(opens[i], closes[i]),
			Low:       minf(opens[i], closes[i]),
			Close:     closes[i],
			Volume:    1000,
		}
	}
	return bars
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func flatBars(symbol string, price float64, n int) []domain.Bar {
	opens := make([]float64, n)
	closes := make([]float64, n)
	for i := range opens {
		opens[i] = price
		closes[i] = price
	}
	return makeBars(symbol, opens, closes)
}

// scriptStrategy replays a fixed set of signals keyed by cursor time. It lets
// engine tests pin exact signal timings without real indicator logic.
type scriptStrategy struct {
	name   string
	script map[time.Time][]domain.Signal
}

func (s *scriptStrategy) Name() string            { return s.name }
func (s *scriptStrategy) Params() strategy.Params { return strategy.NewParams(nil) }
func (s *scriptStrategy) GenerateSignals(_ context.Context, _ map[string][]domain.Bar, cursor time.Time) ([]domain.Signal, error) {
	return s.script[cursor], nil
}

func TestEngineNextOpenFill(t *testing.T) {
	// Two symbols over five days. A buy signal on day 4 must fill at day 5's
	// open, never at day 4's close.
	series := map[string][]domain.Bar{
		"AAA": makeBars("AAA", []float64{10, 10, 10, 10, 50}, []float64{10, 10, 10, 12, 52}),
		"BBB": flatBars("BBB", 20, 5),
	}
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			day(4): {{Timestamp: day(4), Symbol: "AAA", Kind: domain.SignalBuy, Quantity: 10}},
		},
	}

	eng := New(Config{InitialCapital: 10000, CostRate: 0.001}, testLogger())
	res, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(res.Trades))
	}
	fill := res.Trades[0]
	if !fill.Timestamp.Equal(day(5)) {
		t.Errorf("fill timestamp = %v, want %v", fill.Timestamp, day(5))
	}
	if fill.Side != domain.SideBuy || fill.Quantity != 10 {
		t.Errorf("fill = %+v, want buy of 10", fill)
	}
	if fill.Price != 50 {
		t.Errorf("fill price = %v, want day-5 open 50", fill.Price)
	}
	if !approx(fill.Cost, 0.5) {
		t.Errorf("fill cost = %v, want 0.5", fill.Cost)
	}

	// Cash after the fill: 10000 - 10*50 - 0.5.
	if !approx(res.FinalCash, 9499.5) {
		t.Errorf("FinalCash = %v, want 9499.5", res.FinalCash)
	}
	// Day-5 equity: cash + 10 shares at the day-5 close.
	if !approx(res.FinalEquity, 9499.5+10*52) {
		t.Errorf("FinalEquity = %v, want %v", res.FinalEquity, 9499.5+10*52)
	}

	if len(res.EquityCurve) != 5 {
		t.Fatalf("equity curve has %d points, want 5", len(res.EquityCurve))
	}
	// Before the fill the portfolio is all cash.
	for i := 0; i < 4; i++ {
		if !approx(res.EquityCurve[i].Equity, 10000) {
			t.Errorf("EquityCurve[%d] = %v, want 10000", i, res.EquityCurve[i].Equity)
		}
	}
	if !approx(res.EquityCurve[4].Equity, res.FinalEquity) {
		t.Errorf("EquityCurve[4] = %v, want FinalEquity %v", res.EquityCurve[4].Equity, res.FinalEquity)
	}
}

func TestEngineSameCloseFill(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": makeBars("AAA", []float64{10, 11, 12}, []float64{10.5, 11.5, 12.5}),
	}
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			day(1): {{Timestamp: day(1), Symbol: "AAA", Kind: domain.SignalBuy, Quantity: 10}},
		},
	}

	eng := New(Config{InitialCapital: 10000, FillRule: FillSameClose}, testLogger())
	res, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(res.Trades))
	}
	if !res.Trades[0].Timestamp.Equal(day(1)) {
		t.Errorf("fill timestamp = %v, want %v", res.Trades[0].Timestamp, day(1))
	}
	if res.Trades[0].Price != 10.5 {
		t.Errorf("fill price = %v, want day-1 close 10.5", res.Trades[0].Price)
	}
}

func TestEngineTargetWeightSizing(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 50, 3),
	}
	w := 0.5
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			day(1): {{Timestamp: day(1), Symbol: "AAA", Kind: domain.SignalBuy, TargetWeight: &w}},
		},
	}

	eng := New(Config{InitialCapital: 10000}, testLogger())
	res, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(res.Trades))
	}
	// floor(0.5 * 10000 / 50) = 100 shares.
	if res.Trades[0].Quantity != 100 {
		t.Errorf("fill quantity = %v, want 100", res.Trades[0].Quantity)
	}
	if !approx(res.FinalCash, 5000) {
		t.Errorf("FinalCash = %v, want 5000", res.FinalCash)
	}
	if !approx(res.FinalEquity, 10000) {
		t.Errorf("FinalEquity = %v, want 10000", res.FinalEquity)
	}
}

func TestEngineConflictingSignalsAbort(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 10, 3),
	}
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			day(1): {
				{Timestamp: day(1), Symbol: "AAA", Kind: domain.SignalBuy, Quantity: 5},
				{Timestamp: day(1), Symbol: "AAA", Kind: domain.SignalSell, Quantity: 5},
			},
		},
	}

	eng := New(Config{InitialCapital: 10000}, testLogger())
	res, err := eng.Run(context.Background(), gen, series)
	if !errors.Is(err, domain.ErrConflictingSignal) {
		t.Errorf("Run error = %v, want ErrConflictingSignal", err)
	}
	if res != nil {
		t.Error("Run returned a result alongside a conflict error")
	}
}

func TestEngineRejectsFutureDatedSignal(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 10, 3),
	}
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			// Dated two days past the cursor: must be rejected, not filled.
			day(1): {{Timestamp: day(3), Symbol: "AAA", Kind: domain.SignalBuy, Quantity: 5}},
		},
	}

	eng := New(Config{InitialCapital: 10000}, testLogger())
	res, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("got %d trades from a future-dated signal, want 0", len(res.Trades))
	}
}

func TestEngineInsufficientFundsRejectsFill(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 50, 3),
	}
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			day(1): {{Timestamp: day(1), Symbol: "AAA", Kind: domain.SignalBuy, Quantity: 10}},
		},
	}

	// 100 of cash cannot cover a 500 notional; the fill is rejected and the
	// run continues.
	eng := New(Config{InitialCapital: 100}, testLogger())
	res, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("got %d trades, want 0", len(res.Trades))
	}
	if !approx(res.FinalCash, 100) {
		t.Errorf("FinalCash = %v, want 100", res.FinalCash)
	}
	if !approx(res.FinalEquity, 100) {
		t.Errorf("FinalEquity = %v, want 100", res.FinalEquity)
	}
}

func TestEngineSellFeeCannotOverdrawCash(t *testing.T) {
	// A sell can be a net cash outflow when its fee exceeds the proceeds.
	// Under the default no-margin policy that fill is rejected; cash never
	// goes negative.
	series := map[string][]domain.Bar{
		"AAA": makeBars("AAA", []float64{50, 50, 10, 5}, []float64{50, 50, 10, 5}),
	}
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			day(1): {{Timestamp: day(1), Symbol: "AAA", Kind: domain.SignalBuy, Quantity: 1}},
			day(3): {{Timestamp: day(3), Symbol: "AAA", Kind: domain.SignalSell, Quantity: 1}},
		},
	}

	// The buy fills at 50 plus the 10 fee, leaving exactly zero cash. The
	// later sell at 5 would net -5 after the fee.
	eng := New(Config{InitialCapital: 60, FixedFee: 10}, testLogger())
	res, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want only the buy", len(res.Trades))
	}
	if res.Trades[0].Side != domain.SideBuy {
		t.Errorf("trade side = %q, want buy", res.Trades[0].Side)
	}
	if res.FinalCash < 0 {
		t.Errorf("cash went negative without margin: %v", res.FinalCash)
	}
	if !approx(res.FinalCash, 0) {
		t.Errorf("FinalCash = %v, want 0", res.FinalCash)
	}
	// The rejected sell leaves the position open.
	if !approx(res.FinalEquity, 5) {
		t.Errorf("FinalEquity = %v, want 5 (one share at the day-4 close)", res.FinalEquity)
	}
}

func TestEngineShortClamp(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 10, 3),
	}
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			// Selling with no position: clamped to flat, so no fill at all.
			day(1): {{Timestamp: day(1), Symbol: "AAA", Kind: domain.SignalSell, Quantity: 10}},
		},
	}

	eng := New(Config{InitialCapital: 10000}, testLogger())
	res, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("got %d trades, want 0", len(res.Trades))
	}
}

func TestEngineLastBarSignalExpires(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 10, 3),
	}
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			day(3): {{Timestamp: day(3), Symbol: "AAA", Kind: domain.SignalBuy, Quantity: 10}},
		},
	}

	eng := New(Config{InitialCapital: 10000}, testLogger())
	res, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// No next bar exists to fill against.
	if len(res.Trades) != 0 {
		t.Errorf("got %d trades, want 0", len(res.Trades))
	}
}

func TestEngineMisalignedSeries(t *testing.T) {
	eng := New(Config{}, testLogger())
	gen := &scriptStrategy{name: "scripted"}

	// Different grid lengths.
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 10, 3),
		"BBB": flatBars("BBB", 20, 2),
	}
	_, err := eng.Run(context.Background(), gen, series)
	if !errors.Is(err, domain.ErrMisalignedSeries) {
		t.Errorf("Run error = %v, want ErrMisalignedSeries", err)
	}

	// Duplicate timestamps within one symbol.
	bars := flatBars("AAA", 10, 3)
	bars[2].Timestamp = bars[1].Timestamp
	_, err = eng.Run(context.Background(), gen, map[string][]domain.Bar{"AAA": bars})
	if !errors.Is(err, domain.ErrMisalignedSeries) {
		t.Errorf("Run error = %v, want ErrMisalignedSeries", err)
	}

	// No data at all.
	_, err = eng.Run(context.Background(), gen, nil)
	if !errors.Is(err, domain.ErrEmptySeries) {
		t.Errorf("Run error = %v, want ErrEmptySeries", err)
	}
}

func TestEngineDeterminism(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": makeBars("AAA", []float64{10, 11, 12, 13, 14}, []float64{10.5, 11.5, 12.5, 13.5, 14.5}),
	}
	gen := &scriptStrategy{
		name: "scripted",
		script: map[time.Time][]domain.Signal{
			day(2): {{Timestamp: day(2), Symbol: "AAA", Kind: domain.SignalBuy, Quantity: 100}},
			day(4): {{Timestamp: day(4), Symbol: "AAA", Kind: domain.SignalSell, Quantity: 100}},
		},
	}

	eng := New(Config{InitialCapital: 10000, CostRate: 0.0005}, testLogger())

	first, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := eng.Run(context.Background(), gen, series)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if first.FinalEquity != second.FinalEquity {
		t.Errorf("FinalEquity differs across identical runs: %v vs %v", first.FinalEquity, second.FinalEquity)
	}
	if first.FinalCash != second.FinalCash {
		t.Errorf("FinalCash differs across identical runs: %v vs %v", first.FinalCash, second.FinalCash)
	}
	if len(first.Trades) != len(second.Trades) {
		t.Fatalf("trade counts differ: %d vs %d", len(first.Trades), len(second.Trades))
	}
	for i := range first.EquityCurve {
		if first.EquityCurve[i].Equity != second.EquityCurve[i].Equity {
			t.Errorf("EquityCurve[%d] differs: %v vs %v", i, first.EquityCurve[i].Equity, second.EquityCurve[i].Equity)
		}
	}
}

func TestEngineCancellation(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 10, 3),
	}
	gen := &scriptStrategy{name: "scripted"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(Config{}, testLogger())
	_, err := eng.Run(ctx, gen, series)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.applyDefaults()

	if c.InitialCapital != 100000 {
		t.Errorf("InitialCapital = %v, want 100000", c.InitialCapital)
	}
	if c.FillRule != FillNextOpen {
		t.Errorf("FillRule = %q, want %q", c.FillRule, FillNextOpen)
	}
	if c.PeriodsPerYear != 252 {
		t.Errorf("PeriodsPerYear = %v, want 252", c.PeriodsPerYear)
	}
}

func TestRunBatch(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 10, 3),
	}
	jobs := []Job{
		{Name: "one", Strategy: &scriptStrategy{name: "one"}, Series: series},
		{Name: "two", Strategy: &scriptStrategy{name: "two"}, Series: series},
		{Name: "three", Strategy: &scriptStrategy{name: "three"}, Series: series},
	}

	outcomes := RunBatch(context.Background(), Config{InitialCapital: 1000}, jobs, 2, testLogger())
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	wantNames := []string{"one", "two", "three"}
	for i, o := range outcomes {
		if o.Name != wantNames[i] {
			t.Errorf("outcomes[%d].Name = %q, want %q", i, o.Name, wantNames[i])
		}
		if o.Err != nil {
			t.Errorf("outcomes[%d].Err = %v, want nil", i, o.Err)
		}
		if o.Result == nil {
			t.Errorf("outcomes[%d].Result is nil", i)
		}
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	good := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 10, 3),
	}
	jobs := []Job{
		{Name: "good", Strategy: &scriptStrategy{name: "good"}, Series: good},
		{Name: "bad", Strategy: &scriptStrategy{name: "bad"}, Series: nil},
		{Name: "also-good", Strategy: &scriptStrategy{name: "also-good"}, Series: good},
	}

	outcomes := RunBatch(context.Background(), Config{}, jobs, 2, testLogger())
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("healthy jobs failed: %v, %v", outcomes[0].Err, outcomes[2].Err)
	}
	if !errors.Is(outcomes[1].Err, domain.ErrEmptySeries) {
		t.Errorf("outcomes[1].Err = %v, want ErrEmptySeries", outcomes[1].Err)
	}
	if outcomes[1].Result != nil {
		t.Error("failed job carries a non-nil Result")
	}
}

func TestRunBatchCancelled(t *testing.T) {
	series := map[string][]domain.Bar{
		"AAA": flatBars("AAA", 10, 3),
	}
	jobs := []Job{
		{Name: "one", Strategy: &scriptStrategy{name: "one"}, Series: series},
		{Name: "two", Strategy: &scriptStrategy{name: "two"}, Series: series},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := RunBatch(ctx, Config{}, jobs, 2, testLogger())
	for i, o := range outcomes {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("outcomes[%d].Err = %v, want context.Canceled", i, o.Err)
		}
	}
}
