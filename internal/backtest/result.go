package backtest

import (
	"time"

	"quantpak/internal/analytics"
	"quantpak/internal/domain"
)

// Result is the immutable outcome of one backtest run: the equity curve, the
// trade log, and the derived metrics. It is owned solely by the caller after
// construction.
type Result struct {
	Strategy       string               `json:"strategy"`
	Start          time.Time            `json:"start"`
	End            time.Time            `json:"end"`
	InitialCapital float64              `json:"initial_capital"`
	FinalEquity    float64              `json:"final_equity"`
	FinalCash      float64              `json:"final_cash"`
	RealizedPnL    float64              `json:"realized_pnl"`
	EquityCurve    []domain.EquityPoint `json:"equity_curve"`
	Trades         []domain.Fill        `json:"trade_log"`
	Metrics        analytics.Report     `json:"metrics"`
}

// newResult assembles a Result from a finished run's ledger and fills.
func newResult(name string, cfg Config, ledger *Ledger, fills []domain.Fill, grid []time.Time) *Result {
	curve := ledger.Curve()
	equity := make([]float64, len(curve))
	for i, p := range curve {
		equity[i] = p.Equity
	}
	return &Result{
		Strategy:       name,
		Start:          grid[0],
		End:            grid[len(grid)-1],
		InitialCapital: cfg.InitialCapital,
		FinalEquity:    ledger.Equity(),
		FinalCash:      ledger.Cash(),
		RealizedPnL:    ledger.RealizedPnL(),
		EquityCurve:    curve,
		Trades:         fills,
		Metrics:        analytics.NewReport(equity, cfg.RiskFreeRate, cfg.PeriodsPerYear),
	}
}
