package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quantpak/internal/analytics"
	"quantpak/internal/backtest"
	"quantpak/internal/config"
	"quantpak/internal/domain"
	"quantpak/internal/store"
	"quantpak/internal/strategy"
	"quantpak/internal/strategy/builtins"
	"quantpak/internal/util"
)

func main() {
	var (
		cfgPath    = flag.String("config", "config/quantpak.yaml", "path to YAML config")
		strategies = flag.String("strategy", "sma-cross", "comma-separated strategy names to run")
		symbols    = flag.String("symbols", "", "comma-separated symbols (required)")
		startStr   = flag.String("start", "", "start date YYYY-MM-DD (required)")
		endStr     = flag.String("end", "", "end date YYYY-MM-DD (required)")
		backend    = flag.String("store", "parquet", "bar store backend: parquet or sqlite")
		asJSON     = flag.Bool("json", false, "print results as JSON")
	)
	flag.Parse()

	if *symbols == "" || *startStr == "" || *endStr == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endStr)
	if err != nil {
		log.Fatalf("invalid -end: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bars, err := loadSeries(ctx, cfg, *backend, strings.Split(*symbols, ","), start, end)
	if err != nil {
		log.Fatalf("loading price series: %v", err)
	}

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(10, 30, 1.0))
	registry.Register(builtins.NewMeanReversion(20, 1.5, 1.0))
	registry.Register(builtins.NewMomentum(60, 3))

	var jobs []backtest.Job
	for _, name := range strings.Split(*strategies, ",") {
		name = strings.TrimSpace(name)
		gen, ok := registry.Get(name)
		if !ok {
			log.Fatalf("unknown strategy %q (available: %s)", name, strings.Join(registry.List(), ", "))
		}
		jobs = append(jobs, backtest.Job{Name: name, Strategy: gen, Series: bars})
	}

	btCfg := backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		CostRate:       cfg.Backtest.CostRate,
		FixedFee:       cfg.Backtest.FixedFee,
		FillRule:       backtest.FillRule(cfg.Backtest.FillRule),
		AllowShort:     cfg.Backtest.AllowShort,
		AllowMargin:    cfg.Backtest.AllowMargin,
		RiskFreeRate:   cfg.Backtest.RiskFreeRate,
		PeriodsPerYear: cfg.Backtest.PeriodsPerYear,
	}

	outcomes := backtest.RunBatch(ctx, btCfg, jobs, cfg.Backtest.MaxWorkers, logger)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomesForJSON(outcomes)); err != nil {
			log.Fatalf("encoding results: %v", err)
		}
		return
	}

	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Printf("%-16s FAILED: %v\n", o.Name, o.Err)
			continue
		}
		r := o.Result
		m := r.Metrics
		fmt.Printf("%-16s %s → %s\n", r.Strategy,
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
		fmt.Printf("  equity        %12.2f → %12.2f  (%d trades)\n",
			r.InitialCapital, r.FinalEquity, len(r.Trades))
		fmt.Printf("  total return  %8.2f%%   annualized %8.2f%%   vol %8.2f%%\n",
			100*m.TotalReturn, 100*m.AnnualizedReturn, 100*m.Volatility)
		fmt.Printf("  sharpe %s   sortino %s   max dd %7.2f%%   calmar %s\n",
			fmtMetric(m.SharpeRatio), fmtMetric(m.SortinoRatio),
			100*m.MaxDrawdown, fmtMetric(m.CalmarRatio))
	}
}

// loadSeries reads bars for each symbol from the configured store and aligns
// them to a shared timestamp grid.
func loadSeries(ctx context.Context, cfg *config.Config, backend string, symbols []string, start, end time.Time) (map[string][]domain.Bar, error) {
	var barStore store.BarStore
	switch backend {
	case "parquet":
		barStore = store.NewParquetStore(cfg.Storage.DataDir)
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		barStore = s
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}

	series := make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		bars, err := barStore.ReadBars(ctx, sym, start, end)
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s: %w", sym, err)
		}
		series[sym] = bars
	}

	aligned, err := store.Align(series)
	if err != nil {
		return nil, err
	}
	grid := store.Grid(aligned)
	slog.Info("aligned price series",
		"symbols", len(aligned), "bars", len(grid),
		"start", grid[0].Format("2006-01-02"), "end", grid[len(grid)-1].Format("2006-01-02"))
	return aligned, nil
}

// fmtMetric renders a ratio metric, or "n/a" when it is undefined.
func fmtMetric(m analytics.Metric) string {
	if m.Undefined {
		return "   n/a"
	}
	return fmt.Sprintf("%6.2f", m.Value)
}

func outcomesForJSON(outcomes []backtest.Outcome) []map[string]any {
	out := make([]map[string]any, 0, len(outcomes))
	for _, o := range outcomes {
		entry := map[string]any{"name": o.Name}
		if o.Err != nil {
			entry["error"] = o.Err.Error()
		} else {
			entry["result"] = o.Result
		}
		out = append(out, entry)
	}
	return out
}
