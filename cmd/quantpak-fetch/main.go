package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quantpak/internal/config"
	"quantpak/internal/provider"
	"quantpak/internal/store"
	"quantpak/internal/util"
)

func main() {
	var (
		cfgPath  = flag.String("config", "config/quantpak.yaml", "path to YAML config")
		symbols  = flag.String("symbols", "", "comma-separated symbols (required)")
		startStr = flag.String("start", "", "start date YYYY-MM-DD (required)")
		endStr   = flag.String("end", "", "end date YYYY-MM-DD (defaults to today)")
		backend  = flag.String("store", "parquet", "bar store backend: parquet or sqlite")
	)
	flag.Parse()

	if *symbols == "" || *startStr == "" {
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
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		end, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var barStore store.BarStore
	switch *backend {
	case "parquet":
		barStore = store.NewParquetStore(cfg.Storage.DataDir)
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening sqlite store: %v", err)
		}
		defer s.Close()
		barStore = s
	default:
		log.Fatalf("unknown store backend %q", *backend)
	}

	p := provider.NewAlpacaProvider(
		cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed, 0)

	var syms []string
	for _, s := range strings.Split(*symbols, ",") {
		syms = append(syms, strings.ToUpper(strings.TrimSpace(s)))
	}

	bars, err := p.FetchBars(ctx, syms, start, end)
	if err != nil {
		log.Fatalf("fetching bars: %v", err)
	}
	if err := barStore.WriteBars(ctx, bars); err != nil {
		log.Fatalf("writing bars: %v", err)
	}

	fmt.Printf("wrote %d bars for %d symbols\n", len(bars), len(syms))
}
