package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"quantpak/internal/domain"
	"quantpak/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider fetches daily OHLCV bars for US equities via the Alpaca
// market-data API.
type AlpacaProvider struct {
	client  *marketdata.Client
	feed    string
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider with the given credentials.
// feed selects the Alpaca data feed ("sip" or "iex"); rateLimitPerMin caps
// API calls per minute.
func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string, rateLimitPerMin int) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if feed == "" {
		feed = "iex"
	}
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 200
	}

	return &AlpacaProvider{
		client:  marketdata.NewClient(opts),
		feed:    feed,
		limiter: util.NewRateLimiter(rateLimitPerMin, 1),
		log:     slog.Default().With("provider", "alpaca"),
	}
}

// Name returns the provider identifier.
func (p *AlpacaProvider) Name() string { return "alpaca" }

// FetchBars fetches daily bars for the given symbols within [start, end].
// Requests are rate limited and retried with backoff on transient failures.
func (p *AlpacaProvider) FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var multiBars map[string][]marketdata.Bar
	err := util.Retry(ctx, 3, 2*time.Second, func() error {
		var err error
		multiBars, err = p.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
			Feed:      marketdata.Feed(p.feed),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:    strings.ToUpper(symbol),
				Timestamp: ab.Timestamp,
				Open:      ab.Open,
				High:      ab.High,
				Low:       ab.Low,
				Close:     ab.Close,
				Volume:    int64(ab.Volume),
			})
		}
	}

	p.log.Info("fetched daily bars",
		"symbols", len(symbols), "bars", len(bars),
		"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))
	return bars, nil
}
