package backtest

import (
	"context"
	"log/slog"
	"sync"

	"quantpak/internal/domain"
	"quantpak/internal/strategy"
)

// Job describes one independent backtest: a strategy and the price series it
// runs over. Jobs share nothing mutable, so a batch can run them in
// parallel; the series may be shared read-only across jobs.
type Job struct {
	Name     string
	Strategy strategy.SignalGenerator
	Series   map[string][]domain.Bar
}

// Outcome pairs a finished (or failed) job with its result. A failed job
// carries a nil Result and a non-nil Err; other jobs in the batch are
// unaffected.
type Outcome struct {
	Name   string
	Result *Result
	Err    error
}

// RunBatch executes jobs on a pool of workers, each run owning its own
// ledger and equity curve. Outcomes are returned in job order. Cancelling
// ctx stops unstarted jobs (marked with ctx.Err()) without corrupting runs
// that already completed. Failed runs are never retried: a backtest is
// deterministic, so a retry would only repeat the failure.
func RunBatch(ctx context.Context, cfg Config, jobs []Job, workers int, log *slog.Logger) []Outcome {
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	engine := New(cfg, log)
	outcomes := make([]Outcome, len(jobs))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				job := jobs[i]
				if err := ctx.Err(); err != nil {
					outcomes[i] = Outcome{Name: job.Name, Err: err}
					continue
				}
				res, err := engine.Run(ctx, job.Strategy, job.Series)
				if err != nil {
					log.Error("backtest failed", "job", job.Name, "error", err)
					outcomes[i] = Outcome{Name: job.Name, Err: err}
					continue
				}
				outcomes[i] = Outcome{Name: job.Name, Result: res}
			}
		}()
	}

	for i := range jobs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return outcomes
}
