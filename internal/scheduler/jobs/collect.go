package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/phasescan/internal/collector"
	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/scanconfig"
	"github.com/wonny/phasescan/pkg/logger"
)

// BarCollector fetches and stores daily bars
type BarCollector interface {
	CollectBars(ctx context.Context, tickers []string, from, to time.Time, cfg collector.Config) ([]collector.FetchResult, error)
}

// CollectPricesJob downloads the day's bars for the universe and benchmark
type CollectPricesJob struct {
	collector BarCollector
	universe  contracts.UniverseRepository
	profile   *scanconfig.Config
	logger    *logger.Logger
	now       func() time.Time
}

// NewCollectPricesJob creates a new collection job
func NewCollectPricesJob(col BarCollector, universe contracts.UniverseRepository, profile *scanconfig.Config, log *logger.Logger) *CollectPricesJob {
	return &CollectPricesJob{
		collector: col,
		universe:  universe,
		profile:   profile,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *CollectPricesJob) Name() string {
	return "collect_prices"
}

// Schedule returns the profile's collection schedule (weekdays after the close)
func (j *CollectPricesJob) Schedule() string {
	return j.profile.Execution.CollectSchedule
}

// Run collects incrementally: each ticker resumes after its latest stored
// bar, so a missed day is filled on the next run
func (j *CollectPricesJob) Run(ctx context.Context) error {
	tickers, err := resolveTickers(ctx, j.profile.Universe.Tickers, j.universe)
	if err != nil {
		return err
	}
	tickers = withBenchmark(tickers, j.profile.Universe.Benchmark)

	to := j.now().In(j.profile.Location())
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -j.profile.Execution.HistoryDays)

	results, err := j.collector.CollectBars(ctx, tickers, from, to, collector.Config{
		Workers:     j.profile.Execution.Workers,
		RPS:         j.profile.Execution.RequestsPerSecond,
		Incremental: true,
	})
	if err != nil {
		return fmt.Errorf("collect bars: %w", err)
	}

	failed := collector.Failed(results)
	if len(failed) == len(results) {
		return fmt.Errorf("all %d tickers failed, first error: %w", len(failed), failed[0].Error)
	}
	if len(failed) > 0 {
		j.logger.WithFields(map[string]interface{}{
			"failed": len(failed),
			"total":  len(results),
		}).Warn("Some tickers failed to collect")
	}
	return nil
}

func withBenchmark(tickers []string, benchmark string) []string {
	for _, t := range tickers {
		if t == benchmark {
			return tickers
		}
	}
	return append(append([]string(nil), tickers...), benchmark)
}
