package jobs

import (
	"context"
	"fmt"
	"slices"

	"github.com/wonny/phasescan/internal/collector"
	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/scanconfig"
	"github.com/wonny/phasescan/pkg/logger"
)

// FundamentalsCollector fetches and stores quarterly growth figures
type FundamentalsCollector interface {
	Collect(ctx context.Context, tickers []string, workers int) []collector.FundamentalsResult
}

// CollectFundamentalsJob refreshes the growth figures the buy scorer reads
type CollectFundamentalsJob struct {
	collector FundamentalsCollector
	universe  contracts.UniverseRepository
	profile   *scanconfig.Config
	logger    *logger.Logger
}

// NewCollectFundamentalsJob creates a new fundamentals job
func NewCollectFundamentalsJob(col FundamentalsCollector, universe contracts.UniverseRepository, profile *scanconfig.Config, log *logger.Logger) *CollectFundamentalsJob {
	return &CollectFundamentalsJob{
		collector: col,
		universe:  universe,
		profile:   profile,
		logger:    log,
	}
}

// Name returns the job name
func (j *CollectFundamentalsJob) Name() string {
	return "collect_fundamentals"
}

// Schedule returns the cron schedule (Saturday 07:00; statements change
// quarterly)
func (j *CollectFundamentalsJob) Schedule() string {
	return "0 7 * * 6"
}

// Run refreshes every universe ticker except the benchmark
func (j *CollectFundamentalsJob) Run(ctx context.Context) error {
	tickers, err := resolveTickers(ctx, j.profile.Universe.Tickers, j.universe)
	if err != nil {
		return err
	}
	tickers = slices.DeleteFunc(slices.Clone(tickers), func(t string) bool {
		return t == j.profile.Universe.Benchmark
	})
	if len(tickers) == 0 {
		return nil
	}

	results := j.collector.Collect(ctx, tickers, j.profile.Execution.Workers)

	failed := collector.FailedFundamentals(results)
	if len(failed) == len(results) {
		return fmt.Errorf("all %d tickers failed, first error: %w", len(failed), failed[0].Error)
	}
	if len(failed) > 0 {
		j.logger.WithFields(map[string]interface{}{
			"failed": len(failed),
			"total":  len(results),
		}).Warn("Some tickers failed to refresh fundamentals")
	}
	return nil
}
