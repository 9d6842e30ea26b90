// Package jobs holds the scheduled jobs: universe sync, bar and
// fundamentals collection, and the daily scan.
package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/pkg/logger"
)

// TickerFetcher downloads the current ticker universe
type TickerFetcher interface {
	Fetch(ctx context.Context) ([]string, error)
}

// UniverseSyncJob refreshes the stored universe from the constituents page
type UniverseSyncJob struct {
	fetcher TickerFetcher
	repo    contracts.UniverseRepository
	logger  *logger.Logger
}

// NewUniverseSyncJob creates a new universe sync job
func NewUniverseSyncJob(fetcher TickerFetcher, repo contracts.UniverseRepository, log *logger.Logger) *UniverseSyncJob {
	return &UniverseSyncJob{
		fetcher: fetcher,
		repo:    repo,
		logger:  log,
	}
}

// Name returns the job name
func (j *UniverseSyncJob) Name() string {
	return "universe_sync"
}

// Schedule returns the cron schedule (Monday 06:00, before the trading week)
func (j *UniverseSyncJob) Schedule() string {
	return "0 6 * * 1"
}

// Run executes the universe sync
func (j *UniverseSyncJob) Run(ctx context.Context) error {
	tickers, err := j.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch universe: %w", err)
	}

	n, err := j.repo.Upsert(ctx, tickers)
	if err != nil {
		return fmt.Errorf("store universe: %w", err)
	}

	j.logger.WithField("tickers", n).Info("Universe synced")
	return nil
}

// resolveTickers returns the profile's tickers, or the stored active universe
// when the profile lists none
func resolveTickers(ctx context.Context, configured []string, repo contracts.UniverseRepository) ([]string, error) {
	if len(configured) > 0 {
		return configured, nil
	}
	if repo == nil {
		return nil, fmt.Errorf("no tickers configured and no universe store")
	}
	tickers, err := repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active universe: %w", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("active universe is empty, run universe sync first")
	}
	return tickers, nil
}
