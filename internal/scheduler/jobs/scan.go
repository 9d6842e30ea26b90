package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/scanconfig"
	"github.com/wonny/phasescan/internal/scanner"
	"github.com/wonny/phasescan/pkg/logger"
)

// ScanRunner runs a universe scan
type ScanRunner interface {
	Run(ctx context.Context, req scanner.Request) (*contracts.ScanResult, error)
}

// DailyScanJob scans the universe once the day's bars are stored
type DailyScanJob struct {
	scanner  ScanRunner
	universe contracts.UniverseRepository
	profile  *scanconfig.Config
	hash     string
	logger   *logger.Logger
	now      func() time.Time
}

// NewDailyScanJob creates a new scan job. hash identifies the profile on
// every stored run.
func NewDailyScanJob(s ScanRunner, universe contracts.UniverseRepository, profile *scanconfig.Config, hash string, log *logger.Logger) *DailyScanJob {
	return &DailyScanJob{
		scanner:  s,
		universe: universe,
		profile:  profile,
		hash:     hash,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *DailyScanJob) Name() string {
	return "daily_scan"
}

// Schedule returns the profile's scan schedule
func (j *DailyScanJob) Schedule() string {
	return j.profile.Execution.ScanSchedule
}

// Run executes the scan for the current date in the profile's timezone
func (j *DailyScanJob) Run(ctx context.Context) error {
	tickers, err := resolveTickers(ctx, j.profile.Universe.Tickers, j.universe)
	if err != nil {
		return err
	}

	asOf := j.now().In(j.profile.Location())
	result, err := j.scanner.Run(ctx, j.profile.Request(tickers, asOf, j.hash))
	if err != nil {
		return fmt.Errorf("daily scan: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":     result.RunID,
		"buys":       len(result.ActionableBuys()),
		"sells":      len(result.ActionableSells()),
		"buys_gated": result.BuysGated,
	}).Info("Daily scan finished")
	return nil
}
