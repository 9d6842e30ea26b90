package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/external/fundamentals"
	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/metrics"
)

// StatementSource downloads a ticker's quarterly statements and derives
// its growth figures
type StatementSource interface {
	Fetch(ctx context.Context, ticker string) (fundamentals.Report, error)
}

// FundamentalsCollector refreshes the stored growth figures. It is the only
// writer of the fundamentals table.
type FundamentalsCollector struct {
	source  StatementSource
	repo    contracts.FundamentalsRepository
	metrics *metrics.Recorder
	logger  *logger.Logger
}

// FundamentalsResult is the outcome of one ticker's refresh. AsOf is zero
// when nothing was stored.
type FundamentalsResult struct {
	Ticker string
	AsOf   time.Time
	Error  error
}

// Stored reports whether a report was saved
func (r FundamentalsResult) Stored() bool {
	return r.Error == nil && !r.AsOf.IsZero()
}

// NewFundamentalsCollector creates a new FundamentalsCollector instance
func NewFundamentalsCollector(
	source StatementSource,
	repo contracts.FundamentalsRepository,
	rec *metrics.Recorder,
	log *logger.Logger,
) *FundamentalsCollector {
	return &FundamentalsCollector{
		source:  source,
		repo:    repo,
		metrics: rec,
		logger:  log.WithField("module", "fundamentals"),
	}
}

// Collect fetches and stores fundamentals for every ticker, keyed by the
// end date of the latest reported quarter. Tickers without statements,
// such as ETFs, are skipped without an error.
func (c *FundamentalsCollector) Collect(ctx context.Context, tickers []string, workers int) []FundamentalsResult {
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	results := make([]FundamentalsResult, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ticker := range tickers {
		g.Go(func() error {
			results[i] = c.collect(gctx, ticker)
			return nil
		})
	}
	_ = g.Wait()

	stored, skipped, failed := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
		case !r.Stored():
			skipped++
		default:
			stored++
		}
	}
	c.metrics.RecordLatency("collect_fundamentals", time.Since(start))

	c.logger.WithFields(map[string]interface{}{
		"stored":  stored,
		"skipped": skipped,
		"failed":  failed,
		"total":   len(results),
	}).Info("Fundamentals collection completed")
	return results
}

func (c *FundamentalsCollector) collect(ctx context.Context, ticker string) FundamentalsResult {
	if err := ctx.Err(); err != nil {
		return FundamentalsResult{Ticker: ticker, Error: err}
	}

	report, err := c.source.Fetch(ctx, ticker)
	if errors.Is(err, fundamentals.ErrNoStatements) {
		c.logger.WithField("ticker", ticker).Debug("No quarterly statements")
		return FundamentalsResult{Ticker: ticker}
	}
	if err != nil {
		return c.fail(ticker, fmt.Errorf("fetch statements: %w", err))
	}

	if err := c.repo.Save(ctx, ticker, report.AsOf, report.Fundamentals); err != nil {
		return c.fail(ticker, fmt.Errorf("save fundamentals: %w", err))
	}
	return FundamentalsResult{Ticker: ticker, AsOf: report.AsOf}
}

func (c *FundamentalsCollector) fail(ticker string, err error) FundamentalsResult {
	c.logger.WithError(err).WithField("ticker", ticker).Error("Failed to collect fundamentals")
	return FundamentalsResult{Ticker: ticker, Error: err}
}

// FailedFundamentals returns the results that carry an error
func FailedFundamentals(results []FundamentalsResult) []FundamentalsResult {
	var out []FundamentalsResult
	for _, r := range results {
		if r.Error != nil {
			out = append(out, r)
		}
	}
	return out
}
