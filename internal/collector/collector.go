package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/metrics"
)

// Collector downloads daily bars for a ticker list and stores them.
// It is the only writer of the bar table.
type Collector struct {
	provider contracts.BarProvider
	prices   contracts.PriceRepository
	metrics  *metrics.Recorder
	logger   *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers     int     // Number of concurrent workers
	RPS         float64 // Provider requests per second across all workers; 0 means unlimited
	Incremental bool    // Start each ticker the day after its latest stored bar
}

// FetchResult represents the result of one ticker's collection
type FetchResult struct {
	Ticker   string
	BarCount int
	Error    error
}

// NewCollector creates a new Collector instance
func NewCollector(
	provider contracts.BarProvider,
	prices contracts.PriceRepository,
	rec *metrics.Recorder,
	log *logger.Logger,
) *Collector {
	return &Collector{
		provider: provider,
		prices:   prices,
		metrics:  rec,
		logger:   log.WithField("module", "collector"),
	}
}

// CollectBars fetches bars for every ticker between from and to. A ticker
// failure is reported in its result and never stops the others.
func (c *Collector) CollectBars(ctx context.Context, tickers []string, from, to time.Time, cfg Config) ([]FetchResult, error) {
	if from.After(to) {
		return nil, fmt.Errorf("invalid range: from %s is after to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker_count": len(tickers),
		"from":         from.Format("2006-01-02"),
		"to":           to.Format("2006-01-02"),
		"workers":      workers,
		"provider":     c.provider.Name(),
	}).Info("Starting bar collection")

	start := time.Now()
	results := make([]FetchResult, 0, len(tickers))
	resultCh := make(chan FetchResult, len(tickers))
	tickerCh := make(chan string, len(tickers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, limiter, tickerCh, resultCh, from, to, cfg.Incremental)
		}(i)
	}

	for _, t := range tickers {
		tickerCh <- t
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	successCount := 0
	failCount := 0
	totalBars := 0
	for result := range resultCh {
		results = append(results, result)
		totalBars += result.BarCount
		if result.Error != nil {
			failCount++
		} else {
			successCount++
		}
	}

	c.metrics.RecordBars(c.provider.Name(), totalBars)
	c.metrics.RecordLatency("collect", time.Since(start))

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
		"bars":    totalBars,
		"total":   len(results),
	}).Info("Bar collection completed")

	return results, nil
}

func (c *Collector) worker(
	ctx context.Context,
	workerID int,
	limiter *rate.Limiter,
	tickerCh <-chan string,
	resultCh chan<- FetchResult,
	from, to time.Time,
	incremental bool,
) {
	for ticker := range tickerCh {
		if err := ctx.Err(); err != nil {
			resultCh <- FetchResult{Ticker: ticker, Error: err}
			continue
		}

		start := from
		if incremental {
			latest, err := c.prices.LatestDate(ctx, ticker)
			if err != nil {
				resultCh <- c.fail(workerID, ticker, fmt.Errorf("latest date: %w", err))
				continue
			}
			if !latest.IsZero() && !latest.Before(start) {
				start = latest.AddDate(0, 0, 1)
			}
			if start.After(to) {
				resultCh <- FetchResult{Ticker: ticker}
				continue
			}
		}

		if err := limiter.Wait(ctx); err != nil {
			resultCh <- FetchResult{Ticker: ticker, Error: err}
			continue
		}

		bars, err := c.provider.FetchBars(ctx, ticker, start, to)
		if err != nil {
			resultCh <- c.fail(workerID, ticker, fmt.Errorf("fetch bars: %w", err))
			continue
		}

		saved, err := c.prices.SaveBars(ctx, ticker, bars)
		if err != nil {
			resultCh <- c.fail(workerID, ticker, fmt.Errorf("save bars: %w", err))
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"ticker": ticker,
			"count":  saved,
		}).Debug("Collected bars")

		resultCh <- FetchResult{Ticker: ticker, BarCount: saved}
	}
}

// fail reports a ticker that stored nothing
func (c *Collector) fail(workerID int, ticker string, err error) FetchResult {
	c.logger.WithError(err).WithFields(map[string]interface{}{
		"worker": workerID,
		"ticker": ticker,
	}).Error("Failed to collect bars")
	return FetchResult{Ticker: ticker, Error: err}
}

// Failed returns the results that carry an error
func Failed(results []FetchResult) []FetchResult {
	var out []FetchResult
	for _, r := range results {
		if r.Error != nil {
			out = append(out, r)
		}
	}
	return out
}
