package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/internal/collector"
	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/scanconfig"
	"github.com/wonny/phasescan/internal/scanner"
	"github.com/wonny/phasescan/pkg/logger"
)

type fakeUniverse struct {
	active   []string
	upserted []string
	err      error
}

func (f *fakeUniverse) ListActive(ctx context.Context) ([]string, error) {
	return f.active, f.err
}

func (f *fakeUniverse) Upsert(ctx context.Context, tickers []string) (int, error) {
	f.upserted = tickers
	return len(tickers), f.err
}

type fakeFetcher struct {
	tickers []string
	err     error
}

func (f fakeFetcher) Fetch(ctx context.Context) ([]string, error) {
	return f.tickers, f.err
}

type fakeCollector struct {
	tickers  []string
	from, to time.Time
	cfg      collector.Config
	results  []collector.FetchResult
}

func (f *fakeCollector) CollectBars(ctx context.Context, tickers []string, from, to time.Time, cfg collector.Config) ([]collector.FetchResult, error) {
	f.tickers, f.from, f.to, f.cfg = tickers, from, to, cfg
	if f.results != nil {
		return f.results, nil
	}
	out := make([]collector.FetchResult, len(tickers))
	for i, t := range tickers {
		out[i] = collector.FetchResult{Ticker: t, BarCount: 1}
	}
	return out, nil
}

type fakeScanner struct {
	req scanner.Request
	err error
}

func (f *fakeScanner) Run(ctx context.Context, req scanner.Request) (*contracts.ScanResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &contracts.ScanResult{RunID: "run-1"}, nil
}

func profile(tickers ...string) *scanconfig.Config {
	return &scanconfig.Config{
		Meta:     scanconfig.Meta{ProfileID: "test", Timezone: "UTC"},
		Universe: scanconfig.Universe{Tickers: tickers, Benchmark: "SPY"},
		Filters:  scanconfig.Filters{MinPrice: 5, MinAvgVolume: 100000},
		Execution: scanconfig.Execution{
			Workers:           4,
			RequestsPerSecond: 2,
			HistoryDays:       400,
			CollectSchedule:   scanconfig.DefaultCollectSchedule,
			ScanSchedule:      scanconfig.DefaultScanSchedule,
		},
	}
}

var fixedNow = time.Date(2025, 6, 2, 22, 15, 0, 0, time.UTC)

func TestUniverseSyncJob(t *testing.T) {
	repo := &fakeUniverse{}
	job := NewUniverseSyncJob(fakeFetcher{tickers: []string{"AAPL", "MSFT"}}, repo, logger.NewNop())

	assert.Equal(t, "universe_sync", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"AAPL", "MSFT"}, repo.upserted)

	failing := NewUniverseSyncJob(fakeFetcher{err: errors.New("403")}, repo, logger.NewNop())
	assert.Error(t, failing.Run(context.Background()))
}

func TestCollectPricesJob(t *testing.T) {
	col := &fakeCollector{}
	job := NewCollectPricesJob(col, &fakeUniverse{active: []string{"AAPL", "NVDA"}}, profile(), logger.NewNop())
	job.now = func() time.Time { return fixedNow }

	assert.Equal(t, "collect_prices", job.Name())
	assert.Equal(t, scanconfig.DefaultCollectSchedule, job.Schedule())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"AAPL", "NVDA", "SPY"}, col.tickers)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), col.to)
	assert.Equal(t, col.to.AddDate(0, 0, -400), col.from)
	assert.True(t, col.cfg.Incremental)
	assert.Equal(t, 4, col.cfg.Workers)
	assert.Equal(t, 2.0, col.cfg.RPS)
}

func TestCollectPricesJob_ConfiguredTickersKeepBenchmark(t *testing.T) {
	col := &fakeCollector{}
	job := NewCollectPricesJob(col, nil, profile("SPY", "AAPL"), logger.NewNop())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"SPY", "AAPL"}, col.tickers)
}

func TestCollectPricesJob_AllFailed(t *testing.T) {
	col := &fakeCollector{results: []collector.FetchResult{
		{Ticker: "AAPL", Error: errors.New("timeout")},
		{Ticker: "SPY", Error: errors.New("timeout")},
	}}
	job := NewCollectPricesJob(col, nil, profile("AAPL"), logger.NewNop())
	assert.Error(t, job.Run(context.Background()))
}

func TestCollectPricesJob_EmptyUniverse(t *testing.T) {
	job := NewCollectPricesJob(&fakeCollector{}, &fakeUniverse{}, profile(), logger.NewNop())
	assert.Error(t, job.Run(context.Background()))
}

func TestDailyScanJob(t *testing.T) {
	sc := &fakeScanner{}
	job := NewDailyScanJob(sc, &fakeUniverse{active: []string{"AAPL"}}, profile(), "hash-1", logger.NewNop())
	job.now = func() time.Time { return fixedNow }

	assert.Equal(t, "daily_scan", job.Name())
	assert.Equal(t, scanconfig.DefaultScanSchedule, job.Schedule())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"AAPL"}, sc.req.Tickers)
	assert.Equal(t, "SPY", sc.req.Benchmark)
	assert.Equal(t, "hash-1", sc.req.ProfileHash)
	assert.Equal(t, fixedNow, sc.req.AsOf)

	failing := NewDailyScanJob(&fakeScanner{err: errors.New("benchmark missing")}, nil, profile("AAPL"), "", logger.NewNop())
	assert.Error(t, failing.Run(context.Background()))
}

type fakeFundamentals struct {
	tickers []string
	workers int
	fail    bool
}

func (f *fakeFundamentals) Collect(ctx context.Context, tickers []string, workers int) []collector.FundamentalsResult {
	f.tickers, f.workers = tickers, workers
	out := make([]collector.FundamentalsResult, len(tickers))
	for i, t := range tickers {
		out[i] = collector.FundamentalsResult{Ticker: t, AsOf: fixedNow}
		if f.fail {
			out[i] = collector.FundamentalsResult{Ticker: t, Error: errors.New("401")}
		}
	}
	return out
}

func TestCollectFundamentalsJob(t *testing.T) {
	col := &fakeFundamentals{}
	job := NewCollectFundamentalsJob(col, &fakeUniverse{active: []string{"AAPL", "SPY", "NVDA"}}, profile(), logger.NewNop())

	assert.Equal(t, "collect_fundamentals", job.Name())
	assert.Equal(t, "0 7 * * 6", job.Schedule())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"AAPL", "NVDA"}, col.tickers)
	assert.Equal(t, 4, col.workers)
}

func TestCollectFundamentalsJob_Failures(t *testing.T) {
	failing := NewCollectFundamentalsJob(&fakeFundamentals{fail: true}, nil, profile("AAPL"), logger.NewNop())
	assert.Error(t, failing.Run(context.Background()))

	benchOnly := &fakeFundamentals{}
	job := NewCollectFundamentalsJob(benchOnly, nil, profile("SPY"), logger.NewNop())
	require.NoError(t, job.Run(context.Background()))
	assert.Nil(t, benchOnly.tickers)

	empty := NewCollectFundamentalsJob(&fakeFundamentals{}, &fakeUniverse{}, profile(), logger.NewNop())
	assert.Error(t, empty.Run(context.Background()))
}
