// Package scanner evaluates a ticker universe for one trading date, gates
// buys on the benchmark's phase and persists the run.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/phase"
	"github.com/wonny/phasescan/internal/signals"
	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/metrics"
)

const (
	DefaultBenchmark   = "SPY"
	DefaultWorkers     = 8
	DefaultHistoryDays = 450
	DefaultMinPrice    = 5.0
	DefaultMinAvgVol   = 100000
	liquidityWindow    = 20
)

// ErrEmptyUniverse is returned when a scan has no tickers
var ErrEmptyUniverse = errors.New("scan universe is empty")

// SeriesSource loads bar histories
type SeriesSource interface {
	GetSeries(ctx context.Context, ticker string, from, to time.Time) (contracts.PriceSeries, error)
}

// Publisher receives every finished scan
type Publisher interface {
	PublishScan(result *contracts.ScanResult)
}

// Request describes one scan. Zero values fall back to the package defaults,
// except the liquidity floors where a negative value disables the filter.
type Request struct {
	Tickers      []string
	AsOf         time.Time
	Benchmark    string
	MinPrice     float64
	MinAvgVolume float64
	Workers      int
	HistoryDays  int
	ProfileHash  string
}

func (r Request) withDefaults(now time.Time) Request {
	if r.AsOf.IsZero() {
		r.AsOf = now
	}
	y, m, d := r.AsOf.Date()
	r.AsOf = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	r.Benchmark = strings.ToUpper(strings.TrimSpace(r.Benchmark))
	if r.Benchmark == "" {
		r.Benchmark = DefaultBenchmark
	}
	if r.Workers <= 0 {
		r.Workers = DefaultWorkers
	}
	if r.HistoryDays <= 0 {
		r.HistoryDays = DefaultHistoryDays
	}
	if r.MinPrice == 0 {
		r.MinPrice = DefaultMinPrice
	}
	if r.MinAvgVolume == 0 {
		r.MinAvgVolume = DefaultMinAvgVol
	}
	return r
}

// Scanner runs universe scans
type Scanner struct {
	prices       SeriesSource
	fundamentals contracts.FundamentalsRepository
	store        contracts.SignalRepository
	engine       *signals.Engine
	metrics      *metrics.Recorder
	publisher    Publisher
	logger       *logger.Logger
	now          func() time.Time
}

// NewScanner creates a new scanner. fundamentals and store may be nil: the
// scan then runs without growth inputs, previous phases or persistence.
func NewScanner(
	prices SeriesSource,
	fundamentals contracts.FundamentalsRepository,
	store contracts.SignalRepository,
	engine *signals.Engine,
	rec *metrics.Recorder,
	log *logger.Logger,
) *Scanner {
	return &Scanner{
		prices:       prices,
		fundamentals: fundamentals,
		store:        store,
		engine:       engine,
		metrics:      rec,
		logger:       log.WithField("module", "scanner"),
		now:          time.Now,
	}
}

// WithPublisher sets the subscriber notified after each scan
func (s *Scanner) WithPublisher(p Publisher) *Scanner {
	s.publisher = p
	return s
}

type outcome struct {
	eval     *contracts.Evaluation
	filtered bool
	err      error
}

// Run scans the universe. Ticker failures are recorded in the result and never
// abort the scan; a benchmark load error or cancellation does. When the run
// cannot be persisted the result is still returned together with the error.
func (s *Scanner) Run(ctx context.Context, req Request) (*contracts.ScanResult, error) {
	if len(req.Tickers) == 0 {
		return nil, ErrEmptyUniverse
	}
	req = req.withDefaults(s.now())
	started := s.now()
	from := req.AsOf.AddDate(0, 0, -req.HistoryDays)
	runID := uuid.NewString()
	ctx = logger.ContextWithFields(ctx, map[string]interface{}{"run_id": runID})

	log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"as_of":     req.AsOf.Format("2006-01-02"),
		"benchmark": req.Benchmark,
		"tickers":   len(req.Tickers),
		"workers":   req.Workers,
	})
	log.Info("Starting scan")

	bench, err := s.prices.GetSeries(ctx, req.Benchmark, from, req.AsOf)
	if err != nil {
		s.metrics.RecordScan("failed", time.Since(started))
		return nil, fmt.Errorf("load benchmark %s: %w", req.Benchmark, err)
	}
	benchInfo := phase.Classify(bench, bench.LastClose())
	gated := GateBuys(benchInfo)
	if gated {
		log.WithField("benchmark_phase", int(benchInfo.Phase)).Warn("Benchmark in downtrend, buy signals withheld")
	}

	benchCloses := bench.CloseSeries()
	outcomes := make([]outcome, len(req.Tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.Workers)
	for i, ticker := range req.Tickers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.evaluate(gctx, ticker, req, from, benchCloses)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.RecordScan("cancelled", time.Since(started))
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	result := &contracts.ScanResult{
		RunID:          runID,
		AsOf:           req.AsOf,
		Benchmark:      req.Benchmark,
		BenchmarkPhase: benchInfo,
		BuysGated:      gated,
		ProfileHash:    req.ProfileHash,
		Total:          len(req.Tickers),
		Evaluations:    []contracts.Evaluation{},
		Buys:           []contracts.BuySignal{},
		Sells:          []contracts.SellSignal{},
		StartedAt:      started,
	}
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			result.Failures = append(result.Failures, contracts.TickerFailure{Ticker: req.Tickers[i], Error: o.err.Error()})
			s.metrics.RecordTicker("failed")
		case o.filtered:
			result.Filtered = append(result.Filtered, req.Tickers[i])
			s.metrics.RecordTicker("filtered")
		default:
			result.Evaluations = append(result.Evaluations, *o.eval)
			if o.eval.Buy != nil && !gated {
				result.Buys = append(result.Buys, *o.eval.Buy)
			}
			if o.eval.Sell != nil {
				result.Sells = append(result.Sells, *o.eval.Sell)
			}
			s.metrics.RecordTicker("evaluated")
		}
	}

	sort.SliceStable(result.Buys, func(i, j int) bool { return result.Buys[i].Score > result.Buys[j].Score })
	sort.SliceStable(result.Sells, func(i, j int) bool { return result.Sells[i].Score > result.Sells[j].Score })
	result.Breadth = Breadth(result.Evaluations)
	result.FinishedAt = s.now()

	buys, sells := len(result.ActionableBuys()), len(result.ActionableSells())
	s.metrics.RecordSignals(buys, sells)
	s.metrics.RecordPhases(phaseLabels(result.Breadth), int(benchInfo.Phase))

	log.WithFields(map[string]interface{}{
		"evaluated": len(result.Evaluations),
		"filtered":  len(result.Filtered),
		"failed":    len(result.Failures),
		"buys":      buys,
		"sells":     sells,
	}).Info("Scan completed")

	if s.store != nil {
		if err := s.store.SaveRun(ctx, result); err != nil {
			s.metrics.RecordScan("failed", time.Since(started))
			return result, fmt.Errorf("save scan run: %w", err)
		}
	}
	s.metrics.RecordScan("success", time.Since(started))

	if s.publisher != nil {
		s.publisher.PublishScan(result)
	}
	return result, nil
}

// ErrNoData is returned when a ticker has no bars up to the requested date
var ErrNoData = errors.New("no price data")

// Evaluate runs the engine for a single ticker on demand. Liquidity floors do
// not apply and nothing is persisted.
func (s *Scanner) Evaluate(ctx context.Context, ticker, benchmark string, asOf time.Time) (*contracts.Evaluation, error) {
	req := Request{
		Tickers:      []string{ticker},
		AsOf:         asOf,
		Benchmark:    benchmark,
		MinPrice:     -1,
		MinAvgVolume: -1,
	}.withDefaults(s.now())
	from := req.AsOf.AddDate(0, 0, -req.HistoryDays)

	bench, err := s.prices.GetSeries(ctx, req.Benchmark, from, req.AsOf)
	if err != nil {
		return nil, fmt.Errorf("load benchmark %s: %w", req.Benchmark, err)
	}

	o := s.evaluate(ctx, ticker, req, from, bench.CloseSeries())
	if o.err != nil {
		return nil, o.err
	}
	return o.eval, nil
}

func (s *Scanner) evaluate(ctx context.Context, ticker string, req Request, from time.Time, bench contracts.DatedSeries) outcome {
	log := s.logger.WithField("ticker", ticker)

	series, err := s.prices.GetSeries(ctx, ticker, from, req.AsOf)
	if err != nil {
		log.WithError(err).Warn("Failed to load price series")
		return outcome{err: fmt.Errorf("load series: %w", err)}
	}
	if series.Len() == 0 {
		return outcome{err: fmt.Errorf("%w up to %s", ErrNoData, req.AsOf.Format("2006-01-02"))}
	}
	if !Liquid(series, req.MinPrice, req.MinAvgVolume) {
		log.Debug("Filtered by liquidity")
		return outcome{filtered: true}
	}

	prev := contracts.PhaseUnknown
	if s.store != nil {
		if prev, err = s.store.LatestPhase(ctx, ticker, req.AsOf); err != nil {
			log.WithError(err).Warn("Previous phase unavailable")
			prev = contracts.PhaseUnknown
		}
	}

	var fundamentals *contracts.Fundamentals
	if s.fundamentals != nil {
		if fundamentals, err = s.fundamentals.GetLatest(ctx, ticker, req.AsOf); err != nil {
			log.WithError(err).Warn("Fundamentals unavailable")
			fundamentals = nil
		}
	}

	eval := s.engine.Evaluate(ctx, signals.Input{
		Series:        series,
		Benchmark:     bench,
		Fundamentals:  fundamentals,
		PreviousPhase: prev,
	})
	return outcome{eval: &eval}
}

// Liquid applies the price and average volume floors. A negative floor
// disables its check; a series without volume skips the volume floor.
func Liquid(series contracts.PriceSeries, minPrice, minAvgVolume float64) bool {
	if minPrice > 0 && series.LastClose() < minPrice {
		return false
	}
	if minAvgVolume <= 0 || !series.HasVolume() || series.Len() < liquidityWindow {
		return true
	}
	sum := 0.0
	for _, b := range series.Bars[series.Len()-liquidityWindow:] {
		sum += b.Volume
	}
	return sum/liquidityWindow >= minAvgVolume
}

func phaseLabels(b contracts.MarketBreadth) map[string]int {
	out := make(map[string]int, len(b.PhaseCounts))
	for _, p := range []contracts.Phase{
		contracts.PhaseInsufficientData,
		contracts.PhaseBaseBuilding,
		contracts.PhaseUptrend,
		contracts.PhaseDistribution,
		contracts.PhaseDowntrend,
	} {
		out[fmt.Sprint(int(p))] = b.PhaseCounts[p]
	}
	return out
}
