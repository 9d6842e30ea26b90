package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/phasescan/internal/collector"
	"github.com/wonny/phasescan/internal/external/fundamentals"
	"github.com/wonny/phasescan/internal/external/universe"
	"github.com/wonny/phasescan/internal/external/yahoo"
	"github.com/wonny/phasescan/internal/marketdata"
	"github.com/wonny/phasescan/internal/scanconfig"
	"github.com/wonny/phasescan/internal/scanner"
	"github.com/wonny/phasescan/internal/signals"
	"github.com/wonny/phasescan/pkg/config"
	"github.com/wonny/phasescan/pkg/database"
	"github.com/wonny/phasescan/pkg/httputil"
	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/metrics"
	"github.com/wonny/phasescan/pkg/redis"
)

const redisPrefix = "phasescan"

// app holds the shared dependencies every command is built from
type app struct {
	cfg *config.Config
	log *logger.Logger

	db      *database.DB
	redis   *redis.Client
	cache   *redis.Cache
	limiter *redis.RateLimiter

	gatherer prometheus.Gatherer
	metrics  *metrics.Recorder

	prices       *marketdata.PriceRepository
	series       *marketdata.CachedPriceSource
	fundamentals *marketdata.FundamentalsRepository
	universe     *marketdata.UniverseRepository
	signals      *scanner.Repository
	scanner      *scanner.Scanner

	profile     *scanconfig.Config
	profileHash string
}

// newApp loads configuration, connects to Postgres and Redis, applies the
// schema and builds the repositories and the scanner
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)

	profile, hash, err := loadProfile(cfg, log)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg, database.WithSlowQueryLog(log, database.SlowQueryThreshold))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	rc, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache and shared rate limits")
		rc = redis.Disabled()
	}

	a := &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		redis:       rc,
		cache:       redis.NewCache(rc, redisPrefix),
		limiter:     redis.NewRateLimiter(rc, redisPrefix),
		profile:     profile,
		profileHash: hash,
	}

	if cfg.MetricsEnabled {
		a.gatherer = prometheus.DefaultGatherer
		a.metrics = metrics.New(prometheus.DefaultRegisterer)
		if err := prometheus.DefaultRegisterer.Register(database.NewPoolCollector(db)); err != nil {
			log.WithError(err).Warn("Failed to register pool metrics")
		}
	}

	a.prices = marketdata.NewPriceRepository(db.Pool)
	a.series = marketdata.NewCachedPriceSource(a.prices, a.cache, log)
	a.fundamentals = marketdata.NewFundamentalsRepository(db.Pool)
	a.universe = marketdata.NewUniverseRepository(db.Pool)
	a.signals = scanner.NewRepository(db.Pool)
	a.scanner = scanner.NewScanner(a.series, a.fundamentals, a.signals, signals.NewEngine(log), a.metrics, log)

	log.WithFields(map[string]interface{}{
		"env":     cfg.Env,
		"profile": profile.Meta.ProfileID,
		"redis":   rc.Enabled(),
	}).Debug("Application initialized")

	return a, nil
}

// Close releases the database and Redis connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}

// collector builds the Yahoo bar collector
func (a *app) collector() *collector.Collector {
	provider := yahoo.New(a.limiter, a.log)
	return collector.NewCollector(provider, a.series, a.metrics, a.log)
}

// fundamentalsCollector builds the quarterly statements collector. It shares
// the Yahoo rate limit with the bar collector.
func (a *app) fundamentalsCollector() *collector.FundamentalsCollector {
	client := httputil.New(a.log,
		httputil.WithTimeout(a.cfg.Yahoo.Timeout),
		httputil.WithRateLimit(a.limiter, redis.YahooRateLimit),
	)
	source := fundamentals.NewFetcher(client, fundamentals.DefaultBaseURL, a.log)
	return collector.NewFundamentalsCollector(source, a.fundamentals, a.metrics, a.log)
}

// universeFetcher builds the constituents page scraper
func (a *app) universeFetcher() *universe.Fetcher {
	client := httputil.New(a.log,
		httputil.WithTimeout(a.cfg.Yahoo.Timeout),
		httputil.WithRateLimit(a.limiter, redis.UniverseRateLimit),
	)
	return universe.NewFetcher(client, a.profile.Universe.SourceURL, a.log)
}

// loadProfile reads the scan profile file, or derives one from the
// environment when none is configured
func loadProfile(cfg *config.Config, log *logger.Logger) (*scanconfig.Config, string, error) {
	var profile *scanconfig.Config
	if cfg.Scanner.ProfilePath == "" {
		profile = scanconfig.FromEnv(cfg)
		if err := scanconfig.Validate(profile); err != nil {
			return nil, "", fmt.Errorf("environment scan settings: %w", err)
		}
	} else {
		p, _, err := scanconfig.Load(cfg.Scanner.ProfilePath)
		if err != nil {
			return nil, "", fmt.Errorf("load scan profile: %w", err)
		}
		profile = p
	}

	for _, w := range scanconfig.Warn(profile) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	hash, err := scanconfig.Hash(profile)
	if err != nil {
		return nil, "", fmt.Errorf("hash scan profile: %w", err)
	}
	return profile, hash, nil
}
