package marketdata

import (
	"context"
	"time"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/redis"
)

// CachedPriceSource serves series reads from redis before falling back to
// the wrapped repository. Writes go through and drop the ticker's cached
// windows.
type CachedPriceSource struct {
	contracts.PriceRepository
	cache  *redis.Cache
	logger *logger.Logger
}

// NewCachedPriceSource wraps repo with cache. A nil or disabled cache turns
// every read into a repository read.
func NewCachedPriceSource(repo contracts.PriceRepository, cache *redis.Cache, log *logger.Logger) *CachedPriceSource {
	return &CachedPriceSource{PriceRepository: repo, cache: cache, logger: log}
}

// GetSeries returns the cached series for the window when present
func (c *CachedPriceSource) GetSeries(ctx context.Context, ticker string, from, to time.Time) (contracts.PriceSeries, error) {
	key := redis.SeriesKey(ticker, to, int(to.Sub(from).Hours()/24))

	var cached contracts.PriceSeries
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("ticker", ticker).Warn("Series cache read failed")
	}
	if hit {
		return cached, nil
	}

	series, err := c.PriceRepository.GetSeries(ctx, ticker, from, to)
	if err != nil {
		return contracts.PriceSeries{}, err
	}

	if series.Len() > 0 {
		if err := c.cache.Set(ctx, key, series, redis.TTLDaily); err != nil {
			c.logger.WithError(err).WithField("ticker", ticker).Warn("Series cache write failed")
		}
	}
	return series, nil
}


// SaveBars stores bars and invalidates every cached window of the ticker
func (c *CachedPriceSource) SaveBars(ctx context.Context, ticker string, bars []contracts.Bar) (int, error) {
	n, err := c.PriceRepository.SaveBars(ctx, ticker, bars)
	if err != nil || n == 0 {
		return n, err
	}

	if _, err := c.cache.DeletePrefix(ctx, redis.SeriesPrefix(ticker)); err != nil {
		c.logger.WithError(err).WithField("ticker", ticker).Warn("Series cache invalidation failed")
	}
	return n, nil
}
