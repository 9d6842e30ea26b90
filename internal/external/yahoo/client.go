// Package yahoo downloads daily bars from Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/redis"
)

// ProviderName identifies this source in logs and metrics
const ProviderName = "yahoo"

// barIterator is the subset of chart.Iter the client reads
type barIterator interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

// Client implements contracts.BarProvider on top of the chart endpoint
type Client struct {
	limiter *redis.RateLimiter
	logger  *logger.Logger
	chart   func(*chart.Params) barIterator
}

// New creates a Yahoo client. Requests share the redis rate limit budget
// when the limiter is backed by an enabled client.
func New(limiter *redis.RateLimiter, log *logger.Logger) *Client {
	return &Client{
		limiter: limiter,
		logger:  log,
		chart: func(p *chart.Params) barIterator {
			return chart.Get(p)
		},
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return ProviderName
}

// FetchBars downloads daily bars between from and to, oldest first. Bars
// without a positive close are skipped.
func (c *Client) FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	symbol := NormalizeSymbol(ticker)
	if symbol == "" {
		return nil, fmt.Errorf("empty ticker")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, redis.YahooRateLimit); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	}

	iter := c.chart(params)

	var bars []contracts.Bar
	skipped := 0
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bar := iter.Bar()
		if bar == nil || !bar.Close.IsPositive() {
			skipped++
			continue
		}
		bars = append(bars, toBar(bar))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get chart for %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":  symbol,
		"bars":    len(bars),
		"skipped": skipped,
	}).Debug("Fetched Yahoo bars")

	return bars, nil
}

func toBar(b *finance.ChartBar) contracts.Bar {
	ts := time.Unix(int64(b.Timestamp), 0).UTC()
	return contracts.Bar{
		Date:   time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
		Open:   toFloat(b.Open),
		High:   toFloat(b.High),
		Low:    toFloat(b.Low),
		Close:  toFloat(b.Close),
		Volume: float64(b.Volume),
	}
}

func toFloat(d decimal.Decimal) float64 {
	return d.Round(4).InexactFloat64()
}

// NormalizeSymbol converts a listing symbol to Yahoo's form, e.g. BRK.B to BRK-B
func NormalizeSymbol(ticker string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(ticker)), ".", "-")
}
