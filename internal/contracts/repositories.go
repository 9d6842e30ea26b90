package contracts

import (
	"context"
	"time"
)

// PriceRepository stores daily bars
type PriceRepository interface {
	GetSeries(ctx context.Context, ticker string, from, to time.Time) (PriceSeries, error)
	SaveBars(ctx context.Context, ticker string, bars []Bar) (int, error)
	LatestDate(ctx context.Context, ticker string) (time.Time, error)
}

// FundamentalsRepository stores growth figures. GetLatest returns nil
// fundamentals and no error when nothing is stored.
type FundamentalsRepository interface {
	GetLatest(ctx context.Context, ticker string, asOf time.Time) (*Fundamentals, error)
	Save(ctx context.Context, ticker string, asOf time.Time, f Fundamentals) error
}

// UniverseRepository stores the tickers eligible for scanning
type UniverseRepository interface {
	ListActive(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, tickers []string) (int, error)
}

// SignalRepository stores scan runs and their signals
type SignalRepository interface {
	SaveRun(ctx context.Context, result *ScanResult) error
	// LatestPhase returns PhaseUnknown when the ticker was never classified before the date.
	LatestPhase(ctx context.Context, ticker string, before time.Time) (Phase, error)
	ListBuys(ctx context.Context, asOf time.Time) ([]BuySignal, error)
	ListSells(ctx context.Context, asOf time.Time) ([]SellSignal, error)
}

// BarProvider downloads daily bars from an external source
type BarProvider interface {
	Name() string
	FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error)
}
