// Package marketdata persists daily bars, fundamentals and the scan universe
// in PostgreSQL.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/phasescan/internal/contracts"
)

// PriceRepository implements contracts.PriceRepository
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// GetSeries loads the bars of a ticker between from and to, oldest first.
// A ticker whose stored volumes are all zero is marked as having no volume.
func (r *PriceRepository) GetSeries(ctx context.Context, ticker string, from, to time.Time) (contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM data.daily_bars
		WHERE ticker = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("query bars for %s: %w", ticker, err)
	}
	defer rows.Close()

	series := contracts.PriceSeries{Ticker: ticker}
	hasVolume := false
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return contracts.PriceSeries{}, fmt.Errorf("scan bar for %s: %w", ticker, err)
		}
		if b.Volume > 0 {
			hasVolume = true
		}
		series.Bars = append(series.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return contracts.PriceSeries{}, err
	}

	series.NoVolume = !hasVolume
	return series, nil
}

// SaveBars upserts bars on (ticker, trade_date) and returns how many were written
func (r *PriceRepository) SaveBars(ctx context.Context, ticker string, bars []contracts.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO data.daily_bars (ticker, trade_date, open_price, high_price, low_price, close_price, volume, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query, ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range bars {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("upsert bar %s %s: %w", ticker, bars[i].Date.Format("2006-01-02"), err)
		}
	}
	return len(bars), nil
}

// LatestDate returns the date of the newest stored bar, or the zero time
// when the ticker has none
func (r *PriceRepository) LatestDate(ctx context.Context, ticker string) (time.Time, error) {
	query := `SELECT MAX(trade_date) FROM data.daily_bars WHERE ticker = $1`

	var latest *time.Time
	if err := r.pool.QueryRow(ctx, query, ticker).Scan(&latest); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("latest date for %s: %w", ticker, err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}
