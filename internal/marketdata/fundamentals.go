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

// FundamentalsRepository implements contracts.FundamentalsRepository
type FundamentalsRepository struct {
	pool *pgxpool.Pool
}

// NewFundamentalsRepository creates a new fundamentals repository
func NewFundamentalsRepository(pool *pgxpool.Pool) *FundamentalsRepository {
	return &FundamentalsRepository{pool: pool}
}

// GetLatest returns the newest fundamentals reported on or before asOf.
// Missing columns stay nil; a ticker with no rows returns nil.
func (r *FundamentalsRepository) GetLatest(ctx context.Context, ticker string, asOf time.Time) (*contracts.Fundamentals, error) {
	query := `
		SELECT revenue_yoy_change, eps_yoy_change, inventory_qoq_change
		FROM data.fundamentals
		WHERE ticker = $1 AND as_of <= $2
		ORDER BY as_of DESC
		LIMIT 1
	`

	var f contracts.Fundamentals
	err := r.pool.QueryRow(ctx, query, ticker, asOf).Scan(
		&f.RevenueYoYChange, &f.EPSYoYChange, &f.InventoryQoQChange,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fundamentals for %s: %w", ticker, err)
	}
	return &f, nil
}

// Save upserts the fundamentals of a ticker for a reporting date
func (r *FundamentalsRepository) Save(ctx context.Context, ticker string, asOf time.Time, f contracts.Fundamentals) error {
	query := `
		INSERT INTO data.fundamentals (ticker, as_of, revenue_yoy_change, eps_yoy_change, inventory_qoq_change, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (ticker, as_of) DO UPDATE SET
			revenue_yoy_change = EXCLUDED.revenue_yoy_change,
			eps_yoy_change = EXCLUDED.eps_yoy_change,
			inventory_qoq_change = EXCLUDED.inventory_qoq_change,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, ticker, asOf, f.RevenueYoYChange, f.EPSYoYChange, f.InventoryQoQChange)
	if err != nil {
		return fmt.Errorf("save fundamentals for %s: %w", ticker, err)
	}
	return nil
}
