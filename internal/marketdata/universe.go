package marketdata

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UniverseRepository implements contracts.UniverseRepository
type UniverseRepository struct {
	pool *pgxpool.Pool
}

// NewUniverseRepository creates a new universe repository
func NewUniverseRepository(pool *pgxpool.Pool) *UniverseRepository {
	return &UniverseRepository{pool: pool}
}

// ListActive returns the active tickers in alphabetical order
func (r *UniverseRepository) ListActive(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT ticker FROM data.universe WHERE is_active ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("list universe: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// Upsert replaces the active universe. Listed tickers are inserted or
// reactivated, every other ticker is deactivated. It returns the number of
// active tickers.
func (r *UniverseRepository) Upsert(ctx context.Context, tickers []string) (int, error) {
	if len(tickers) == 0 {
		return 0, fmt.Errorf("refusing to replace the universe with an empty list")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsert := `
		INSERT INTO data.universe (ticker, is_active, updated_at)
		VALUES ($1, TRUE, NOW())
		ON CONFLICT (ticker) DO UPDATE SET
			is_active = TRUE,
			updated_at = NOW()
	`
	for _, t := range tickers {
		if _, err := tx.Exec(ctx, upsert, t); err != nil {
			return 0, fmt.Errorf("upsert ticker %s: %w", t, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE data.universe SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND NOT (ticker = ANY($1))
	`, tickers); err != nil {
		return 0, fmt.Errorf("deactivate stale tickers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(tickers), nil
}
