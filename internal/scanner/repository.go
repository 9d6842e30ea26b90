package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/phasescan/internal/contracts"
)

// ErrRunNotFound is returned by GetRun for an unknown run id
var ErrRunNotFound = errors.New("scan run not found")

// RunSummary is the stored header of a scan run
type RunSummary struct {
	RunID          string                  `json:"run_id"`
	AsOf           time.Time               `json:"as_of"`
	Benchmark      string                  `json:"benchmark"`
	BenchmarkPhase contracts.Phase         `json:"benchmark_phase"`
	BuysGated      bool                    `json:"buys_gated"`
	ProfileHash    string                  `json:"profile_hash,omitempty"`
	Total          int                     `json:"total"`
	Evaluated      int                     `json:"evaluated"`
	Failed         int                     `json:"failed"`
	Breadth        contracts.MarketBreadth `json:"breadth"`
	StartedAt      time.Time               `json:"started_at"`
	FinishedAt     time.Time               `json:"finished_at"`
}

// Repository implements contracts.SignalRepository on PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new signal repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores the run header, every classified phase and every scored
// signal in one transaction
func (r *Repository) SaveRun(ctx context.Context, result *contracts.ScanResult) error {
	runID, err := uuid.Parse(result.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", result.RunID, err)
	}

	breadth, err := json.Marshal(result.Breadth)
	if err != nil {
		return fmt.Errorf("marshal breadth: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO signals.scan_runs (
			run_id, as_of, benchmark, benchmark_phase, buys_gated, profile_hash,
			total_tickers, evaluated, failed, breadth, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		runID, result.AsOf, result.Benchmark, int(result.BenchmarkPhase.Phase), result.BuysGated, result.ProfileHash,
		result.Total, len(result.Evaluations), len(result.Failures), breadth, result.StartedAt, result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range result.Evaluations {
		info, err := json.Marshal(e.Phase)
		if err != nil {
			return fmt.Errorf("marshal phase for %s: %w", e.Ticker, err)
		}
		batch.Queue(`
			INSERT INTO signals.phases (run_id, ticker, as_of, phase, confidence, info)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, runID, e.Ticker, result.AsOf, int(e.Phase.Phase), e.Phase.Confidence, info)
	}
	for _, b := range result.Buys {
		payload, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal buy signal for %s: %w", b.Ticker, err)
		}
		batch.Queue(`
			INSERT INTO signals.buy_signals (run_id, ticker, as_of, score, is_buy, payload)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, runID, b.Ticker, result.AsOf, b.Score, b.IsBuy, payload)
	}
	for _, s := range result.Sells {
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal sell signal for %s: %w", s.Ticker, err)
		}
		batch.Queue(`
			INSERT INTO signals.sell_signals (run_id, ticker, as_of, score, is_sell, severity, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, runID, s.Ticker, result.AsOf, s.Score, s.IsSell, string(s.Severity), payload)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("failed to insert scan row %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LatestPhase returns the most recent phase stored strictly before the date
func (r *Repository) LatestPhase(ctx context.Context, ticker string, before time.Time) (contracts.Phase, error) {
	query := `
		SELECT phase
		FROM signals.phases
		WHERE ticker = $1 AND as_of < $2
		ORDER BY as_of DESC
		LIMIT 1
	`

	var p int
	err := r.pool.QueryRow(ctx, query, ticker, before).Scan(&p)
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.PhaseUnknown, nil
	}
	if err != nil {
		return contracts.PhaseUnknown, fmt.Errorf("failed to get latest phase: %w", err)
	}
	return contracts.Phase(p), nil
}

const latestRunForDate = `
	SELECT run_id FROM signals.scan_runs
	WHERE as_of = $1
	ORDER BY finished_at DESC
	LIMIT 1
`

// ListBuys returns the actionable buys of the latest run on the date, best first
func (r *Repository) ListBuys(ctx context.Context, asOf time.Time) ([]contracts.BuySignal, error) {
	query := `
		SELECT payload FROM signals.buy_signals
		WHERE run_id = (` + latestRunForDate + `) AND is_buy
		ORDER BY score DESC, ticker
	`

	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query buy signals: %w", err)
	}
	defer rows.Close()

	out := []contracts.BuySignal{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var b contracts.BuySignal
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, fmt.Errorf("decode buy signal: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListSells returns the actionable sells of the latest run on the date, most severe first
func (r *Repository) ListSells(ctx context.Context, asOf time.Time) ([]contracts.SellSignal, error) {
	query := `
		SELECT payload FROM signals.sell_signals
		WHERE run_id = (` + latestRunForDate + `) AND is_sell
		ORDER BY score DESC, ticker
	`

	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query sell signals: %w", err)
	}
	defer rows.Close()

	out := []contracts.SellSignal{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var s contracts.SellSignal
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode sell signal: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRun loads the header of a stored run
func (r *Repository) GetRun(ctx context.Context, id string) (*RunSummary, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrRunNotFound
	}

	query := `
		SELECT run_id, as_of, benchmark, benchmark_phase, buys_gated, profile_hash,
		       total_tickers, evaluated, failed, breadth, started_at, finished_at
		FROM signals.scan_runs
		WHERE run_id = $1
	`

	var (
		sum       RunSummary
		storedID  uuid.UUID
		benchmark int
		breadth   []byte
	)
	err = r.pool.QueryRow(ctx, query, runID).Scan(
		&storedID, &sum.AsOf, &sum.Benchmark, &benchmark, &sum.BuysGated, &sum.ProfileHash,
		&sum.Total, &sum.Evaluated, &sum.Failed, &breadth, &sum.StartedAt, &sum.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan run: %w", err)
	}

	if err := json.Unmarshal(breadth, &sum.Breadth); err != nil {
		return nil, fmt.Errorf("decode breadth: %w", err)
	}
	sum.RunID = storedID.String()
	sum.BenchmarkPhase = contracts.Phase(benchmark)
	return &sum, nil
}
