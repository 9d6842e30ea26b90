// Package database owns the PostgreSQL pool, the embedded schema and the
// pool's health and metrics reporting.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/phasescan/pkg/config"
	"github.com/wonny/phasescan/pkg/logger"
)

// SlowQueryThreshold is the duration above which a statement is logged
const SlowQueryThreshold = 500 * time.Millisecond

// DB wraps the pgxpool.Pool. Repositories receive db.Pool; nothing else
// opens connections.
type DB struct {
	Pool *pgxpool.Pool
}

// Option configures the pool before it connects
type Option func(*pgxpool.Config)

// WithSlowQueryLog logs statements slower than threshold at warn level.
// Scan runs batch thousands of inserts, so a slow batch shows up here first.
func WithSlowQueryLog(log *logger.Logger, threshold time.Duration) Option {
	return func(c *pgxpool.Config) {
		c.ConnConfig.Tracer = &slowQueryTracer{logger: log, threshold: threshold}
	}
}

// New creates the connection pool and verifies it with a ping
func New(cfg *config.Config, opts ...Option) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	for _, opt := range opts {
		opt(poolConfig)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// HealthStatus is the database section of the /health response
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	ResponseTime time.Duration `json:"response_time_ns"`
	Error        string        `json:"error,omitempty"`
	TotalConns   int32         `json:"total_conns"`
	IdleConns    int32         `json:"idle_conns"`
	MaxConns     int32         `json:"max_conns"`
}

// HealthCheck pings the database and reports pool occupancy
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	err := db.Pool.Ping(ctx)

	stat := db.Pool.Stat()
	status := &HealthStatus{
		Healthy:      err == nil,
		ResponseTime: time.Since(start),
		TotalConns:   stat.TotalConns(),
		IdleConns:    stat.IdleConns(),
		MaxConns:     stat.MaxConns(),
	}
	if err != nil {
		status.Error = err.Error()
		return status, err
	}
	return status, nil
}

type queryStartKey struct{}

type queryStart struct {
	sql   string
	start time.Time
}

// slowQueryTracer implements pgx.QueryTracer
type slowQueryTracer struct {
	logger    *logger.Logger
	threshold time.Duration
}

func (t *slowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, start: time.Now()})
}

func (t *slowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(qs.start)
	if elapsed < t.threshold {
		return
	}

	log := t.logger.WithFields(map[string]interface{}{
		"duration": elapsed,
		"command":  data.CommandTag.String(),
		"sql":      compactSQL(qs.sql),
	})
	if data.Err != nil {
		log = log.WithError(data.Err)
	}
	log.Warn("Slow query")
}

// compactSQL collapses whitespace and truncates long statements
func compactSQL(sql string) string {
	out := strings.Join(strings.Fields(sql), " ")
	if len(out) > 200 {
		return out[:200] + "..."
	}
	return out
}
