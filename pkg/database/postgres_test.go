package database

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/pkg/config"
	"github.com/wonny/phasescan/pkg/logger"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := New(cfg, WithSlowQueryLog(logger.NewNop(), SlowQueryThreshold))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.MaxConns, int32(0))
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	// second run must be a no-op
	require.NoError(t, db.Migrate(ctx))
}

func TestPoolCollector(t *testing.T) {
	db := openTestDB(t)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewPoolCollector(db)))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             "invalid://url",
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestSlowQueryTracer(t *testing.T) {
	var buf strings.Builder
	tracer := &slowQueryTracer{logger: logger.NewWithWriter(&buf), threshold: 0}

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT\n   1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	assert.Contains(t, buf.String(), "Slow query")
	assert.Contains(t, buf.String(), `"sql":"SELECT 1"`)

	buf.Reset()
	tracer.threshold = time.Hour
	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})
	assert.Empty(t, buf.String())
}

func TestCompactSQL(t *testing.T) {
	assert.Equal(t, "SELECT a FROM t WHERE b = $1", compactSQL("\n\tSELECT a\n\tFROM t\n\tWHERE b = $1\n"))
	assert.Len(t, compactSQL(strings.Repeat("x", 500)), 203)
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schemaSQL, "data.daily_bars")
	assert.Contains(t, schemaSQL, "signals.scan_runs")
}
