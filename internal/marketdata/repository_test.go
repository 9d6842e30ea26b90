package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/testutil"
)

func TestPriceRepository_RoundTrip(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewPriceRepository(db.Pool)
	ctx := context.Background()
	ticker := "ZZTEST"

	t.Cleanup(func() {
		_, _ = db.Pool.Exec(ctx, `DELETE FROM data.daily_bars WHERE ticker = $1`, ticker)
	})

	series := testutil.Series(ticker, testutil.Linear(5, 10, 1), 1_000)
	n, err := repo.SaveBars(ctx, ticker, series.Bars)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// saving again updates in place
	_, err = repo.SaveBars(ctx, ticker, series.Bars)
	require.NoError(t, err)

	got, err := repo.GetSeries(ctx, ticker, testutil.Start, testutil.Start.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Equal(t, 5, got.Len())
	assert.False(t, got.NoVolume)
	assert.Equal(t, []float64{10, 11, 12, 13, 14}, got.Closes())

	window, err := repo.GetSeries(ctx, ticker, testutil.Start, testutil.Start.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11, 12}, window.Closes())

	latest, err := repo.LatestDate(ctx, ticker)
	require.NoError(t, err)
	assert.True(t, latest.Equal(testutil.Start.AddDate(0, 0, 4)))

	none, err := repo.LatestDate(ctx, "ZZNONE")
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestFundamentalsRepository_RoundTrip(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewFundamentalsRepository(db.Pool)
	ctx := context.Background()
	ticker := "ZZTEST"

	t.Cleanup(func() {
		_, _ = db.Pool.Exec(ctx, `DELETE FROM data.fundamentals WHERE ticker = $1`, ticker)
	})

	asOf := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, ticker, asOf, contracts.Fundamentals{RevenueYoYChange: contracts.Float(12.5)}))

	got, err := repo.GetLatest(ctx, ticker, asOf.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.RevenueYoYChange)
	assert.Equal(t, 12.5, *got.RevenueYoYChange)
	assert.Nil(t, got.EPSYoYChange)

	before, err := repo.GetLatest(ctx, ticker, asOf.AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.Nil(t, before)
}

func TestUniverseRepository_Upsert(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewUniverseRepository(db.Pool)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, []string{"ZZA", "ZZB"})
	require.NoError(t, err)
	n, err := repo.Upsert(ctx, []string{"ZZB", "ZZC"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Contains(t, active, "ZZB")
	assert.Contains(t, active, "ZZC")
	assert.NotContains(t, active, "ZZA")

	_, err = repo.Upsert(ctx, nil)
	assert.Error(t, err)
}
