package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/external/fundamentals"
	"github.com/wonny/phasescan/pkg/logger"
)

var quarterEnd = time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

type fakeStatements struct {
	errs map[string]error
}

func (s fakeStatements) Fetch(ctx context.Context, ticker string) (fundamentals.Report, error) {
	if err := s.errs[ticker]; err != nil {
		return fundamentals.Report{}, err
	}
	return fundamentals.Report{
		Ticker: ticker,
		AsOf:   quarterEnd,
		Fundamentals: contracts.Fundamentals{
			RevenueYoYChange: contracts.Float(30),
			EPSYoYChange:     contracts.Float(45),
		},
	}, nil
}

type savedFundamentals struct {
	asOf time.Time
	f    contracts.Fundamentals
}

type fakeFundamentalsRepo struct {
	mu      sync.Mutex
	saved   map[string]savedFundamentals
	saveErr error
}

func (r *fakeFundamentalsRepo) GetLatest(ctx context.Context, ticker string, asOf time.Time) (*contracts.Fundamentals, error) {
	return nil, nil
}

func (r *fakeFundamentalsRepo) Save(ctx context.Context, ticker string, asOf time.Time, f contracts.Fundamentals) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved == nil {
		r.saved = make(map[string]savedFundamentals)
	}
	r.saved[ticker] = savedFundamentals{asOf: asOf, f: f}
	return nil
}

func TestFundamentalsCollector_Collect(t *testing.T) {
	source := fakeStatements{errs: map[string]error{
		"SPY": fmt.Errorf("parse: %w", fundamentals.ErrNoStatements),
		"BAD": errors.New("401"),
	}}
	repo := &fakeFundamentalsRepo{}
	c := NewFundamentalsCollector(source, repo, nil, logger.NewNop())

	results := c.Collect(context.Background(), []string{"AAPL", "SPY", "BAD", "NVDA"}, 2)
	require.Len(t, results, 4)

	assert.Equal(t, "AAPL", results[0].Ticker)
	assert.True(t, results[0].Stored())
	assert.Equal(t, quarterEnd, results[0].AsOf)

	assert.False(t, results[1].Stored())
	assert.NoError(t, results[1].Error)

	assert.ErrorContains(t, results[2].Error, "fetch statements")
	assert.True(t, results[3].Stored())

	failed := FailedFundamentals(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "BAD", failed[0].Ticker)

	require.Len(t, repo.saved, 2)
	saved := repo.saved["NVDA"]
	assert.Equal(t, quarterEnd, saved.asOf)
	require.NotNil(t, saved.f.EPSYoYChange)
	assert.Equal(t, 45.0, *saved.f.EPSYoYChange)
	assert.Nil(t, saved.f.InventoryQoQChange)
}

func TestFundamentalsCollector_SaveError(t *testing.T) {
	c := NewFundamentalsCollector(fakeStatements{}, &fakeFundamentalsRepo{saveErr: errors.New("db down")}, nil, logger.NewNop())

	results := c.Collect(context.Background(), []string{"AAPL"}, 0)
	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Error, "save fundamentals")
	assert.False(t, results[0].Stored())
	assert.True(t, results[0].AsOf.IsZero())
}

func TestFundamentalsCollector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &fakeFundamentalsRepo{}
	c := NewFundamentalsCollector(fakeStatements{}, repo, nil, logger.NewNop())

	results := c.Collect(ctx, []string{"A", "B"}, 2)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
	assert.Empty(t, repo.saved)
}
