package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
	"github.com/wonny/phasescan/internal/phase"
	"github.com/wonny/phasescan/internal/testutil"
	"github.com/wonny/phasescan/pkg/logger"
)

var now = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := now.AddDate(0, 0, -n)
	return &t
}

func TestAnalyze_GainTiers(t *testing.T) {
	// too short for the 50 SMA, so every stop is profit based
	series := testutil.Series("T", testutil.Constant(60, 100), 1_000_000)
	advisor := NewAdvisor(logger.NewNop())

	tests := []struct {
		name    string
		current float64
		action  Action
		stop    float64
	}{
		{"small gain holds", 103, ActionHold, 0},
		{"breakeven", 107, ActionTrailToBreakeven, 99.5},
		{"lock in profit", 115, ActionTrailToProfit, 105},
		{"partial exit", 125, ActionTakePartialAndTrail, 110},
		{"major winner", 140, ActionTakePartialAndTrailTight, 115},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := advisor.Analyze(Position{Ticker: "T", EntryPrice: 100, CurrentPrice: tt.current, EntryDate: daysAgo(30)}, series, now)

			assert.Equal(t, tt.action, got.Action)
			assert.Equal(t, TaxShortTerm, got.TaxTreatment)
			assert.Equal(t, 30, got.DaysHeld)
			assert.Equal(t, 99.0, got.RecentLow)
			assert.Empty(t, got.Warnings)
			if tt.stop == 0 {
				assert.False(t, got.ShouldAdjustStop)
				assert.Nil(t, got.RecommendedStop)
				return
			}
			assert.True(t, got.ShouldAdjustStop)
			require.NotNil(t, got.RecommendedStop)
			assert.Equal(t, tt.stop, *got.RecommendedStop)
		})
	}
}

func TestAnalyze_LongTermHold(t *testing.T) {
	advisor := NewAdvisor(logger.NewNop())

	got := advisor.Analyze(Position{Ticker: "MSFT", EntryPrice: 380, CurrentPrice: 500, EntryDate: daysAgo(400)}, contracts.PriceSeries{}, now)

	assert.Equal(t, TaxLongTerm, got.TaxTreatment)
	assert.Equal(t, ActionHold, got.Action)
	assert.False(t, got.ShouldAdjustStop)
	assert.Equal(t, 31.58, got.GainPct)
	assert.Contains(t, got.Rationale, "LONG-TERM HOLD (400 days)")
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	advisor := NewAdvisor(logger.NewNop())
	series := testutil.Series("NEW", testutil.Constant(30, 10), 1_000)

	got := advisor.Analyze(Position{Ticker: "NEW", EntryPrice: 10, CurrentPrice: 12}, series, now)

	assert.Equal(t, TaxUnknown, got.TaxTreatment)
	assert.Equal(t, 20.0, got.GainPct)
	assert.Equal(t, []string{"Insufficient price data for analysis"}, got.Warnings)
	assert.False(t, got.ShouldAdjustStop)
}

func TestAnalyze_TrailsTo50SMA(t *testing.T) {
	advisor := NewAdvisor(logger.NewNop())
	series := testutil.Series("UP", testutil.Geometric(252, 50, 0.3), 1_000_000)
	price := series.LastClose()
	info := phase.Classify(series, price)
	entry := price / 1.25

	got := advisor.Analyze(Position{Ticker: "UP", EntryPrice: entry, CurrentPrice: price}, series, now)

	assert.Equal(t, contracts.PhaseUptrend, got.Phase)
	assert.Equal(t, ActionTakePartialAndTrail, got.Action)
	require.NotNil(t, got.RecommendedStop)
	assert.Greater(t, info.SMA50*0.99, entry*1.10)
	assert.Equal(t, indicators.Round(info.SMA50*0.99, 2), *got.RecommendedStop)
	assert.Empty(t, got.Warnings)
}

func TestAnalyze_DowntrendWarnings(t *testing.T) {
	advisor := NewAdvisor(logger.NewNop())
	series := testutil.Series("DOWN", testutil.Geometric(252, 200, -0.3), 1_000_000)
	price := series.LastClose()

	got := advisor.Analyze(Position{Ticker: "DOWN", EntryPrice: price / 1.06, CurrentPrice: price}, series, now)

	assert.Equal(t, contracts.PhaseDowntrend, got.Phase)
	assert.Equal(t, ActionTrailToBreakeven, got.Action)
	require.Len(t, got.Warnings, 2)
	assert.Contains(t, got.Warnings[0], "Stock in Phase 4")
	assert.Contains(t, got.Warnings[1], "Price broke below 50 SMA")
}

func TestAnalyze_InvalidEntry(t *testing.T) {
	advisor := NewAdvisor(logger.NewNop())

	got := advisor.Analyze(Position{Ticker: "T", CurrentPrice: 10}, contracts.PriceSeries{}, now)

	assert.Equal(t, ActionHold, got.Action)
	assert.NotEmpty(t, got.Warnings)
}
