package phase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
	"github.com/wonny/phasescan/internal/testutil"
)

func TestTrendTemplate_StrongUptrend(t *testing.T) {
	series := testutil.Series("UP", testutil.Geometric(300, 50, 0.3), 1_000_000)
	info := Classify(series, series.LastClose())
	sma200 := indicators.SMA(series.Closes(), 200)

	result := TrendTemplate(info, sma200)

	assert.True(t, result.PassesTemplate)
	assert.Equal(t, 8, result.CriteriaPassed)
	assert.Equal(t, 100.0, result.TemplateScore)
	assert.True(t, result.CriteriaDetails.SMA200Rising)
	assert.True(t, result.CriteriaDetails.InUptrendPhase)
	assert.Greater(t, result.CriteriaDetails.PctAboveWeek52Low, 30.0)
	assert.Equal(t, 0.0, result.CriteriaDetails.PctFromWeek52High)
}

func TestTrendTemplate_Downtrend(t *testing.T) {
	series := testutil.Series("DOWN", testutil.Geometric(300, 200, -0.3), 1_000_000)
	info := Classify(series, series.LastClose())
	sma200 := indicators.SMA(series.Closes(), 200)

	result := TrendTemplate(info, sma200)

	assert.False(t, result.PassesTemplate)
	assert.Equal(t, 0, result.CriteriaPassed)
	assert.Equal(t, 0.0, result.TemplateScore)
	assert.Greater(t, result.CriteriaDetails.PctFromWeek52High, 25.0)
}

func TestTrendTemplate_SevenOfEight(t *testing.T) {
	info := contracts.PhaseInfo{
		Phase:        contracts.PhaseBaseBuilding, // fails only the phase criterion
		CurrentPrice: 120,
		SMA50:        115,
		SMA150:       110,
		SMA200:       100,
		Slope200:     0.02,
		Week52High:   125,
		Week52Low:    80,
	}

	result := TrendTemplate(info, nil)

	assert.Equal(t, 7, result.CriteriaPassed)
	assert.True(t, result.PassesTemplate)
	assert.Equal(t, 87.5, result.TemplateScore)
	// short SMA series falls back to the 200 slope
	assert.True(t, result.CriteriaDetails.SMA200Rising)
	assert.Equal(t, 50.0, result.CriteriaDetails.PctAboveWeek52Low)
	assert.Equal(t, 4.0, result.CriteriaDetails.PctFromWeek52High)
}

func risingWindowInfo(slope200 float64) contracts.PhaseInfo {
	return contracts.PhaseInfo{
		Phase:        contracts.PhaseUptrend,
		CurrentPrice: 120,
		SMA50:        115,
		SMA150:       110,
		SMA200:       100,
		Slope200:     slope200,
	}
}

func TestTrendTemplate_Sma200RisingWindow(t *testing.T) {
	falling := testutil.Linear(25, 100, -0.1)

	result := TrendTemplate(risingWindowInfo(1), falling)

	assert.False(t, result.CriteriaDetails.SMA200Rising)
}

func TestTrendTemplate_Sma200ComparesFullWindow(t *testing.T) {
	// 21 defined values: the one a full window back is above the last,
	// the one after it is below
	sma200 := []float64{math.NaN(), math.NaN(), math.NaN(), 110}
	sma200 = append(sma200, testutil.Constant(19, 95)...)
	sma200 = append(sma200, 100)

	tests := []struct {
		name   string
		values []float64
		slope  float64
		want   bool
	}{
		{name: "window start higher", values: sma200, slope: 1, want: false},
		{name: "exactly window length falls back to slope", values: sma200[len(sma200)-TemplateRisingBars:], slope: 1, want: true},
		{name: "short series falls back to negative slope", values: sma200[len(sma200)-TemplateRisingBars:], slope: -1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrendTemplate(risingWindowInfo(tt.slope), tt.values)
			assert.Equal(t, tt.want, result.CriteriaDetails.SMA200Rising)
		})
	}
}

func TestTrendTemplate_InsufficientHistory(t *testing.T) {
	series := testutil.Series("NEW", testutil.Geometric(120, 50, 0.3), 1_000_000)
	info := Classify(series, series.LastClose())
	sma200 := indicators.SMA(series.Closes(), 200)

	result := TrendTemplate(info, sma200)

	assert.Equal(t, contracts.PhaseInsufficientData, info.Phase)
	assert.False(t, result.PassesTemplate)
	assert.Equal(t, 0, result.CriteriaPassed)
	assert.Equal(t, 0.0, result.TemplateScore)
	assert.Equal(t, contracts.TrendTemplateCriteria{}, result.CriteriaDetails)
}

func TestTrendTemplate_UndefinedAverage(t *testing.T) {
	info := risingWindowInfo(1)
	info.SMA150 = 0

	result := TrendTemplate(info, nil)

	assert.Equal(t, 0, result.CriteriaPassed)
	assert.False(t, result.PassesTemplate)
}
