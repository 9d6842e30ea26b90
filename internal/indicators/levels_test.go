package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/phasescan/internal/testutil"
)

func TestBaseAndPivotHigh(t *testing.T) {
	closes := testutil.Concat(testutil.Constant(40, 120), testutil.Linear(40, 80, 0.5))

	base, ok := BaseHigh(closes)
	assert.True(t, ok)
	assert.Equal(t, 120.0, base)

	pivot, ok := PivotHigh(closes)
	assert.True(t, ok)
	assert.InDelta(t, 99.5, pivot, 1e-9)

	_, ok = BaseHigh(closes[:59])
	assert.False(t, ok)
	_, ok = PivotHigh(closes[:19])
	assert.False(t, ok)
}

func TestTrailingExtremes(t *testing.T) {
	values := []float64{5, 1, 9, 3, 4}

	hi, ok := TrailingMax(values, 3)
	assert.True(t, ok)
	assert.Equal(t, 9.0, hi)

	lo, ok := TrailingMin(values, 2)
	assert.True(t, ok)
	assert.Equal(t, 3.0, lo)

	// lookback longer than the series uses everything
	lo, ok = TrailingMin(values, 30)
	assert.True(t, ok)
	assert.Equal(t, 1.0, lo)

	_, ok = TrailingMax(nil, 3)
	assert.False(t, ok)
}

func TestWeek52Range(t *testing.T) {
	closes := testutil.Linear(300, 1, 1) // 1..300

	high, low, ok := Week52Range(closes)
	assert.True(t, ok)
	assert.Equal(t, 300.0, high)
	assert.Equal(t, 49.0, low)
}

func TestVolumeRatio(t *testing.T) {
	tests := []struct {
		name    string
		volumes []float64
		period  int
		want    float64
	}{
		{"spike", append(testutil.Constant(20, 100), 300), 20, 3.0},
		{"quiet", append(testutil.Constant(25, 200), 100), 20, 0.5},
		{"too short", testutil.Constant(20, 100), 20, 1.0},
		{"zero average", append(testutil.Constant(20, 0), 500), 20, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, VolumeRatio(tt.volumes, tt.period), 1e-9)
		})
	}
}
