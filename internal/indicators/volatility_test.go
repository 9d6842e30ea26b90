package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/internal/testutil"
)

func alternating(n int, center, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = center - amplitude
		} else {
			out[i] = center + amplitude
		}
	}
	return out
}

func TestRollingStdDev(t *testing.T) {
	out := RollingStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	require.Len(t, out, 8)
	assert.True(t, math.IsNaN(out[6]))
	// population deviation is 2, sample deviation is 2*sqrt(8/7)
	assert.InDelta(t, 2*math.Sqrt(8.0/7.0), out[7], 1e-9)

	assert.True(t, math.IsNaN(RollingStdDev([]float64{1, 2}, 5)[1]))
}

func TestDetectVolatilityContraction(t *testing.T) {
	closes := testutil.Concat(alternating(40, 100, 5), alternating(20, 100, 0.5))

	vc := DetectVolatilityContraction(closes, 20)

	assert.True(t, vc.IsContracting)
	assert.InDelta(t, 0.1, vc.ContractionRatio, 1e-9)
	assert.InDelta(t, 90.0, vc.ContractionQuality, 1e-9)
	assert.InDelta(t, 0.51, vc.CurrentVolatility, 1e-9)
}

func TestDetectVolatilityContraction_Expanding(t *testing.T) {
	closes := testutil.Concat(alternating(40, 100, 0.5), alternating(20, 100, 5))

	vc := DetectVolatilityContraction(closes, 20)

	assert.False(t, vc.IsContracting)
	assert.Equal(t, 0.0, vc.ContractionQuality)
	assert.Greater(t, vc.ContractionRatio, 1.0)
}

func TestDetectVolatilityContraction_Degraded(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
	}{
		{"fewer than two windows", alternating(39, 100, 5)},
		{"flat prices", testutil.Constant(60, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := DetectVolatilityContraction(tt.closes, 20)
			assert.False(t, vc.IsContracting)
			assert.Equal(t, 0.0, vc.ContractionQuality)
		})
	}
}
