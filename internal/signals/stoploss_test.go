package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/testutil"
)

func TestStopLoss(t *testing.T) {
	// lows sit at 99 for every bar
	series := testutil.Series("T", testutil.Constant(60, 100), 1_000)

	tests := []struct {
		name  string
		price float64
		info  contracts.PhaseInfo
		want  float64
	}{
		{
			name:  "uptrend uses the tighter 50 SMA stop",
			price: 110,
			info:  contracts.PhaseInfo{Phase: contracts.PhaseUptrend, SMA50: 105},
			want:  103.95,
		},
		{
			name:  "uptrend widens a stop under 3% risk",
			price: 100,
			info:  contracts.PhaseInfo{Phase: contracts.PhaseUptrend, SMA50: 100},
			want:  97,
		},
		{
			name:  "uptrend tightens a stop over 10% risk",
			price: 150,
			info:  contracts.PhaseInfo{Phase: contracts.PhaseUptrend, SMA50: 100},
			want:  135,
		},
		{
			name:  "uptrend without an SMA uses the swing low",
			price: 105,
			info:  contracts.PhaseInfo{Phase: contracts.PhaseUptrend},
			want:  98.505,
		},
		{
			name:  "base stop under the 30 bar low has no lower clamp",
			price: 100,
			info:  contracts.PhaseInfo{Phase: contracts.PhaseBaseBuilding, SMA50: 100},
			want:  98.01,
		},
		{
			name:  "base stop capped at 10% risk",
			price: 120,
			info:  contracts.PhaseInfo{Phase: contracts.PhaseBaseBuilding, SMA50: 100},
			want:  108,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, StopLoss(series, tt.price, tt.info), 1e-9)
		})
	}
}

func TestStopLoss_UsesRecentLows(t *testing.T) {
	series := testutil.Series("T", testutil.Constant(60, 100), 1_000)
	series = testutil.WithLows(series, 96, 99, 99, 99, 99, 99, 99, 99, 99, 99)

	stop := StopLoss(series, 104, contracts.PhaseInfo{Phase: contracts.PhaseUptrend, SMA50: 90})

	assert.InDelta(t, 96*0.995, stop, 1e-9)
}
