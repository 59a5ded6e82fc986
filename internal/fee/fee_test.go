package fee

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeZeroAmount(t *testing.T) {
	for _, minorUnits := range []bool{true, false} {
		got := Compute(0, minorUnits)
		require.Zero(t, got.BaseAmount)
		require.Zero(t, got.Fee)
		require.Zero(t, got.Total)
	}
}

func TestComputeMinorUnits(t *testing.T) {
	got := Compute(2500, true)
	require.InDelta(t, 2500, got.BaseAmount, 1e-9)
	require.InDelta(t, 67.5, got.Fee, 1e-9)
	require.InDelta(t, 2567.5, got.Total, 1e-9)
}

func TestComputeMajorUnits(t *testing.T) {
	got := Compute(2500, false)
	require.InDelta(t, 25, got.BaseAmount, 1e-9)
	require.InDelta(t, 0.675, got.Fee, 1e-9)
	require.InDelta(t, 25.675, got.Total, 1e-9)
}

func TestComputeDefersRounding(t *testing.T) {
	// 1234 minor units: 1.9% is 23.446, plus the 20 flat charge.
	got := Compute(1234, true)
	require.InDelta(t, 43.446, got.Fee, 1e-9)
	require.Equal(t, int64(1277), int64(math.Round(got.Total)))
}
