package weights

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestOdds(t *testing.T) {
	focal := []bool{true, false, false}
	score := []float64{0.9, 0.5, 0.8}

	w, err := Odds(focal, score)
	require.NoError(t, err)
	require.Equal(t, 1.0, w[0])
	require.InDelta(t, 1.0, w[1], 1e-12) // 0.5/0.5
	require.InDelta(t, 4.0, w[2], 1e-12) // 0.8/0.2
}

func TestOdds_LengthMismatch(t *testing.T) {
	_, err := Odds([]bool{true}, []float64{0.5, 0.5})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestRescalePeers(t *testing.T) {
	focal := []bool{true, true, false, false, false}
	w := []float64{1, 1, 2, 4, 6}

	require.NoError(t, RescalePeers(w, focal))
	require.Equal(t, 1.0, w[0])
	require.Equal(t, 1.0, w[1])

	peerSum := w[2] + w[3] + w[4]
	require.InDelta(t, 2.0, peerSum, 1e-9)
	// Relative proportions are preserved.
	require.InDelta(t, w[3]/w[2], 2.0, 1e-9)
}

func TestRescalePeers_NoFocal(t *testing.T) {
	require.ErrorIs(t, RescalePeers([]float64{1, 2}, []bool{false, false}), ErrNoFocal)
}

func TestRescalePeers_NoPeerMass(t *testing.T) {
	require.ErrorIs(t, RescalePeers([]float64{1, 0}, []bool{true, false}), ErrNoPeerMass)
}

func TestTruncatePeers(t *testing.T) {
	focal := []bool{true, false, false, false, false}
	w := []float64{1, 1, 2, 3, 100}

	require.NoError(t, TruncatePeers(w, focal, 75))
	require.Equal(t, 1.0, w[0]) // focal untouched
	for _, v := range w[1:] {
		require.LessOrEqual(t, v, 3.0)
	}
}

func TestTruncatePeers_BadPercentile(t *testing.T) {
	w := []float64{1, 2}
	focal := []bool{true, false}
	require.ErrorIs(t, TruncatePeers(w, focal, 0), ErrBadPercentile)
	require.ErrorIs(t, TruncatePeers(w, focal, 101), ErrBadPercentile)
}

func TestCompute(t *testing.T) {
	focal := []bool{true, true, false, false, false, false}
	score := []float64{0.7, 0.6, 0.5, 0.4, 0.3, 0.2}

	w, err := Compute(focal, score, 0)
	require.NoError(t, err)
	require.Equal(t, 1.0, w[0])
	require.Equal(t, 1.0, w[1])
	require.InDelta(t, 2.0, floats.Sum(w[2:]), 1e-9)
	// Higher propensity => higher share of the peer pseudo-population.
	require.Greater(t, w[2], w[5])
}

func TestCompute_Truncated(t *testing.T) {
	focal := []bool{true, false, false, false, false}
	score := []float64{0.5, 0.99, 0.3, 0.2, 0.1}

	w, err := Compute(focal, score, 75)
	require.NoError(t, err)
	// The peer sum invariant holds with truncation enabled.
	require.InDelta(t, 1.0, floats.Sum(w[1:]), 1e-9)
}
