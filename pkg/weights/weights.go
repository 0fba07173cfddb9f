// Package weights derives balancing weights for peer units from
// propensity scores. Focal units always carry weight 1; peer units are
// weighted by their odds of focal membership and rescaled so the peer
// pool forms a pseudo-population the size of the focal group.
package weights

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrLengthMismatch = errors.New("weights: focal and score length mismatch")
	ErrNoFocal        = errors.New("weights: no focal units")
	ErrNoPeerMass     = errors.New("weights: peer weights sum to zero")
	ErrBadPercentile  = errors.New("weights: truncation percentile out of range")
)

// Odds returns the raw ATT weights: 1 for focal units, p/(1-p) for
// peers. A peer that resembles the focal group (high p) weighs more.
func Odds(focal []bool, score []float64) ([]float64, error) {
	if len(focal) != len(score) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(focal), len(score))
	}
	w := make([]float64, len(score))
	for i, p := range score {
		if focal[i] {
			w[i] = 1
		} else {
			w[i] = p / (1 - p)
		}
	}
	return w, nil
}

// TruncatePeers clips peer weights above the pct-th percentile of the
// peer weight distribution, in place. This bounds the variance a few
// highly-weighted peers can contribute. pct must be in (0, 100].
func TruncatePeers(w []float64, focal []bool, pct float64) error {
	if pct <= 0 || pct > 100 {
		return fmt.Errorf("%w: %v", ErrBadPercentile, pct)
	}
	var peers []float64
	for i, f := range focal {
		if !f {
			peers = append(peers, w[i])
		}
	}
	if len(peers) == 0 {
		return nil
	}
	sort.Float64s(peers)
	cut := stat.Quantile(pct/100, stat.Empirical, peers, nil)
	for i, f := range focal {
		if !f && w[i] > cut {
			w[i] = cut
		}
	}
	return nil
}

// RescalePeers multiplies every peer weight by a single constant so the
// peer weights sum to the focal-group size, in place.
func RescalePeers(w []float64, focal []bool) error {
	nFocal := 0
	peerSum := 0.0
	for i, f := range focal {
		if f {
			nFocal++
		} else {
			peerSum += w[i]
		}
	}
	if nFocal == 0 {
		return ErrNoFocal
	}
	if peerSum == 0 || math.IsNaN(peerSum) || math.IsInf(peerSum, 0) {
		return ErrNoPeerMass
	}
	scale := float64(nFocal) / peerSum
	for i, f := range focal {
		if !f {
			w[i] *= scale
		}
	}
	return nil
}

// Compute derives the final unit weights from propensity scores:
// raw odds, optional truncation at truncPct (0 disables), then peer
// rescaling. The returned slice is aligned to the inputs.
func Compute(focal []bool, score []float64, truncPct float64) ([]float64, error) {
	w, err := Odds(focal, score)
	if err != nil {
		return nil, err
	}
	if truncPct > 0 {
		if err := TruncatePeers(w, focal, truncPct); err != nil {
			return nil, err
		}
	}
	if err := RescalePeers(w, focal); err != nil {
		return nil, err
	}
	return w, nil
}
