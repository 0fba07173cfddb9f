package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// stump is a depth-1 regression tree: x[feature] <= threshold goes left.
type stump struct {
	feature   int
	threshold float64
	left      float64
	right     float64
}

// GradientBoosting is a binary classifier built from boosted regression
// stumps on the logistic loss. Each round fits a stump to the current
// residuals and takes a Newton step for the leaf values.
type GradientBoosting struct {
	// Hyperparameters / options
	LearningRate float64
	NEstimators  int
	MaxFeatures  int // 0 => consider every feature at each stump
	Seed         int64

	// internals
	base   float64
	stumps []stump
}

// BoostingOption is functional config for GradientBoosting.
type BoostingOption func(*GradientBoosting)

func WithLearningRate(lr float64) BoostingOption {
	return func(g *GradientBoosting) { g.LearningRate = lr }
}
func WithNEstimators(n int) BoostingOption {
	return func(g *GradientBoosting) { g.NEstimators = n }
}
func WithMaxFeatures(k int) BoostingOption {
	return func(g *GradientBoosting) { g.MaxFeatures = k }
}
func WithSeed(seed int64) BoostingOption {
	return func(g *GradientBoosting) { g.Seed = seed }
}

// NewGradientBoosting returns a classifier with sensible defaults.
func NewGradientBoosting(opts ...BoostingOption) *GradientBoosting {
	g := &GradientBoosting{
		LearningRate: 0.1,
		NEstimators:  500,
		MaxFeatures:  0,
		Seed:         1,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Fit trains the ensemble on X (n x p) and binary labels y (0 or 1).
func (g *GradientBoosting) Fit(X mat.Matrix, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return errors.New("boosting: empty X")
	}
	if len(y) != n {
		return errors.New("boosting: X and y length mismatch")
	}
	if p == 0 {
		return errors.New("boosting: X has no columns")
	}

	ybar := 0.0
	for _, v := range y {
		ybar += v
	}
	ybar /= float64(n)
	ybar = math.Min(math.Max(ybar, 1e-12), 1-1e-12)
	g.base = math.Log(ybar / (1 - ybar))
	g.stumps = make([]stump, 0, g.NEstimators)

	rnd := rand.New(rand.NewSource(g.Seed))
	logit := make([]float64, n)
	for i := range logit {
		logit[i] = g.base
	}

	resid := make([]float64, n)
	hess := make([]float64, n)
	for m := 0; m < g.NEstimators; m++ {
		for i := 0; i < n; i++ {
			pi := sigmoid(logit[i])
			resid[i] = y[i] - pi
			hess[i] = pi * (1 - pi)
		}

		feats := g.candidateFeatures(p, rnd)
		st, ok := bestStump(X, resid, hess, feats)
		if !ok {
			// No feature splits the data; stop growing the ensemble.
			break
		}
		g.stumps = append(g.stumps, st)

		for i := 0; i < n; i++ {
			if X.At(i, st.feature) <= st.threshold {
				logit[i] += g.LearningRate * st.left
			} else {
				logit[i] += g.LearningRate * st.right
			}
		}
	}
	return nil
}

// PredictProba returns p(y=1) for each row of X.
func (g *GradientBoosting) PredictProba(X mat.Matrix) []float64 {
	n, _ := X.Dims()
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s := g.base
		for _, st := range g.stumps {
			if X.At(i, st.feature) <= st.threshold {
				s += g.LearningRate * st.left
			} else {
				s += g.LearningRate * st.right
			}
		}
		out[i] = sigmoid(s)
	}
	return out
}

// candidateFeatures returns the feature indices searched this round,
// in ascending order so split ties resolve deterministically.
func (g *GradientBoosting) candidateFeatures(p int, rnd *rand.Rand) []int {
	if g.MaxFeatures <= 0 || g.MaxFeatures >= p {
		feats := make([]int, p)
		for j := range feats {
			feats[j] = j
		}
		return feats
	}
	feats := rnd.Perm(p)[:g.MaxFeatures]
	sort.Ints(feats)
	return feats
}

// bestStump exhaustively searches midpoints of the candidate features
// for the split minimizing squared residual error, then sets the leaf
// values with a Newton step (sum residual / sum hessian per leaf).
func bestStump(X mat.Matrix, resid, hess []float64, feats []int) (stump, bool) {
	n := len(resid)
	bestGain := 0.0
	var best stump
	found := false

	col := make([]float64, n)
	order := make([]int, n)
	for _, j := range feats {
		mat.Col(col, j, X)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return col[order[a]] < col[order[b]] })

		total := 0.0
		for _, r := range resid {
			total += r
		}

		sumL := 0.0
		for k := 0; k < n-1; k++ {
			i := order[k]
			sumL += resid[i]
			if col[order[k]] == col[order[k+1]] {
				continue
			}
			nL, nR := float64(k+1), float64(n-k-1)
			sumR := total - sumL
			gain := sumL*sumL/nL + sumR*sumR/nR
			if gain > bestGain {
				bestGain = gain
				best = stump{
					feature:   j,
					threshold: (col[order[k]] + col[order[k+1]]) / 2,
				}
				found = true
			}
		}
	}
	if !found {
		return stump{}, false
	}

	mat.Col(col, best.feature, X)
	var numL, denL, numR, denR float64
	for i := 0; i < n; i++ {
		if col[i] <= best.threshold {
			numL += resid[i]
			denL += hess[i]
		} else {
			numR += resid[i]
			denR += hess[i]
		}
	}
	best.left = numL / math.Max(denL, 1e-12)
	best.right = numR / math.Max(denR, 1e-12)
	return best, true
}
