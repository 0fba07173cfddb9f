package benchmark

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/gmcirco/pscore-benchmarking/pkg/data"
)

// sixRowDataset is the small worked example: 2 focal units and 4 peers
// with a single numeric predictor.
func sixRowDataset(t *testing.T) (*data.Dataset, []bool) {
	t.Helper()
	ds, err := data.New(
		data.NumericColumn("age", []float64{30, 40, 25, 25, 45, 50}),
		data.NumericColumn("los", []float64{4, 6, 3, 3, 7, 9}),
	)
	require.NoError(t, err)
	return ds, []bool{true, true, false, false, false, false}
}

// mixedDataset has numeric and categorical predictors with a focal
// group that skews high on x.
func mixedDataset(t *testing.T) (*data.Dataset, []bool) {
	t.Helper()
	rnd := rand.New(rand.NewSource(99))
	n := 120
	x := make([]float64, n)
	grp := make([]string, n)
	out := make([]float64, n)
	focal := make([]bool, n)
	for i := 0; i < n; i++ {
		focal[i] = i < 30
		if focal[i] {
			x[i] = 1 + rnd.NormFloat64()
		} else {
			x[i] = rnd.NormFloat64()
		}
		if i%3 == 0 {
			grp[i] = "a"
		} else {
			grp[i] = "b"
		}
		out[i] = 2*x[i] + rnd.NormFloat64()*0.1
	}
	ds, err := data.New(
		data.NumericColumn("x", x),
		data.CategoricalColumn("grp", grp),
		data.NumericColumn("out", out),
	)
	require.NoError(t, err)
	return ds, focal
}

func peerWeightSum(focal []bool, w []float64) float64 {
	s := 0.0
	for i, f := range focal {
		if !f {
			s += w[i]
		}
	}
	return s
}

func TestFit_WeightInvariants(t *testing.T) {
	ds, focal := mixedDataset(t)

	b, err := New(ds, focal, []string{"x", "grp"}, []string{"out"}, WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, b.Fit())

	w := b.Weights()
	require.Len(t, w, ds.Len())
	for i, f := range focal {
		if f {
			require.Equal(t, 1.0, w[i], "focal weight must be exactly 1")
		} else {
			require.GreaterOrEqual(t, w[i], 0.0)
		}
	}
	require.InEpsilon(t, 30.0, peerWeightSum(focal, w), 1e-6)
}

func TestFit_SixRowScenario(t *testing.T) {
	ds, focal := sixRowDataset(t)

	b, err := New(ds, focal, []string{"age"}, []string{"los"}, WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, b.Fit())

	w := b.Weights()
	require.Equal(t, 1.0, w[0])
	require.Equal(t, 1.0, w[1])
	require.InEpsilon(t, 2.0, peerWeightSum(focal, w), 1e-6)

	// Peers inside the focal age range outweigh the age-50 outlier.
	require.Greater(t, w[2], w[5])
	require.Greater(t, w[4], w[5])
}

func TestCalcBalance_RecordPerColumn(t *testing.T) {
	ds, focal := mixedDataset(t)

	b, err := New(ds, focal, []string{"x", "grp"}, []string{"out"}, WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, b.Fit())

	records, err := b.CalcBalance()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"x", "grp_a", "grp_b"},
		[]string{records[0].Name, records[1].Name, records[2].Name})
}

func TestCalcBalance_ImprovesBalance(t *testing.T) {
	ds, focal := mixedDataset(t)

	b, err := New(ds, focal, []string{"x", "grp"}, []string{"out"}, WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, b.Fit())

	records, err := b.CalcBalance()
	require.NoError(t, err)

	// Unweighted focal/peer means on x differ by ~1; weighting should
	// pull the peer mean well inside that gap.
	gap := records[0].FocalMean - records[0].PeerMean
	require.InDelta(t, 0, gap, 0.5)
}

func TestEvaluate_AlignedOutcomes(t *testing.T) {
	ds, focal := mixedDataset(t)

	b, err := New(ds, focal, []string{"x", "grp"}, []string{"out", "grp"}, WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, b.Fit())
	require.NoError(t, b.Evaluate())

	dm := b.EvalMatrix()
	outcomes := b.Outcomes()
	require.Equal(t, dm.Cols(), len(outcomes))
	for j, o := range outcomes {
		require.Equal(t, dm.Names[j], o.Name)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	ds, focal := mixedDataset(t)

	b, err := New(ds, focal, []string{"x", "grp"}, []string{"out"}, WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, b.Fit())

	require.NoError(t, b.Evaluate())
	first := b.Outcomes()
	require.NoError(t, b.Evaluate())
	second := b.Outcomes()
	require.Equal(t, first, second)
}

func TestIdenticalDistributions_UniformWeights(t *testing.T) {
	// Peers are the focal rows duplicated twice: identical covariate
	// distributions must give uniform weights and near-exact balance.
	fx := []float64{10, 20, 30, 40}
	fg := []string{"a", "b", "a", "b"}

	x := append(append(append([]float64{}, fx...), fx...), fx...)
	g := append(append(append([]string{}, fg...), fg...), fg...)
	focal := make([]bool, 12)
	for i := 0; i < 4; i++ {
		focal[i] = true
	}

	ds, err := data.New(
		data.NumericColumn("x", x),
		data.CategoricalColumn("grp", g),
	)
	require.NoError(t, err)

	b, err := New(ds, focal, []string{"x", "grp"}, []string{"x"}, WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, b.Fit())

	w := b.Weights()
	for i := 4; i < 12; i++ {
		require.InDelta(t, 0.5, w[i], 0.01, "peer weights should be uniform")
	}

	records, err := b.CalcBalance()
	require.NoError(t, err)
	for _, r := range records {
		require.InDelta(t, r.FocalMean, r.PeerMean, 0.01, "column %s", r.Name)
	}
}

func TestFit_Deterministic(t *testing.T) {
	ds, focal := mixedDataset(t)

	run := func(kind ClassifierKind) ([]float64, []float64) {
		b, err := New(ds, focal, []string{"x", "grp"}, []string{"out"},
			WithSeed(42), WithClassifier(kind))
		require.NoError(t, err)
		require.NoError(t, b.Fit())
		return b.Scores(), b.Weights()
	}

	for _, kind := range []ClassifierKind{Logistic, GradientBoosted} {
		s1, w1 := run(kind)
		s2, w2 := run(kind)
		require.Equal(t, s1, s2)
		require.Equal(t, w1, w2)
	}
}

func TestGradientBoosted_WeightInvariants(t *testing.T) {
	ds, focal := mixedDataset(t)

	b, err := New(ds, focal, []string{"x", "grp"}, []string{"out"},
		WithSeed(7), WithClassifier(GradientBoosted), WithEstimators(100))
	require.NoError(t, err)
	require.NoError(t, b.Fit())

	w := b.Weights()
	require.InEpsilon(t, 30.0, peerWeightSum(focal, w), 1e-6)
	for i, f := range focal {
		if f {
			require.Equal(t, 1.0, w[i])
		}
	}
}

func TestTruncation_PreservesPeerSum(t *testing.T) {
	ds, focal := mixedDataset(t)

	b, err := New(ds, focal, []string{"x", "grp"}, []string{"out"},
		WithSeed(1), WithTruncationPercentile(90))
	require.NoError(t, err)
	require.NoError(t, b.Fit())

	require.InEpsilon(t, 30.0, peerWeightSum(focal, b.Weights()), 1e-6)
}

func TestNotFittedErrors(t *testing.T) {
	ds, focal := sixRowDataset(t)

	b, err := New(ds, focal, []string{"age"}, []string{"los"})
	require.NoError(t, err)

	require.ErrorIs(t, b.Evaluate(), ErrNotFitted)
	_, err = b.CalcBalance()
	require.ErrorIs(t, err, ErrNotFitted)
}

func TestFit_SingleClass(t *testing.T) {
	ds, _ := sixRowDataset(t)
	allFocal := []bool{true, true, true, true, true, true}

	b, err := New(ds, allFocal, []string{"age"}, []string{"los"})
	require.NoError(t, err)
	require.ErrorIs(t, b.Fit(), ErrDegenerateFit)

	// A failed Fit leaves the object unfitted.
	require.ErrorIs(t, b.Evaluate(), ErrNotFitted)
}

func TestFit_MissingPredictor(t *testing.T) {
	ds, focal := sixRowDataset(t)

	// Construction succeeds; the schema failure surfaces at Fit time.
	b, err := New(ds, focal, []string{"age", "acuity"}, []string{"los"})
	require.NoError(t, err)
	require.ErrorIs(t, b.Fit(), ErrSchema)
}

func TestFit_EmptyPredictorSet(t *testing.T) {
	ds, focal := sixRowDataset(t)

	b, err := New(ds, focal, nil, []string{"los"})
	require.NoError(t, err)
	require.ErrorIs(t, b.Fit(), ErrDegenerateFit)
}

func TestNew_FocalLengthMismatch(t *testing.T) {
	ds, _ := sixRowDataset(t)

	_, err := New(ds, []bool{true, false}, []string{"age"}, []string{"los"})
	require.ErrorIs(t, err, ErrSchema)
}

func TestScores_ClippedAndFinite(t *testing.T) {
	ds, focal := mixedDataset(t)

	b, err := New(ds, focal, []string{"x", "grp"}, []string{"out"}, WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, b.Fit())

	s := b.Scores()
	require.Len(t, s, ds.Len())
	require.GreaterOrEqual(t, floats.Min(s), 1e-6)
	require.LessOrEqual(t, floats.Max(s), 1-1e-6)
}
