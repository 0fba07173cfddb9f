// Package benchmark compares a focal group of units against a
// propensity-weighted peer pool drawn from the same dataset. A fitted
// Benchmark reports covariate balance over the predictor features and
// weighted mean differences over the evaluation features.
package benchmark

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/gmcirco/pscore-benchmarking/pkg/data"
	"github.com/gmcirco/pscore-benchmarking/pkg/dataprep"
	"github.com/gmcirco/pscore-benchmarking/pkg/model"
	"github.com/gmcirco/pscore-benchmarking/pkg/weights"
)

// scoreEps bounds propensity scores away from 0 and 1 so the peer odds
// p/(1-p) stay finite.
const scoreEps = 1e-6

// ClassifierKind selects the propensity model.
type ClassifierKind int

const (
	Logistic ClassifierKind = iota
	GradientBoosted
)

// BalanceRecord holds one predictor column's focal mean and weighted
// peer mean.
type BalanceRecord struct {
	Name      string
	FocalMean float64
	PeerMean  float64
}

func (r BalanceRecord) String() string {
	return fmt.Sprintf("%s:(%.2f, %.2f)", r.Name, r.FocalMean, r.PeerMean)
}

// OutcomeResult holds one evaluation column's signed difference
// (focal mean minus weighted peer mean).
type OutcomeResult struct {
	Name string
	Diff float64
}

type state int

const (
	stateUnfit state = iota
	stateFit
	stateEvaluated
)

// Benchmark owns one dataset view, its fitted propensity model, and the
// derived unit weights. Instances are independent; nothing is shared.
type Benchmark struct {
	ds       *data.Dataset
	focal    []bool
	predFeat []string
	evalFeat []string

	kind       ClassifierKind
	seed       int64
	truncPct   float64
	learnRate  float64
	estimators int
	epochs     int

	state  state
	xpred  *dataprep.DesignMatrix
	clf    model.Classifier
	pscore []float64
	wgt    []float64

	xeval    *dataprep.DesignMatrix
	outcomes []OutcomeResult
}

// Option is functional config for Benchmark.
type Option func(*Benchmark)

// WithClassifier selects the propensity model (default Logistic).
func WithClassifier(kind ClassifierKind) Option {
	return func(b *Benchmark) { b.kind = kind }
}

// WithSeed fixes the seed for every stochastic step, making Fit
// reproducible for identical inputs.
func WithSeed(seed int64) Option {
	return func(b *Benchmark) { b.seed = seed }
}

// WithTruncationPercentile clips raw peer weights above the given
// percentile before rescaling. 0 disables truncation (the default).
func WithTruncationPercentile(pct float64) Option {
	return func(b *Benchmark) { b.truncPct = pct }
}

// WithLearningRate sets the classifier learning rate.
func WithLearningRate(lr float64) Option {
	return func(b *Benchmark) { b.learnRate = lr }
}

// WithEstimators sets the ensemble size for GradientBoosted.
func WithEstimators(n int) Option {
	return func(b *Benchmark) { b.estimators = n }
}

// WithEpochs sets the training epochs for Logistic.
func WithEpochs(n int) Option {
	return func(b *Benchmark) { b.epochs = n }
}

// New validates the inputs and returns an unfitted Benchmark. The
// dataset, focal indicator, and feature sets are never mutated.
func New(ds *data.Dataset, focal []bool, predictors, evaluators []string, opts ...Option) (*Benchmark, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset", ErrSchema)
	}
	if len(focal) != ds.Len() {
		return nil, fmt.Errorf("%w: focal indicator has %d entries, dataset has %d rows",
			ErrSchema, len(focal), ds.Len())
	}

	b := &Benchmark{
		ds:         ds,
		focal:      append([]bool(nil), focal...),
		predFeat:   append([]string(nil), predictors...),
		evalFeat:   append([]string(nil), evaluators...),
		kind:       Logistic,
		seed:       1,
		learnRate:  0.1,
		estimators: 500,
		epochs:     1000,
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// Fit encodes the predictor features over the full dataset, fits the
// propensity model, and derives the unit weights. On any error the
// Benchmark remains unfitted; model, scores, and weights are only
// assigned together on success.
func (b *Benchmark) Fit() error {
	nFocal, nPeer := 0, 0
	for _, f := range b.focal {
		if f {
			nFocal++
		} else {
			nPeer++
		}
	}
	if nFocal == 0 || nPeer == 0 {
		return fmt.Errorf("%w: focal indicator has a single class (%d focal, %d peer)",
			ErrDegenerateFit, nFocal, nPeer)
	}

	xpred, err := b.encode(b.predFeat)
	if err != nil {
		return err
	}

	y := make([]float64, len(b.focal))
	for i, f := range b.focal {
		if f {
			y[i] = 1
		}
	}

	clf := b.newClassifier()
	if err := clf.Fit(xpred.X, y); err != nil {
		return fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}

	score := clf.PredictProba(xpred.X)
	for i, p := range score {
		score[i] = min(max(p, scoreEps), 1-scoreEps)
	}

	wgt, err := weights.Compute(b.focal, score, b.truncPct)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}

	b.xpred = xpred
	b.clf = clf
	b.pscore = score
	b.wgt = wgt
	b.state = stateFit
	return nil
}

// CalcBalance returns one record per predictor design column, in
// column order: the unweighted focal mean and the weighted peer mean.
// Poor balance is reported, never rejected.
func (b *Benchmark) CalcBalance() ([]BalanceRecord, error) {
	if b.state < stateFit {
		return nil, fmt.Errorf("%w: call Fit before CalcBalance", ErrNotFitted)
	}
	records := make([]BalanceRecord, b.xpred.Cols())
	for j := range records {
		mf, mp := b.groupMeans(b.xpred.Col(j))
		records[j] = BalanceRecord{Name: b.xpred.Names[j], FocalMean: mf, PeerMean: mp}
	}
	return records, nil
}

// Evaluate encodes the evaluation features (levels fixed over the full
// dataset, as for predictors) and stores, aligned, the evaluation
// design matrix and the signed differences focal mean minus weighted
// peer mean. Repeated calls overwrite prior results.
func (b *Benchmark) Evaluate() error {
	if b.state < stateFit {
		return fmt.Errorf("%w: call Fit before Evaluate", ErrNotFitted)
	}

	xeval, err := b.encode(b.evalFeat)
	if err != nil {
		return err
	}

	outcomes := make([]OutcomeResult, xeval.Cols())
	for j := range outcomes {
		mf, mp := b.groupMeans(xeval.Col(j))
		outcomes[j] = OutcomeResult{Name: xeval.Names[j], Diff: mf - mp}
	}

	b.xeval = xeval
	b.outcomes = outcomes
	b.state = stateEvaluated
	return nil
}

// Outcomes returns the evaluation differences from the last Evaluate,
// aligned with EvalMatrix columns.
func (b *Benchmark) Outcomes() []OutcomeResult {
	return append([]OutcomeResult(nil), b.outcomes...)
}

// EvalMatrix returns the evaluation design matrix from the last
// Evaluate, or nil if Evaluate has not run.
func (b *Benchmark) EvalMatrix() *dataprep.DesignMatrix { return b.xeval }

// Scores returns a copy of the clipped propensity scores.
func (b *Benchmark) Scores() []float64 {
	return append([]float64(nil), b.pscore...)
}

// Weights returns a copy of the unit weights.
func (b *Benchmark) Weights() []float64 {
	return append([]float64(nil), b.wgt...)
}

func (b *Benchmark) newClassifier() model.Classifier {
	switch b.kind {
	case GradientBoosted:
		return model.NewGradientBoosting(
			model.WithLearningRate(b.learnRate),
			model.WithNEstimators(b.estimators),
			model.WithSeed(b.seed),
		)
	default:
		return model.NewLogisticRegression(
			model.WithLogisticLearningRate(b.learnRate),
			model.WithEpochs(b.epochs),
			model.WithLogisticSeed(b.seed),
		)
	}
}

// encode builds a design matrix for the feature set over the full
// dataset, mapping encoder failures into the error taxonomy: a missing
// feature is a schema error, an empty column set a degenerate fit.
func (b *Benchmark) encode(features []string) (*dataprep.DesignMatrix, error) {
	enc := dataprep.NewEncoder(features)
	dm, err := enc.FitTransform(b.ds)
	if errors.Is(err, dataprep.ErrNoColumns) {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return dm, nil
}

// groupMeans splits a design column by the focal indicator and returns
// the unweighted focal mean and the weighted peer mean.
func (b *Benchmark) groupMeans(col []float64) (focalMean, peerMean float64) {
	var fvals, pvals, pwgt []float64
	for i, f := range b.focal {
		if f {
			fvals = append(fvals, col[i])
		} else {
			pvals = append(pvals, col[i])
			pwgt = append(pwgt, b.wgt[i])
		}
	}
	return stat.Mean(fvals, nil), stat.Mean(pvals, pwgt)
}
