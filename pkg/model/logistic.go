package model

import (
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/gmcirco/pscore-benchmarking/pkg/optim"
)

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

// LogisticRegression (binary) trained by full-batch gradient descent.
// Inputs are standardized internally using training-set statistics so
// one learning rate works across feature scales; the standardization
// parameters live with the model and are reapplied at prediction time.
type LogisticRegression struct {
	W []float64 // weights on standardized inputs
	b float64   // bias

	Lr     float64
	Epochs int
	Seed   int64

	mean []float64
	std  []float64
}

// LogisticOption is functional config for LogisticRegression.
type LogisticOption func(*LogisticRegression)

func WithLogisticLearningRate(lr float64) LogisticOption {
	return func(m *LogisticRegression) { m.Lr = lr }
}
func WithEpochs(n int) LogisticOption {
	return func(m *LogisticRegression) { m.Epochs = n }
}
func WithLogisticSeed(seed int64) LogisticOption {
	return func(m *LogisticRegression) { m.Seed = seed }
}

// NewLogisticRegression returns a model with sensible defaults.
func NewLogisticRegression(opts ...LogisticOption) *LogisticRegression {
	m := &LogisticRegression{Lr: 0.1, Epochs: 1000, Seed: 1}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Fit trains the model on X (n x p) and binary labels y (0 or 1).
func (m *LogisticRegression) Fit(X mat.Matrix, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return errors.New("logistic: empty X")
	}
	if len(y) != n {
		return errors.New("logistic: X and y length mismatch")
	}
	if p == 0 {
		return errors.New("logistic: X has no columns")
	}

	// Column standardization parameters from the training data.
	m.mean = make([]float64, p)
	m.std = make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, X)
		mu, sd := stat.MeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.mean[j], m.std[j] = mu, sd
	}

	// Initialize weights with small seeded random values to break symmetry.
	rnd := rand.New(rand.NewSource(m.Seed))
	m.W = make([]float64, p)
	for i := range m.W {
		m.W[i] = rnd.NormFloat64() * 0.01
	}
	m.b = 0

	opt := optim.NewSGD(m.Lr)
	for ep := 0; ep < m.Epochs; ep++ {
		pr := m.PredictProba(X)

		// Gradient of the mean binary cross-entropy with respect to
		// the logits is (p - y) / n.
		gW := make([]float64, p)
		gb := 0.0
		for i := 0; i < n; i++ {
			d := (pr[i] - y[i]) / float64(n)
			for j := 0; j < p; j++ {
				gW[j] += d * (X.At(i, j) - m.mean[j]) / m.std[j]
			}
			gb += d
		}

		opt.Step(m.W, gW)
		m.b -= m.Lr * gb
	}
	return nil
}

// PredictProba returns p(y=1) for each row of X. Rows are scored in
// parallel across CPU cores.
func (m *LogisticRegression) PredictProba(X mat.Matrix) []float64 {
	n, p := X.Dims()
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, n)
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				sum := m.b
				for j := 0; j < p; j++ {
					sum += m.W[j] * (X.At(i, j) - m.mean[j]) / m.std[j]
				}
				out[i] = sigmoid(sum)
			}
		}(start, end)
	}
	wg.Wait()
	return out
}
