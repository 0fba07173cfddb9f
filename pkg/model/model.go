package model

import "gonum.org/v1/gonum/mat"

// Classifier is a probabilistic binary classifier.
type Classifier interface {
	Fit(X mat.Matrix, y []float64) error
	PredictProba(X mat.Matrix) []float64 // returns p(y=1) for each row
}
