package benchmark

import "errors"

// Sentinel errors for the benchmarking pipeline. Callers match them
// with errors.Is; messages carry context via fmt.Errorf wrapping.
var (
	// ErrSchema is returned when a requested feature name is missing
	// from the dataset, or the focal indicator length does not match
	// the dataset row count.
	ErrSchema = errors.New("benchmark: schema error")

	// ErrDegenerateFit is returned when the focal indicator has only
	// one class, the encoded predictor matrix has no columns, or the
	// classifier cannot produce usable scores.
	ErrDegenerateFit = errors.New("benchmark: degenerate fit")

	// ErrNotFitted is returned when Evaluate or CalcBalance is invoked
	// before a successful Fit.
	ErrNotFitted = errors.New("benchmark: not fitted")
)
