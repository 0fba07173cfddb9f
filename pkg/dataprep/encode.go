package dataprep

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/gmcirco/pscore-benchmarking/pkg/data"
)

var (
	ErrUnknownFeature = errors.New("dataprep: unknown feature")
	ErrEncoderNotFit  = errors.New("dataprep: encoder not fitted")
	ErrMaskLength     = errors.New("dataprep: mask length mismatch")
	ErrNoColumns      = errors.New("dataprep: feature set encodes to zero columns")
)

// DesignMatrix pairs an encoded numeric matrix with its column names.
// Column i of X is always described by Names[i].
type DesignMatrix struct {
	X     *mat.Dense
	Names []string
}

// Rows returns the row count.
func (dm *DesignMatrix) Rows() int { r, _ := dm.X.Dims(); return r }

// Cols returns the column count.
func (dm *DesignMatrix) Cols() int { _, c := dm.X.Dims(); return c }

// Col returns a copy of column j.
func (dm *DesignMatrix) Col(j int) []float64 {
	return mat.Col(nil, j, dm.X)
}

// Subset returns the rows where mask is true. Column identity is
// unchanged: a subgroup missing a categorical level keeps that level's
// (all-zero) column.
func (dm *DesignMatrix) Subset(mask []bool) (*DesignMatrix, error) {
	r, c := dm.X.Dims()
	if len(mask) != r {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrMaskLength, len(mask), r)
	}
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	sub := mat.NewDense(n, c, nil)
	k := 0
	for i, m := range mask {
		if m {
			sub.SetRow(k, dm.X.RawRowView(i))
			k++
		}
	}
	return &DesignMatrix{X: sub, Names: dm.Names}, nil
}

// Encoder expands an ordered feature set into a numeric design matrix.
// Numeric features pass through as a single column; categorical features
// become one indicator column per level, named "<feature>_<level>".
// Levels are fixed at Fit time over the full dataset, so every Transform
// yields the same column set no matter which rows are present.
type Encoder struct {
	features []string
	levels   map[string][]string
	names    []string
	fitted   bool
}

// NewEncoder returns an encoder for the given feature names.
func NewEncoder(features []string) *Encoder {
	f := make([]string, len(features))
	copy(f, features)
	return &Encoder{features: f}
}

// Fit discovers categorical levels in first-observed row order and
// freezes the encoded column names.
func (e *Encoder) Fit(ds *data.Dataset) error {
	levels := make(map[string][]string)
	var names []string

	for _, feat := range e.features {
		col, ok := ds.Column(feat)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFeature, feat)
		}
		if col.Kind == data.Numeric {
			names = append(names, feat)
			continue
		}
		seen := map[string]struct{}{}
		var lv []string
		for _, lab := range col.Labels {
			if _, ok := seen[lab]; !ok {
				seen[lab] = struct{}{}
				lv = append(lv, lab)
			}
		}
		levels[feat] = lv
		for _, l := range lv {
			names = append(names, feat+"_"+l)
		}
	}

	e.levels = levels
	e.names = names
	e.fitted = true
	return nil
}

// Transform encodes the dataset with the fitted column set.
func (e *Encoder) Transform(ds *data.Dataset) (*DesignMatrix, error) {
	if !e.fitted {
		return nil, ErrEncoderNotFit
	}
	if len(e.names) == 0 {
		return nil, ErrNoColumns
	}
	n := ds.Len()
	X := mat.NewDense(n, len(e.names), nil)

	j := 0
	for _, feat := range e.features {
		col, ok := ds.Column(feat)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, feat)
		}
		if col.Kind == data.Numeric {
			for i, v := range col.Floats {
				X.Set(i, j, v)
			}
			j++
			continue
		}
		lv := e.levels[feat]
		index := make(map[string]int, len(lv))
		for k, l := range lv {
			index[l] = k
		}
		for i, lab := range col.Labels {
			if k, ok := index[lab]; ok {
				X.Set(i, j+k, 1)
			}
		}
		j += len(lv)
	}

	return &DesignMatrix{X: X, Names: e.ColumnNames()}, nil
}

// FitTransform fits the encoder and transforms in one step.
func (e *Encoder) FitTransform(ds *data.Dataset) (*DesignMatrix, error) {
	if err := e.Fit(ds); err != nil {
		return nil, err
	}
	return e.Transform(ds)
}

// ColumnNames returns the fitted encoded column names.
func (e *Encoder) ColumnNames() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}
