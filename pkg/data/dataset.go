package data

import (
	"errors"
	"fmt"
)

// ColumnKind declares how a column's values are interpreted downstream.
type ColumnKind int

const (
	Numeric ColumnKind = iota
	Categorical
)

// Column is a single named feature. Exactly one of Floats or Labels is
// populated, depending on Kind. Values are assumed already recoded
// upstream (no raw-string parsing happens here).
type Column struct {
	Name   string
	Kind   ColumnKind
	Floats []float64
	Labels []string
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Labels)
}

// NumericColumn builds a numeric column.
func NumericColumn(name string, vals []float64) Column {
	return Column{Name: name, Kind: Numeric, Floats: vals}
}

// CategoricalColumn builds a categorical column from pre-recoded labels.
func CategoricalColumn(name string, labels []string) Column {
	return Column{Name: name, Kind: Categorical, Labels: labels}
}

// Dataset is an ordered, immutable collection of equal-length columns.
type Dataset struct {
	cols  map[string]Column
	order []string
	n     int
}

var (
	ErrEmptyDataset  = errors.New("data: dataset has no columns")
	ErrDuplicateName = errors.New("data: duplicate column name")
	ErrRaggedColumns = errors.New("data: columns have unequal lengths")
)

// New validates and assembles a Dataset. Column order is preserved.
func New(cols ...Column) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, ErrEmptyDataset
	}
	d := &Dataset{cols: make(map[string]Column, len(cols)), n: cols[0].Len()}
	for _, c := range cols {
		if _, ok := d.cols[c.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, c.Name)
		}
		if c.Len() != d.n {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, c.Name, c.Len(), d.n)
		}
		d.cols[c.Name] = c
		d.order = append(d.order, c.Name)
	}
	return d, nil
}

// Len returns the row count.
func (d *Dataset) Len() int { return d.n }

// Names returns column names in construction order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (Column, bool) {
	c, ok := d.cols[name]
	return c, ok
}
