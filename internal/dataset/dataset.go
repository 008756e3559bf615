// Package dataset provides the in-memory tabular model shared by the query
// engine, the view engine and the session store.
//
// A Dataset is an ordered list of equally long, uniquely named columns.
// Columns are typed (string, categorical, int, float, bool, time) but every
// filter operator compares cells through their canonical string projection,
// see Column.String.
//
// Datasets are immutable after construction, so a pointer may be shared
// between concurrent readers without copying.
package dataset

import (
	"errors"
	"fmt"
)

// ColumnOrderKey is the file metadata key under which exporters record the
// column display order, for formats whose schema does not keep it.
const ColumnOrderKey = "tablescope.columns"

var (
	// ErrColumnLength is returned when columns disagree on the row count
	ErrColumnLength = errors.New("column length mismatch")

	// ErrDuplicateColumn is returned when two columns share a name
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Dataset is an ordered set of columns.
type Dataset struct {
	// Name is the source the dataset was loaded from, e.g. the upload filename.
	Name string

	columns []*Column
	index   map[string]int
	rows    int
}

// New creates a dataset from columns in display order.
func New(name string, columns ...*Column) (*Dataset, error) {
	d := &Dataset{
		Name:    name,
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if i == 0 {
			d.rows = col.Len()
		} else if col.Len() != d.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrColumnLength, col.Name(), col.Len(), d.rows)
		}
		if _, exists := d.index[col.Name()]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name())
		}
		d.index[col.Name()] = i
	}

	return d, nil
}

// Len returns the number of rows
func (d *Dataset) Len() int { return d.rows }

// NumColumns returns the number of columns
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Columns returns the columns in display order. The slice must not be modified.
func (d *Dataset) Columns() []*Column { return d.columns }

// ColumnNames returns the column names in display order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, col := range d.columns {
		names[i] = col.Name()
	}
	return names
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Take returns a dataset holding the given rows in the given order.
func (d *Dataset) Take(indices []int) *Dataset {
	columns := make([]*Column, len(d.columns))
	for i, col := range d.columns {
		columns[i] = col.Take(indices)
	}
	return &Dataset{
		Name:    d.Name,
		columns: columns,
		index:   d.index,
		rows:    len(indices),
	}
}

// Filter returns the rows selected by mask, preserving order. The mask must
// cover every row.
func (d *Dataset) Filter(mask *Mask) *Dataset {
	if mask.Count() == d.rows {
		return d
	}
	return d.Take(mask.Indices())
}
