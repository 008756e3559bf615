// Package view turns a dataset and a selection mask into what the viewer
// displays: a sorted page of records, the filtered row count, and per-column
// frequency statistics.
package view

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vegasq/tablescope/internal/dataset"
)

// Display limits used by the viewer.
const (
	DefaultPageSize  = 100
	DefaultTopValues = 50
)

// ErrColumnNotFound is returned when an analysed column does not exist
var ErrColumnNotFound = errors.New("column not found")

// Sort selects an optional sort column. An empty or unknown column leaves
// rows in dataset order.
type Sort struct {
	Column     string
	Descending bool
}

// Page is one page of filtered rows.
type Page struct {
	Rows       []Record
	TotalCount int
	Elapsed    time.Duration
}

// Rows returns the indices selected by mask, stably sorted by s.
func Rows(ds *dataset.Dataset, mask *dataset.Mask, s Sort) []int {
	indices := mask.Indices()
	if s.Column == "" {
		return indices
	}
	col, ok := ds.Column(s.Column)
	if !ok {
		return indices
	}

	// Missing values sort last in both directions.
	sort.SliceStable(indices, func(a, b int) bool {
		i, j := indices[a], indices[b]
		mi, mj := col.IsMissing(i), col.IsMissing(j)
		switch {
		case mi || mj:
			return !mi && mj
		case s.Descending:
			return col.Compare(i, j) > 0
		default:
			return col.Compare(i, j) < 0
		}
	})
	return indices
}

// Paginate applies mask and sort, then returns page number page (1-based)
// of pageSize rows. A page past the end has no rows.
func Paginate(ds *dataset.Dataset, mask *dataset.Mask, s Sort, page, pageSize int) *Page {
	start := time.Now()
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	indices := Rows(ds, mask, s)
	out := &Page{TotalCount: len(indices), Rows: []Record{}}

	// Compare page numbers before multiplying so huge pages cannot overflow.
	if pages := (len(indices) + pageSize - 1) / pageSize; page <= pages {
		from := (page - 1) * pageSize
		to := min(from+pageSize, len(indices))
		out.Rows = Records(ds, indices[from:to])
	}

	out.Elapsed = time.Since(start)
	return out
}

// Records renders the given rows of ds.
func Records(ds *dataset.Dataset, indices []int) []Record {
	columns := ds.ColumnNames()
	records := make([]Record, len(indices))
	for k, i := range indices {
		values := make([]interface{}, len(columns))
		for c, col := range ds.Columns() {
			if v := col.Value(i); v != nil {
				values[c] = v
			} else {
				values[c] = ""
			}
		}
		records[k] = Record{Columns: columns, Values: values}
	}
	return records
}

// ValueCount is a distinct value and how many selected rows hold it.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnStats summarises one column over the selected rows.
type ColumnStats struct {
	Column        string       `json:"column"`
	TopValues     []ValueCount `json:"stats"`
	TotalRows     int          `json:"total_rows"`
	DistinctCount int          `json:"unique_values"`
}

// Analyze counts the distinct non-missing values of column over the rows
// selected by mask. TopValues holds at most limit entries ordered by
// descending count, ties in first-seen order.
func Analyze(ds *dataset.Dataset, mask *dataset.Mask, column string, limit int) (*ColumnStats, error) {
	col, ok := ds.Column(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	if limit <= 0 {
		limit = DefaultTopValues
	}

	indices := mask.Indices()
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, i := range indices {
		if col.IsMissing(i) {
			continue
		}
		value := col.String(i)
		if _, seen := counts[value]; !seen {
			order = append(order, value)
		}
		counts[value]++
	}

	top := make([]ValueCount, len(order))
	for k, value := range order {
		top[k] = ValueCount{Value: value, Count: counts[value]}
	}
	sort.SliceStable(top, func(a, b int) bool {
		return top[a].Count > top[b].Count
	})
	if len(top) > limit {
		top = top[:limit]
	}

	return &ColumnStats{
		Column:        column,
		TopValues:     top,
		TotalRows:     len(indices),
		DistinctCount: len(order),
	}, nil
}

// Options returns, per column, the first limit distinct non-missing values
// in row order. The viewer offers them as filter suggestions.
func Options(ds *dataset.Dataset, limit int) map[string][]string {
	if limit <= 0 {
		limit = DefaultTopValues
	}
	out := make(map[string][]string, ds.NumColumns())
	for _, col := range ds.Columns() {
		seen := make(map[string]bool)
		values := make([]string, 0)
		for i := 0; i < col.Len() && len(values) < limit; i++ {
			if col.IsMissing(i) {
				continue
			}
			v := col.String(i)
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
		out[col.Name()] = values
	}
	return out
}
