package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindString Kind = iota
	KindCategorical
	KindInt
	KindFloat
	KindBool
	KindTime
)

// TimeLayout is the canonical text form of time values.
const TimeLayout = "2006-01-02 15:04:05"

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindCategorical:
		return "category"
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	case KindTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Column is a named, typed sequence of values. Exactly one of the value
// slices is populated, selected by kind. Columns are immutable once built.
type Column struct {
	name    string
	kind    Kind
	length  int
	missing []bool // nil when no value is missing

	strs   []string
	dict   []string
	codes  []int32 // -1 marks a missing categorical cell
	ints   []int64
	floats []float64
	bools  []bool
	times  []time.Time
}

// NewStringColumn creates a general string column. missing may be nil.
func NewStringColumn(name string, values []string, missing []bool) *Column {
	return &Column{name: name, kind: KindString, length: len(values), strs: values, missing: compactMissing(missing)}
}

// NewIntColumn creates an int64 column. missing may be nil.
func NewIntColumn(name string, values []int64, missing []bool) *Column {
	return &Column{name: name, kind: KindInt, length: len(values), ints: values, missing: compactMissing(missing)}
}

// NewFloatColumn creates a float64 column. NaN values are stored as missing.
func NewFloatColumn(name string, values []float64, missing []bool) *Column {
	for i, f := range values {
		if math.IsNaN(f) {
			if missing == nil {
				missing = make([]bool, len(values))
			}
			missing[i] = true
		}
	}
	return &Column{name: name, kind: KindFloat, length: len(values), floats: values, missing: compactMissing(missing)}
}

// NewBoolColumn creates a bool column. missing may be nil.
func NewBoolColumn(name string, values []bool, missing []bool) *Column {
	return &Column{name: name, kind: KindBool, length: len(values), bools: values, missing: compactMissing(missing)}
}

// NewTimeColumn creates a timestamp column. missing may be nil.
func NewTimeColumn(name string, values []time.Time, missing []bool) *Column {
	return &Column{name: name, kind: KindTime, length: len(values), times: values, missing: compactMissing(missing)}
}

// NewCategoricalColumn creates a dictionary-encoded string column.
// A code of -1 marks a missing cell.
func NewCategoricalColumn(name string, dict []string, codes []int32) *Column {
	return &Column{name: name, kind: KindCategorical, length: len(codes), dict: dict, codes: codes}
}

func compactMissing(missing []bool) []bool {
	for _, m := range missing {
		if m {
			return missing
		}
	}
	return nil
}

// Name returns the column name
func (c *Column) Name() string { return c.name }

// Kind returns the storage kind
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of rows
func (c *Column) Len() int { return c.length }

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.kind == KindCategorical {
		return c.codes[i] < 0
	}
	return c.missing != nil && c.missing[i]
}

// Value returns row i as a Go value, or nil when missing. Time values are
// returned in their canonical text form.
func (c *Column) Value(i int) interface{} {
	if c.IsMissing(i) {
		return nil
	}
	switch c.kind {
	case KindString:
		return c.strs[i]
	case KindCategorical:
		return c.dict[c.codes[i]]
	case KindInt:
		return c.ints[i]
	case KindFloat:
		return c.floats[i]
	case KindBool:
		return c.bools[i]
	case KindTime:
		return c.times[i].Format(TimeLayout)
	}
	return nil
}

// Time returns row i of a time column, or the zero time.
func (c *Column) Time(i int) time.Time {
	if c.kind != KindTime || c.IsMissing(i) {
		return time.Time{}
	}
	return c.times[i]
}

// String returns the canonical string projection of row i. Missing cells
// project to the empty string.
func (c *Column) String(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	switch c.kind {
	case KindString:
		return c.strs[i]
	case KindCategorical:
		return c.dict[c.codes[i]]
	case KindInt:
		return strconv.FormatInt(c.ints[i], 10)
	case KindFloat:
		return FormatFloat(c.floats[i])
	case KindBool:
		if c.bools[i] {
			return "True"
		}
		return "False"
	case KindTime:
		return c.times[i].Format(TimeLayout)
	}
	return ""
}

// FormatFloat renders f the way the viewer displays numbers: shortest
// representation, with integral values keeping a ".0" suffix.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Compare orders two non-missing rows by the column's natural ordering.
func (c *Column) Compare(i, j int) int {
	switch c.kind {
	case KindInt:
		return cmpOrdered(c.ints[i], c.ints[j])
	case KindFloat:
		return cmpOrdered(c.floats[i], c.floats[j])
	case KindBool:
		a, b := c.bools[i], c.bools[j]
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		default:
			return 1
		}
	case KindTime:
		return c.times[i].Compare(c.times[j])
	default:
		return strings.Compare(c.String(i), c.String(j))
	}
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Take returns a new column holding the given rows in order.
func (c *Column) Take(indices []int) *Column {
	out := &Column{name: c.name, kind: c.kind, length: len(indices), dict: c.dict}
	if c.missing != nil {
		missing := make([]bool, len(indices))
		for k, i := range indices {
			missing[k] = c.missing[i]
		}
		out.missing = compactMissing(missing)
	}
	switch c.kind {
	case KindString:
		out.strs = takeSlice(c.strs, indices)
	case KindCategorical:
		out.codes = takeSlice(c.codes, indices)
	case KindInt:
		out.ints = takeSlice(c.ints, indices)
	case KindFloat:
		out.floats = takeSlice(c.floats, indices)
	case KindBool:
		out.bools = takeSlice(c.bools, indices)
	case KindTime:
		out.times = takeSlice(c.times, indices)
	}
	return out
}

func takeSlice[T any](values []T, indices []int) []T {
	out := make([]T, len(indices))
	for k, i := range indices {
		out[k] = values[i]
	}
	return out
}

// Categorize converts a general string column into a categorical one when
// its distinct count is below maxDistinct and the distinct/rows ratio is at
// most maxRatio. Other columns are returned unchanged.
func (c *Column) Categorize(maxDistinct int, maxRatio float64) *Column {
	if c.kind != KindString || c.length == 0 {
		return c
	}

	lookup := make(map[string]int32)
	dict := make([]string, 0)
	codes := make([]int32, c.length)
	for i := 0; i < c.length; i++ {
		if c.IsMissing(i) {
			codes[i] = -1
			continue
		}
		code, ok := lookup[c.strs[i]]
		if !ok {
			if len(dict) >= maxDistinct {
				return c
			}
			code = int32(len(dict))
			lookup[c.strs[i]] = code
			dict = append(dict, c.strs[i])
		}
		codes[i] = code
	}

	if len(dict) == 0 || float64(len(dict))/float64(c.length) > maxRatio {
		return c
	}
	return NewCategoricalColumn(c.name, dict, codes)
}

// Code returns the dictionary code of row i in a categorical column, -1 when
// the cell is missing or the column is not categorical.
func (c *Column) Code(i int) int {
	if c.kind != KindCategorical {
		return -1
	}
	return int(c.codes[i])
}

// Categories returns the dictionary of a categorical column, nil otherwise.
func (c *Column) Categories() []string {
	return c.dict
}
