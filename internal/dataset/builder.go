package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Default categorical promotion thresholds.
const (
	DefaultCategoricalMaxDistinct = 50000
	DefaultCategoricalMaxRatio    = 0.5
)

// DefaultNullValues lists the cell texts read as missing values.
var DefaultNullValues = []string{"", "NA", "N/A", "#N/A", "NULL", "null", "NaN", "nan", "-NaN", "None", "<NA>"}

var timeLayouts = []string{
	time.RFC3339Nano,
	TimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// BuildOptions controls type inference and categorical promotion.
type BuildOptions struct {
	CategoricalMaxDistinct int
	CategoricalMaxRatio    float64
	NullValues             []string
}

// DefaultBuildOptions returns the options used when none are configured.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		CategoricalMaxDistinct: DefaultCategoricalMaxDistinct,
		CategoricalMaxRatio:    DefaultCategoricalMaxRatio,
		NullValues:             DefaultNullValues,
	}
}

// Builder accumulates columns for a dataset.
type Builder struct {
	name    string
	opts    BuildOptions
	columns []*Column
	nulls   map[string]bool
}

// NewBuilder creates a dataset builder.
func NewBuilder(name string, opts BuildOptions) *Builder {
	nulls := make(map[string]bool, len(opts.NullValues))
	for _, v := range opts.NullValues {
		nulls[v] = true
	}
	return &Builder{name: name, opts: opts, nulls: nulls}
}

// AddTextColumn infers the narrowest kind that fits every non-missing cell:
// int, then float, then bool, then time, falling back to string.
func (b *Builder) AddTextColumn(name string, cells []string) {
	missing := make([]bool, len(cells))
	present := 0
	for i, cell := range cells {
		if b.nulls[strings.TrimSpace(cell)] {
			missing[i] = true
		} else {
			present++
		}
	}

	var col *Column
	if present > 0 {
		col = inferInt(name, cells, missing)
		if col == nil {
			col = inferFloat(name, cells, missing)
		}
		if col == nil {
			col = inferBool(name, cells, missing)
		}
		if col == nil {
			col = inferTime(name, cells, missing)
		}
	}
	if col == nil {
		values := make([]string, len(cells))
		for i, cell := range cells {
			if !missing[i] {
				values[i] = cell
			}
		}
		col = NewStringColumn(name, values, missing)
	}
	b.add(col)
}

// AddValueColumn builds a column from decoded Go values, as produced by
// columnar readers. nil entries are missing.
func (b *Builder) AddValueColumn(name string, values []interface{}) {
	kind := KindString
	for _, v := range values {
		if v == nil {
			continue
		}
		kind = kindOf(v)
		break
	}

	n := len(values)
	missing := make([]bool, n)
	switch kind {
	case KindInt:
		out := make([]int64, n)
		for i, v := range values {
			iv, ok := asInt64(v)
			if !ok {
				b.AddTextColumn(name, stringify(values))
				return
			}
			out[i] = iv
			missing[i] = v == nil
		}
		b.add(NewIntColumn(name, out, missing))
	case KindFloat:
		out := make([]float64, n)
		for i, v := range values {
			fv, ok := asFloat64(v)
			if !ok {
				b.AddTextColumn(name, stringify(values))
				return
			}
			out[i] = fv
			missing[i] = v == nil
		}
		b.add(NewFloatColumn(name, out, missing))
	case KindBool:
		out := make([]bool, n)
		for i, v := range values {
			bv, ok := v.(bool)
			if !ok && v != nil {
				b.AddTextColumn(name, stringify(values))
				return
			}
			out[i] = bv
			missing[i] = v == nil
		}
		b.add(NewBoolColumn(name, out, missing))
	case KindTime:
		out := make([]time.Time, n)
		for i, v := range values {
			tv, ok := v.(time.Time)
			if !ok && v != nil {
				b.AddTextColumn(name, stringify(values))
				return
			}
			out[i] = tv
			missing[i] = v == nil
		}
		b.add(NewTimeColumn(name, out, missing))
	default:
		out := make([]string, n)
		for i, v := range values {
			if v == nil {
				missing[i] = true
				continue
			}
			out[i] = toText(v)
		}
		b.add(NewStringColumn(name, out, missing))
	}
}

func (b *Builder) add(col *Column) {
	b.columns = append(b.columns, col.Categorize(b.opts.CategoricalMaxDistinct, b.opts.CategoricalMaxRatio))
}

// Build validates the columns and returns the dataset.
func (b *Builder) Build() (*Dataset, error) {
	return New(b.name, b.columns...)
}

func inferInt(name string, cells []string, missing []bool) *Column {
	out := make([]int64, len(cells))
	for i, cell := range cells {
		if missing[i] {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		if err != nil {
			return nil
		}
		out[i] = v
	}
	return NewIntColumn(name, out, missing)
}

func inferFloat(name string, cells []string, missing []bool) *Column {
	out := make([]float64, len(cells))
	for i, cell := range cells {
		if missing[i] {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil
		}
		out[i] = v
	}
	return NewFloatColumn(name, out, missing)
}

func inferBool(name string, cells []string, missing []bool) *Column {
	out := make([]bool, len(cells))
	for i, cell := range cells {
		if missing[i] {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "true":
			out[i] = true
		case "false":
		default:
			return nil
		}
	}
	return NewBoolColumn(name, out, missing)
}

func inferTime(name string, cells []string, missing []bool) *Column {
	out := make([]time.Time, len(cells))
	layout := ""
	for i, cell := range cells {
		if missing[i] {
			continue
		}
		cell = strings.TrimSpace(cell)
		if layout == "" {
			for _, l := range timeLayouts {
				if _, err := time.Parse(l, cell); err == nil {
					layout = l
					break
				}
			}
			if layout == "" {
				return nil
			}
		}
		t, err := time.Parse(layout, cell)
		if err != nil {
			return nil
		}
		out[i] = t
	}
	return NewTimeColumn(name, out, missing)
}

func kindOf(v interface{}) Kind {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return KindInt
	case float32, float64:
		return KindFloat
	case bool:
		return KindBool
	case time.Time:
		return KindTime
	default:
		return KindString
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, true
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	default:
		return 0, false
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return math.NaN(), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	default:
		if iv, ok := asInt64(v); ok {
			return float64(iv), true
		}
		return 0, false
	}
}

func stringify(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = toText(v)
		}
	}
	return out
}

func toText(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case float32:
		return FormatFloat(float64(val))
	case float64:
		return FormatFloat(val)
	case time.Time:
		return val.Format(TimeLayout)
	default:
		return fmt.Sprintf("%v", val)
	}
}
