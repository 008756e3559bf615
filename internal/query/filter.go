package query

import (
	"strings"

	"github.com/vegasq/tablescope/internal/dataset"
)

// DefaultNullMarkers are cell texts treated as missing when null
// normalisation is enabled.
var DefaultNullMarkers = []string{"nan", "none", "null", "<na>", "nat"}

// Matcher evaluates single conditions against dataset columns.
type Matcher struct {
	normalize bool
	markers   map[string]bool
}

// NewMatcher creates a matcher. When normalize is set, cells whose text
// case-insensitively equals one of markers compare as missing.
func NewMatcher(normalize bool, markers []string) *Matcher {
	m := &Matcher{normalize: normalize, markers: make(map[string]bool, len(markers))}
	for _, marker := range markers {
		m.markers[strings.ToLower(marker)] = true
	}
	return m
}

// Match returns the selection mask of column OP literal over ds. A column
// absent from ds selects every row, as does an unknown operator.
func (m *Matcher) Match(ds *dataset.Dataset, column string, op Operator, literal string) *dataset.Mask {
	col, ok := ds.Column(column)
	if !ok {
		return dataset.NewMask(ds.Len(), true)
	}

	var test func(value string, present bool) bool
	switch op {
	case OpEqual:
		test = func(value string, _ bool) bool {
			return value == literal
		}
	case OpContains:
		needle := strings.ToLower(literal)
		test = func(value string, present bool) bool {
			return present && strings.Contains(strings.ToLower(value), needle)
		}
	case OpNotContains:
		needle := strings.ToLower(literal)
		test = func(value string, present bool) bool {
			return !(present && strings.Contains(strings.ToLower(value), needle))
		}
	default:
		return dataset.NewMask(ds.Len(), true)
	}

	if col.Kind() == dataset.KindCategorical {
		return m.matchCategorical(col, test)
	}

	mask := dataset.NewMask(col.Len(), false)
	for i := 0; i < col.Len(); i++ {
		value, present := m.project(col, i)
		if test(value, present) {
			mask.Set(i, true)
		}
	}
	return mask
}

// matchCategorical evaluates test once per dictionary entry and once for
// missing cells, then expands the results over the row codes.
func (m *Matcher) matchCategorical(col *dataset.Column, test func(string, bool) bool) *dataset.Mask {
	categories := col.Categories()
	results := make([]bool, len(categories))
	for code, value := range categories {
		if m.isMarker(value) {
			results[code] = test("", false)
		} else {
			results[code] = test(value, true)
		}
	}
	missingResult := test("", false)

	mask := dataset.NewMask(col.Len(), false)
	for i := 0; i < col.Len(); i++ {
		var hit bool
		if col.IsMissing(i) {
			hit = missingResult
		} else {
			hit = results[col.Code(i)]
		}
		if hit {
			mask.Set(i, true)
		}
	}
	return mask
}

// project returns the comparable text of row i and whether a value is
// present after normalisation.
func (m *Matcher) project(col *dataset.Column, i int) (string, bool) {
	if col.IsMissing(i) {
		return "", false
	}
	value := col.String(i)
	if m.isMarker(value) {
		return "", false
	}
	return value, true
}

func (m *Matcher) isMarker(value string) bool {
	return m.normalize && m.markers[strings.ToLower(value)]
}
