package query

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/vegasq/tablescope/internal/dataset"
)

// newTestDataset builds a dataset from string columns. Empty cells are
// missing values.
func newTestDataset(t *testing.T, names []string, cols ...[]string) *dataset.Dataset {
	t.Helper()
	b := dataset.NewBuilder("test", dataset.BuildOptions{
		CategoricalMaxDistinct: dataset.DefaultCategoricalMaxDistinct,
		CategoricalMaxRatio:    dataset.DefaultCategoricalMaxRatio,
		NullValues:             []string{""},
	})
	for i, name := range names {
		b.AddTextColumn(name, cols[i])
	}
	ds, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build dataset: %v", err)
	}
	return ds
}

func TestMatcher_Operators(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"name"},
		[]string{"Anna", "Ben", "", "JOANNE"},
	)
	m := NewMatcher(true, DefaultNullMarkers)

	tests := []struct {
		name    string
		op      Operator
		literal string
		want    []bool
	}{
		{"equal", OpEqual, "Anna", []bool{true, false, false, false}},
		{"equal is case sensitive", OpEqual, "anna", []bool{false, false, false, false}},
		{"equal empty matches missing", OpEqual, "", []bool{false, false, true, false}},
		{"contains ignores case", OpContains, "AN", []bool{true, false, false, true}},
		{"contains never matches missing", OpContains, "", []bool{true, true, false, true}},
		{"not contains", OpNotContains, "an", []bool{false, true, true, false}},
		{"unknown operator selects all", Operator(">"), "x", []bool{true, true, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(ds, "name", tt.op, tt.literal).Bools()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Match(name %s %q) = %v, want %v", tt.op, tt.literal, got, tt.want)
			}
		})
	}
}

func TestMatcher_MissingColumnSelectsAll(t *testing.T) {
	ds := newTestDataset(t, []string{"a"}, []string{"1", "2", "3"})
	m := NewMatcher(true, DefaultNullMarkers)

	for _, op := range []Operator{OpEqual, OpContains, OpNotContains} {
		if got := m.Match(ds, "nope", op, "x"); got.Count() != 3 {
			t.Errorf("Match(nope %s) selected %d rows, want 3", op, got.Count())
		}
	}
}

func TestMatcher_ContainsComplement(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"city"},
		[]string{"Oslo", "", "Bergen", "oslo", "", "Trondheim"},
	)
	m := NewMatcher(true, DefaultNullMarkers)
	col, _ := ds.Column("city")

	contains := m.Match(ds, "city", OpContains, "os").Bools()
	notContains := m.Match(ds, "city", OpNotContains, "os").Bools()

	for i := range contains {
		if col.IsMissing(i) {
			if contains[i] || !notContains[i] {
				t.Errorf("row %d (missing): ~ = %v, !~ = %v; want false, true", i, contains[i], notContains[i])
			}
			continue
		}
		if contains[i] == notContains[i] {
			t.Errorf("row %d: ~ and !~ both %v", i, contains[i])
		}
	}
}

func TestMatcher_NullMarkers(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"v"},
		[]string{"nan", "None", "banana", "x"},
	)

	normalized := NewMatcher(true, DefaultNullMarkers)
	if got := normalized.Match(ds, "v", OpContains, "n").Bools(); !reflect.DeepEqual(got, []bool{false, false, true, false}) {
		t.Errorf("normalized ~ n = %v", got)
	}
	if got := normalized.Match(ds, "v", OpEqual, "").Bools(); !reflect.DeepEqual(got, []bool{true, true, false, false}) {
		t.Errorf("normalized = \"\" = %v", got)
	}

	raw := NewMatcher(false, nil)
	if got := raw.Match(ds, "v", OpContains, "n").Bools(); !reflect.DeepEqual(got, []bool{true, true, true, false}) {
		t.Errorf("raw ~ n = %v", got)
	}
}

func TestMatcher_TypedColumns(t *testing.T) {
	ds, err := dataset.New("typed",
		dataset.NewIntColumn("age", []int64{30, 25, 30}, nil),
		dataset.NewFloatColumn("score", []float64{30, 2.5, 1}, nil),
		dataset.NewBoolColumn("active", []bool{true, false, true}, []bool{false, false, true}),
		dataset.NewCategoricalColumn("status", []string{"open", "closed"}, []int32{0, 1, -1}),
	)
	if err != nil {
		t.Fatal(err)
	}
	m := NewMatcher(true, DefaultNullMarkers)

	tests := []struct {
		column  string
		op      Operator
		literal string
		want    []bool
	}{
		{"age", OpEqual, "30", []bool{true, false, true}},
		{"score", OpEqual, "30.0", []bool{true, false, false}},
		{"score", OpContains, ".5", []bool{false, true, false}},
		{"active", OpEqual, "True", []bool{true, false, false}},
		{"active", OpNotContains, "true", []bool{false, true, true}},
		{"status", OpContains, "OPEN", []bool{true, false, false}},
		{"status", OpNotContains, "open", []bool{false, true, true}},
		{"status", OpEqual, "", []bool{false, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.column+string(tt.op)+tt.literal, func(t *testing.T) {
			got := m.Match(ds, tt.column, tt.op, tt.literal).Bools()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Match(%s %s %q) = %v, want %v", tt.column, tt.op, tt.literal, got, tt.want)
			}
		})
	}
}

func TestEngine_Filter(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"name", "age", "status"},
		[]string{"Anna", "Ben", "Anna"},
		[]string{"30", "30", "25"},
		[]string{"open", "closed", "open"},
	)
	engine := NewEngine(DefaultOptions(), nil)

	tests := []struct {
		name  string
		query string
		want  []bool
	}{
		{"empty query", "", []bool{true, true, true}},
		{"no recognizable tokens", "show me everything", []bool{true, true, true}},
		{"status equality", `status = "open"`, []bool{true, false, true}},
		{"contains and equality", `name ~ "an" AND age = "30"`, []bool{true, false, false}},
		{"count wrapper", `COUNT(status = "closed")`, []bool{false, true, false}},
		{"stale column", `owner = "x" AND status = "open"`, []bool{true, false, true}},
		{"leading connector ignored", `OR status = "closed"`, []bool{false, true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Filter(ds, tt.query)
			if res.Fault != nil {
				t.Fatalf("Filter() fault = %v", res.Fault)
			}
			if got := res.Mask.Bools(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestEngine_LeftToRightFold(t *testing.T) {
	// Rows chosen so that strict left-to-right evaluation differs from
	// AND-before-OR precedence for "A OR B AND C".
	ds := newTestDataset(t,
		[]string{"a", "b", "c"},
		[]string{"1", "0", "0"},
		[]string{"0", "1", "0"},
		[]string{"0", "0", "1"},
	)
	engine := NewEngine(DefaultOptions(), nil)

	// row 0: A=1 B=0 C=0; precedence would give A OR (B AND C) = true.
	res := engine.Filter(ds, `a = "1" OR b = "1" AND c = "1"`)
	if got := res.Mask.Bools(); !reflect.DeepEqual(got, []bool{false, false, false}) {
		t.Errorf("A OR B AND C = %v, want ((A OR B) AND C)", got)
	}

	res = engine.Filter(ds, `a = "1" AND b = "0" OR c = "1"`)
	if got := res.Mask.Bools(); !reflect.DeepEqual(got, []bool{true, false, true}) {
		t.Errorf("A AND B OR C = %v, want ((A AND B) OR C)", got)
	}
}

func TestEngine_Grouping(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"a", "b", "c"},
		[]string{"1", "0", "0"},
		[]string{"0", "2", "0"},
		[]string{"0", "0", "3"},
	)
	query := `a = "1" AND (b = "2" OR c = "3")`

	flat := NewEngine(DefaultOptions(), nil).Filter(ds, query)
	if got := flat.Mask.Bools(); !reflect.DeepEqual(got, []bool{false, false, true}) {
		t.Errorf("flat: %v, want (a AND b) OR c", got)
	}

	opts := DefaultOptions()
	opts.Grouping = GroupingGrouped
	grouped := NewEngine(opts, nil).Filter(ds, query)
	if got := grouped.Mask.Bools(); !reflect.DeepEqual(got, []bool{false, false, false}) {
		t.Errorf("grouped: %v, want a AND (b OR c)", got)
	}

	leading := NewEngine(opts, nil).Filter(ds, `(b = "2" OR c = "3") AND a = "0"`)
	if got := leading.Mask.Bools(); !reflect.DeepEqual(got, []bool{false, true, true}) {
		t.Errorf("grouped leading: %v", got)
	}
}

func TestEngine_FaultFallsBackToAllRows(t *testing.T) {
	ds := newTestDataset(t, []string{"a"}, []string{"1", "2"})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	engine := NewEngine(DefaultOptions(), logger)

	res := engine.Filter(ds, strings.Repeat(`a = "1" AND `, MaxTokens))
	if res.Fault == nil {
		t.Fatal("expected a fault")
	}
	if !errors.Is(res.Fault, ErrQueryEvaluation) || !errors.Is(res.Fault, ErrTooManyTokens) {
		t.Errorf("Fault = %v, want ErrQueryEvaluation wrapping ErrTooManyTokens", res.Fault)
	}
	if res.Mask.Count() != 2 {
		t.Errorf("fallback mask selected %d rows, want 2", res.Mask.Count())
	}
	if !strings.Contains(buf.String(), "query: evaluation fault") {
		t.Errorf("fault was not logged: %s", buf.String())
	}

	ok := engine.Filter(ds, "")
	if ok.Fault != nil {
		t.Errorf("empty query should not fault: %v", ok.Fault)
	}
}

func TestEngine_PanicFallsBackToAllRows(t *testing.T) {
	ds := newTestDataset(t, []string{"a"}, []string{"1", "2", "3"})

	var buf bytes.Buffer
	engine := NewEngine(DefaultOptions(), slog.New(slog.NewJSONHandler(&buf, nil)))
	engine.evaluate = func(ds *dataset.Dataset, q *Query, m *Matcher, mode GroupingMode) *dataset.Mask {
		// Combining masks of different lengths panics.
		return dataset.NewMask(ds.Len(), true).And(dataset.NewMask(ds.Len()+1, true))
	}

	res := engine.Filter(ds, `a = "1"`)
	if !errors.Is(res.Fault, ErrQueryEvaluation) {
		t.Fatalf("Fault = %v, want ErrQueryEvaluation", res.Fault)
	}
	if res.Mask.Count() != 3 {
		t.Errorf("fallback mask selected %d rows, want 3", res.Mask.Count())
	}
	if res.Query == nil || len(res.Query.Tokens) != 1 {
		t.Errorf("Query = %+v, want the parsed query kept", res.Query)
	}
	if !strings.Contains(buf.String(), "query: evaluation fault") {
		t.Errorf("fault was not logged: %s", buf.String())
	}
}
