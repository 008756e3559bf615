package view

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/vegasq/tablescope/internal/dataset"
)

// Record is one output row: values in dataset column order. Missing cells
// hold the empty string.
type Record struct {
	Columns []string
	Values  []interface{}
}

// Get returns the value of a column.
func (r Record) Get(column string) (interface{}, bool) {
	for i, name := range r.Columns {
		if name == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the record as a map. Column order is lost.
func (r Record) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Columns))
	for i, name := range r.Columns {
		out[name] = r.Values[i]
	}
	return out
}

// MarshalJSON encodes the record as a JSON object whose keys follow the
// dataset column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(jsonValue(r.Values[i]))
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// jsonValue replaces values JSON cannot encode. Infinite floats are sent
// as their text form ("inf", "-inf").
func jsonValue(v interface{}) interface{} {
	if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return dataset.FormatFloat(f)
	}
	return v
}
