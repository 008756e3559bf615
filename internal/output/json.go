package output

import (
	"encoding/json"
	"io"

	"github.com/vegasq/tablescope/internal/view"
)

// JSONFormatter outputs rows as JSON Lines, one object per record with keys
// in dataset column order. Missing cells are empty strings.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes rows as JSON Lines. The header is implied by the keys of
// each record, so columns is unused.
func (j *JSONFormatter) Format(_ []string, rows []view.Record) error {
	encoder := json.NewEncoder(j.writer)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
