// Package output renders query results.
//
// Formatters print pages of view records for the terminal:
//   - JSON Lines: One JSON object per line, keys in column order
//   - CSV: Comma-separated values with header row
//   - Table: aligned ASCII table
//
// Exporters write a whole dataset as a downloadable file (XLSX, CSV,
// Parquet).
//
// Example usage:
//
//	formatter := output.NewJSONFormatter(os.Stdout)
//	if err := formatter.Format(columns, rows); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vegasq/tablescope/internal/dataset"
	"github.com/vegasq/tablescope/internal/view"
)

// ErrUnknownFormat is returned for an unsupported formatter or export name.
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter defines the interface for output formatters.
type Formatter interface {
	// Format writes rows in the formatter's specific format. columns is the
	// header, so empty results still print one.
	Format(columns []string, rows []view.Record) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// NewFormatter returns the formatter called name: "json", "csv" or "table".
func NewFormatter(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case "json", "jsonl":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "table", "":
		return NewTableFormatter(w), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// formatValue converts a record value to the text the viewer shows.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return dataset.FormatFloat(val)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case time.Time:
		return val.Format(dataset.TimeLayout)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// sanitizeCell guards against CSV injection by prefixing characters that
// could trigger formula execution in spreadsheet applications.
func sanitizeCell(val string) string {
	if len(val) == 0 {
		return val
	}
	switch val[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		if _, err := strconv.ParseFloat(val, 64); err == nil {
			return val
		}
		return "'" + strings.ReplaceAll(val, "'", "''")
	}
	return val
}
