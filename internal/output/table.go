package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/tablescope/internal/view"
)

// TableFormatter outputs rows as an aligned ASCII table.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format renders rows under a header of column names.
func (t *TableFormatter) Format(columns []string, rows []view.Record) error {
	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			v, _ := row.Get(col)
			cells[i] = formatValue(v)
		}
		table.Append(cells)
	}

	table.Render()
	return nil
}
