package reader

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vegasq/tablescope/internal/dataset"
)

// MultipleSheetsError is returned when a workbook has several sheets and
// none was selected. The caller is expected to ask the user and retry with
// Options.Sheet set.
type MultipleSheetsError struct {
	Sheets []string
}

func (e *MultipleSheetsError) Error() string {
	return fmt.Sprintf("workbook has %d sheets, select one of: %s", len(e.Sheets), strings.Join(e.Sheets, ", "))
}

func readXLSX(name string, r io.Reader, opts Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	if opts.Sheet == "" && len(sheets) > 1 {
		return nil, &MultipleSheetsError{Sheets: sheets}
	}

	sheet := sheets[0]
	if slices.Contains(sheets, opts.Sheet) {
		sheet = opts.Sheet
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	return fromRecords(name, rows[0], rows[1:], opts)
}
