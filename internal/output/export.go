package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"github.com/vegasq/tablescope/internal/dataset"
)

// ExportSheet is the worksheet name used for XLSX exports.
const ExportSheet = "Results"

// Export formats.
const (
	ExportXLSX    = "xlsx"
	ExportCSV     = "csv"
	ExportParquet = "parquet"
)

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch format {
	case ExportCSV:
		return "text/csv"
	case ExportParquet:
		return "application/octet-stream"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Export writes ds to w in format: "xlsx", "csv" or "parquet".
func Export(w io.Writer, ds *dataset.Dataset, format string) error {
	switch strings.ToLower(format) {
	case ExportXLSX, "":
		return WriteXLSX(w, ds)
	case ExportCSV:
		return WriteCSV(w, ds)
	case ExportParquet:
		return WriteParquet(w, ds)
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// WriteCSV writes ds as CSV with a header row. Cells use the canonical text
// projection and are sanitised against formula injection.
func WriteCSV(w io.Writer, ds *dataset.Dataset) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(ds.ColumnNames()); err != nil {
		return err
	}

	cols := ds.Columns()
	record := make([]string, len(cols))
	for i := 0; i < ds.Len(); i++ {
		for c, col := range cols {
			record[c] = sanitizeCell(col.String(i))
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// WriteXLSX writes ds as a single-sheet workbook. Numbers and booleans keep
// their cell types; missing values are empty cells.
func WriteXLSX(w io.Writer, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(ExportSheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	names := ds.ColumnNames()
	header := make([]interface{}, len(names))
	for i, name := range names {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cols := ds.Columns()
	for i := 0; i < ds.Len(); i++ {
		row := make([]interface{}, len(cols))
		for c, col := range cols {
			row[c] = col.Value(i)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteParquet writes ds as a parquet file with one optional column per
// dataset column, typed by column kind. Categorical columns are written as
// strings and times as millisecond timestamps.
func WriteParquet(w io.Writer, ds *dataset.Dataset) error {
	group := make(parquet.Group, ds.NumColumns())
	for _, col := range ds.Columns() {
		group[col.Name()] = parquet.Optional(parquetNode(col.Kind()))
	}
	schema := parquet.NewSchema("tablescope", group)

	order, err := json.Marshal(ds.ColumnNames())
	if err != nil {
		return err
	}
	writer := parquet.NewWriter(w, schema, parquet.KeyValueMetadata(dataset.ColumnOrderKey, string(order)))

	// Group fields are sorted by name; leaf indexes follow that order.
	fields := schema.Fields()
	cols := make([]*dataset.Column, len(fields))
	for i, field := range fields {
		cols[i], _ = ds.Column(field.Name())
	}

	rows := make([]parquet.Row, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		row := make(parquet.Row, len(cols))
		for c, col := range cols {
			row[c] = parquetValue(col, i).Level(0, definitionLevel(col, i), c)
		}
		rows = append(rows, row)
	}

	if _, err := writer.WriteRows(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func parquetNode(kind dataset.Kind) parquet.Node {
	switch kind {
	case dataset.KindInt:
		return parquet.Int(64)
	case dataset.KindFloat:
		return parquet.Leaf(parquet.DoubleType)
	case dataset.KindBool:
		return parquet.Leaf(parquet.BooleanType)
	case dataset.KindTime:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		return parquet.String()
	}
}

func definitionLevel(col *dataset.Column, i int) int {
	if col.IsMissing(i) {
		return 0
	}
	return 1
}

func parquetValue(col *dataset.Column, i int) parquet.Value {
	if col.IsMissing(i) {
		return parquet.NullValue()
	}
	switch col.Kind() {
	case dataset.KindInt:
		return parquet.Int64Value(col.Value(i).(int64))
	case dataset.KindFloat:
		return parquet.DoubleValue(col.Value(i).(float64))
	case dataset.KindBool:
		return parquet.BooleanValue(col.Value(i).(bool))
	case dataset.KindTime:
		return parquet.Int64Value(col.Time(i).UnixMilli())
	default:
		return parquet.ByteArrayValue([]byte(col.String(i)))
	}
}
