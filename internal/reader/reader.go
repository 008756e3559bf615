// Package reader loads uploaded tabular files into datasets.
//
// The format is chosen from the file name:
//
//	.csv        comma separated values with a header row
//	.csv.gz     gzip compressed CSV
//	.csv.zst    zstd compressed CSV
//	.xlsx       Excel workbook, one sheet
//	.parquet    Apache Parquet
//
// Text cells are typed per column by dataset.Builder. Parquet columns keep
// their physical types.
package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vegasq/tablescope/internal/dataset"
)

// ErrUnsupportedFormat is returned for file names with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrEmptyFile is returned when a file has no header row.
var ErrEmptyFile = errors.New("file has no header row")

// Format is an input file format.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatCSVGzip Format = "csv.gz"
	FormatCSVZstd Format = "csv.zst"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// DetectFormat returns the format implied by the extension of name.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.HasSuffix(lower, ".csv.gz"):
		return FormatCSVGzip, nil
	case strings.HasSuffix(lower, ".csv.zst"):
		return FormatCSVZstd, nil
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX, nil
	case strings.HasSuffix(lower, ".parquet"):
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(lower))
}

// Options controls how files are loaded.
type Options struct {
	// Sheet selects the workbook sheet. An empty name is only accepted for
	// single-sheet workbooks; an unknown name falls back to the first sheet.
	Sheet string

	// Build configures type inference and categorical promotion.
	Build dataset.BuildOptions
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{Build: dataset.DefaultBuildOptions()}
}

func (o Options) withDefaults() Options {
	if o.Build.CategoricalMaxDistinct == 0 && o.Build.NullValues == nil {
		o.Build = dataset.DefaultBuildOptions()
	}
	return o
}

// Load reads the file called name from r.
func Load(name string, r io.Reader, opts Options) (*dataset.Dataset, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	switch format {
	case FormatCSV:
		return readCSV(name, r, opts)
	case FormatCSVGzip:
		return readGzipCSV(name, r, opts)
	case FormatCSVZstd:
		return readZstdCSV(name, r, opts)
	case FormatXLSX:
		return readXLSX(name, r, opts)
	default:
		return readParquet(name, r, opts)
	}
}

// ReadFile loads the file at path.
func ReadFile(path string, opts Options) (*dataset.Dataset, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	if format == FormatParquet {
		opts = opts.withDefaults()
		r, err := NewReader(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		return r.ReadAll(filepath.Base(path), opts.Build)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(filepath.Base(path), f, opts)
}

// fromRecords builds a dataset from a header row and data rows. Short rows
// are padded with missing cells.
func fromRecords(name string, header []string, rows [][]string, opts Options) (*dataset.Dataset, error) {
	names := columnNames(header)
	cells := make([][]string, len(names))
	for c := range cells {
		cells[c] = make([]string, len(rows))
	}
	for r, row := range rows {
		for c := range names {
			if c < len(row) {
				cells[c][r] = row[c]
			}
		}
	}

	b := dataset.NewBuilder(name, opts.Build)
	for c, col := range names {
		b.AddTextColumn(col, cells[c])
	}
	return b.Build()
}

// columnNames names blank header cells "Unnamed: i" and suffixes repeated
// names with ".1", ".2" and so on.
func columnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		names[i] = name
	}
	return names
}
