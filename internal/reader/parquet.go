package reader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/vegasq/tablescope/internal/dataset"
)

const readBatchSize = 1024

// Reader reads parquet files into datasets.
//
// It maintains both an OS file handle and a parquet file handle to enable
// proper resource cleanup.
type Reader struct {
	file   *os.File
	pqFile *parquet.File
}

// NewReader creates a new parquet reader for the specified file path.
//
// The file is opened and validated as a parquet file. Returns an error if
// the file doesn't exist or is not a valid parquet file.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &Reader{
		file:   file,
		pqFile: pqFile,
	}, nil
}

// ReadAll reads every row of the file into a dataset named name.
//
// Columns follow the schema's leaf order, or the order recorded under
// dataset.ColumnOrderKey when present. Nested leaves are named with dot
// notation (e.g. "address.street"). Null values are missing cells. For
// repeated leaves only the first value of each row is kept.
func (r *Reader) ReadAll(name string, opts dataset.BuildOptions) (*dataset.Dataset, error) {
	return readParquetFile(name, r.pqFile, opts)
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// Close closes the parquet reader and releases associated resources.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// readParquet buffers an uploaded parquet stream, which needs random access.
func readParquet(name string, r io.Reader, opts Options) (*dataset.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet upload: %w", err)
	}

	pqFile, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	return readParquetFile(name, pqFile, opts.Build)
}

type leaf struct {
	name   string
	node   parquet.Node
	values []interface{}
}

func readParquetFile(name string, pqFile *parquet.File, opts dataset.BuildOptions) (*dataset.Dataset, error) {
	schema := pqFile.Schema()

	var leaves []*leaf
	for _, path := range schema.Columns() {
		col, ok := schema.Lookup(path...)
		if !ok {
			return nil, fmt.Errorf("failed to resolve parquet column %q", strings.Join(path, "."))
		}
		for len(leaves) <= col.ColumnIndex {
			leaves = append(leaves, nil)
		}
		leaves[col.ColumnIndex] = &leaf{name: strings.Join(path, "."), node: col.Node}
	}

	reader := parquet.NewReader(pqFile)
	defer func() { _ = reader.Close() }()

	rows := make([]parquet.Row, readBatchSize)
	for {
		n, err := reader.ReadRows(rows)
		for _, row := range rows[:n] {
			appendRow(leaves, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
	}

	b := dataset.NewBuilder(name, opts)
	for _, l := range displayOrder(pqFile, leaves) {
		b.AddValueColumn(l.name, l.values)
	}
	return b.Build()
}

// displayOrder returns the leaves in the column order recorded by our own
// exporter, or in schema order for other files.
func displayOrder(pqFile *parquet.File, leaves []*leaf) []*leaf {
	byName := make(map[string]*leaf, len(leaves))
	ordered := make([]*leaf, 0, len(leaves))
	for _, l := range leaves {
		if l != nil {
			byName[l.name] = l
			ordered = append(ordered, l)
		}
	}

	value, ok := pqFile.Lookup(dataset.ColumnOrderKey)
	if !ok {
		return ordered
	}
	var names []string
	if err := json.Unmarshal([]byte(value), &names); err != nil || len(names) != len(ordered) {
		return ordered
	}

	recorded := make([]*leaf, len(names))
	for i, name := range names {
		l, ok := byName[name]
		if !ok {
			return ordered
		}
		recorded[i] = l
	}
	return recorded
}

func appendRow(leaves []*leaf, row parquet.Row) {
	seen := make([]bool, len(leaves))
	for _, v := range row {
		idx := v.Column()
		if idx < 0 || idx >= len(leaves) || leaves[idx] == nil || seen[idx] {
			continue
		}
		seen[idx] = true
		leaves[idx].values = append(leaves[idx].values, convertValue(leaves[idx].node, v))
	}
	// A repeated leaf with no values in this row still needs a cell.
	for idx, l := range leaves {
		if l != nil && !seen[idx] {
			l.values = append(l.values, nil)
		}
	}
}

// convertValue maps a parquet value to the Go value dataset.Builder expects,
// honouring the DATE and TIMESTAMP logical types.
func convertValue(node parquet.Node, v parquet.Value) interface{} {
	if v.IsNull() {
		return nil
	}

	var logical *format.LogicalType
	if t := node.Type(); t != nil {
		logical = t.LogicalType()
	}

	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		if logical != nil && logical.Date != nil {
			return time.Unix(int64(v.Int32())*86400, 0).UTC()
		}
		return int64(v.Int32())
	case parquet.Int64:
		if logical != nil && logical.Timestamp != nil {
			return timestamp(v.Int64(), logical.Timestamp.Unit)
		}
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

func timestamp(n int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Nanos != nil:
		return time.Unix(0, n).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(n).UTC()
	default:
		return time.UnixMilli(n).UTC()
	}
}
