package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/tablescope/internal/dataset"
)

// ColumnInfo describes one loaded column.
type ColumnInfo struct {
	Name string `json:"name"`

	// Type is the inferred dataset kind.
	Type string `json:"type"`

	// PhysicalType and LogicalType are only set for parquet sources.
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	Optional     bool   `json:"optional"`

	Missing int `json:"missing"`
}

// Describe returns the column layout of ds. When schema is non-nil its
// storage types are attached to the matching columns.
func Describe(ds *dataset.Dataset, schema *parquet.Schema) []ColumnInfo {
	infos := make([]ColumnInfo, 0, ds.NumColumns())
	for _, col := range ds.Columns() {
		missing := 0
		for i := 0; i < col.Len(); i++ {
			if col.IsMissing(i) {
				missing++
			}
		}

		info := ColumnInfo{
			Name:    col.Name(),
			Type:    col.Kind().String(),
			Missing: missing,
		}
		if schema != nil {
			if leaf, ok := schema.Lookup(strings.Split(col.Name(), ".")...); ok {
				info.PhysicalType = physicalType(leaf.Node)
				info.LogicalType = logicalType(leaf.Node)
				info.Optional = leaf.Node.Optional()
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// DescribeFile loads the file at path and describes its columns.
func DescribeFile(path string, opts Options) (*dataset.Dataset, []ColumnInfo, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}

	if format != FormatParquet {
		ds, err := ReadFile(path, opts)
		if err != nil {
			return nil, nil, err
		}
		return ds, Describe(ds, nil), nil
	}

	r, err := NewReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = r.Close() }()

	ds, err := r.ReadAll(filepath.Base(path), opts.withDefaults().Build)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read parquet file: %w", err)
	}
	return ds, Describe(ds, r.Schema()), nil
}

// physicalType returns the physical type name of a parquet leaf.
func physicalType(node parquet.Node) string {
	if node.Type() == nil {
		return "GROUP"
	}

	switch node.Type().Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// logicalType returns the logical type name of a parquet leaf, or "".
func logicalType(node parquet.Node) string {
	if node.Type() == nil {
		return ""
	}
	lt := node.Type().LogicalType()
	if lt == nil {
		return ""
	}
	return lt.String()
}
