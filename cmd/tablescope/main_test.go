package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/tablescope/internal/query"
	"github.com/vegasq/tablescope/internal/reader"
)

const peopleCSV = "name,age,city\nAnna,30,Oslo\nBen,25,Bergen\nCleo,41,Oslo\nDora,30,Oslo\n"

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(peopleCSV), 0o600))
	return path
}

// run executes the CLI with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestQuery_CSV(t *testing.T) {
	path := writeCSV(t)

	out, _, err := run(t, "query", path, "-q", `city = "Oslo"`, "--sort", "age", "--desc", "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, "name,age,city\nCleo,41,Oslo\nAnna,30,Oslo\nDora,30,Oslo\n", out)
}

func TestQuery_ContainsAndNegation(t *testing.T) {
	path := writeCSV(t)

	out, _, err := run(t, "query", path, "-q", `city = "Oslo" AND name !~ "or"`, "--sort", "age", "--desc", "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, "name,age,city\nCleo,41,Oslo\nAnna,30,Oslo\n", out)
}

func TestQuery_JSONPaging(t *testing.T) {
	path := writeCSV(t)

	out, _, err := run(t, "query", path, "--page", "2", "--page-size", "3", "-f", "json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Dora","age":30,"city":"Oslo"}`+"\n", out)
}

func TestQuery_Table(t *testing.T) {
	path := writeCSV(t)

	out, _, err := run(t, "query", path, "-q", `name = "Ben"`)
	require.NoError(t, err)
	assert.Contains(t, out, "Ben")
	assert.Contains(t, out, "Bergen")
	assert.NotContains(t, out, "Anna")
}

func TestQuery_Count(t *testing.T) {
	path := writeCSV(t)

	out, _, err := run(t, "query", path, "-q", `COUNT(age = "30")`)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestQuery_FaultShowsAllRows(t *testing.T) {
	path := writeCSV(t)

	out, stderr, err := run(t, "query", path, "-q", strings.Repeat(`age = "30" AND `, query.MaxTokens), "-f", "csv")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Warning:")
	assert.Equal(t, 5, strings.Count(out, "\n"))
}

func TestQuery_Errors(t *testing.T) {
	_, _, err := run(t, "query", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, _, err = run(t, "query", "notes.txt")
	assert.ErrorIs(t, err, reader.ErrUnsupportedFormat)

	_, _, err = run(t, "query", writeCSV(t), "--page", "0")
	assert.Error(t, err)

	_, _, err = run(t, "query", writeCSV(t), "-f", "xml")
	assert.Error(t, err)

	_, _, err = run(t, "query")
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	path := writeCSV(t)

	out, _, err := run(t, "analyze", path, "--column", "city", "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, "city,count\nOslo,3\nBergen,1\n", out)

	out, _, err = run(t, "analyze", path, "--column", "age", "-q", `city = "Oslo"`, "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, "age,count\n30,2\n41,1\n", out)

	_, _, err = run(t, "analyze", path, "--column", "country")
	assert.Error(t, err)

	_, _, err = run(t, "analyze", path)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	path := writeCSV(t)
	dir := t.TempDir()

	out := filepath.Join(dir, "oslo.parquet")
	_, _, err := run(t, "export", path, "-q", `city = "Oslo"`, "-o", out)
	require.NoError(t, err)

	ds, err := reader.ReadFile(out, reader.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "city"}, ds.ColumnNames())
	assert.Equal(t, 3, ds.Len())

	csvOut := filepath.Join(dir, "all.csv")
	_, _, err = run(t, "export", path, "-o", csvOut)
	require.NoError(t, err)
	data, err := os.ReadFile(csvOut)
	require.NoError(t, err)
	assert.Equal(t, peopleCSV, string(data))

	xlsxOut := filepath.Join(dir, "ben.xlsx")
	_, _, err = run(t, "export", path, "-q", `name = "Ben"`, "-o", xlsxOut)
	require.NoError(t, err)
	ds, err = reader.ReadFile(xlsxOut, reader.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())

	_, _, err = run(t, "export", path, "-o", filepath.Join(dir, "out.pdf"))
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	path := writeCSV(t)

	out, _, err := run(t, "schema", path, "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, "name,type,physical_type,logical_type,optional,missing\n"+
		"name,string,,,False,0\n"+
		"age,int64,,,False,0\n"+
		"city,category,,,False,0\n", out)

	pq := filepath.Join(t.TempDir(), "people.parquet")
	_, _, err = run(t, "export", path, "-o", pq)
	require.NoError(t, err)

	out, _, err = run(t, "schema", pq)
	require.NoError(t, err)
	assert.Contains(t, out, "INT64")
	assert.Contains(t, out, "4 rows")
}
