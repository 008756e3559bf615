package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegasq/tablescope/internal/dataset"
	"github.com/vegasq/tablescope/internal/output"
	"github.com/vegasq/tablescope/internal/query"
	"github.com/vegasq/tablescope/internal/reader"
	"github.com/vegasq/tablescope/internal/view"
)

// load reads path and applies jql. A query that cannot be evaluated selects
// every row and prints a warning.
func (a *app) load(cmd *cobra.Command, path, sheet, jql string) (*dataset.Dataset, query.Result, error) {
	opts := a.cfg.ReaderOptions()
	opts.Sheet = sheet

	ds, err := reader.ReadFile(path, opts)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, query.Result{}, fmt.Errorf("file '%s' not found", path)
		}
		return nil, query.Result{}, err
	}

	res := query.NewEngine(a.cfg.QueryOptions(), a.logger).Filter(ds, jql)
	if res.Fault != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v; showing all rows\n", res.Fault)
	}
	return ds, res, nil
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		jql      string
		sortCol  string
		desc     bool
		page     int
		pageSize int
		format   string
		sheet    string
	)

	cmd := &cobra.Command{
		Use:   "query <file>",
		Short: "Filter a file with JQL and print one page of rows",
		Example: `  tablescope query data.csv
  tablescope query -q 'city = "Oslo" AND name !~ "test"' --sort age --desc data.parquet
  tablescope query -q 'COUNT(status = "fail")' data.xlsx --sheet Results`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return fmt.Errorf("--page must be at least 1, got %d", page)
			}

			ds, res, err := a.load(cmd, args[0], sheet, jql)
			if err != nil {
				return err
			}

			if res.Count() {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d\n", res.Mask.Count())
				return err
			}

			if pageSize <= 0 {
				pageSize = a.cfg.Query.PageSize
			}
			p := view.Paginate(ds, res.Mask, view.Sort{Column: sortCol, Descending: desc}, page, pageSize)

			formatter, err := output.NewFormatter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := formatter.Format(ds.ColumnNames(), p.Rows); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			a.logger.Debug("query: page rendered",
				"total", p.TotalCount,
				"rows", len(p.Rows),
				"elapsed", res.Elapsed+p.Elapsed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&jql, "query", "q", "", "JQL filter")
	cmd.Flags().StringVar(&sortCol, "sort", "", "Sort column")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Rows per page (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, csv")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Workbook sheet for multi-sheet Excel files")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		jql    string
		column string
		limit  int
		format string
		sheet  string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Print the most frequent values of a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, res, err := a.load(cmd, args[0], sheet, jql)
			if err != nil {
				return err
			}

			if limit <= 0 {
				limit = a.cfg.Query.TopValues
			}
			stats, err := view.Analyze(ds, res.Mask, column, limit)
			if err != nil {
				return err
			}

			columns := []string{stats.Column, "count"}
			rows := make([]view.Record, len(stats.TopValues))
			for i, vc := range stats.TopValues {
				rows[i] = view.Record{Columns: columns, Values: []interface{}{vc.Value, vc.Count}}
			}

			formatter, err := output.NewFormatter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := formatter.Format(columns, rows); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			if strings.EqualFold(format, "table") {
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows, %d distinct values\n", stats.TotalRows, stats.DistinctCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&jql, "query", "q", "", "JQL filter")
	cmd.Flags().StringVar(&column, "column", "", "Column to analyse")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of values to show (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, csv")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Workbook sheet for multi-sheet Excel files")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		jql   string
		out   string
		sheet string
	)

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the rows selected by a JQL filter to xlsx, csv or parquet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
			switch format {
			case output.ExportXLSX, output.ExportCSV, output.ExportParquet:
			default:
				return fmt.Errorf("%w: %q (use .xlsx, .csv or .parquet)", output.ErrUnknownFormat, filepath.Ext(out))
			}

			ds, res, err := a.load(cmd, args[0], sheet, jql)
			if err != nil {
				return err
			}
			selected := ds.Filter(res.Mask)

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			if err := output.Export(f, selected, format); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to export: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close output: %w", err)
			}

			a.logger.Info("export: written", "file", out, "rows", selected.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&jql, "query", "q", "", "JQL filter")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (.xlsx, .csv or .parquet)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Workbook sheet for multi-sheet Excel files")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
