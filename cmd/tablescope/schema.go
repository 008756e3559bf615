package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegasq/tablescope/internal/output"
	"github.com/vegasq/tablescope/internal/reader"
	"github.com/vegasq/tablescope/internal/view"
)

var schemaColumns = []string{"name", "type", "physical_type", "logical_type", "optional", "missing"}

func newSchemaCmd(a *app) *cobra.Command {
	var (
		format string
		sheet  string
	)

	cmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Show the inferred column types of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.cfg.ReaderOptions()
			opts.Sheet = sheet

			ds, infos, err := reader.DescribeFile(args[0], opts)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("file '%s' not found", args[0])
				}
				return err
			}

			rows := make([]view.Record, len(infos))
			for i, info := range infos {
				rows[i] = view.Record{
					Columns: schemaColumns,
					Values: []interface{}{
						info.Name, info.Type, info.PhysicalType, info.LogicalType, info.Optional, info.Missing,
					},
				}
			}

			formatter, err := output.NewFormatter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := formatter.Format(schemaColumns, rows); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			if strings.EqualFold(format, "table") {
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows\n", ds.Len())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, csv")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Workbook sheet for multi-sheet Excel files")
	return cmd
}
