package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vegasq/tablescope/internal/config"
	"github.com/vegasq/tablescope/internal/logging"
)

// app carries state shared by all subcommands.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tablescope",
		Short: "Explore tabular files with JQL filters",
		Long: `tablescope loads CSV, compressed CSV, Excel and Parquet files and filters
them with JQL, a small query language:

  city = "Oslo" AND age > 30
  COUNT(status ~ "fail")

Run "tablescope serve" for the HTTP API, or query files directly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.Log, cmd.ErrOrStderr())
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML config file")

	root.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newAnalyzeCmd(a),
		newExportCmd(a),
		newSchemaCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
