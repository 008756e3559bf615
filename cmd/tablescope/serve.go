package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vegasq/tablescope/internal/explorer"
	"github.com/vegasq/tablescope/internal/query"
	"github.com/vegasq/tablescope/internal/server"
	"github.com/vegasq/tablescope/internal/session"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			sessionOpts := a.cfg.SessionOptions()
			sessionOpts.Logger = a.logger
			store := session.NewMemoryStore(sessionOpts)

			engine := query.NewEngine(a.cfg.QueryOptions(), a.logger)
			ex := explorer.New(store, engine, explorer.Options{
				PageSize:  a.cfg.Query.PageSize,
				TopValues: a.cfg.Query.TopValues,
				Logger:    a.logger,
			})

			srv, err := server.New(a.cfg, ex, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := srv.Close(); err != nil {
					a.logger.Warn("server: ingest pool did not drain", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
