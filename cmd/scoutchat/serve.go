package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scoutchat/internal/adapter/httpapi"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the search proxy HTTP server",
		Long: `Run the search proxy. POST /api/search takes {"query": "..."} and
returns {"content": "..."} scraped from the configured search engine.
Blocks until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, opts, bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			searcher, err := a.initLocalSearcher()
			if err != nil {
				return err
			}

			srv, err := httpapi.NewServer(a.cfg.Server, searcher, a.log)
			if err != nil {
				return fmt.Errorf("server: %w", err)
			}
			if err := srv.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "search proxy listening on %s\n", srv.Addr())

			<-ctx.Done()
			a.log.Info("shutting down search proxy")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
