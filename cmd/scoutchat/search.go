package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"scoutchat/internal/domain"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		layout     string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search [--layout L] <query>",
		Short: "Run one search locally and print the scraped results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, opts, bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			searcher, err := a.initLocalSearcher()
			if err != nil {
				return err
			}

			resp, err := searcher.Search(ctx, domain.SearchRequest{
				Query:  strings.Join(args, " "),
				Layout: layout,
			})
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Fprint(cmd.OutOrStdout(), resp.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "Extraction layout (default: search.layout)")
	cmd.Flags().BoolVarP(&outputJSON, "json", "j", false, "Print the full response as JSON")
	return cmd
}
