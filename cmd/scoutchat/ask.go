package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"scoutchat/internal/domain"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var co chatOptions

	cmd := &cobra.Command{
		Use:   "ask [--web] <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, opts, bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			conv, err := a.initConversation(co, cmd.Flags().Changed("web"), cmd.Flags().Changed("local-search"))
			if err != nil {
				return err
			}

			turn, err := conv.Submit(ctx, strings.Join(args, " "), conv.Web())
			if err != nil {
				return err
			}
			return printTurn(cmd, turn)
		},
	}

	addChatFlags(cmd, &co)
	return cmd
}

// printTurn writes the reply to stdout and search notices to stderr. A
// failed turn still prints its rendered reply, then returns an error so the
// process exits non-zero.
func printTurn(cmd *cobra.Command, turn *domain.Turn) error {
	if turn.Search.Failed() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: web search failed, answering without results: %s\n",
			domain.DetailOf(turn.Search.Err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), turn.Reply.Content)
	if turn.Failure != nil {
		return fmt.Errorf("model call failed (%s)", turn.Failure.Kind)
	}
	return nil
}
