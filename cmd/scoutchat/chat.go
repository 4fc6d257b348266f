package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scoutchat/internal/adapter/tui/chat"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var co chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the terminal chat client",
		Long: `Start the full-screen chat client. With web mode on, each question is
first sent to the search proxy and the results are folded into the prompt.
Toggle web mode at any time with Ctrl+W or /web.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, opts, bootstrapOptions{interactive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			conv, err := a.initConversation(co, cmd.Flags().Changed("web"), cmd.Flags().Changed("local-search"))
			if err != nil {
				return err
			}

			return chat.NewApp(conv, a.cfg.LLM.Model, a.log).Run(ctx)
		},
	}

	addChatFlags(cmd, &co)
	return cmd
}

func addChatFlags(cmd *cobra.Command, co *chatOptions) {
	cmd.Flags().BoolVar(&co.web, "web", false, "Search the web before answering")
	cmd.Flags().BoolVar(&co.localSearch, "local-search", false, "Drive the browser in-process instead of calling the search proxy")
}
