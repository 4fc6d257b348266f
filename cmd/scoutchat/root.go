package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"scoutchat/internal/infra/config"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "scoutchat",
		Short: "scoutchat - web search proxy and search-augmented chat",
		Long: `scoutchat scrapes a search engine with a headless browser and serves the
results over HTTP, then uses them to ground answers from any
OpenAI-compatible chat model.

  scoutchat serve                 # start the search proxy
  scoutchat chat --web            # chat in the terminal with web search on
  scoutchat ask --web "question"  # one-shot answer
  scoutchat search "query"        # print scraped results`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(opts.envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override logger.level (debug|info|warn|error)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before the config")

	root.AddCommand(
		newServeCmd(opts),
		newChatCmd(opts),
		newAskCmd(opts),
		newSearchCmd(opts),
		newEncryptCmd(),
		newDoctorCmd(opts),
	)
	return root
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is fine.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
