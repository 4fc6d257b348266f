package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scoutchat/internal/infra/config"
)

func newEncryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a secret for the config file",
		Long: fmt.Sprintf(`Encrypt a value with the passphrase in %s. Paste the printed
enc: value into scoutchat.yaml (for example llm.api_key); it is decrypted
at load time when the same passphrase is set.`, config.ConfigKeyEnv),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := os.Getenv(config.ConfigKeyEnv)
			if passphrase == "" {
				return fmt.Errorf("%s is not set", config.ConfigKeyEnv)
			}
			enc, err := config.EncryptValue(args[0], passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "enc:"+enc)
			return nil
		},
	}
}
