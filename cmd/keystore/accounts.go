package keystore

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util/command"
)

func newAccounts() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Lists the accounts derived from the keystore",
		Long:  `Unlocks the keystore and prints the embedded wallets and the configured smart wallet. No RPC is needed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()

			path, err := cmd.Flags().GetString(pathFlag)
			if err != nil {
				return errors.Wrapf(err, "failed to get %s flag", pathFlag)
			}
			if path != "" {
				cfg.Wallet.KeystorePath = path
			}

			return runAccounts(cfg)
		},
	}

	cmd.Flags().String(pathFlag, "", "Keystore file (defaults to GASLESS_WALLET_KEYSTORE_PATH)")

	return cmd
}

func runAccounts(cfg config.Server) error {
	command.SetupLogger(cfg)

	keyring, err := api.NewKeyring(cfg)
	if err != nil {
		return err
	}

	for _, acc := range keyring.Accounts() {
		//nolint:forbidigo // CLI output
		fmt.Printf("%-9s %s\n", acc.ConnectorType, acc.Address.Hex())
	}

	return nil
}
