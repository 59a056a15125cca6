package keystore

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util/command"
	"github/chapool/go-gasless/internal/wallet"
	"github/chapool/go-gasless/internal/wallet/keystore"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

func newCreate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Creates an encrypted keystore from a BIP39 mnemonic",
		Long: `Prompts for a BIP39 mnemonic and a password and writes the encrypted
keystore to GASLESS_WALLET_KEYSTORE_PATH (or --path). An existing keystore is never overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()

			path, err := cmd.Flags().GetString(pathFlag)
			if err != nil {
				return errors.Wrapf(err, "failed to get %s flag", pathFlag)
			}
			if path != "" {
				cfg.Wallet.KeystorePath = path
			}

			return runCreate(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String(pathFlag, "", "Keystore file (defaults to GASLESS_WALLET_KEYSTORE_PATH)")

	return cmd
}

func runCreate(ctx context.Context, cfg config.Server) error {
	command.SetupLogger(cfg)

	mnemonic, err := wallet.PromptPassword("Enter mnemonic: ")
	if err != nil {
		return err
	}

	password, err := wallet.PromptPassword("Enter keystore password: ")
	if err != nil {
		return err
	}

	confirm, err := wallet.PromptPassword("Confirm keystore password: ")
	if err != nil {
		return err
	}

	if password != confirm {
		return ErrPasswordMismatch
	}

	ks, err := wallet.CreateKeystore(ctx, keystore.NewService(cfg.Wallet.KeystorePath, keystore.DefaultScryptParams()), mnemonic, password)
	if err != nil {
		return errors.Wrap(err, "failed to create keystore")
	}

	log.Info().Str("path", ks.Path).Msg("Keystore created")

	//nolint:forbidigo // CLI output
	fmt.Printf("Keystore written to %s\n", ks.Path)

	return nil
}
