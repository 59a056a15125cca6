package probe

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/wallet/keystore"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs readiness probes",
		Long:  `This command checks the configuration, the keystore file and the chain RPC (chain id).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				return errors.Wrapf(err, "failed to get %s flag", verboseFlag)
			}

			return runReadiness(cmd.Context(), config.DefaultServiceConfigFromEnv(), verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runReadiness(ctx context.Context, cfg config.Server, verbose bool) error {
	report := func(name string, err error) {
		if !verbose {
			return
		}

		status := "ok"
		if err != nil {
			status = err.Error()
		}

		//nolint:forbidigo // CLI output
		fmt.Printf("%-10s %s\n", name, status)
	}

	err := cfg.Validate()
	report("config", err)
	if err != nil {
		return err
	}

	exists, err := keystore.NewService(cfg.Wallet.KeystorePath, keystore.DefaultScryptParams()).Exists(ctx)
	if err == nil && !exists {
		err = errors.Wrap(keystore.ErrNotFound, cfg.Wallet.KeystorePath)
	}
	report("keystore", err)
	if err != nil {
		return err
	}

	client, err := api.NewRPCClient(cfg)
	report("chain", err)
	if err != nil {
		return err
	}
	client.Close()

	return nil
}
