package balance

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/metrics"
	"github/chapool/go-gasless/internal/util/command"
	"github/chapool/go-gasless/internal/wallet/address"
	"github/chapool/go-gasless/internal/wallet/balance"
)

const (
	jsonFlag string = "json"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance <address>",
		Short: "Prints the token balance of an address",
		Long:  `Reads balanceOf and decimals of the configured token. The keystore is not needed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, err := cmd.Flags().GetBool(jsonFlag)
			if err != nil {
				return errors.Wrapf(err, "failed to get %s flag", jsonFlag)
			}

			return runBalance(cmd.Context(), config.DefaultServiceConfigFromEnv(), args[0], asJSON)
		},
	}

	cmd.Flags().Bool(jsonFlag, false, "Print the balance as JSON")

	return cmd
}

func runBalance(ctx context.Context, cfg config.Server, owner string, asJSON bool) error {
	command.SetupLogger(cfg)

	addr, err := address.Parse(owner)
	if err != nil {
		return err
	}

	if !address.IsValid(cfg.Chain.TokenAddress) {
		return errors.Errorf("invalid token address %q", cfg.Chain.TokenAddress)
	}

	client, err := api.NewRPCClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	m, err := metrics.New(cfg)
	if err != nil {
		return err
	}

	b, err := balance.NewService(api.NewReader(client, m)).GetTokenBalance(ctx, address.MustParse(cfg.Chain.TokenAddress), addr)
	if err != nil {
		return err
	}

	if asJSON {
		return command.PrintJSON(b)
	}

	//nolint:forbidigo // CLI output
	fmt.Printf("%s (%s raw, %d decimals)\n", b.Formatted, b.Raw, b.Decimals)

	return nil
}
