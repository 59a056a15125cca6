package transfer

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util/command"
	"github/chapool/go-gasless/internal/wallet/address"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <to> <amount>",
		Short: "Transfers tokens from the smart wallet",
		Long: `Submits a sponsored token transfer from the smart wallet.
The amount is given in token units, e.g. "1.5".`,
		Args: cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd.Context(), config.DefaultServiceConfigFromEnv(), args[0], args[1])
		},
	}
}

func runTransfer(ctx context.Context, cfg config.Server, to string, amount string) error {
	recipient, err := address.Parse(to)
	if err != nil {
		return err
	}

	return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		id, err := s.Wallet.Transfer(ctx, recipient, amount)
		if err != nil {
			return err
		}

		//nolint:forbidigo // CLI output
		fmt.Println(id.String())

		return nil
	})
}
