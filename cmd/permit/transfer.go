package permit

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util/command"
	"github/chapool/go-gasless/internal/wallet"
)

func newTransfer() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Signs a permit and submits it with transferFrom",
		Long: `Signs an EIP-2612 permit and submits permit and transferFrom as one
sponsored batch. Prints the transaction id, the permit and the owner's new balance.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}

			return runTransfer(cmd.Context(), config.DefaultServiceConfigFromEnv(), req)
		},
	}

	addRequestFlags(cmd)

	return cmd
}

func runTransfer(ctx context.Context, cfg config.Server, req wallet.SignPermitRequest) error {
	return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		res, err := s.Wallet.PermitAndTransfer(ctx, req)
		if err != nil {
			return err
		}

		return command.PrintJSON(res)
	})
}
