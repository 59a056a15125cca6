package permit

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util/command"
	"github/chapool/go-gasless/internal/wallet"
)

func newSign() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Signs a permit and prints it as JSON",
		Long:  `Signs an EIP-2612 permit without submitting it. The output can be posted to /api/v1/permits/submit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}

			return runSign(cmd.Context(), config.DefaultServiceConfigFromEnv(), req)
		},
	}

	addRequestFlags(cmd)

	return cmd
}

func runSign(ctx context.Context, cfg config.Server, req wallet.SignPermitRequest) error {
	return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		p, err := s.Wallet.SignPermit(ctx, req)
		if err != nil {
			return err
		}

		return command.PrintJSON(p)
	})
}
