package permit

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/util/command"
	"github/chapool/go-gasless/internal/wallet"
	"github/chapool/go-gasless/internal/wallet/address"
)

const (
	ownerFlag   string = "owner"
	spenderFlag string = "spender"
	valueFlag   string = "value"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("permit",
		newSign(),
		newTransfer(),
	)
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String(ownerFlag, "", "Permit owner (defaults to the first embedded wallet)")
	cmd.Flags().String(spenderFlag, "", "Permit spender (defaults to the smart wallet)")
	cmd.Flags().String(valueFlag, "", "Raw token amount (defaults to the full balance)")
}

func requestFromFlags(cmd *cobra.Command) (wallet.SignPermitRequest, error) {
	var req wallet.SignPermitRequest

	parseAddr := func(flag string) (*common.Address, error) {
		v, err := cmd.Flags().GetString(flag)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get %s flag", flag)
		}
		if v == "" {
			return nil, nil //nolint:nilnil // unset flag
		}

		addr, err := address.Parse(v)
		if err != nil {
			return nil, errors.Wrapf(err, "--%s", flag)
		}

		return &addr, nil
	}

	var err error
	if req.Owner, err = parseAddr(ownerFlag); err != nil {
		return req, err
	}
	if req.Spender, err = parseAddr(spenderFlag); err != nil {
		return req, err
	}

	value, err := cmd.Flags().GetString(valueFlag)
	if err != nil {
		return req, errors.Wrapf(err, "failed to get %s flag", valueFlag)
	}
	if value != "" {
		amount, ok := math.ParseBig256(value)
		if !ok || amount.Sign() < 0 {
			return req, errors.Errorf("--%s: invalid amount %q", valueFlag, value)
		}
		req.Amount = new(big.Int).Set(amount)
	}

	return req, nil
}
