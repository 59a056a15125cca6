package balance

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github/chapool/go-gasless/internal/wallet/token"
)

// DisplayPrecision is the number of fractional digits shown to users.
const DisplayPrecision = 3

var ErrInvalidAmount = errors.New("invalid amount")

// Format renders raw token units with exactly three fractional digits,
// rounding half up: Format(1500000, 6) == "1.500". A nil raw formats as zero.
func Format(raw *big.Int, decimals uint8) string {
	if raw == nil {
		raw = new(big.Int)
	}

	return decimal.NewFromBigInt(raw, -int32(decimals)).StringFixed(DisplayPrecision)
}

// ParseUnits converts a decimal string into raw token units. Amounts with more
// fractional digits than decimals, negative amounts and amounts beyond uint256
// are rejected.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errors.Wrap(ErrInvalidAmount, "empty amount")
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAmount, "%q is not a decimal number", amount)
	}

	if d.IsNegative() {
		return nil, errors.Wrapf(ErrInvalidAmount, "%q is negative", amount)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, errors.Wrapf(ErrInvalidAmount, "%q has more than %d fractional digits", amount, decimals)
	}

	raw := shifted.BigInt()
	if err := token.CheckUint256(raw); err != nil {
		return nil, errors.Wrap(ErrInvalidAmount, err.Error())
	}

	return raw, nil
}
