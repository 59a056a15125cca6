package balance_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/wallet/balance"
)

func TestFormat(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	tests := []struct {
		name     string
		raw      *big.Int
		decimals uint8
		want     string
	}{
		{"one and a half", big.NewInt(1_500_000), 6, "1.500"},
		{"zero with 18 decimals", big.NewInt(0), 18, "0.000"},
		{"nil", nil, 6, "0.000"},
		{"rounds half up", big.NewInt(1_234_500), 6, "1.235"},
		{"rounds down", big.NewInt(1_234_499), 6, "1.234"},
		{"dust rounds to zero", big.NewInt(499), 6, "0.000"},
		{"dust rounds up", big.NewInt(500), 6, "0.001"},
		{"no decimals", big.NewInt(42), 0, "42.000"},
		{"large 18 decimals", huge, 18, "123456789012.346"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, balance.Format(tt.raw, tt.decimals))
		})
	}
}

func TestParseUnits(t *testing.T) {
	v, err := balance.ParseUnits("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, "1500000", v.String())

	v, err = balance.ParseUnits(" 0.000001 ", 6)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	v, err = balance.ParseUnits("2.50", 1)
	require.NoError(t, err)
	assert.Equal(t, "25", v.String())

	for _, bad := range []string{"", "abc", "-1", "0.0000001", "1e80"} {
		_, err := balance.ParseUnits(bad, 6)
		require.ErrorIs(t, err, balance.ErrInvalidAmount, bad)
	}
}
