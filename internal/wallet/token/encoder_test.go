package token_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/wallet/token"
)

var (
	tokenAddr = common.HexToAddress("0xf9FB20B8E097904f0aB7d12e9DbeE88f2dcd0F16")
	owner     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestSelectors(t *testing.T) {
	deadline := big.NewInt(1_700_000_000)

	tests := []struct {
		name     string
		build    func() (token.EncodedCall, error)
		selector string
	}{
		{token.MethodBalanceOf, func() (token.EncodedCall, error) { return token.BalanceOf(tokenAddr, owner) }, "70a08231"},
		{token.MethodDecimals, func() (token.EncodedCall, error) { return token.Decimals(tokenAddr) }, "313ce567"},
		{token.MethodName, func() (token.EncodedCall, error) { return token.Name(tokenAddr) }, "06fdde03"},
		{token.MethodNonces, func() (token.EncodedCall, error) { return token.Nonces(tokenAddr, owner) }, "7ecebe00"},
		{token.MethodTransfer, func() (token.EncodedCall, error) { return token.Transfer(tokenAddr, spender, big.NewInt(1)) }, "a9059cbb"},
		{token.MethodTransferFrom, func() (token.EncodedCall, error) {
			return token.TransferFrom(tokenAddr, owner, spender, big.NewInt(1))
		}, "23b872dd"},
		{token.MethodPermit, func() (token.EncodedCall, error) {
			return token.Permit(tokenAddr, owner, spender, big.NewInt(1), deadline, 27, [32]byte{1}, [32]byte{2})
		}, "d505accf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tokenAddr, call.To)
			assert.Equal(t, tt.selector, hex.EncodeToString(call.Selector()))

			name, err := token.Method(call.Selector())
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestTransferCalldata(t *testing.T) {
	call, err := token.Transfer(tokenAddr, spender, big.NewInt(1_500_000))
	require.NoError(t, err)

	want := "a9059cbb" +
		"0000000000000000000000002222222222222222222222222222222222222222" +
		"000000000000000000000000000000000000000000000000000000000016e360"
	assert.Equal(t, want, hex.EncodeToString(call.Data))
}

func TestEncodeErrors(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)

	tests := []struct {
		name   string
		method string
		args   []interface{}
	}{
		{"unknown method", "approve", []interface{}{spender, big.NewInt(1)}},
		{"transfer missing amount", token.MethodTransfer, []interface{}{spender}},
		{"transfer extra argument", token.MethodTransfer, []interface{}{spender, big.NewInt(1), big.NewInt(2)}},
		{"transferFrom missing recipient", token.MethodTransferFrom, []interface{}{owner, big.NewInt(1)}},
		{"address as string", token.MethodBalanceOf, []interface{}{"0x1111111111111111111111111111111111111111"}},
		{"amount as int", token.MethodTransfer, []interface{}{spender, 1}},
		{"nil amount", token.MethodTransfer, []interface{}{spender, (*big.Int)(nil)}},
		{"negative amount", token.MethodTransfer, []interface{}{spender, big.NewInt(-1)}},
		{"amount over 256 bits", token.MethodTransfer, []interface{}{spender, tooBig}},
		{"v as int", token.MethodPermit, []interface{}{owner, spender, big.NewInt(1), big.NewInt(1), 27, [32]byte{}, [32]byte{}}},
		{"r as slice", token.MethodPermit, []interface{}{owner, spender, big.NewInt(1), big.NewInt(1), uint8(27), []byte{1}, [32]byte{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := token.Encode(tokenAddr, tt.method, tt.args...)
			require.Error(t, err)

			var encErr *token.EncodingError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, tt.method, encErr.Method)
		})
	}
}

func TestMaxUint256Accepted(t *testing.T) {
	maxUint := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	_, err := token.Transfer(tokenAddr, spender, maxUint)
	require.NoError(t, err)
}

func TestDecodeCallRecoversArguments(t *testing.T) {
	call, err := token.TransferFrom(tokenAddr, owner, spender, big.NewInt(42))
	require.NoError(t, err)

	method, args, err := token.DecodeCall(call.Data)
	require.NoError(t, err)
	assert.Equal(t, token.MethodTransferFrom, method)
	require.Len(t, args, 3)
	assert.Equal(t, owner, args[0])
	assert.Equal(t, spender, args[1])
	assert.Equal(t, 0, big.NewInt(42).Cmp(args[2].(*big.Int))) //nolint:forcetypeassert
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := token.Decode(token.MethodBalanceOf, []byte{0x01, 0x02})
	require.Error(t, err)

	_, err = token.Decode(token.MethodName, common.FromHex("0x0000000000000000000000000000000000000000000000000000000000000020"))
	require.Error(t, err)

	_, err = token.Method([]byte{0xde, 0xad, 0xbe, 0xef})
	require.ErrorIs(t, err, token.ErrUnknownMethod)
}
