package batch_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/test"
	"github/chapool/go-gasless/internal/wallet/batch"
	"github/chapool/go-gasless/internal/wallet/token"
)

func TestUserOperationHashCoversEveryField(t *testing.T) {
	base := batch.UserOperation{
		Sender:               test.SmartAccount,
		Nonce:                big.NewInt(1),
		CallData:             []byte{0x01},
		CallGasLimit:         big.NewInt(2),
		VerificationGasLimit: big.NewInt(3),
		PreVerificationGas:   big.NewInt(4),
		MaxFeePerGas:         big.NewInt(5),
		MaxPriorityFeePerGas: big.NewInt(6),
		PaymasterAndData:     []byte{0x07},
		Signature:            []byte{0x08},
	}

	h0, err := base.Hash(test.DefaultEntryPoint, test.BaseSepoliaChainID)
	require.NoError(t, err)

	// the signature is not part of the hash
	signed := base
	signed.Signature = []byte{0x09}
	h1, err := signed.Hash(test.DefaultEntryPoint, test.BaseSepoliaChainID)
	require.NoError(t, err)
	assert.Equal(t, h0, h1)

	changed := base
	changed.Nonce = big.NewInt(2)
	h2, err := changed.Hash(test.DefaultEntryPoint, test.BaseSepoliaChainID)
	require.NoError(t, err)
	assert.NotEqual(t, h0, h2)

	h3, err := base.Hash(test.DefaultEntryPoint, big.NewInt(1))
	require.NoError(t, err)
	assert.NotEqual(t, h0, h3)
}

func TestUserOperationJSONUsesHex(t *testing.T) {
	op := batch.UserOperation{Sender: test.SmartAccount, Nonce: big.NewInt(255)}

	raw, err := json.Marshal(op)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"nonce":"0xff"`)
	assert.Contains(t, string(raw), `"initCode":"0x"`)
	assert.Contains(t, string(raw), `"callGasLimit":"0x0"`)
}

func TestExecutionEncoding(t *testing.T) {
	to := common.HexToAddress("0x0000000000000000000000000000000000000001")
	a, err := token.Transfer(test.DefaultTokenAddress, to, big.NewInt(1))
	require.NoError(t, err)
	b, err := token.Name(test.DefaultTokenAddress)
	require.NoError(t, err)

	single, err := batch.EncodeExecution([]token.EncodedCall{a})
	require.NoError(t, err)
	decoded, err := batch.DecodeExecution(single)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.True(t, a.Equal(decoded[0]))

	multi, err := batch.EncodeExecution([]token.EncodedCall{b, a})
	require.NoError(t, err)
	decoded, err = batch.DecodeExecution(multi)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.True(t, b.Equal(decoded[0]))
	assert.True(t, a.Equal(decoded[1]))

	_, err = batch.EncodeExecution(nil)
	require.ErrorIs(t, err, batch.ErrEmptyBatch)
}
