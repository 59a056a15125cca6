package chain_test

import (
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/test"
	"github/chapool/go-gasless/internal/wallet/chain"
)

func TestRPCClientFailover(t *testing.T) {
	tc := test.NewTokenChain(test.NewMockClock(), test.SmartAccount)
	tc.SetBalance(owner, big.NewInt(7))

	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()

	node := test.NewNode(t, tc, test.BaseSepoliaChainID)

	c, err := chain.NewRPCClient(t.Context(), []string{deadURL, node.URL})
	require.NoError(t, err)
	defer c.Close()

	chainID, err := c.ChainID(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "84532", chainID.String())

	bal, err := chain.NewReader(c, nil).ReadBalance(t.Context(), tc.Token, owner)
	require.NoError(t, err)
	assert.Equal(t, "7", bal.String())

	n, err := c.BlockNumber(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestRPCClientSuggestFees(t *testing.T) {
	tc := test.NewTokenChain(test.NewMockClock(), test.SmartAccount)
	node := test.NewNode(t, tc, test.BaseSepoliaChainID)

	c, err := chain.NewRPCClient(t.Context(), []string{node.URL})
	require.NoError(t, err)
	defer c.Close()

	maxFee, tip, err := c.SuggestFees(t.Context())
	require.NoError(t, err)
	assert.Equal(t, test.NodeTip.String(), tip.String())

	want := new(big.Int).Add(test.NodeTip, new(big.Int).Mul(test.NodeBaseFee, big.NewInt(2)))
	assert.Equal(t, want.String(), maxFee.String())
}

func TestRPCClientAllDown(t *testing.T) {
	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()

	c, err := chain.NewRPCClient(t.Context(), []string{deadURL})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ChainID(t.Context())
	require.ErrorIs(t, err, chain.ErrNoRPCClient)
}

func TestRPCClientRequiresURL(t *testing.T) {
	_, err := chain.NewRPCClient(t.Context(), nil)
	require.Error(t, err)
}
