package test

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// Node base fee and tip answered by the test node.
var (
	NodeBaseFee = big.NewInt(1_000_000)
	NodeTip     = big.NewInt(100_000)
)

// NewNode serves a minimal Ethereum JSON-RPC node over HTTP: eth_chainId,
// eth_call (answered by caller), eth_blockNumber, eth_getBlockByNumber and
// eth_maxPriorityFeePerGas.
func NewNode(t *testing.T, caller ethereum.ContractCaller, chainID *big.Int) *httptest.Server {
	t.Helper()

	srv := rpc.NewServer()
	if err := srv.RegisterName("eth", &nodeAPI{caller: caller, chainID: chainID}); err != nil {
		t.Fatalf("failed to register node api: %v", err)
	}

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})

	return ts
}

type nodeAPI struct {
	caller  ethereum.ContractCaller
	chainID *big.Int
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
	Data  hexutil.Bytes   `json:"data"`
}

func (api *nodeAPI) ChainId() *hexutil.Big { //nolint:revive,stylecheck // JSON-RPC method name
	return (*hexutil.Big)(api.chainID)
}

func (api *nodeAPI) BlockNumber() hexutil.Uint64 {
	return 1
}

func (api *nodeAPI) MaxPriorityFeePerGas() *hexutil.Big {
	return (*hexutil.Big)(NodeTip)
}

func (api *nodeAPI) Call(ctx context.Context, args callArgs, _ string) (hexutil.Bytes, error) {
	data := args.Input
	if len(data) == 0 {
		data = args.Data
	}

	return api.caller.CallContract(ctx, ethereum.CallMsg{To: args.To, Data: data}, nil)
}

func (api *nodeAPI) GetBlockByNumber(_ string, _ bool) map[string]interface{} {
	return map[string]interface{}{
		"parentHash":       common.Hash{},
		"sha3Uncles":       types.EmptyUncleHash,
		"miner":            common.Address{},
		"stateRoot":        common.Hash{},
		"transactionsRoot": types.EmptyRootHash,
		"receiptsRoot":     types.EmptyRootHash,
		"logsBloom":        types.Bloom{},
		"difficulty":       (*hexutil.Big)(new(big.Int)),
		"number":           (*hexutil.Big)(big.NewInt(1)),
		"gasLimit":         hexutil.Uint64(30_000_000),
		"gasUsed":          hexutil.Uint64(0),
		"timestamp":        hexutil.Uint64(FixedNow.Unix()),
		"extraData":        hexutil.Bytes{},
		"mixHash":          common.Hash{},
		"nonce":            types.BlockNonce{},
		"baseFeePerGas":    (*hexutil.Big)(NodeBaseFee),
	}
}
