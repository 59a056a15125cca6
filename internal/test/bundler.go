package test

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/wallet/batch"
	"github/chapool/go-gasless/internal/wallet/signer"
)

var (
	DefaultEntryPoint       = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	DefaultPaymasterAndData = common.FromHex("0x00000f79b7faf42eebadba19acc07cd08af447890000000000000000000000000000000000000000000000000000000000000000")
)

// Bundler is an in-process ERC-4337 bundler and paymaster in front of a TokenChain.
// It checks the account owner's signature over the user operation hash and executes
// the operation's calls on the chain.
type Bundler struct {
	mu sync.Mutex

	Chain      *TokenChain
	EntryPoint common.Address
	// Owners maps smart accounts to their owner EOA
	Owners map[common.Address]common.Address

	// RejectSponsorship makes pm_sponsorUserOperation fail
	RejectSponsorship bool
	// PendingPolls is the number of receipt polls answered with null
	PendingPolls int

	SponsorContexts []map[string]interface{}
	Operations      []batch.UserOperation

	accountNonces map[common.Address]*big.Int
	receipts      map[common.Hash]*batch.UserOperationReceipt
	polls         map[common.Hash]int
	server        *rpc.Server
}

func NewBundler(t *testing.T, chain *TokenChain, owners map[common.Address]common.Address) *Bundler {
	t.Helper()

	b := &Bundler{
		Chain:         chain,
		EntryPoint:    DefaultEntryPoint,
		Owners:        owners,
		accountNonces: make(map[common.Address]*big.Int),
		receipts:      make(map[common.Hash]*batch.UserOperationReceipt),
		polls:         make(map[common.Hash]int),
	}

	b.server = rpc.NewServer()
	if err := b.server.RegisterName("eth", &bundlerAPI{b}); err != nil {
		t.Fatalf("failed to register bundler api: %v", err)
	}
	if err := b.server.RegisterName("pm", &paymasterAPI{b}); err != nil {
		t.Fatalf("failed to register paymaster api: %v", err)
	}

	t.Cleanup(b.server.Stop)

	return b
}

// Client returns an in-process JSON-RPC client to the bundler.
func (b *Bundler) Client(t *testing.T) *rpc.Client {
	t.Helper()

	c := rpc.DialInProc(b.server)
	t.Cleanup(c.Close)

	return c
}

// CallContract answers EntryPoint.getNonce, everything else goes to the token chain.
func (b *Bundler) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if msg.To == nil || *msg.To != b.EntryPoint {
		return b.Chain.CallContract(ctx, msg, blockNumber)
	}

	const selectorAndAddress = 4 + 32
	if len(msg.Data) < selectorAndAddress {
		return nil, errors.New("short getNonce calldata")
	}

	sender := common.BytesToAddress(msg.Data[4:selectorAndAddress])

	b.mu.Lock()
	nonce := get(b.accountNonces, sender)
	b.mu.Unlock()

	return batch.EncodeNonceResult(nonce)
}

// SuggestFees returns fixed fee caps.
func (b *Bundler) SuggestFees(_ context.Context) (*big.Int, *big.Int, error) {
	return big.NewInt(2_000_000_000), big.NewInt(1_000_000_000), nil
}

func (b *Bundler) AccountNonce(account common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return new(big.Int).Set(get(b.accountNonces, account))
}

type bundlerAPI struct {
	b *Bundler
}

func (api *bundlerAPI) SupportedEntryPoints() []common.Address {
	return []common.Address{api.b.EntryPoint}
}

func (api *bundlerAPI) SendUserOperation(op batch.UserOperation, entryPoint common.Address) (common.Hash, error) {
	b := api.b

	b.mu.Lock()
	defer b.mu.Unlock()

	if entryPoint != b.EntryPoint {
		return common.Hash{}, errors.Errorf("unsupported entry point %s", entryPoint.Hex())
	}

	if len(op.PaymasterAndData) == 0 {
		return common.Hash{}, errors.New("AA21 didn't pay prefund")
	}

	if expected := get(b.accountNonces, op.Sender); expected.Cmp(op.Nonce) != 0 {
		return common.Hash{}, errors.Errorf("AA25 invalid account nonce: expected %s", expected)
	}

	hash, err := op.Hash(b.EntryPoint, b.Chain.ChainID)
	if err != nil {
		return common.Hash{}, err
	}

	recovered, err := signer.RecoverMessage(hash.Bytes(), op.Signature)
	if err != nil || recovered != b.Owners[op.Sender] {
		return common.Hash{}, errors.New("AA24 signature error")
	}

	b.Operations = append(b.Operations, op)
	b.accountNonces[op.Sender] = new(big.Int).Add(op.Nonce, big.NewInt(1))

	receipt := &batch.UserOperationReceipt{UserOpHash: hash, Success: true}

	calls, err := batch.DecodeExecution(op.CallData)
	if err != nil {
		receipt.Success = false
		receipt.Reason = err.Error()
	} else if txID, err := b.Chain.Execute(op.Sender, calls); err != nil {
		receipt.Success = false
		receipt.Reason = err.Error()
	} else {
		receipt.Receipt.TransactionHash = common.HexToHash(txID.String())
	}

	b.receipts[hash] = receipt

	return hash, nil
}

func (api *bundlerAPI) GetUserOperationReceipt(hash common.Hash) (*batch.UserOperationReceipt, error) {
	b := api.b

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.polls[hash] < b.PendingPolls {
		b.polls[hash]++
		return nil, nil //nolint:nilnil // null result means pending
	}

	return b.receipts[hash], nil
}

type paymasterAPI struct {
	b *Bundler
}

func (api *paymasterAPI) SponsorUserOperation(
	op batch.UserOperation,
	entryPoint common.Address,
	sponsorContext map[string]interface{},
) (*batch.SponsorResult, error) {
	b := api.b

	b.mu.Lock()
	defer b.mu.Unlock()

	b.SponsorContexts = append(b.SponsorContexts, sponsorContext)

	if b.RejectSponsorship {
		return nil, errors.New("policy rejected user operation")
	}

	if entryPoint != b.EntryPoint {
		return nil, errors.Errorf("unsupported entry point %s", entryPoint.Hex())
	}

	if len(op.Signature) == 0 {
		return nil, errors.New("missing dummy signature")
	}

	gas := func(v int64) *hexutil.Big { return (*hexutil.Big)(big.NewInt(v)) }

	return &batch.SponsorResult{
		PaymasterAndData:     DefaultPaymasterAndData,
		CallGasLimit:         gas(200_000),
		VerificationGasLimit: gas(150_000),
		PreVerificationGas:   gas(50_000),
	}, nil
}
