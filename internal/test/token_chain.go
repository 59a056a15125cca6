package test

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/wallet/batch"
	"github/chapool/go-gasless/internal/wallet/permit"
	"github/chapool/go-gasless/internal/wallet/token"
)

const (
	DefaultTokenName     = "Stable Coin"
	DefaultTokenDecimals = 6
)

var (
	DefaultTokenAddress = common.HexToAddress("0xf9FB20B8E097904f0aB7d12e9DbeE88f2dcd0F16")
	BaseSepoliaChainID  = big.NewInt(84532)

	ErrInjected = errors.New("injected failure")
)

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// TokenChain is an in-memory EIP-2612 token. It answers eth_calls like a node
// (ethereum.ContractCaller) and executes batches atomically (batch.Submitter)
// with real permit signature checks.
type TokenChain struct {
	mu sync.Mutex

	Token    common.Address
	Name     string
	Decimals uint8
	ChainID  *big.Int
	Version  string
	Clock    time2.Clock
	// Executor is msg.sender for batches passed to Submit
	Executor common.Address

	// CallErr fails every eth_call when set
	CallErr error
	// RawResults overrides the return data per method
	RawResults map[string][]byte
	// SubmitErr fails every submission when set
	SubmitErr error
	// SubmitDelay is the time between reading the executor's account nonce and
	// including the batch, like a bundler round trip
	SubmitDelay time.Duration

	balances   map[common.Address]*big.Int
	nonces     map[common.Address]*big.Int
	allowances map[allowanceKey]*big.Int
	reads      map[string]int
	batches    [][]token.EncodedCall
	txCount    uint64
	// accountNonce is the executor's EntryPoint nonce
	accountNonce uint64
}

func NewTokenChain(clock time2.Clock, executor common.Address) *TokenChain {
	return &TokenChain{
		Token:      DefaultTokenAddress,
		Name:       DefaultTokenName,
		Decimals:   DefaultTokenDecimals,
		ChainID:    new(big.Int).Set(BaseSepoliaChainID),
		Version:    "1",
		Clock:      clock,
		Executor:   executor,
		RawResults: make(map[string][]byte),
		balances:   make(map[common.Address]*big.Int),
		nonces:     make(map[common.Address]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		reads:      make(map[string]int),
	}
}

func (c *TokenChain) SetBalance(owner common.Address, v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balances[owner] = new(big.Int).Set(v)
}

func (c *TokenChain) SetNonce(owner common.Address, v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nonces[owner] = new(big.Int).Set(v)
}

func (c *TokenChain) Balance(owner common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return new(big.Int).Set(get(c.balances, owner))
}

func (c *TokenChain) Nonce(owner common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return new(big.Int).Set(get(c.nonces, owner))
}

func (c *TokenChain) Allowance(owner, spender common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return new(big.Int).Set(get(c.allowances, allowanceKey{owner, spender}))
}

// Reads returns how many eth_calls hit method.
func (c *TokenChain) Reads(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reads[method]
}

// Batches returns every batch passed to Submit, in order.
func (c *TokenChain) Batches() [][]token.EncodedCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]token.EncodedCall, len(c.batches))
	copy(out, c.batches)

	return out
}

func get[K comparable](m map[K]*big.Int, k K) *big.Int {
	if v, ok := m[k]; ok {
		return v
	}

	return new(big.Int)
}

func (c *TokenChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.CallErr != nil {
		return nil, c.CallErr
	}

	if msg.To == nil || *msg.To != c.Token {
		return nil, nil
	}

	method, args, err := token.DecodeCall(msg.Data)
	if err != nil {
		return nil, errors.Wrap(ErrInjected, err.Error())
	}

	c.reads[method]++

	if raw, ok := c.RawResults[method]; ok {
		return raw, nil
	}

	switch method {
	case token.MethodBalanceOf:
		return token.EncodeResult(method, get(c.balances, args[0].(common.Address))) //nolint:forcetypeassert
	case token.MethodNonces:
		return token.EncodeResult(method, get(c.nonces, args[0].(common.Address))) //nolint:forcetypeassert
	case token.MethodDecimals:
		return token.EncodeResult(method, c.Decimals)
	case token.MethodName:
		return token.EncodeResult(method, c.Name)
	}

	return nil, errors.Errorf("%s is not a view", method)
}

func (c *TokenChain) Submit(_ context.Context, calls []token.EncodedCall) (batch.TransactionID, error) {
	if c.SubmitErr != nil {
		return "", c.SubmitErr
	}

	if len(calls) == 0 {
		return "", &batch.SubmissionError{Stage: batch.StageSend, Err: batch.ErrEmptyBatch}
	}

	c.mu.Lock()
	nonce := c.accountNonce
	delay := c.SubmitDelay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	return c.execute(c.Executor, calls, &nonce)
}

// AccountNonce returns the executor's account nonce, the number of included batches.
func (c *TokenChain) AccountNonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.accountNonce
}

// Execute runs calls as sender. Either all calls apply or none.
func (c *TokenChain) Execute(sender common.Address, calls []token.EncodedCall) (batch.TransactionID, error) {
	return c.execute(sender, calls, nil)
}

// execute applies the batch. A non-nil nonce is the executor's account nonce read
// at submission; a stale one is rejected like a bundler would.
func (c *TokenChain) execute(sender common.Address, calls []token.EncodedCall, nonce *uint64) (batch.TransactionID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if nonce != nil {
		if *nonce != c.accountNonce {
			return "", &batch.SubmissionError{
				Stage: batch.StageSend,
				Err:   errors.Errorf("invalid account nonce %d, expected %d", *nonce, c.accountNonce),
			}
		}

		// an included operation uses its nonce even when execution reverts
		c.accountNonce++
	}

	c.batches = append(c.batches, append([]token.EncodedCall(nil), calls...))

	snapshot := c.snapshot()

	for i, call := range calls {
		if err := c.apply(sender, call); err != nil {
			c.restore(snapshot)
			return "", &batch.SubmissionError{
				Stage: batch.StageExecution,
				Err:   errors.Wrapf(batch.ErrReverted, "call %d: %v", i, err),
			}
		}
	}

	c.txCount++
	seq := make([]byte, 8) //nolint:mnd
	binary.BigEndian.PutUint64(seq, c.txCount)

	return batch.TransactionID(crypto.Keccak256Hash(c.Token.Bytes(), seq).Hex()), nil
}

type state struct {
	balances   map[common.Address]*big.Int
	nonces     map[common.Address]*big.Int
	allowances map[allowanceKey]*big.Int
}

func clone[K comparable](m map[K]*big.Int) map[K]*big.Int {
	out := make(map[K]*big.Int, len(m))
	for k, v := range m {
		out[k] = new(big.Int).Set(v)
	}

	return out
}

func (c *TokenChain) snapshot() state {
	return state{clone(c.balances), clone(c.nonces), clone(c.allowances)}
}

func (c *TokenChain) restore(s state) {
	c.balances, c.nonces, c.allowances = s.balances, s.nonces, s.allowances
}

//nolint:forcetypeassert // argument types are fixed by the ABI
func (c *TokenChain) apply(sender common.Address, call token.EncodedCall) error {
	if call.To != c.Token {
		return errors.Errorf("no contract at %s", call.To.Hex())
	}

	method, args, err := token.DecodeCall(call.Data)
	if err != nil {
		return err
	}

	switch method {
	case token.MethodPermit:
		return c.permit(
			args[0].(common.Address), args[1].(common.Address),
			args[2].(*big.Int), args[3].(*big.Int),
			args[4].(uint8), args[5].([32]byte), args[6].([32]byte),
		)
	case token.MethodTransferFrom:
		from, to, value := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
		key := allowanceKey{from, sender}
		allowance := get(c.allowances, key)
		if allowance.Cmp(value) < 0 {
			return errors.New("ERC20: insufficient allowance")
		}
		if err := c.move(from, to, value); err != nil {
			return err
		}
		c.allowances[key] = new(big.Int).Sub(allowance, value)
		return nil
	case token.MethodTransfer:
		return c.move(sender, args[0].(common.Address), args[1].(*big.Int))
	}

	return errors.Errorf("%s is not executable", method)
}

//nolint:varnamelen // v, r, s are the canonical signature component names
func (c *TokenChain) permit(owner, spender common.Address, value, deadline *big.Int, v uint8, r, s [32]byte) error {
	if deadline.Cmp(big.NewInt(c.Clock.Now().Unix())) < 0 {
		return errors.New("ERC20Permit: expired deadline")
	}

	nonce := get(c.nonces, owner)

	p := &permit.Permit{
		Message: permit.Message{
			Owner:    owner,
			Spender:  spender,
			Value:    value,
			Nonce:    nonce,
			Deadline: deadline,
		},
		Domain: permit.Domain{
			Name:              c.Name,
			Version:           c.Version,
			ChainID:           c.ChainID,
			VerifyingContract: c.Token,
		},
		Signature: permit.JoinSignature(v, r, s),
		V:         v,
		R:         r,
		S:         s,
	}

	if err := p.Verify(); err != nil {
		return errors.Wrap(err, "ERC20Permit: invalid signature")
	}

	c.nonces[owner] = new(big.Int).Add(nonce, big.NewInt(1))
	c.allowances[allowanceKey{owner, spender}] = new(big.Int).Set(value)

	return nil
}

func (c *TokenChain) move(from, to common.Address, value *big.Int) error {
	balance := get(c.balances, from)
	if balance.Cmp(value) < 0 {
		return errors.New("ERC20: transfer amount exceeds balance")
	}

	c.balances[from] = new(big.Int).Sub(balance, value)
	c.balances[to] = new(big.Int).Add(get(c.balances, to), value)

	return nil
}
