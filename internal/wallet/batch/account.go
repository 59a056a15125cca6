package batch

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/wallet/token"
)

const (
	methodExecute      = "execute"
	methodExecuteBatch = "executeBatch"
	methodGetNonce     = "getNonce"
)

const smartAccountABIJSON = `[
	{"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[{"name":"dest","type":"address"},{"name":"value","type":"uint256"},{"name":"func","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"executeBatch","stateMutability":"nonpayable","inputs":[{"name":"dest","type":"address[]"},{"name":"value","type":"uint256[]"},{"name":"func","type":"bytes[]"}],"outputs":[]}
]`

const entryPointABIJSON = `[
	{"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}
]`

var (
	smartAccountABI = mustParse(smartAccountABIJSON)
	entryPointABI   = mustParse(entryPointABIJSON)
)

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}

	return parsed
}

// EncodeExecution wraps the calls into the smart account's calldata:
// execute for a single call, executeBatch otherwise. No value is attached.
func EncodeExecution(calls []token.EncodedCall) ([]byte, error) {
	switch len(calls) {
	case 0:
		return nil, ErrEmptyBatch
	case 1:
		data, err := smartAccountABI.Pack(methodExecute, calls[0].To, new(big.Int), calls[0].Data)
		return data, errors.Wrap(err, "failed to pack execute")
	}

	targets := make([]common.Address, len(calls))
	values := make([]*big.Int, len(calls))
	payloads := make([][]byte, len(calls))

	for i, c := range calls {
		targets[i] = c.To
		values[i] = new(big.Int)
		payloads[i] = c.Data
	}

	data, err := smartAccountABI.Pack(methodExecuteBatch, targets, values, payloads)
	return data, errors.Wrap(err, "failed to pack executeBatch")
}

// DecodeExecution is the inverse of EncodeExecution.
func DecodeExecution(callData []byte) ([]token.EncodedCall, error) {
	if len(callData) < 4 { //nolint:mnd // selector
		return nil, errors.New("calldata shorter than a selector")
	}

	m, err := smartAccountABI.MethodById(callData[:4])
	if err != nil {
		return nil, errors.Wrap(err, "unknown smart account method")
	}

	args, err := m.Inputs.Unpack(callData[4:])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s", m.Name)
	}

	if m.Name == methodExecute {
		to, _ := args[0].(common.Address)
		data, _ := args[2].([]byte)
		return []token.EncodedCall{{To: to, Data: data}}, nil
	}

	targets, _ := args[0].([]common.Address)
	payloads, _ := args[2].([][]byte)
	if len(targets) != len(payloads) {
		return nil, errors.New("executeBatch length mismatch")
	}

	calls := make([]token.EncodedCall, len(targets))
	for i := range targets {
		calls[i] = token.EncodedCall{To: targets[i], Data: payloads[i]}
	}

	return calls, nil
}

func encodeGetNonce(sender common.Address) ([]byte, error) {
	data, err := entryPointABI.Pack(methodGetNonce, sender, new(big.Int))
	return data, errors.Wrap(err, "failed to pack getNonce")
}

func decodeGetNonce(data []byte) (*big.Int, error) {
	values, err := entryPointABI.Methods[methodGetNonce].Outputs.Unpack(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack getNonce")
	}

	nonce, ok := values[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected getNonce type %T", values[0])
	}

	return nonce, nil
}

// EncodeNonceResult packs a getNonce return value (test doubles).
func EncodeNonceResult(nonce *big.Int) ([]byte, error) {
	return entryPointABI.Methods[methodGetNonce].Outputs.Pack(nonce)
}
