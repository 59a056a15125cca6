package batch

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// UserOperation is an ERC-4337 (EntryPoint v0.6) user operation.
type UserOperation struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

type userOperationJSON struct {
	Sender               common.Address `json:"sender"`
	Nonce                *hexutil.Big   `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *hexutil.Big   `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big   `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big   `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

func hexBig(v *big.Int) *hexutil.Big {
	if v == nil {
		return (*hexutil.Big)(new(big.Int))
	}

	return (*hexutil.Big)(v)
}

func fromHexBig(v *hexutil.Big) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v.ToInt()
}

func (op UserOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(userOperationJSON{
		Sender:               op.Sender,
		Nonce:                hexBig(op.Nonce),
		InitCode:             nonNil(op.InitCode),
		CallData:             nonNil(op.CallData),
		CallGasLimit:         hexBig(op.CallGasLimit),
		VerificationGasLimit: hexBig(op.VerificationGasLimit),
		PreVerificationGas:   hexBig(op.PreVerificationGas),
		MaxFeePerGas:         hexBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas: hexBig(op.MaxPriorityFeePerGas),
		PaymasterAndData:     nonNil(op.PaymasterAndData),
		Signature:            nonNil(op.Signature),
	})
}

func (op *UserOperation) UnmarshalJSON(data []byte) error {
	var raw userOperationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*op = UserOperation{
		Sender:               raw.Sender,
		Nonce:                fromHexBig(raw.Nonce),
		InitCode:             raw.InitCode,
		CallData:             raw.CallData,
		CallGasLimit:         fromHexBig(raw.CallGasLimit),
		VerificationGasLimit: fromHexBig(raw.VerificationGasLimit),
		PreVerificationGas:   fromHexBig(raw.PreVerificationGas),
		MaxFeePerGas:         fromHexBig(raw.MaxFeePerGas),
		MaxPriorityFeePerGas: fromHexBig(raw.MaxPriorityFeePerGas),
		PaymasterAndData:     raw.PaymasterAndData,
		Signature:            raw.Signature,
	}

	return nil
}

// hexutil.Bytes encodes nil as null, bundlers expect "0x"
func nonNil(b []byte) hexutil.Bytes {
	if b == nil {
		return hexutil.Bytes{}
	}

	return b
}

var (
	addressT, _ = abi.NewType("address", "", nil)
	uint256T, _ = abi.NewType("uint256", "", nil)
	bytes32T, _ = abi.NewType("bytes32", "", nil)

	packedUserOpArgs = abi.Arguments{
		{Type: addressT}, // sender
		{Type: uint256T}, // nonce
		{Type: bytes32T}, // keccak(initCode)
		{Type: bytes32T}, // keccak(callData)
		{Type: uint256T}, // callGasLimit
		{Type: uint256T}, // verificationGasLimit
		{Type: uint256T}, // preVerificationGas
		{Type: uint256T}, // maxFeePerGas
		{Type: uint256T}, // maxPriorityFeePerGas
		{Type: bytes32T}, // keccak(paymasterAndData)
	}

	userOpHashArgs = abi.Arguments{
		{Type: bytes32T}, // keccak(pack(op))
		{Type: addressT}, // entry point
		{Type: uint256T}, // chain id
	}
)

// Pack is the EntryPoint v0.6 encoding of the operation without its signature.
func (op *UserOperation) Pack() ([]byte, error) {
	return packedUserOpArgs.Pack(
		op.Sender,
		orZero(op.Nonce),
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		orZero(op.CallGasLimit),
		orZero(op.VerificationGasLimit),
		orZero(op.PreVerificationGas),
		orZero(op.MaxFeePerGas),
		orZero(op.MaxPriorityFeePerGas),
		crypto.Keccak256Hash(op.PaymasterAndData),
	)
}

// Hash is the user operation hash the account owner signs:
// keccak256(abi.encode(keccak256(pack(op)), entryPoint, chainId)).
func (op *UserOperation) Hash(entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	packed, err := op.Pack()
	if err != nil {
		return common.Hash{}, err
	}

	enc, err := userOpHashArgs.Pack(crypto.Keccak256Hash(packed), entryPoint, orZero(chainID))
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(enc), nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}

// SponsorResult is the paymaster's answer to pm_sponsorUserOperation.
type SponsorResult struct {
	PaymasterAndData     hexutil.Bytes `json:"paymasterAndData"`
	CallGasLimit         *hexutil.Big  `json:"callGasLimit,omitempty"`
	VerificationGasLimit *hexutil.Big  `json:"verificationGasLimit,omitempty"`
	PreVerificationGas   *hexutil.Big  `json:"preVerificationGas,omitempty"`
	MaxFeePerGas         *hexutil.Big  `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big  `json:"maxPriorityFeePerGas,omitempty"`
}

// apply copies the sponsored fields onto op; absent gas values are kept.
func (r *SponsorResult) apply(op *UserOperation) {
	op.PaymasterAndData = r.PaymasterAndData

	set := func(dst **big.Int, v *hexutil.Big) {
		if v != nil {
			*dst = v.ToInt()
		}
	}

	set(&op.CallGasLimit, r.CallGasLimit)
	set(&op.VerificationGasLimit, r.VerificationGasLimit)
	set(&op.PreVerificationGas, r.PreVerificationGas)
	set(&op.MaxFeePerGas, r.MaxFeePerGas)
	set(&op.MaxPriorityFeePerGas, r.MaxPriorityFeePerGas)
}

// UserOperationReceipt is the bundler's eth_getUserOperationReceipt result.
type UserOperationReceipt struct {
	UserOpHash common.Hash `json:"userOpHash"`
	Success    bool        `json:"success"`
	Reason     string      `json:"reason,omitempty"`
	Receipt    struct {
		TransactionHash common.Hash `json:"transactionHash"`
	} `json:"receipt"`
}
