package token

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

const selectorLength = 4

// EncodedCall is a contract call ready to be sent: the target contract and its calldata.
type EncodedCall struct {
	To   common.Address
	Data []byte
}

// Selector returns the 4-byte function selector of the call.
func (c EncodedCall) Selector() []byte {
	if len(c.Data) < selectorLength {
		return nil
	}

	return common.CopyBytes(c.Data[:selectorLength])
}

// Equal reports whether both calls target the same contract with identical calldata.
func (c EncodedCall) Equal(other EncodedCall) bool {
	return c.To == other.To && bytes.Equal(c.Data, other.Data)
}

// Encode produces the calldata for a call of method on the token at to.
// Arguments must match the ABI input types exactly: common.Address for address,
// *big.Int for uint256, uint8 for uint8 and [32]byte for bytes32.
func Encode(to common.Address, method string, args ...interface{}) (EncodedCall, error) {
	m, ok := tokenABI.Methods[method]
	if !ok {
		return EncodedCall{}, newEncodingError(method, "unknown method")
	}

	if len(args) != len(m.Inputs) {
		return EncodedCall{}, newEncodingError(method, "expected %d arguments, got %d", len(m.Inputs), len(args))
	}

	for i, input := range m.Inputs {
		if err := checkArgument(input.Type, args[i]); err != nil {
			return EncodedCall{}, &EncodingError{
				Method: method,
				Reason: fmt.Sprintf("argument %d (%s %s)", i, input.Type.String(), input.Name),
				Err:    err,
			}
		}
	}

	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return EncodedCall{}, &EncodingError{Method: method, Reason: "abi pack", Err: err}
	}

	return EncodedCall{To: to, Data: data}, nil
}

func checkArgument(typ abi.Type, arg interface{}) error {
	switch typ.T {
	case abi.AddressTy:
		if _, ok := arg.(common.Address); !ok {
			return errors.Errorf("want common.Address, got %T", arg)
		}
	case abi.UintTy:
		if typ.Size == 8 { //nolint:mnd // uint8
			if _, ok := arg.(uint8); !ok {
				return errors.Errorf("want uint8, got %T", arg)
			}
			return nil
		}

		v, ok := arg.(*big.Int)
		if !ok || v == nil {
			return errors.Errorf("want non-nil *big.Int, got %T", arg)
		}

		return CheckUint256(v)
	case abi.FixedBytesTy:
		if _, ok := arg.([32]byte); !ok {
			return errors.Errorf("want [32]byte, got %T", arg)
		}
	default:
		return errors.Errorf("unsupported input type %s", typ.String())
	}

	return nil
}

// CheckUint256 rejects values that are negative or do not fit in 256 bits.
func CheckUint256(v *big.Int) error {
	if v.Sign() < 0 {
		return errors.Errorf("negative value %s", v.String())
	}

	if _, overflow := uint256.FromBig(v); overflow {
		return errors.Errorf("value %s exceeds 256 bits", v.String())
	}

	return nil
}

// BalanceOf encodes balanceOf(owner).
func BalanceOf(tokenAddr, owner common.Address) (EncodedCall, error) {
	return Encode(tokenAddr, MethodBalanceOf, owner)
}

// Decimals encodes decimals().
func Decimals(tokenAddr common.Address) (EncodedCall, error) {
	return Encode(tokenAddr, MethodDecimals)
}

// Name encodes name().
func Name(tokenAddr common.Address) (EncodedCall, error) {
	return Encode(tokenAddr, MethodName)
}

// Nonces encodes nonces(owner).
func Nonces(tokenAddr, owner common.Address) (EncodedCall, error) {
	return Encode(tokenAddr, MethodNonces, owner)
}

// Transfer encodes transfer(to, value).
func Transfer(tokenAddr, to common.Address, value *big.Int) (EncodedCall, error) {
	return Encode(tokenAddr, MethodTransfer, to, value)
}

// TransferFrom encodes transferFrom(from, to, value).
func TransferFrom(tokenAddr, from, to common.Address, value *big.Int) (EncodedCall, error) {
	return Encode(tokenAddr, MethodTransferFrom, from, to, value)
}

// Permit encodes permit(owner, spender, value, deadline, v, r, s).
func Permit(
	tokenAddr, owner, spender common.Address,
	value, deadline *big.Int,
	v uint8, r, s [32]byte,
) (EncodedCall, error) {
	return Encode(tokenAddr, MethodPermit, owner, spender, value, deadline, v, r, s)
}
