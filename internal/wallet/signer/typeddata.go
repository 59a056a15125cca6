package signer

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

const (
	signatureLength = 65
	recoveryIDIndex = 64
	ethereumVOffset = 27
)

var ErrInvalidSignature = errors.New("invalid signature")

// EIP712DomainType is the domain layout used by EIP-2612 tokens.
var EIP712DomainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// HashTypedData computes keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func HashTypedData(data apitypes.TypedData) ([]byte, error) {
	if _, ok := data.Types["EIP712Domain"]; !ok {
		data.Types = withDomainType(data.Types)
	}

	domainSeparator, err := data.HashStruct("EIP712Domain", data.Domain.Map())
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash domain")
	}

	dataHash, err := data.HashStruct(data.PrimaryType, data.Message)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash struct")
	}

	raw := make([]byte, 0, 2+len(domainSeparator)+len(dataHash)) //nolint:mnd
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, dataHash...)

	return crypto.Keccak256(raw), nil
}

func withDomainType(types apitypes.Types) apitypes.Types {
	out := make(apitypes.Types, len(types)+1)
	for k, v := range types {
		out[k] = v
	}
	out["EIP712Domain"] = EIP712DomainType

	return out
}

// RecoverTypedData returns the address that produced sig over data.
func RecoverTypedData(data apitypes.TypedData, sig []byte) (common.Address, error) {
	digest, err := HashTypedData(data)
	if err != nil {
		return common.Address{}, err
	}

	return recoverDigest(digest, sig)
}

// RecoverMessage returns the address that produced an EIP-191 signature over message.
func RecoverMessage(message []byte, sig []byte) (common.Address, error) {
	return recoverDigest(accounts.TextHash(message), sig)
}

func recoverDigest(digest []byte, sig []byte) (common.Address, error) {
	if len(sig) != signatureLength {
		return common.Address{}, errors.Wrapf(ErrInvalidSignature, "length %d", len(sig))
	}

	normalized := common.CopyBytes(sig)
	if normalized[recoveryIDIndex] >= ethereumVOffset {
		normalized[recoveryIDIndex] -= ethereumVOffset
	}

	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return common.Address{}, errors.Wrap(ErrInvalidSignature, err.Error())
	}

	return crypto.PubkeyToAddress(*pub), nil
}
