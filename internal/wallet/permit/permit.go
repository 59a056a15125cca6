package permit

import (
	"encoding/json"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/wallet/address"
	"github/chapool/go-gasless/internal/wallet/signer"
)

const primaryType = "Permit"

// PermitType is the EIP-2612 Permit struct layout.
var PermitType = []apitypes.Type{
	{Name: "owner", Type: "address"},
	{Name: "spender", Type: "address"},
	{Name: "value", Type: "uint256"},
	{Name: "nonce", Type: "uint256"},
	{Name: "deadline", Type: "uint256"},
}

// Permit is a signed, single use authorization.
type Permit struct {
	Message   Message
	Domain    Domain
	Signature []byte
	V         uint8
	R         [32]byte
	S         [32]byte
	// Balance is the owner's balance read while building
	Balance *big.Int

	consumed atomic.Bool
}

// Token returns the token contract the permit is valid for.
func (p *Permit) Token() common.Address {
	return p.Domain.VerifyingContract
}

// MarkConsumed flags the permit as submitted. It returns false if it already was.
func (p *Permit) MarkConsumed() bool {
	return p.consumed.CompareAndSwap(false, true)
}

func (p *Permit) Consumed() bool {
	return p.consumed.Load()
}

// TypedData returns the EIP-712 payload the signature covers.
func (p *Permit) TypedData() apitypes.TypedData {
	return typedData(p.Domain, p.Message)
}

func typedData(d Domain, m Message) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": signer.EIP712DomainType,
			primaryType:    PermitType,
		},
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(d.ChainID)),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    m.Owner.Hex(),
			"spender":  m.Spender.Hex(),
			"value":    m.Value.String(),
			"nonce":    m.Nonce.String(),
			"deadline": m.Deadline.String(),
		},
	}
}

// Verify checks that the signature was produced by the permit owner.
func (p *Permit) Verify() error {
	if p.Domain.ChainID == nil || p.Message.Value == nil || p.Message.Nonce == nil || p.Message.Deadline == nil {
		return errors.Wrap(ErrInvalidRequest, "incomplete permit")
	}

	v, r, s, err := SplitSignature(p.Signature)
	if err != nil {
		return err
	}

	if v != p.V || r != p.R || s != p.S {
		return errors.Wrap(ErrInvalidSignature, "v, r, s do not match signature")
	}

	recovered, err := signer.RecoverTypedData(p.TypedData(), JoinSignature(v, r, s))
	if err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}

	if recovered != p.Message.Owner {
		return errors.Wrapf(ErrInvalidSignature, "signed by %s, owner is %s", recovered.Hex(), p.Message.Owner.Hex())
	}

	return nil
}

type permitJSON struct {
	Owner             string        `json:"owner"`
	Spender           string        `json:"spender"`
	Value             string        `json:"value"`
	Nonce             string        `json:"nonce"`
	Deadline          string        `json:"deadline"`
	Name              string        `json:"name"`
	Version           string        `json:"version"`
	ChainID           string        `json:"chainId"`
	VerifyingContract string        `json:"verifyingContract"`
	Signature         hexutil.Bytes `json:"signature"`
	V                 uint8         `json:"v"`
	R                 hexutil.Bytes `json:"r"`
	S                 hexutil.Bytes `json:"s"`
}

func (p *Permit) MarshalJSON() ([]byte, error) {
	return json.Marshal(permitJSON{
		Owner:             p.Message.Owner.Hex(),
		Spender:           p.Message.Spender.Hex(),
		Value:             bigString(p.Message.Value),
		Nonce:             bigString(p.Message.Nonce),
		Deadline:          bigString(p.Message.Deadline),
		Name:              p.Domain.Name,
		Version:           p.Domain.Version,
		ChainID:           bigString(p.Domain.ChainID),
		VerifyingContract: p.Domain.VerifyingContract.Hex(),
		Signature:         p.Signature,
		V:                 p.V,
		R:                 p.R[:],
		S:                 p.S[:],
	})
}

// UnmarshalJSON accepts a permit produced elsewhere. Addresses and numbers are
// validated; the signature is not (call Verify).
func (p *Permit) UnmarshalJSON(data []byte) error {
	var raw permitJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	fields := []struct {
		name string
		in   string
		out  *common.Address
	}{
		{"owner", raw.Owner, &p.Message.Owner},
		{"spender", raw.Spender, &p.Message.Spender},
		{"verifyingContract", raw.VerifyingContract, &p.Domain.VerifyingContract},
	}
	for _, f := range fields {
		if *f.out, err = address.Parse(f.in); err != nil {
			return errors.Wrap(err, f.name)
		}
	}

	numbers := []struct {
		name string
		in   string
		out  **big.Int
	}{
		{"value", raw.Value, &p.Message.Value},
		{"nonce", raw.Nonce, &p.Message.Nonce},
		{"deadline", raw.Deadline, &p.Message.Deadline},
		{"chainId", raw.ChainID, &p.Domain.ChainID},
	}
	for _, n := range numbers {
		v, ok := math.ParseBig256(n.in)
		if n.in == "" || !ok || v.Sign() < 0 {
			return errors.Wrapf(ErrInvalidRequest, "invalid %s %q", n.name, n.in)
		}
		*n.out = v
	}

	if len(raw.R) != 32 || len(raw.S) != 32 { //nolint:mnd
		return errors.Wrap(ErrInvalidSignature, "r and s must be 32 bytes")
	}

	p.Domain.Name = raw.Name
	p.Domain.Version = raw.Version
	p.Signature = raw.Signature
	p.V = raw.V
	copy(p.R[:], raw.R)
	copy(p.S[:], raw.S)

	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}

	return v.String()
}
