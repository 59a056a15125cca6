package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

// ConnectorType tells how an account signs.
type ConnectorType string

const (
	// ConnectorEmbedded is a locally held EOA key.
	ConnectorEmbedded ConnectorType = "embedded"
	// ConnectorSmartWallet is a contract account executing through its owner key.
	ConnectorSmartWallet ConnectorType = "smart_wallet"
)

var (
	ErrUnknownAccount  = errors.New("unknown account")
	ErrInactiveAccount = errors.New("account is not the active signer")
	ErrCannotSign      = errors.New("account cannot produce signatures")
	ErrRejected        = errors.New("signature request rejected")
)

// Account is one of the session's accounts.
type Account struct {
	Address       common.Address `json:"address"`
	ConnectorType ConnectorType  `json:"connectorType"`
	// Index of the BIP44 derivation, -1 for smart wallets
	Index int `json:"index"`
	// Owner is set for smart wallets
	Owner *common.Address `json:"owner,omitempty"`
}

// Signer produces EIP-712 signatures for an explicit account.
// Returned signatures are 65 bytes r||s||v with v in {27, 28}.
type Signer interface {
	SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) ([]byte, error)
}

// MessageSigner produces EIP-191 personal signatures.
type MessageSigner interface {
	SignMessage(ctx context.Context, account common.Address, message []byte) ([]byte, error)
}
