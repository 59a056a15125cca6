package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/wallet/balance"
	"github/chapool/go-gasless/internal/wallet/batch"
	"github/chapool/go-gasless/internal/wallet/permit"
	"github/chapool/go-gasless/internal/wallet/signer"
)

var (
	ErrNothingToPermit  = errors.New("nothing to permit: amount is zero")
	ErrAmountRequired   = errors.New("permit amount is required")
	ErrNoEmbeddedWallet = errors.New("no embedded wallet in session")
	ErrSpenderMismatch  = errors.New("permit spender is not the executing smart account")
	ErrTokenMismatch    = errors.New("permit is for another token")
)

// Service runs the gasless flows of a wallet session
type Service interface {
	// Accounts lists the session's embedded wallets and the smart wallet
	Accounts(ctx context.Context) []signer.Account

	// SignPermit builds and signs a permit for the configured token
	SignPermit(ctx context.Context, req SignPermitRequest) (*permit.Permit, error)

	// SubmitPermit verifies a signed permit and submits permit + transferFrom
	SubmitPermit(ctx context.Context, p *permit.Permit) (batch.TransactionID, error)

	// PermitAndTransfer signs and submits in one flow and reconciles the owner's balance
	PermitAndTransfer(ctx context.Context, req SignPermitRequest) (*TransferResult, error)

	// Transfer sends amount (decimal string in token units) from the smart wallet to `to`
	Transfer(ctx context.Context, to common.Address, amount string) (batch.TransactionID, error)

	// Balance returns the owner's formatted token balance
	Balance(ctx context.Context, owner common.Address) (*balance.TokenBalance, error)
}

// SignPermitRequest selects the permit parties; nil fields fall back to the session defaults
type SignPermitRequest struct {
	Owner   *common.Address
	Spender *common.Address
	Amount  *big.Int
}

// TransferResult is the outcome of a permit flow
type TransferResult struct {
	TransactionID batch.TransactionID   `json:"transactionId"`
	Permit        *permit.Permit        `json:"permit"`
	Balance       *balance.TokenBalance `json:"balance"`
}

// Config is the part of the server configuration the wallet service needs
type Config struct {
	Token        common.Address
	SmartAccount common.Address
	AmountPolicy config.PermitAmountPolicy
}

// ConfigFromServer extracts the wallet configuration. Addresses are validated by config.Server.Validate.
func ConfigFromServer(cfg config.Server) Config {
	return Config{
		Token:        common.HexToAddress(cfg.Chain.TokenAddress),
		SmartAccount: common.HexToAddress(cfg.Sponsor.SmartAccount),
		AmountPolicy: cfg.Permit.AmountPolicy,
	}
}
