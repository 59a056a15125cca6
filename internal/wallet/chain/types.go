package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reader reads token state from the chain. Every read is a single eth_call,
// results are never cached.
type Reader interface {
	// ReadBalance returns balanceOf(owner) in raw token units
	ReadBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)

	// ReadDecimals returns decimals()
	ReadDecimals(ctx context.Context, token common.Address) (uint8, error)

	// ReadNonce returns the EIP-2612 nonces(owner)
	ReadNonce(ctx context.Context, token, owner common.Address) (*big.Int, error)

	// ReadName returns name(), used as the EIP-712 domain name
	ReadName(ctx context.Context, token common.Address) (string, error)
}
