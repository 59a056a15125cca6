package address

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Service derives EVM accounts from an HD seed.
type Service interface {
	// DeriveAddress derives the address at the given BIP44 path
	DeriveAddress(ctx context.Context, seed []byte, path string) (common.Address, error)

	// DerivePrivateKey derives the raw private key at the given BIP44 path
	// WARNING: Caller must clear the private key after use
	DerivePrivateKey(ctx context.Context, seed []byte, path string) ([]byte, error)

	// GetBIP44Path returns the EVM BIP44 path for an account index
	GetBIP44Path(accountIndex int) string
}
