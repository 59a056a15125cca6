package permit

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/go-gasless/internal/wallet/signer"
)

// Service builds and signs EIP-2612 permits
type Service interface {
	// BuildAndSignPermit reads nonce, balance and token name, then asks the signer
	// to sign the permit as req.Owner
	BuildAndSignPermit(ctx context.Context, req Request, s signer.Signer) (*Permit, error)
}

// Config is fixed per process
type Config struct {
	ChainID  *big.Int
	Version  string
	Validity time.Duration
}

// Request describes who allows whom to move what. A nil Amount permits the
// owner's full balance at build time.
type Request struct {
	Owner   common.Address
	Spender common.Address
	Token   common.Address
	Amount  *big.Int
}

// Message is the signed Permit struct
type Message struct {
	Owner    common.Address
	Spender  common.Address
	Value    *big.Int
	Nonce    *big.Int
	Deadline *big.Int
}

// Domain is the EIP-712 domain of the token
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}
