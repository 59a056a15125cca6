package lock

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrLockFailed = errors.New("failed to acquire lock")
)

// Locker serializes flows sharing a key. The returned unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
	Close() error
}

// PermitFlowKey is the lock key of a permit flow. A second flow for the same
// triple would read the same on-chain nonce and produce a conflicting permit.
func PermitFlowKey(token, owner, spender common.Address) string {
	return strings.ToLower("permit:" + token.Hex() + ":" + owner.Hex() + ":" + spender.Hex())
}

// AccountKey is the lock key of flows submitting from the given account.
func AccountKey(account common.Address) string {
	return strings.ToLower("account:" + account.Hex())
}
