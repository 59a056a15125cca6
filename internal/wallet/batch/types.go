package batch

import (
	"context"

	"github/chapool/go-gasless/internal/wallet/token"
)

// TransactionID identifies a submitted batch: the transaction hash once included,
// or the user operation hash when inclusion is not awaited.
type TransactionID string

func (id TransactionID) String() string {
	return string(id)
}

// Submitter executes an ordered list of calls atomically on behalf of a
// fee-sponsored account. Order is preserved exactly; nothing is retried.
type Submitter interface {
	Submit(ctx context.Context, calls []token.EncodedCall) (TransactionID, error)
}
