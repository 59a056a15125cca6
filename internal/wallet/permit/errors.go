package permit

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrInvalidRequest   = errors.New("invalid permit request")
	ErrInvalidSignature = errors.New("invalid permit signature")
	ErrExpired          = errors.New("permit deadline has passed")
)

// SigningError reports that the signing authority did not produce a signature:
// rejection, unknown account or inactive account.
type SigningError struct {
	Account common.Address
	Err     error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("failed to sign permit for %s: %v", e.Account.Hex(), e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}
