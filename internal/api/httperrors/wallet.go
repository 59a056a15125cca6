package httperrors

import (
	"net/http"

	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/wallet"
	"github/chapool/go-gasless/internal/wallet/balance"
	"github/chapool/go-gasless/internal/wallet/batch"
	"github/chapool/go-gasless/internal/wallet/chain"
	"github/chapool/go-gasless/internal/wallet/lock"
	"github/chapool/go-gasless/internal/wallet/permit"
	"github/chapool/go-gasless/internal/wallet/token"
)

// FromWalletError maps errors of the wallet flows to their public form.
// Errors without a mapping are returned as nil and end up as 500.
func FromWalletError(err error) *HTTPError {
	var (
		encErr  *token.EncodingError
		signErr *permit.SigningError
		subErr  *batch.SubmissionError
		netErr  *chain.NetworkError
		decErr  *chain.DecodeError
		httpErr *HTTPError
	)

	var e *HTTPError

	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, wallet.ErrNothingToPermit):
		e = NewHTTPError(http.StatusUnprocessableEntity, TypeNothingToPermit, "Nothing to permit: the balance is zero.")
	case errors.Is(err, batch.ErrPermitConsumed):
		e = NewHTTPError(http.StatusConflict, TypePermitConsumed, "This permit was already submitted.")
	case errors.Is(err, permit.ErrExpired):
		e = NewHTTPError(http.StatusConflict, TypePermitExpired, "The permit deadline has passed.")
	case errors.Is(err, permit.ErrInvalidSignature),
		errors.Is(err, wallet.ErrSpenderMismatch),
		errors.Is(err, wallet.ErrTokenMismatch):
		e = NewHTTPErrorWithDetail(http.StatusBadRequest, TypeInvalidPermit, "Invalid permit.", err.Error())
	case errors.As(err, &encErr),
		errors.Is(err, permit.ErrInvalidRequest),
		errors.Is(err, balance.ErrInvalidAmount):
		e = NewHTTPErrorWithDetail(http.StatusBadRequest, TypeBadRequest, "Invalid request.", err.Error())
	case errors.As(err, &signErr):
		e = NewHTTPError(http.StatusUnprocessableEntity, TypeSignatureRejected, "The signature was not obtained.")
	case errors.As(err, &subErr) && errors.Is(err, batch.ErrReverted):
		e = NewHTTPErrorWithDetail(http.StatusConflict, TypeReverted, "The transaction reverted.", subErr.Err.Error())
	case errors.As(err, &subErr):
		e = NewHTTPErrorWithDetail(http.StatusBadGateway, TypeSubmissionFailed, "The transaction could not be submitted.", "stage "+subErr.Stage)
	case errors.As(err, &netErr), errors.As(err, &decErr):
		e = NewHTTPError(http.StatusBadGateway, TypeChainUnavailable, "The chain could not be read.")
	case errors.Is(err, lock.ErrLockFailed):
		e = NewHTTPError(http.StatusServiceUnavailable, TypeFlowBusy, "Another transfer for this account is in progress.")
	default:
		return nil
	}

	e.Internal = err

	return e
}
