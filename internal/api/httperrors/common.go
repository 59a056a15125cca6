package httperrors

import (
	"fmt"
	"net/http"
)

// Public error types, stable for clients.
const (
	TypeGeneric           = "generic"
	TypeBadRequest        = "BAD_REQUEST"
	TypeInvalidPermit     = "INVALID_PERMIT"
	TypeSignatureRejected = "SIGNATURE_REJECTED"
	TypeNothingToPermit   = "NOTHING_TO_PERMIT"
	TypePermitConsumed    = "PERMIT_CONSUMED"
	TypePermitExpired     = "PERMIT_EXPIRED"
	TypeReverted          = "EXECUTION_REVERTED"
	TypeSubmissionFailed  = "SUBMISSION_FAILED"
	TypeChainUnavailable  = "CHAIN_UNAVAILABLE"
	TypeFlowBusy          = "FLOW_BUSY"
)

// HTTPError is the public error body: a transient status message for the client.
type HTTPError struct {
	Code   int    `json:"status"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`

	Internal error `json:"-"`
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errorType,
		Title: title,
	}
}

func NewHTTPErrorWithDetail(code int, errorType string, title string, detail string) *HTTPError {
	return &HTTPError{
		Code:   code,
		Type:   errorType,
		Title:  title,
		Detail: detail,
	}
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
	if e.Detail != "" {
		msg += " - " + e.Detail
	}
	if e.Internal != nil {
		msg += ", " + e.Internal.Error()
	}

	return msg
}

func (e *HTTPError) Unwrap() error {
	return e.Internal
}

var (
	ErrBadRequestInvalidAddress = NewHTTPError(http.StatusBadRequest, TypeBadRequest, "Invalid address.")
	ErrBadRequestInvalidBody    = NewHTTPError(http.StatusBadRequest, TypeBadRequest, "Invalid request body.")
)
