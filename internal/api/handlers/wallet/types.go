package wallet

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api/httperrors"
	"github/chapool/go-gasless/internal/wallet"
	"github/chapool/go-gasless/internal/wallet/address"
	"github/chapool/go-gasless/internal/wallet/balance"
	"github/chapool/go-gasless/internal/wallet/permit"
	"github/chapool/go-gasless/internal/wallet/signer"
)

type accountResponse struct {
	Address       string `json:"address"`
	ConnectorType string `json:"connectorType"`
	Index         int    `json:"index"`
	Owner         string `json:"owner,omitempty"`
}

func toAccountResponse(acc signer.Account) accountResponse {
	res := accountResponse{
		Address:       acc.Address.Hex(),
		ConnectorType: string(acc.ConnectorType),
		Index:         acc.Index,
	}

	if acc.Owner != nil {
		res.Owner = acc.Owner.Hex()
	}

	return res
}

type balanceResponse struct {
	Token     string `json:"token"`
	Owner     string `json:"owner"`
	Raw       string `json:"raw"`
	Decimals  uint8  `json:"decimals"`
	Formatted string `json:"formatted"`
}

func toBalanceResponse(b *balance.TokenBalance) *balanceResponse {
	if b == nil {
		return nil
	}

	return &balanceResponse{
		Token:     b.Token.Hex(),
		Owner:     b.Owner.Hex(),
		Raw:       b.Raw.String(),
		Decimals:  b.Decimals,
		Formatted: b.Formatted,
	}
}

// permitRequest selects the permit parties; empty fields use the session defaults.
// Value is in raw token units.
type permitRequest struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Value   string `json:"value"`
}

func (r permitRequest) toSignPermitRequest() (wallet.SignPermitRequest, error) {
	var req wallet.SignPermitRequest

	var err error
	if req.Owner, err = optionalAddress(r.Owner); err != nil {
		return req, err
	}
	if req.Spender, err = optionalAddress(r.Spender); err != nil {
		return req, err
	}

	if r.Value != "" {
		v, ok := math.ParseBig256(r.Value)
		if !ok || v.Sign() < 0 {
			return req, httperrors.NewHTTPErrorWithDetail(httperrors.ErrBadRequestInvalidBody.Code,
				httperrors.TypeBadRequest, "Invalid value.", "value must be a uint256 in raw token units")
		}
		req.Amount = v
	}

	return req, nil
}

type transferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type transactionResponse struct {
	TransactionID string `json:"transactionId"`
}

type permitTransferResponse struct {
	TransactionID string           `json:"transactionId"`
	Permit        *permit.Permit   `json:"permit"`
	Balance       *balanceResponse `json:"balance,omitempty"`
}

func optionalAddress(s string) (*common.Address, error) {
	if s == "" {
		return nil, nil //nolint:nilnil // absent means default
	}

	addr, err := address.Parse(s)
	if err != nil {
		return nil, httperrors.ErrBadRequestInvalidAddress
	}

	return &addr, nil
}

func bindJSON(c echo.Context, v interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		e := httperrors.NewHTTPErrorWithDetail(httperrors.ErrBadRequestInvalidBody.Code,
			httperrors.ErrBadRequestInvalidBody.Type, httperrors.ErrBadRequestInvalidBody.Title, err.Error())
		e.Internal = err
		return e
	}

	return nil
}
