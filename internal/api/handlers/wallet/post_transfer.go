package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/api/httperrors"
	"github/chapool/go-gasless/internal/wallet/address"
)

func PostTransferRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.POST("/transfers", postTransferHandler(s))
}

// postTransferHandler sends a gasless transfer from the smart wallet. Amount is in token units ("1.5").
func postTransferHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body transferRequest
		if err := bindJSON(c, &body); err != nil {
			return err
		}

		to, err := address.Parse(body.To)
		if err != nil {
			return httperrors.ErrBadRequestInvalidAddress
		}

		id, err := s.Wallet.Transfer(c.Request().Context(), to, body.Amount)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, transactionResponse{TransactionID: id.String()})
	}
}
