package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api"
)

func PostPermitTransferRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.POST("/permits/transfer", postPermitTransferHandler(s))
}

// postPermitTransferHandler signs a permit and submits it with the transferFrom it enables.
func postPermitTransferHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body permitRequest
		if err := bindJSON(c, &body); err != nil {
			return err
		}

		req, err := body.toSignPermitRequest()
		if err != nil {
			return err
		}

		res, err := s.Wallet.PermitAndTransfer(ctx, req)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, permitTransferResponse{
			TransactionID: res.TransactionID.String(),
			Permit:        res.Permit,
			Balance:       toBalanceResponse(res.Balance),
		})
	}
}
