package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/api/httperrors"
	"github/chapool/go-gasless/internal/wallet/address"
)

func GetBalanceRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.GET("/balance/:address", getBalanceHandler(s))
}

func getBalanceHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner, err := address.Parse(c.Param("address"))
		if err != nil {
			return httperrors.ErrBadRequestInvalidAddress
		}

		b, err := s.Wallet.Balance(c.Request().Context(), owner)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, toBalanceResponse(b))
	}
}
