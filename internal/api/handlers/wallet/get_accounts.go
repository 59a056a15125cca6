package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api"
)

func GetAccountsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.GET("/accounts", getAccountsHandler(s))
}

func getAccountsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		accounts := s.Wallet.Accounts(c.Request().Context())

		res := make([]accountResponse, 0, len(accounts))
		for _, acc := range accounts {
			res = append(res, toAccountResponse(acc))
		}

		return c.JSON(http.StatusOK, res)
	}
}
