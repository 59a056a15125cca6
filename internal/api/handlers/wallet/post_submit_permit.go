package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/wallet/permit"
)

func PostSubmitPermitRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.POST("/permits/submit", postSubmitPermitHandler(s))
}

// postSubmitPermitHandler submits a client supplied permit after verifying its signature.
func postSubmitPermitHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p permit.Permit
		if err := bindJSON(c, &p); err != nil {
			return err
		}

		id, err := s.Wallet.SubmitPermit(c.Request().Context(), &p)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, transactionResponse{TransactionID: id.String()})
	}
}
