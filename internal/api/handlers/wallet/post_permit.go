package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api"
)

func PostPermitRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.POST("/permits", postPermitHandler(s))
}

// postPermitHandler signs a permit with the session wallet and returns it without submitting.
func postPermitHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body permitRequest
		if err := bindJSON(c, &body); err != nil {
			return err
		}

		req, err := body.toSignPermitRequest()
		if err != nil {
			return err
		}

		p, err := s.Wallet.SignPermit(c.Request().Context(), req)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, p)
	}
}
