package common

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/util"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// Health check
// Returns 200 if the server is ready and the node answers with the configured chain id.
func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(StatusNotReady, "Not ready.")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), s.Config.Management.ProbeReadinessTimeout)
		defer cancel()

		if err := s.ChainHealthy(ctx); err != nil {
			util.LogFromContext(ctx).Warn().Err(err).Msg("Health check failed")
			return c.String(StatusNotReady, "Chain unavailable.")
		}

		return c.String(http.StatusOK, "Healthy.")
	}
}
