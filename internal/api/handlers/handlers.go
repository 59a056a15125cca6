package handlers

import (
	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/api/handlers/common"
	"github/chapool/go-gasless/internal/api/handlers/wallet"
)

func AttachAllRoutes(s *api.Server) {
	// attach our routes
	s.Router.Routes = append(s.Router.Routes, []*echo.Route{
		common.GetHealthyRoute(s),
		common.GetReadyRoute(s),
		wallet.GetAccountsRoute(s),
		wallet.GetBalanceRoute(s),
		wallet.PostPermitRoute(s),
		wallet.PostSubmitPermitRoute(s),
		wallet.PostPermitTransferRoute(s),
		wallet.PostTransferRoute(s),
	}...)
}
