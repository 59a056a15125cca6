package httperrors

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util"
)

// HTTPErrorHandlerWithConfig renders every error returned by a handler as HTTPError JSON.
func HTTPErrorHandlerWithConfig(cfg config.EchoServer) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		log := util.LogFromContext(c.Request().Context())

		var body *HTTPError

		if he, ok := err.(*echo.HTTPError); ok { //nolint:errorlint // echo returns these unwrapped
			title := http.StatusText(he.Code)
			if msg, ok := he.Message.(string); ok {
				title = msg
			}
			body = NewHTTPError(he.Code, TypeGeneric, title)
			body.Internal = he.Internal
		} else if mapped := FromWalletError(err); mapped != nil {
			body = mapped
		} else {
			body = NewHTTPError(http.StatusInternalServerError, TypeGeneric, http.StatusText(http.StatusInternalServerError))
			if !cfg.HideInternalServerErrorDetails {
				body.Detail = err.Error()
			}
			body.Internal = err
		}

		if body.Code >= http.StatusInternalServerError {
			log.Error().Err(err).Int("status", body.Code).Msg("Request failed")
		} else {
			log.Debug().Err(err).Int("status", body.Code).Msg("Request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(body.Code)
		} else {
			writeErr = c.JSON(body.Code, body)
		}

		if writeErr != nil {
			log.Error().Err(writeErr).Msg("Failed to write error response")
		}
	}
}
