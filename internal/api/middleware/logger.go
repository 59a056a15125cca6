package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util"
)

// LoggerWithConfig attaches a request scoped zerolog logger (with the request id) to the
// request context and logs every finished request at cfg.RequestLevel.
func LoggerWithConfig(cfg config.LoggerServer, skipper middleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}

			req := c.Request()
			res := c.Response()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = res.Header().Get(echo.HeaderXRequestID)
			}

			lctx := log.With().
				Str("id", id).
				Str("method", req.Method).
				Str("path", req.URL.Path)

			if cfg.LogRequestQuery {
				lctx = lctx.Str("query", req.URL.RawQuery)
			}
			if cfg.LogRequestHeader {
				lctx = lctx.Interface("header", req.Header)
			}

			l := lctx.Logger()
			c.SetRequest(req.WithContext(util.WithLogger(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// renders the error so the logged status is the final one
				c.Error(err)
			}

			ev := l.WithLevel(cfg.RequestLevel)
			if res.Status >= 500 { //nolint:mnd
				ev = l.WithLevel(zerolog.ErrorLevel)
			}

			ev.Int("status", res.Status).
				Int64("bytes_out", res.Size).
				Dur("duration_ms", time.Since(start)).
				Msg("Request handled")

			return nil
		}
	}
}
