package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/api/router"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util/command"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func New() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		Short:   "Starts the server",
		Long: `Starts the HTTP API.

The keystore is unlocked on startup, the password is read from
GASLESS_WALLET_KEYSTORE_PASSWORD or prompted for.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return command.WithServer(ctx, config.DefaultServiceConfigFromEnv(), func(ctx context.Context, s *api.Server) error {
		router.Init(s)

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Failed to start server")
				return err
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("Stopping server")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()

			// Unblocks Start; the remaining components are closed by the deferred shutdown.
			if err := s.Echo.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})

		return g.Wait()
	})
}
