package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/metrics"
	"github/chapool/go-gasless/internal/util"
	"github/chapool/go-gasless/internal/wallet"
	"github/chapool/go-gasless/internal/wallet/lock"
)

// WalletService runs the gasless flows
// Alias to wallet.Service for API access
type WalletService = wallet.Service

// ChainClient is the node connection: reads for the wallet flows, chain id for readiness
type ChainClient interface {
	ethereum.ContractCaller
	ChainID(ctx context.Context) (*big.Int, error)
}

type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
	APIV1      *echo.Group
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	// skip wire:
	// -> initialized with router.Init(s) function
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	Config  config.Server
	Clock   time2.Clock
	Metrics *metrics.Service
	Chain   ChainClient
	Locker  lock.Locker
	Wallet  WalletService
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	clock time2.Clock,
	metrics *metrics.Service,
	chain ChainClient,
	locker lock.Locker,
	walletService WalletService,
) *Server {
	return &Server{
		Config:  cfg,
		Clock:   clock,
		Metrics: metrics,
		Chain:   chain,
		Locker:  locker,
		Wallet:  walletService,
	}
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

// ChainHealthy checks that the node answers and serves the configured chain.
func (s *Server) ChainHealthy(ctx context.Context) error {
	id, err := s.Chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain id: %w", err)
	}

	if id.Cmp(s.Config.Chain.ChainIDBig()) != 0 {
		return fmt.Errorf("node serves chain %s, expected %d", id, s.Config.Chain.ChainID)
	}

	return nil
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if s.Locker != nil {
		log.Debug().Msg("Closing flow lock")

		if err := s.Locker.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close flow lock")
			errs = append(errs, err)
		}
	}

	if c, ok := s.Chain.(interface{ Close() }); ok {
		log.Debug().Msg("Closing RPC connections")
		c.Close()
	}

	return errs
}
