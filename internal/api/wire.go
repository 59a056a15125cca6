//go:build wireinject

package api

import (
	"github.com/google/wire"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/metrics"
	"github/chapool/go-gasless/internal/wallet/batch"
	"github/chapool/go-gasless/internal/wallet/chain"
	"github/chapool/go-gasless/internal/wallet/signer"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	metrics.New,
	NewClock,
	NewReader,
	NewLocker,
	NewPermitBuilder,
	NewWalletService,
)

var rpcClientSet = wire.NewSet(
	NewRPCClient,
	wire.Bind(new(ChainClient), new(*chain.RPCClient)),
)

// InitNewServer returns a new Server instance.
func InitNewServer(
	_ config.Server,
) (*Server, error) {
	wire.Build(serviceSet, rpcClientSet, NewKeyring, NewSubmitter)
	return new(Server), nil
}

// InitNewServerWithChain returns a new Server instance using the given chain connection,
// session keyring and submitter. All the other components are initialized via go wire
// according to the configuration.
func InitNewServerWithChain(
	_ config.Server,
	_ ChainClient,
	_ *signer.Keyring,
	_ batch.Submitter,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
