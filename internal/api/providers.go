package api

import (
	"context"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/metrics"
	"github/chapool/go-gasless/internal/wallet"
	"github/chapool/go-gasless/internal/wallet/address"
	"github/chapool/go-gasless/internal/wallet/batch"
	"github/chapool/go-gasless/internal/wallet/chain"
	"github/chapool/go-gasless/internal/wallet/keystore"
	"github/chapool/go-gasless/internal/wallet/lock"
	"github/chapool/go-gasless/internal/wallet/permit"
	"github/chapool/go-gasless/internal/wallet/seed"
	"github/chapool/go-gasless/internal/wallet/signer"
)

// PROVIDERS - https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

func NewClock() time2.Clock {
	return time2.DefaultClock
}

// NewRPCClient dials the configured nodes and checks they serve the configured chain.
func NewRPCClient(cfg config.Server) (*chain.RPCClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.RPCTimeout)
	defer cancel()

	client, err := chain.NewRPCClient(ctx, cfg.Chain.RPCURLs)
	if err != nil {
		return nil, err
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}

	if id.Cmp(cfg.Chain.ChainIDBig()) != 0 {
		client.Close()
		return nil, errors.Errorf("RPC serves chain %s, configured chain is %d", id, cfg.Chain.ChainID)
	}

	return client, nil
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewReader(c ChainClient, m *metrics.Service) chain.Reader {
	return chain.NewReader(c, m)
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewLocker(cfg config.Server) lock.Locker {
	return lock.New(cfg.Lock)
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewPermitBuilder(cfg config.Server, reader chain.Reader, clock time2.Clock, m *metrics.Service) permit.Service {
	return permit.NewBuilder(reader, clock, permit.Config{
		ChainID:  cfg.Chain.ChainIDBig(),
		Version:  cfg.Permit.Version,
		Validity: cfg.Permit.Validity,
	}, m)
}

// NewKeyring unlocks the keystore and derives the session accounts. The seed is
// wiped once the keys are derived.
func NewKeyring(cfg config.Server) (*signer.Keyring, error) {
	ctx := context.Background()

	ks := keystore.NewService(cfg.Wallet.KeystorePath, keystore.DefaultScryptParams())

	exists, err := ks.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrapf(keystore.ErrNotFound, "%s (create one with `app keystore create`)", cfg.Wallet.KeystorePath)
	}

	password, err := wallet.Password(cfg.Wallet, "Enter keystore password: ")
	if err != nil {
		return nil, err
	}

	seedManager := seed.NewManager()
	defer seedManager.Clear()

	if err := wallet.UnlockKeystore(ctx, ks, seedManager, password); err != nil {
		return nil, err
	}

	return wallet.NewSessionKeyring(ctx, cfg, seedManager, address.NewService())
}

// NewSubmitter connects to the bundler and paymaster. Without a bundler URL or smart
// account the returned submitter reports batch.ErrNotReady on every submission.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewSubmitter(cfg config.Server, client *chain.RPCClient, keyring *signer.Keyring, m *metrics.Service) (batch.Submitter, error) {
	if cfg.Sponsor.BundlerURL == "" || cfg.Sponsor.SmartAccount == "" {
		log.Warn().Msg("Bundler or smart account not configured, gasless submissions are disabled")
		return (*batch.SponsoredClient)(nil), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.RPCTimeout)
	defer cancel()

	bundler, err := rpc.DialContext(ctx, cfg.Sponsor.BundlerURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial bundler")
	}

	var paymaster batch.RPCCaller
	if cfg.Sponsor.PaymasterURL != "" && cfg.Sponsor.PaymasterURL != cfg.Sponsor.BundlerURL {
		pm, err := rpc.DialContext(ctx, cfg.Sponsor.PaymasterURL)
		if err != nil {
			bundler.Close()
			return nil, errors.Wrap(err, "failed to dial paymaster")
		}
		paymaster = pm
	}

	sc := batch.NewSponsoredClient(batch.SponsoredConfig{
		EntryPoint:          common.HexToAddress(cfg.Sponsor.EntryPoint),
		Account:             common.HexToAddress(cfg.Sponsor.SmartAccount),
		ChainID:             cfg.Chain.ChainIDBig(),
		Mode:                cfg.Sponsor.Mode,
		CalculateGasLimits:  cfg.Sponsor.CalculateGasLimits,
		ExpiryDuration:      cfg.Sponsor.ExpiryDuration,
		PolicyID:            cfg.Sponsor.PolicyID,
		WebhookData:         cfg.Sponsor.WebhookData,
		WaitForReceipt:      cfg.Sponsor.WaitForReceipt,
		ReceiptPollInterval: cfg.Sponsor.ReceiptPollInterval,
	}, bundler, paymaster, client, client, keyring, m)

	if err := sc.CheckEntryPoint(ctx); err != nil {
		log.Warn().Err(err).Msg("Bundler entry point check failed")
	}

	return sc, nil
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewWalletService(
	cfg config.Server,
	keyring *signer.Keyring,
	reader chain.Reader,
	builder permit.Service,
	submitter batch.Submitter,
	locker lock.Locker,
	clock time2.Clock,
) WalletService {
	return wallet.NewService(wallet.ConfigFromServer(cfg), keyring, reader, builder, submitter, locker, clock)
}
