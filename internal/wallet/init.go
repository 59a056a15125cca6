package wallet

import (
	"context"
	"fmt"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/wallet/address"
	"github/chapool/go-gasless/internal/wallet/keystore"
	"github/chapool/go-gasless/internal/wallet/seed"
	"github/chapool/go-gasless/internal/wallet/signer"
	"golang.org/x/term"
)

const minPasswordLength = 8

var ErrPasswordTooShort = errors.Errorf("password must be at least %d characters", minPasswordLength)

// CreateKeystore validates the mnemonic and password and writes a new keystore.
func CreateKeystore(ctx context.Context, keystoreService keystore.Service, mnemonic string, password string) (*keystore.Keystore, error) {
	mnemonic = seed.NormalizeMnemonic(mnemonic)
	if err := seed.ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}

	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	return keystoreService.CreateKeystore(ctx, mnemonic, password)
}

// UnlockKeystore decrypts the keystore and initializes the seed manager.
// The keystore password protects the file only, the BIP39 passphrase is empty.
func UnlockKeystore(ctx context.Context, keystoreService keystore.Service, seedManager seed.Manager, password string) error {
	log := log.With().Str("component", "wallet_init").Logger()

	//nolint:varnamelen // ks is a common abbreviation for keystore
	ks, err := keystoreService.GetKeystore(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get keystore")
	}

	mnemonic, err := keystoreService.DecryptMnemonic(ctx, ks, password)
	if err != nil {
		return errors.Wrap(err, "failed to decrypt keystore (invalid password?)")
	}

	if err := seedManager.Initialize(mnemonic, ""); err != nil {
		return errors.Wrap(err, "failed to initialize seed manager")
	}

	log.Info().Str("path", ks.Path).Msg("Keystore unlocked")

	return nil
}

// NewSessionKeyring derives the embedded wallets and registers the smart wallet,
// owned by the embedded wallet at cfg.Sponsor.OwnerIndex, if one is configured.
func NewSessionKeyring(ctx context.Context, cfg config.Server, seedManager seed.Manager, addressService address.Service) (*signer.Keyring, error) {
	count := cfg.Wallet.EmbeddedAccounts
	if count <= cfg.Sponsor.OwnerIndex {
		count = cfg.Sponsor.OwnerIndex + 1
	}

	keyring, err := signer.NewKeyringFromSeed(ctx, seedManager, addressService, count)
	if err != nil {
		return nil, err
	}

	accounts := keyring.Accounts()
	owner := accounts[cfg.Sponsor.OwnerIndex].Address

	if cfg.Sponsor.SmartAccount == "" {
		log.Warn().Int("embedded", count).Msg("No smart wallet configured, gasless submissions are disabled")
		return keyring, nil
	}

	smart := common.HexToAddress(cfg.Sponsor.SmartAccount)
	if _, err := keyring.AddSmartWallet(smart, owner); err != nil {
		return nil, err
	}

	log.Info().
		Int("embedded", count).
		Str("owner", owner.Hex()).
		Str("smart_wallet", smart.Hex()).
		Msg("Session keyring ready")

	return keyring, nil
}

// Password returns the configured keystore password or prompts for it.
func Password(cfg config.Wallet, prompt string) (string, error) {
	if cfg.KeystorePassword != "" {
		return cfg.KeystorePassword, nil
	}

	return PromptPassword(prompt)
}

// PromptPassword prompts for password input (hides input)
//
//nolint:forbidigo // Password input requires direct terminal I/O
func PromptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	// Read password from terminal (hides input)
	passwordBytes, err := term.ReadPassword(syscall.Stdin)
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from terminal")
	}

	fmt.Println() // New line after password input

	return string(passwordBytes), nil
}
