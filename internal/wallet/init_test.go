package wallet_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/test"
	"github/chapool/go-gasless/internal/wallet"
	"github/chapool/go-gasless/internal/wallet/address"
	"github/chapool/go-gasless/internal/wallet/keystore"
	"github/chapool/go-gasless/internal/wallet/seed"
	"github/chapool/go-gasless/internal/wallet/signer"
)

func TestKeystoreUnlocksSessionKeyring(t *testing.T) {
	ctx := t.Context()
	ks := keystore.NewService(filepath.Join(t.TempDir(), "keystore.json"), keystore.LightScryptParams())

	_, err := wallet.CreateKeystore(ctx, ks, "  "+test.TestMnemonic+" ", "correct horse")
	require.NoError(t, err)

	m := seed.NewManager()
	t.Cleanup(m.Clear)

	require.Error(t, wallet.UnlockKeystore(ctx, ks, m, "wrong password"))
	assert.False(t, m.IsInitialized())

	require.NoError(t, wallet.UnlockKeystore(ctx, ks, m, "correct horse"))
	require.True(t, m.IsInitialized())

	cfg := config.Server{
		Wallet:  config.Wallet{EmbeddedAccounts: 1},
		Sponsor: config.Sponsor{SmartAccount: test.SmartAccount.Hex(), OwnerIndex: 1},
	}

	k, err := wallet.NewSessionKeyring(ctx, cfg, m, address.NewService())
	require.NoError(t, err)

	accounts := k.Accounts()
	require.Len(t, accounts, 3)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), accounts[0].Address)
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), accounts[1].Address)

	smart, ok := k.Find(test.SmartAccount)
	require.True(t, ok)
	assert.Equal(t, signer.ConnectorSmartWallet, smart.ConnectorType)
	assert.Equal(t, accounts[1].Address, *smart.Owner)
}

func TestCreateKeystoreValidation(t *testing.T) {
	ctx := t.Context()
	ks := keystore.NewService(filepath.Join(t.TempDir(), "keystore.json"), keystore.LightScryptParams())

	_, err := wallet.CreateKeystore(ctx, ks, "too short", "correct horse")
	require.ErrorIs(t, err, seed.ErrInvalidMnemonic)

	_, err = wallet.CreateKeystore(ctx, ks, test.TestMnemonic, "short")
	require.ErrorIs(t, err, wallet.ErrPasswordTooShort)

	exists, err := ks.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPasswordFromConfig(t *testing.T) {
	pw, err := wallet.Password(config.Wallet{KeystorePassword: "from env"}, "unused: ")
	require.NoError(t, err)
	assert.Equal(t, "from env", pw)
}
