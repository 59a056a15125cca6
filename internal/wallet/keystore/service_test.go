package keystore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/wallet/keystore"
)

//nolint:dupword // well known development mnemonic
const testMnemonic = "test test test test test test test test test test test junk"

func newService(t *testing.T) keystore.Service {
	t.Helper()

	return keystore.NewService(filepath.Join(t.TempDir(), "nested", "keystore.json"), keystore.LightScryptParams())
}

func TestCreateAndDecrypt(t *testing.T) {
	ctx := t.Context()
	s := newService(t)

	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.GetKeystore(ctx)
	require.ErrorIs(t, err, keystore.ErrNotFound)

	created, err := s.CreateKeystore(ctx, testMnemonic, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, 3, created.JSON.Version)
	assert.Equal(t, "aes-128-ctr", created.JSON.Crypto.Cipher)
	assert.NotEmpty(t, created.JSON.ID)

	loaded, err := s.GetKeystore(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.JSON, loaded.JSON)

	mnemonic, err := s.DecryptMnemonic(ctx, loaded, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, mnemonic)
}

func TestWrongPassword(t *testing.T) {
	ctx := t.Context()
	s := newService(t)

	ks, err := s.CreateKeystore(ctx, testMnemonic, "correct horse")
	require.NoError(t, err)

	_, err = s.DecryptMnemonic(ctx, ks, "battery staple")
	require.ErrorIs(t, err, keystore.ErrInvalidPassword)
}

func TestCreateTwiceFails(t *testing.T) {
	ctx := t.Context()
	s := newService(t)

	_, err := s.CreateKeystore(ctx, testMnemonic, "pw")
	require.NoError(t, err)

	_, err = s.CreateKeystore(ctx, testMnemonic, "pw")
	require.ErrorIs(t, err, keystore.ErrAlreadyExists)
}

func TestTamperedCiphertextFailsMAC(t *testing.T) {
	ctx := t.Context()
	s := newService(t)

	ks, err := s.CreateKeystore(ctx, testMnemonic, "pw")
	require.NoError(t, err)

	c := []byte(ks.JSON.Crypto.Ciphertext)
	if c[0] == '0' {
		c[0] = '1'
	} else {
		c[0] = '0'
	}
	ks.JSON.Crypto.Ciphertext = string(c)

	_, err = s.DecryptMnemonic(ctx, ks, "pw")
	require.ErrorIs(t, err, keystore.ErrInvalidPassword)
}
