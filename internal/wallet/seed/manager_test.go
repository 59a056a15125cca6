package seed_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/wallet/seed"
)

func TestManagerLifecycle(t *testing.T) {
	m := seed.NewManager()
	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.GetSeed())

	//nolint:dupword // BIP39 test vector
	require.NoError(t, m.Initialize("  abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon ABOUT ", "TREZOR"))
	assert.True(t, m.IsInitialized())

	// BIP39 reference vector for the all-"abandon" mnemonic with passphrase TREZOR
	assert.Equal(t,
		"c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04",
		hex.EncodeToString(m.GetSeed()))

	// callers get a copy
	s := m.GetSeed()
	s[0] ^= 0xff
	assert.NotEqual(t, s, m.GetSeed())

	m.Clear()
	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.GetSeed())
}

func TestManagerRejectsBadWordCount(t *testing.T) {
	m := seed.NewManager()
	err := m.Initialize("one two three", "")
	require.ErrorIs(t, err, seed.ErrInvalidMnemonic)
	assert.False(t, m.IsInitialized())
}
