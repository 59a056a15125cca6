package signer_test

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/wallet/address"
	"github/chapool/go-gasless/internal/wallet/seed"
	"github/chapool/go-gasless/internal/wallet/signer"
)

//nolint:dupword // well known development mnemonic
const testMnemonic = "test test test test test test test test test test test junk"

func mailData() apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": signer.EIP712DomainType,
			"Mail": {
				{Name: "to", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
		},
		PrimaryType: "Mail",
		Domain: apitypes.TypedDataDomain{
			Name:              "Test",
			Version:           "1",
			ChainId:           (*math.HexOrDecimal256)(big.NewInt(84532)),
			VerifyingContract: "0xf9FB20B8E097904f0aB7d12e9DbeE88f2dcd0F16",
		},
		Message: apitypes.TypedDataMessage{
			"to":     "0x2222222222222222222222222222222222222222",
			"amount": "12345",
		},
	}
}

func newSeededKeyring(t *testing.T, count int) *signer.Keyring {
	t.Helper()

	m := seed.NewManager()
	require.NoError(t, m.Initialize(testMnemonic, ""))

	k, err := signer.NewKeyringFromSeed(t.Context(), m, address.NewService(), count)
	require.NoError(t, err)

	return k
}

func TestKeyringFromSeed(t *testing.T) {
	k := newSeededKeyring(t, 2)

	accounts := k.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), accounts[0].Address)
	assert.Equal(t, signer.ConnectorEmbedded, accounts[0].ConnectorType)
	assert.Equal(t, 1, accounts[1].Index)

	active, ok := k.Active()
	require.True(t, ok)
	assert.Equal(t, accounts[0].Address, active)
}

func TestSignTypedDataRecoversToSigner(t *testing.T) {
	k := newSeededKeyring(t, 1)
	owner := k.Accounts()[0].Address

	sig, err := k.SignTypedData(t.Context(), owner, mailData())
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := signer.RecoverTypedData(mailData(), sig)
	require.NoError(t, err)
	assert.Equal(t, owner, recovered)
}

func TestHashTypedDataAddsDomainType(t *testing.T) {
	data := mailData()
	withDomain, err := signer.HashTypedData(data)
	require.NoError(t, err)

	delete(data.Types, "EIP712Domain")
	without, err := signer.HashTypedData(data)
	require.NoError(t, err)

	assert.Equal(t, withDomain, without)
}

func TestSignTypedDataRequiresActiveAccount(t *testing.T) {
	k := newSeededKeyring(t, 2)
	second := k.Accounts()[1].Address

	_, err := k.SignTypedData(t.Context(), second, mailData())
	require.ErrorIs(t, err, signer.ErrInactiveAccount)

	require.NoError(t, k.Select(second))
	_, err = k.SignTypedData(t.Context(), second, mailData())
	require.NoError(t, err)
}

func TestSignTypedDataErrors(t *testing.T) {
	k := newSeededKeyring(t, 1)
	owner := k.Accounts()[0].Address
	smart := common.HexToAddress("0x3333333333333333333333333333333333333333")

	_, err := k.AddSmartWallet(smart, owner)
	require.NoError(t, err)

	_, err = k.SignTypedData(t.Context(), common.HexToAddress("0x4444444444444444444444444444444444444444"), mailData())
	require.ErrorIs(t, err, signer.ErrUnknownAccount)

	_, err = k.SignTypedData(t.Context(), smart, mailData())
	require.ErrorIs(t, err, signer.ErrCannotSign)

	_, err = k.AddSmartWallet(smart, common.HexToAddress("0x5555555555555555555555555555555555555555"))
	require.ErrorIs(t, err, signer.ErrUnknownAccount)
}

func TestSignerForIsBoundToOneAccount(t *testing.T) {
	k := newSeededKeyring(t, 2)
	owner := k.Accounts()[0].Address
	second := k.Accounts()[1].Address

	s, err := k.SignerFor(second)
	require.NoError(t, err)

	sig, err := s.SignTypedData(t.Context(), second, mailData())
	require.NoError(t, err)
	require.Len(t, sig, 65)

	// the keyring's active account is untouched
	active, ok := k.Active()
	require.True(t, ok)
	assert.Equal(t, owner, active)

	_, err = s.SignTypedData(t.Context(), owner, mailData())
	require.ErrorIs(t, err, signer.ErrInactiveAccount)

	_, err = k.SignerFor(common.HexToAddress("0x4444444444444444444444444444444444444444"))
	require.ErrorIs(t, err, signer.ErrUnknownAccount)

	smart := common.HexToAddress("0x3333333333333333333333333333333333333333")
	_, err = k.AddSmartWallet(smart, owner)
	require.NoError(t, err)

	_, err = k.SignerFor(smart)
	require.ErrorIs(t, err, signer.ErrCannotSign)
}

func TestSignerForConcurrentAccounts(t *testing.T) {
	k := newSeededKeyring(t, 2)
	accounts := k.Accounts()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 50; i++ {
		for _, acc := range accounts {
			wg.Add(1)
			go func() {
				defer wg.Done()

				s, err := k.SignerFor(acc.Address)
				if err == nil {
					_, err = s.SignTypedData(t.Context(), acc.Address, mailData())
				}
				errs <- err
			}()
		}
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestSmartWalletSignsMessagesThroughOwner(t *testing.T) {
	k := newSeededKeyring(t, 1)
	owner := k.Accounts()[0].Address
	smart := common.HexToAddress("0x3333333333333333333333333333333333333333")
	_, err := k.AddSmartWallet(smart, owner)
	require.NoError(t, err)

	msg := crypto.Keccak256([]byte("user operation"))
	sig, err := k.SignMessage(t.Context(), smart, msg)
	require.NoError(t, err)

	recovered, err := signer.RecoverMessage(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, owner, recovered)

	acc, ok := k.FirstOf(signer.ConnectorSmartWallet)
	require.True(t, ok)
	assert.Equal(t, owner, *acc.Owner)
}

func TestRecoverRejectsShortSignature(t *testing.T) {
	_, err := signer.RecoverTypedData(mailData(), []byte{1, 2, 3})
	require.ErrorIs(t, err, signer.ErrInvalidSignature)
}
