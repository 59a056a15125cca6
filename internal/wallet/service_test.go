package wallet_test

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/test"
	"github/chapool/go-gasless/internal/wallet"
	"github/chapool/go-gasless/internal/wallet/batch"
	"github/chapool/go-gasless/internal/wallet/chain"
	"github/chapool/go-gasless/internal/wallet/lock"
	"github/chapool/go-gasless/internal/wallet/permit"
	"github/chapool/go-gasless/internal/wallet/signer"
	"github/chapool/go-gasless/internal/wallet/token"
)

type fixture struct {
	chain   *test.TokenChain
	clock   *time2.MockClock
	keyring *signer.Keyring
	service wallet.Service
	owner   common.Address
	second  common.Address
}

func newFixture(t *testing.T, policy config.PermitAmountPolicy) *fixture {
	t.Helper()

	clock := test.NewMockClock()
	tc := test.NewTokenChain(clock, test.SmartAccount)
	k := test.NewTestKeyring(t, 2)
	reader := chain.NewReader(tc, nil)

	builder := permit.NewBuilder(reader, clock, permit.Config{
		ChainID:  test.BaseSepoliaChainID,
		Version:  "1",
		Validity: time.Hour,
	}, nil)

	svc := wallet.NewService(wallet.Config{
		Token:        tc.Token,
		SmartAccount: test.SmartAccount,
		AmountPolicy: policy,
	}, k, reader, builder, tc, lock.NewMemory(), clock)

	accounts := k.Accounts()

	return &fixture{
		chain:   tc,
		clock:   clock,
		keyring: k,
		service: svc,
		owner:   accounts[0].Address,
		second:  accounts[1].Address,
	}
}

func TestAccounts(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)

	accounts := f.service.Accounts(t.Context())
	require.Len(t, accounts, 3)
	assert.Equal(t, signer.ConnectorEmbedded, accounts[0].ConnectorType)
	assert.Equal(t, signer.ConnectorEmbedded, accounts[1].ConnectorType)
	assert.Equal(t, signer.ConnectorSmartWallet, accounts[2].ConnectorType)
	assert.Equal(t, test.SmartAccount, accounts[2].Address)
	require.NotNil(t, accounts[2].Owner)
	assert.Equal(t, f.owner, *accounts[2].Owner)
}

func TestPermitAndTransferEndToEnd(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	f.chain.SetBalance(f.owner, big.NewInt(2_000_000))
	f.chain.SetNonce(f.owner, big.NewInt(3))

	res, err := f.service.PermitAndTransfer(t.Context(), wallet.SignPermitRequest{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.TransactionID)
	assert.Equal(t, "3", res.Permit.Message.Nonce.String())
	assert.Equal(t, test.FixedNow.Unix()+3600, res.Permit.Message.Deadline.Int64())
	assert.True(t, res.Permit.Consumed())

	require.NotNil(t, res.Balance)
	assert.Equal(t, 0, res.Balance.Raw.Sign())
	assert.Equal(t, "0.000", res.Balance.Formatted)
	assert.Equal(t, "2000000", f.chain.Balance(test.SmartAccount).String())
	assert.Equal(t, "4", f.chain.Nonce(f.owner).String())
}

func TestSignPermitDefaultsAndSelection(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	f.chain.SetBalance(f.second, big.NewInt(5))

	p, err := f.service.SignPermit(t.Context(), wallet.SignPermitRequest{Owner: &f.second})
	require.NoError(t, err)

	assert.Equal(t, f.second, p.Message.Owner)
	assert.Equal(t, test.SmartAccount, p.Message.Spender)
	assert.Equal(t, "5", p.Message.Value.String())
	require.NoError(t, p.Verify())

	// signing for another owner leaves the keyring's active account alone
	active, ok := f.keyring.Active()
	require.True(t, ok)
	assert.Equal(t, f.owner, active)
}

func TestSignPermitConcurrentOwners(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	f.chain.SetBalance(f.owner, big.NewInt(100))
	f.chain.SetBalance(f.second, big.NewInt(200))

	const rounds = 100

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 2*rounds)
	)

	for i := 0; i < rounds; i++ {
		for _, owner := range []common.Address{f.owner, f.second} {
			wg.Add(1)
			go func() {
				defer wg.Done()

				p, err := f.service.SignPermit(t.Context(), wallet.SignPermitRequest{Owner: &owner})
				if err == nil && p.Message.Owner != owner {
					err = errors.Errorf("permit signed for %s, want %s", p.Message.Owner.Hex(), owner.Hex())
				}
				if err == nil {
					err = p.Verify()
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

func TestSignPermitNothingToPermit(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)

	_, err := f.service.SignPermit(t.Context(), wallet.SignPermitRequest{})
	require.ErrorIs(t, err, wallet.ErrNothingToPermit)

	f.chain.SetBalance(f.owner, big.NewInt(10))
	_, err = f.service.SignPermit(t.Context(), wallet.SignPermitRequest{Amount: new(big.Int)})
	require.ErrorIs(t, err, wallet.ErrNothingToPermit)
}

func TestSignPermitExplicitPolicy(t *testing.T) {
	f := newFixture(t, config.PermitAmountExplicit)
	f.chain.SetBalance(f.owner, big.NewInt(10))

	_, err := f.service.SignPermit(t.Context(), wallet.SignPermitRequest{})
	require.ErrorIs(t, err, permit.ErrInvalidRequest)

	p, err := f.service.SignPermit(t.Context(), wallet.SignPermitRequest{Amount: big.NewInt(4)})
	require.NoError(t, err)
	assert.Equal(t, "4", p.Message.Value.String())
}

func TestSignPermitUnknownOwner(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	_, err := f.service.SignPermit(t.Context(), wallet.SignPermitRequest{Owner: &stranger})

	var signErr *permit.SigningError
	require.ErrorAs(t, err, &signErr)
	assert.Equal(t, stranger, signErr.Account)
}

func TestSubmitPermit(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	f.chain.SetBalance(f.owner, big.NewInt(7))

	p, err := f.service.SignPermit(t.Context(), wallet.SignPermitRequest{})
	require.NoError(t, err)

	id, err := f.service.SubmitPermit(t.Context(), p)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "7", f.chain.Balance(test.SmartAccount).String())

	_, err = f.service.SubmitPermit(t.Context(), p)
	require.ErrorIs(t, err, batch.ErrPermitConsumed)
}

func TestSubmitPermitRejectsBadPermits(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	f.chain.SetBalance(f.owner, big.NewInt(7))

	sign := func() *permit.Permit {
		p, err := f.service.SignPermit(t.Context(), wallet.SignPermitRequest{})
		require.NoError(t, err)
		return p
	}

	tampered := sign()
	tampered.Message.Value = big.NewInt(1_000_000)
	_, err := f.service.SubmitPermit(t.Context(), tampered)
	require.ErrorIs(t, err, permit.ErrInvalidSignature)

	other := f.second
	p, err := f.service.SignPermit(t.Context(), wallet.SignPermitRequest{Spender: &other})
	require.NoError(t, err)
	_, err = f.service.SubmitPermit(t.Context(), p)
	require.ErrorIs(t, err, wallet.ErrSpenderMismatch)

	_, err = f.service.SubmitPermit(t.Context(), nil)
	require.ErrorIs(t, err, permit.ErrInvalidRequest)

	expired := sign()
	f.clock.Advance(2 * time.Hour)
	_, err = f.service.SubmitPermit(t.Context(), expired)
	require.ErrorIs(t, err, permit.ErrExpired)

	assert.Empty(t, f.chain.Batches())
}

func TestConcurrentFlowsAreSerialized(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	f.chain.SetBalance(f.owner, big.NewInt(100))

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)

	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.service.PermitAndTransfer(t.Context(), wallet.SignPermitRequest{})
		}()
	}
	wg.Wait()

	// the second flow sees the drained balance instead of a stale nonce
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, wallet.ErrNothingToPermit)
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "100", f.chain.Balance(test.SmartAccount).String())
	assert.Equal(t, "1", f.chain.Nonce(f.owner).String())
}

func TestOverlappingSubmissionsFromOneAccountConflict(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	f.chain.SetBalance(test.SmartAccount, big.NewInt(2_000_000))
	f.chain.SubmitDelay = 20 * time.Millisecond

	call, err := token.Transfer(f.chain.Token, f.second, big.NewInt(1))
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)

	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = batch.SubmitOne(t.Context(), f.chain, call)
		}()
	}
	wg.Wait()

	// without the account lock both read the same account nonce
	failed := 0
	for _, err := range errs {
		var subErr *batch.SubmissionError
		if errors.As(err, &subErr) {
			assert.Equal(t, batch.StageSend, subErr.Stage)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, uint64(1), f.chain.AccountNonce())
}

func TestPermitFlowsAndTransfersShareAccountNonce(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	f.chain.SetBalance(f.owner, big.NewInt(100))
	f.chain.SetBalance(f.second, big.NewInt(200))
	f.chain.SetBalance(test.SmartAccount, big.NewInt(2_000_000))
	f.chain.SubmitDelay = 20 * time.Millisecond
	recipient := common.HexToAddress("0x7777777777777777777777777777777777777777")

	var (
		wg   sync.WaitGroup
		errs = make([]error, 3)
	)

	wg.Add(len(errs))
	go func() {
		defer wg.Done()
		_, errs[0] = f.service.PermitAndTransfer(t.Context(), wallet.SignPermitRequest{Owner: &f.owner})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.service.PermitAndTransfer(t.Context(), wallet.SignPermitRequest{Owner: &f.second})
	}()
	go func() {
		defer wg.Done()
		_, errs[2] = f.service.Transfer(t.Context(), recipient, "1")
	}()
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(3), f.chain.AccountNonce())
	assert.Equal(t, "1000300", f.chain.Balance(test.SmartAccount).String())
	assert.Equal(t, "1000000", f.chain.Balance(recipient).String())
	assert.Equal(t, 0, f.chain.Balance(f.second).Sign())
}

func TestTransfer(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)
	f.chain.SetBalance(test.SmartAccount, big.NewInt(2_000_000))

	id, err := f.service.Transfer(t.Context(), f.second, "1.5")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "1500000", f.chain.Balance(f.second).String())

	bal, err := f.service.Balance(t.Context(), f.second)
	require.NoError(t, err)
	assert.Equal(t, "1.500", bal.Formatted)
	assert.Equal(t, uint8(6), bal.Decimals)
}

func TestTransferValidation(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)

	tests := []struct {
		name   string
		to     common.Address
		amount string
	}{
		{"zero recipient", common.Address{}, "1"},
		{"not a number", f.second, "abc"},
		{"too precise", f.second, "0.0000001"},
		{"negative", f.second, "-1"},
		{"zero", f.second, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Transfer(t.Context(), tt.to, tt.amount)

			var encErr *token.EncodingError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, token.MethodTransfer, encErr.Method)
		})
	}

	assert.Empty(t, f.chain.Batches())
}

func TestTransferReverts(t *testing.T) {
	f := newFixture(t, config.PermitAmountFullBalance)

	_, err := f.service.Transfer(t.Context(), f.second, "1")

	var subErr *batch.SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.ErrorIs(t, err, batch.ErrReverted)
}
