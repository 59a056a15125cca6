package permit_test

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/test"
	"github/chapool/go-gasless/internal/wallet/chain"
	"github/chapool/go-gasless/internal/wallet/permit"
	"github/chapool/go-gasless/internal/wallet/signer"
	"github/chapool/go-gasless/internal/wallet/token"
)

type fixture struct {
	chain   *test.TokenChain
	keyring *signer.Keyring
	builder permit.Service
	owner   common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := test.NewMockClock()
	tc := test.NewTokenChain(clock, test.SmartAccount)
	k := test.NewTestKeyring(t, 2)

	b := permit.NewBuilder(chain.NewReader(tc, nil), clock, permit.Config{
		ChainID:  test.BaseSepoliaChainID,
		Version:  "1",
		Validity: time.Hour,
	}, nil)

	return &fixture{chain: tc, keyring: k, builder: b, owner: k.Accounts()[0].Address}
}

func (f *fixture) request() permit.Request {
	return permit.Request{Owner: f.owner, Spender: test.SmartAccount, Token: f.chain.Token}
}

func TestBuildAndSignPermit(t *testing.T) {
	f := newFixture(t)
	f.chain.SetBalance(f.owner, big.NewInt(2_000_000))
	f.chain.SetNonce(f.owner, big.NewInt(3))

	p, err := f.builder.BuildAndSignPermit(t.Context(), f.request(), f.keyring)
	require.NoError(t, err)

	assert.Equal(t, f.owner, p.Message.Owner)
	assert.Equal(t, test.SmartAccount, p.Message.Spender)
	assert.Equal(t, "2000000", p.Message.Value.String())
	assert.Equal(t, "3", p.Message.Nonce.String())
	assert.Equal(t, test.FixedNow.Add(time.Hour).Unix(), p.Message.Deadline.Int64())
	assert.Equal(t, test.DefaultTokenName, p.Domain.Name)
	assert.Equal(t, "1", p.Domain.Version)
	assert.Equal(t, "84532", p.Domain.ChainID.String())
	assert.Equal(t, f.chain.Token, p.Domain.VerifyingContract)
	assert.Equal(t, "2000000", p.Balance.String())

	require.Len(t, p.Signature, 65)
	assert.Contains(t, []uint8{27, 28}, p.V)
	assert.Equal(t, p.Signature[:32], p.R[:])
	assert.Equal(t, p.Signature[32:64], p.S[:])
	require.NoError(t, p.Verify())

	// one read each, issued before signing
	assert.Equal(t, 1, f.chain.Reads(token.MethodNonces))
	assert.Equal(t, 1, f.chain.Reads(token.MethodBalanceOf))
	assert.Equal(t, 1, f.chain.Reads(token.MethodName))
}

func TestBuildWithExplicitAmount(t *testing.T) {
	f := newFixture(t)
	f.chain.SetBalance(f.owner, big.NewInt(2_000_000))

	req := f.request()
	req.Amount = big.NewInt(500_000)

	p, err := f.builder.BuildAndSignPermit(t.Context(), req, f.keyring)
	require.NoError(t, err)
	assert.Equal(t, "500000", p.Message.Value.String())

	// the request amount is not aliased
	req.Amount.SetInt64(1)
	assert.Equal(t, "500000", p.Message.Value.String())
}

func TestBuildWithZeroBalance(t *testing.T) {
	f := newFixture(t)

	p, err := f.builder.BuildAndSignPermit(t.Context(), f.request(), f.keyring)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Message.Value.Sign())
}

func TestSigningErrors(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		f := newFixture(t)
		s := test.NewRejectingSigner(f.keyring)
		s.RejectNext()

		_, err := f.builder.BuildAndSignPermit(t.Context(), f.request(), s)

		var signErr *permit.SigningError
		require.ErrorAs(t, err, &signErr)
		assert.Equal(t, f.owner, signErr.Account)
		require.ErrorIs(t, err, signer.ErrRejected)
	})

	t.Run("inactive account", func(t *testing.T) {
		f := newFixture(t)
		req := f.request()
		req.Owner = f.keyring.Accounts()[1].Address

		_, err := f.builder.BuildAndSignPermit(t.Context(), req, f.keyring)

		var signErr *permit.SigningError
		require.ErrorAs(t, err, &signErr)
		require.ErrorIs(t, err, signer.ErrInactiveAccount)
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t)
		req := f.request()
		req.Owner = common.HexToAddress("0x9999999999999999999999999999999999999999")

		_, err := f.builder.BuildAndSignPermit(t.Context(), req, f.keyring)
		require.ErrorIs(t, err, signer.ErrUnknownAccount)
	})
}

func TestReadErrorsPropagate(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		f := newFixture(t)
		f.chain.CallErr = test.ErrInjected

		_, err := f.builder.BuildAndSignPermit(t.Context(), f.request(), f.keyring)

		var netErr *chain.NetworkError
		require.ErrorAs(t, err, &netErr)
		require.ErrorIs(t, err, test.ErrInjected)

		var signErr *permit.SigningError
		assert.NotErrorAs(t, err, &signErr)
	})

	t.Run("decode", func(t *testing.T) {
		f := newFixture(t)
		f.chain.RawResults[token.MethodNonces] = []byte{0x01}

		_, err := f.builder.BuildAndSignPermit(t.Context(), f.request(), f.keyring)

		var decErr *chain.DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, token.MethodNonces, decErr.Op)
	})
}

func TestInvalidRequests(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.Spender = common.Address{}
	_, err := f.builder.BuildAndSignPermit(t.Context(), req, f.keyring)
	require.ErrorIs(t, err, permit.ErrInvalidRequest)

	req = f.request()
	req.Amount = big.NewInt(-5)
	_, err = f.builder.BuildAndSignPermit(t.Context(), req, f.keyring)

	var encErr *token.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Zero(t, f.chain.Reads(token.MethodNonces))
}

func TestVerifyDetectsTampering(t *testing.T) {
	f := newFixture(t)
	f.chain.SetBalance(f.owner, big.NewInt(10))

	p, err := f.builder.BuildAndSignPermit(t.Context(), f.request(), f.keyring)
	require.NoError(t, err)

	p.Message.Value = big.NewInt(11)
	require.ErrorIs(t, p.Verify(), permit.ErrInvalidSignature)
}

func TestPermitJSON(t *testing.T) {
	f := newFixture(t)
	f.chain.SetBalance(f.owner, big.NewInt(2_000_000))
	f.chain.SetNonce(f.owner, big.NewInt(3))

	p, err := f.builder.BuildAndSignPermit(t.Context(), f.request(), f.keyring)
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"value":"2000000"`)
	assert.Contains(t, string(raw), `"chainId":"84532"`)

	var decoded permit.Permit
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.NoError(t, decoded.Verify())
	assert.Equal(t, p.Message.Deadline, decoded.Message.Deadline)

	require.Error(t, json.Unmarshal([]byte(`{"owner":"0x12","spender":"","value":"1"}`), &decoded))
}

func TestConsumedOnce(t *testing.T) {
	p := &permit.Permit{}
	assert.False(t, p.Consumed())
	assert.True(t, p.MarkConsumed())
	assert.False(t, p.MarkConsumed())
	assert.True(t, p.Consumed())
}

func TestCheckDeadline(t *testing.T) {
	clock := test.NewMockClock()
	p := &permit.Permit{Message: permit.Message{Deadline: big.NewInt(test.FixedNow.Add(time.Minute).Unix())}}

	require.NoError(t, permit.CheckDeadline(p, clock))

	clock.Advance(time.Minute)
	require.ErrorIs(t, permit.CheckDeadline(p, clock), permit.ErrExpired)
}
