package test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github/chapool/go-gasless/internal/wallet/address"
	"github/chapool/go-gasless/internal/wallet/seed"
	"github/chapool/go-gasless/internal/wallet/signer"
)

// TestMnemonic is the well known development mnemonic; its first accounts are
// 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 and 0x70997970C51812dc3A010C7d01b50e0d17dc79C8.
//
//nolint:dupword
const TestMnemonic = "test test test test test test test test test test test junk"

var (
	// SmartAccount is the sponsored smart wallet used in tests, owned by the first embedded account
	SmartAccount = common.HexToAddress("0x5A8d1b9e3c0aE2B6c6f9D0c2e3A1F4B7c8D9E0F1")

	// FixedNow is the mock clock's start time
	FixedNow = time.Unix(1_700_000_000, 0)
)

// NewTestKeyring derives embedded accounts from TestMnemonic and registers SmartAccount.
func NewTestKeyring(t *testing.T, embedded int) *signer.Keyring {
	t.Helper()

	m := seed.NewManager()
	if err := m.Initialize(TestMnemonic, ""); err != nil {
		t.Fatalf("failed to initialize seed: %v", err)
	}
	t.Cleanup(m.Clear)

	k, err := signer.NewKeyringFromSeed(t.Context(), m, address.NewService(), embedded)
	if err != nil {
		t.Fatalf("failed to create keyring: %v", err)
	}

	owner := k.Accounts()[0].Address
	if _, err := k.AddSmartWallet(SmartAccount, owner); err != nil {
		t.Fatalf("failed to add smart wallet: %v", err)
	}

	return k
}

// NewMockClock returns a clock frozen at FixedNow.
func NewMockClock() *time2.MockClock {
	return time2.NewMockClock(FixedNow)
}

// RejectingSigner wraps a signer and lets tests decline signature requests the way
// a wallet user would.
type RejectingSigner struct {
	signer.Signer

	reject atomic.Bool
}

func NewRejectingSigner(s signer.Signer) *RejectingSigner {
	return &RejectingSigner{Signer: s}
}

// RejectNext makes the next SignTypedData call fail with signer.ErrRejected.
func (s *RejectingSigner) RejectNext() {
	s.reject.Store(true)
}

func (s *RejectingSigner) SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) ([]byte, error) {
	if s.reject.CompareAndSwap(true, false) {
		return nil, signer.ErrRejected
	}

	return s.Signer.SignTypedData(ctx, account, data)
}
