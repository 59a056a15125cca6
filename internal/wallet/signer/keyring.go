package signer

import (
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/util"
	"github/chapool/go-gasless/internal/wallet/address"
	"github/chapool/go-gasless/internal/wallet/seed"
)

// Keyring holds the session's embedded keys and smart wallets and tracks the
// active signer. Typed-data signing through the keyring itself is only allowed for
// the active account; SignerFor binds a signer to one account instead.
type Keyring struct {
	mu       sync.RWMutex
	keys     map[common.Address]*ecdsa.PrivateKey
	accounts []Account
	active   *common.Address
}

func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[common.Address]*ecdsa.PrivateKey)}
}

// NewKeyringFromSeed derives count embedded accounts (m/44'/60'/0'/0/i) from the unlocked seed.
func NewKeyringFromSeed(ctx context.Context, seedManager seed.Manager, addressService address.Service, count int) (*Keyring, error) {
	s := seedManager.GetSeed()
	if s == nil {
		return nil, errors.New("seed not initialized")
	}

	defer func() {
		for i := range s {
			s[i] = 0
		}
	}()

	k := NewKeyring()

	for i := 0; i < count; i++ {
		path := addressService.GetBIP44Path(i)

		privateKey, err := addressService.DerivePrivateKey(ctx, s, path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive private key for %s", path)
		}

		key, err := crypto.ToECDSA(privateKey)
		for j := range privateKey {
			privateKey[j] = 0
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert to ECDSA private key")
		}

		// verify derived address matches the key
		derived, err := addressService.DeriveAddress(ctx, s, path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive address")
		}
		if derived != crypto.PubkeyToAddress(key.PublicKey) {
			return nil, errors.New("derived address does not match private key")
		}

		k.AddKey(key, i)
	}

	return k, nil
}

// AddKey registers an embedded account. The first embedded account becomes active.
func (k *Keyring) AddKey(key *ecdsa.PrivateKey, index int) Account {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	acc := Account{Address: addr, ConnectorType: ConnectorEmbedded, Index: index}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.keys[addr]; !ok {
		k.accounts = append(k.accounts, acc)
	}
	k.keys[addr] = key

	if k.active == nil {
		k.active = &addr
	}

	return acc
}

// AddSmartWallet registers a smart wallet executed through an embedded owner.
func (k *Keyring) AddSmartWallet(wallet, owner common.Address) (Account, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.keys[owner]; !ok {
		return Account{}, errors.Wrapf(ErrUnknownAccount, "smart wallet owner %s", owner.Hex())
	}

	o := owner
	acc := Account{Address: wallet, ConnectorType: ConnectorSmartWallet, Index: -1, Owner: &o}
	k.accounts = append(k.accounts, acc)

	return acc, nil
}

// Accounts lists all accounts in registration order.
func (k *Keyring) Accounts() []Account {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]Account, len(k.accounts))
	copy(out, k.accounts)

	return out
}

// Find returns the account with the given address.
func (k *Keyring) Find(addr common.Address) (Account, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	for _, acc := range k.accounts {
		if acc.Address == addr {
			return acc, true
		}
	}

	return Account{}, false
}

// FirstOf returns the first account of the connector type.
func (k *Keyring) FirstOf(connector ConnectorType) (Account, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	for _, acc := range k.accounts {
		if acc.ConnectorType == connector {
			return acc, true
		}
	}

	return Account{}, false
}

// Select makes an embedded account the active signer.
func (k *Keyring) Select(addr common.Address) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.keys[addr]; !ok {
		return errors.Wrapf(ErrUnknownAccount, "cannot activate %s", addr.Hex())
	}

	a := addr
	k.active = &a

	return nil
}

// Active returns the active signer, if any.
func (k *Keyring) Active() (common.Address, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.active == nil {
		return common.Address{}, false
	}

	return *k.active, true
}

// SignerFor returns a signer bound to the embedded account. It does not change the
// active account, flows for different owners sign independently.
//
//nolint:ireturn // the bound signer is only used through the Signer interface
func (k *Keyring) SignerFor(account common.Address) (Signer, error) {
	k.mu.RLock()
	key, ok := k.keys[account]
	k.mu.RUnlock()

	if !ok {
		return nil, k.unknownSigner(account)
	}

	return &accountSigner{account: account, key: key}, nil
}

func (k *Keyring) SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) ([]byte, error) {
	k.mu.RLock()
	active := k.active
	key, known := k.keys[account]
	k.mu.RUnlock()

	if !known {
		return nil, k.unknownSigner(account)
	}

	if active == nil || *active != account {
		return nil, errors.Wrapf(ErrInactiveAccount, "%s", account.Hex())
	}

	return signTypedData(ctx, key, account, data)
}

func (k *Keyring) unknownSigner(account common.Address) error {
	if _, isAccount := k.Find(account); isAccount {
		return errors.Wrapf(ErrCannotSign, "%s", account.Hex())
	}

	return errors.Wrapf(ErrUnknownAccount, "%s", account.Hex())
}

type accountSigner struct {
	account common.Address
	key     *ecdsa.PrivateKey
}

func (s *accountSigner) SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) ([]byte, error) {
	if account != s.account {
		return nil, errors.Wrapf(ErrInactiveAccount, "signer is bound to %s, not %s", s.account.Hex(), account.Hex())
	}

	return signTypedData(ctx, s.key, account, data)
}

func signTypedData(ctx context.Context, key *ecdsa.PrivateKey, account common.Address, data apitypes.TypedData) ([]byte, error) {
	digest, err := HashTypedData(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash typed data")
	}

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign typed data")
	}

	sig[recoveryIDIndex] += ethereumVOffset

	util.LogFromContext(ctx).Debug().
		Str("account", account.Hex()).
		Str("primaryType", data.PrimaryType).
		Msg("Signed typed data")

	return sig, nil
}

// SignMessage signs an EIP-191 personal message. Smart wallets sign through their owner key.
func (k *Keyring) SignMessage(_ context.Context, account common.Address, message []byte) ([]byte, error) {
	key, err := k.keyFor(account)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(accounts.TextHash(message), key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign message")
	}

	sig[recoveryIDIndex] += ethereumVOffset

	return sig, nil
}

func (k *Keyring) keyFor(account common.Address) (*ecdsa.PrivateKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if key, ok := k.keys[account]; ok {
		return key, nil
	}

	for _, acc := range k.accounts {
		if acc.Address == account && acc.Owner != nil {
			if key, ok := k.keys[*acc.Owner]; ok {
				return key, nil
			}
		}
	}

	return nil, errors.Wrapf(ErrUnknownAccount, "%s", account.Hex())
}
