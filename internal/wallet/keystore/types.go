package keystore

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound        = errors.New("keystore not found")
	ErrAlreadyExists   = errors.New("keystore already exists")
	ErrInvalidPassword = errors.New("invalid password: MAC mismatch")
)

// Service stores the encrypted mnemonic of the session's HD wallet
type Service interface {
	// CreateKeystore encrypts the mnemonic and writes the keystore file
	CreateKeystore(ctx context.Context, mnemonic string, password string) (*Keystore, error)

	// DecryptMnemonic decrypts the mnemonic from a keystore
	DecryptMnemonic(ctx context.Context, keystore *Keystore, password string) (string, error)

	// GetKeystore reads the keystore file
	GetKeystore(ctx context.Context) (*Keystore, error)

	// Exists checks if the keystore file exists
	Exists(ctx context.Context) (bool, error)
}

// Keystore is a keystore file loaded from disk
type Keystore struct {
	Path string
	JSON KeystoreJSON
}

// KeystoreJSON represents the Ethereum keystore v3 JSON structure
//
//nolint:revive // KeystoreJSON is the standard name for Ethereum keystore JSON structure
type KeystoreJSON struct {
	Version int    `json:"version"`
	ID      string `json:"id"`
	Crypto  struct {
		Ciphertext   string `json:"ciphertext"`
		CipherParams struct {
			IV string `json:"iv"`
		} `json:"cipherparams"`
		Cipher    string `json:"cipher"`
		KDF       string `json:"kdf"`
		KDFParams struct {
			DKLen int    `json:"dklen"`
			Salt  string `json:"salt"`
			N     int    `json:"n"`
			R     int    `json:"r"`
			P     int    `json:"p"`
		} `json:"kdfparams"`
		MAC string `json:"mac"`
	} `json:"crypto"`
}

// ScryptParams defines scrypt KDF parameters
type ScryptParams struct {
	DKLen int // Derived key length (32 bytes)
	N     int // CPU/memory cost parameter
	R     int // Block size parameter
	P     int // Parallelization parameter
}

// DefaultScryptParams returns the standard parameters for Ethereum keystore v3
func DefaultScryptParams() ScryptParams {
	const (
		scryptDKLen = 32
		scryptN     = 262144 // 2^18
		scryptR     = 8
		scryptP     = 1
	)

	return ScryptParams{DKLen: scryptDKLen, N: scryptN, R: scryptR, P: scryptP}
}

// LightScryptParams trades strength for speed (tests, throwaway keystores)
func LightScryptParams() ScryptParams {
	const scryptN = 4096

	p := DefaultScryptParams()
	p.N = scryptN
	p.P = 6 //nolint:mnd // matches go-ethereum's light scrypt settings

	return p
}
