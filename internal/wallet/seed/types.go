package seed

// Manager keeps the unlocked HD seed in memory for the lifetime of a session
type Manager interface {
	// Initialize converts the mnemonic into a BIP39 seed (called once after unlocking the keystore)
	Initialize(mnemonic string, passphrase string) error

	// GetSeed returns a copy of the seed, nil when not initialized
	GetSeed() []byte

	// IsInitialized checks if seed is initialized
	IsInitialized() bool

	// Clear wipes the seed from memory
	Clear()
}
