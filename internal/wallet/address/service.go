package address

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Length is the length of a textual address including the 0x prefix.
const Length = 42

var (
	ErrInvalidAddress = errors.New("invalid address")

	hexAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

type service struct{}

// NewService creates a new address derivation service
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService() Service {
	return &service{}
}

// GetBIP44Path gets BIP44 path (fixed format for EVM chains)
// Format: m/44'/60'/0'/0/{index}
func (s *service) GetBIP44Path(accountIndex int) string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", accountIndex)
}

// IsValid reports whether s is a 0x-prefixed, 40 hex digit address.
func IsValid(s string) bool {
	return hexAddressPattern.MatchString(s)
}

// Parse validates s against the fixed-length hex pattern and converts it.
// Unlike common.HexToAddress it never silently pads or truncates.
func Parse(s string) (common.Address, error) {
	if !IsValid(s) {
		return common.Address{}, errors.Wrapf(ErrInvalidAddress, "%q", s)
	}

	return common.HexToAddress(s), nil
}

// MustParse is Parse for package-level constants.
func MustParse(s string) common.Address {
	addr, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return addr
}

// Canonical returns the lowercase 0x-prefixed form used in logs and API responses.
func Canonical(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
