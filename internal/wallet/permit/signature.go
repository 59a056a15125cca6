package permit

import (
	"github.com/pkg/errors"
)

const (
	signatureLength = 65
	legacyVOffset   = 27
)

// SplitSignature splits a 65 byte r||s||v signature. A v of 0 or 1 is
// normalized to 27 or 28.
//
//nolint:varnamelen // v, r, s are the canonical signature component names
func SplitSignature(sig []byte) (v uint8, r [32]byte, s [32]byte, err error) {
	if len(sig) != signatureLength {
		return 0, r, s, errors.Wrapf(ErrInvalidSignature, "expected %d bytes, got %d", signatureLength, len(sig))
	}

	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	v = sig[64]

	if v < legacyVOffset {
		v += legacyVOffset
	}

	if v != legacyVOffset && v != legacyVOffset+1 {
		return 0, r, s, errors.Wrapf(ErrInvalidSignature, "unexpected v %d", v)
	}

	return v, r, s, nil
}

// JoinSignature is the inverse of SplitSignature.
//
//nolint:varnamelen // v, r, s are the canonical signature component names
func JoinSignature(v uint8, r [32]byte, s [32]byte) []byte {
	sig := make([]byte, 0, signatureLength)
	sig = append(sig, r[:]...)
	sig = append(sig, s[:]...)

	return append(sig, v)
}
