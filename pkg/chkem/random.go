package chkem

import (
	"crypto/rand"
	"io"

	qerrors "github.com/pzverkov/noisecore/internal/errors"
)

// Reader is the CSPRNG used for ephemeral key and seed generation.
var Reader = rand.Reader

// SecureRandom fills b with cryptographically secure random bytes.
func SecureRandom(b []byte) error {
	if _, err := io.ReadFull(Reader, b); err != nil {
		return qerrors.NewCryptoError("SecureRandom", err)
	}
	return nil
}

// SecureRandomBytes allocates and fills an n-byte slice of cryptographically
// secure random data.
func SecureRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := SecureRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Zeroize overwrites b with zeros. Best-effort: the Go runtime may retain
// other copies, and the compiler is free to elide the write if it can prove
// b is otherwise unused, but this is the same caveat every Go implementation
// in this tree accepts for key material.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroizeMultiple zeroizes every slice in slices.
func ZeroizeMultiple(slices ...[]byte) {
	for _, s := range slices {
		Zeroize(s)
	}
}
