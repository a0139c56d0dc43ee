package noise

import "encoding/binary"

// Endian selects how a Cipher's 64-bit nonce counter is packed into the
// AEAD nonce field. ChaCha20-Poly1305 uses little-endian 12-byte nonces;
// AES-256-GCM uses big-endian 12-byte nonces. It is the sole
// endian-sensitive step in the engine (spec.md §4.2).
type Endian int

const (
	// LittleEndian packs the counter little-endian (ChaCha20-Poly1305).
	LittleEndian Endian = iota
	// BigEndian packs the counter big-endian (AES-256-GCM).
	BigEndian
)

// prepareNonce encodes n as an 8-byte counter per e, right-aligned into a
// buffer of size nonceSize with leading bytes zero (spec.md §4.2). Panics
// if nonceSize < 8, which would truncate the counter and is always a
// misconfigured AEAD primitive rather than a runtime condition.
func prepareNonce(e Endian, n uint64, nonceSize int) []byte {
	invariant(nonceSize >= 8, "AEAD nonce size must be at least 8 bytes")

	nonce := make([]byte, nonceSize)
	tail := nonce[nonceSize-8:]
	switch e {
	case BigEndian:
		binary.BigEndian.PutUint64(tail, n)
	default:
		binary.LittleEndian.PutUint64(tail, n)
	}
	return nonce
}
