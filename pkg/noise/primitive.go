package noise

import stdhash "hash"

// Hash is a fixed-output cryptographic hash together with the HMAC-style
// keyed operation HKDF needs. Implementations wrap crypto/sha256,
// crypto/sha512, golang.org/x/crypto/blake2b or golang.org/x/crypto/blake2s.
type Hash interface {
	// Size returns L, the hash's fixed output length in bytes.
	Size() int

	// BlockSize returns B, the hash's internal block length in bytes.
	BlockSize() int

	// Sum returns H(data).
	Sum(data []byte) []byte

	// SumParts returns H(h || parts[0] || parts[1] || ...) computed as a
	// single hash pass over the concatenation, per spec.md §4.1's
	// mix_parts note: NOT nested H(H(h||parts[0])||parts[1]).
	SumParts(h []byte, parts ...[]byte) []byte

	// New returns a fresh hash.Hash state; HKDF implementations use this to
	// key HMAC with this Hash.
	New() stdhash.Hash
}

// HKDF performs RFC 5869 HKDF-Extract+Expand using an HMAC compatible with
// the paired Hash, with the chaining key as salt and empty info — exactly
// the derivation Noise specifies in section 4.3 of the Noise spec.
type HKDF interface {
	// Split2 derives (ck', tempKey) of length (L, L) from HKDF-Expand(ck,
	// ikm, 2L).
	Split2(ck, ikm []byte) (ckNext, tempKey []byte)

	// Split3 derives (ck', middle, tempKey) of length (L, L, L) from
	// HKDF-Expand(ck, ikm, 3L).
	Split3(ck, ikm []byte) (ckNext, middle, tempKey []byte)

	// SplitFinal derives (k1, k2) of length (L, L) from HKDF-Expand(ck,
	// empty, 2L); used only by KeyedState.Split.
	SplitFinal(ck []byte) (k1, k2 []byte)
}

// AEAD is a keyed, nonce-based authenticated-encryption primitive with
// detached tag, used both by Cipher (transport) and KeyedState (handshake
// payloads).
type AEAD interface {
	// KeySize, NonceSize and TagSize report the primitive's fixed sizes.
	KeySize() int
	NonceSize() int
	TagSize() int

	// Seal encrypts buf in place (buf is replaced by ciphertext of the same
	// length) and returns the detached authentication tag.
	Seal(nonce, ad, buf []byte) (tag []byte)

	// Open verifies tag and decrypts buf in place (buf is replaced by
	// plaintext of the same length). Returns ErrMacMismatch on failure,
	// leaving buf's contents unspecified (callers must not emit it).
	Open(nonce, ad, buf []byte, tag []byte) error
}

// AEADFactory constructs a keyed AEAD instance from raw key bytes.
type AEADFactory func(key []byte) AEAD
