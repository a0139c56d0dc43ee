package noise

import (
	"fmt"
	"strings"
)

// Suite bundles the primitive capability set a SymmetricState needs: the
// Hash, the HKDF built from it, an AEADFactory plus its key size, and the
// nonce Endian policy. This is the configuration surface spec.md's
// "primitive capability set" describes in prose (§2, §4.1) turned into a
// single value callers pass to NewUnkeyedState.
type Suite struct {
	Hash        Hash
	HKDF        HKDF
	AEAD        AEADFactory
	AEADKeySize int
	Endian      Endian
}

// NewSuite builds a Suite from a Hash and an AEADFactory, deriving the HKDF
// implementation from the hash automatically.
func NewSuite(hash Hash, aead AEADFactory, aeadKeySize int, endian Endian) Suite {
	return Suite{Hash: hash, HKDF: NewHKDF(hash), AEAD: aead, AEADKeySize: aeadKeySize, Endian: endian}
}

// cipherToken describes one of the AEAD primitives named in a Noise
// protocol-name, keyed by its registry token ("ChaChaPoly", "AESGCM").
type cipherToken struct {
	factory AEADFactory
	keySize int
	endian  Endian
}

var cipherRegistry = map[string]cipherToken{
	"ChaChaPoly": {factory: NewChaCha20Poly1305, keySize: 32, endian: LittleEndian},
	"AESGCM":     {factory: NewAES256GCM, keySize: 32, endian: BigEndian},
}

var hashRegistry = map[string]Hash{
	"SHA256":  SHA256,
	"SHA512":  SHA512,
	"BLAKE2b": BLAKE2b512,
	"BLAKE2s": BLAKE2s256,
}

// ParsedProtocolName is the result of splitting a Noise protocol-name
// string (e.g. "Noise_XK_25519_ChaChaPoly_SHA512") into its named
// components, per the Noise spec's naming convention:
// Noise_<pattern>_<dh>_<cipher>_<hash>.
type ParsedProtocolName struct {
	Pattern string
	DH      string
	Cipher  string
	Hash    string
}

// ParseProtocolName splits a Noise protocol-name string into its
// components. It does not validate that any component is a primitive this
// package implements; use ResolveSuite for that.
func ParseProtocolName(name string) (ParsedProtocolName, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 5 || parts[0] != "Noise" {
		return ParsedProtocolName{}, fmt.Errorf("noise: malformed protocol name %q", name)
	}
	return ParsedProtocolName{
		Pattern: parts[1],
		DH:      parts[2],
		Cipher:  parts[3],
		Hash:    parts[4],
	}, nil
}

// ResolveSuite parses protocolName and looks up the corresponding Suite.
// The DH component is ignored — key agreement is an external collaborator
// per spec.md §1 — and used only for diagnostics in the returned error.
func ResolveSuite(protocolName string) (Suite, error) {
	parsed, err := ParseProtocolName(protocolName)
	if err != nil {
		return Suite{}, err
	}

	ct, ok := cipherRegistry[parsed.Cipher]
	if !ok {
		return Suite{}, fmt.Errorf("noise: unsupported cipher %q in protocol name %q", parsed.Cipher, protocolName)
	}
	h, ok := hashRegistry[parsed.Hash]
	if !ok {
		return Suite{}, fmt.Errorf("noise: unsupported hash %q in protocol name %q", parsed.Hash, protocolName)
	}

	return NewSuite(h, ct.factory, ct.keySize, ct.endian), nil
}
