// Package noise implements the generic SymmetricState/CipherState engine
// prescribed by the Noise Protocol Framework: handshake-hash and
// chaining-key bookkeeping, HKDF-based mixing of shared secrets and
// pre-shared keys, authenticated encryption of handshake payloads, and the
// terminal derivation of a pair of transport ciphers.
//
// # Scope
//
// This package does not know about handshake patterns (XK, IK, ...),
// Diffie-Hellman, or transport I/O. Callers supply shared-secret bytes from
// whatever DH/KEM they like, drive MixHash/MixSharedSecret/Encrypt/Decrypt
// in the order their chosen pattern dictates, and call Split once to obtain
// transport Ciphers. See pkg/tunnel for a caller that composes a concrete
// handshake pattern on top of this engine.
//
// # Primitive capability
//
// Hash, HKDF and AEAD are supplied through the Hash, HKDF and AEAD
// interfaces in primitive.go. Concrete implementations for the primitive
// set Noise interop requires (SHA-256, SHA-512, BLAKE2b-512, BLAKE2s-256,
// ChaCha20-Poly1305, AES-256-GCM) are provided in this package; Suite ties a
// Noise protocol-name string to the right (Hash, AEAD, Endian) triple.
//
// # State machine
//
// NewUnkeyedState returns an UnkeyedState. MixSharedSecret/MixPSK consume it
// and return a *KeyedState; Encrypt/Decrypt/Split are only reachable on a
// KeyedState, so calling an AEAD operation before any keying mix is a
// compile-time impossibility rather than a runtime error.
package noise
