// Package noisecore provides a Noise Protocol Framework symmetric-state
// engine paired with quantum-resistant key encapsulation (CH-KEM) and a
// demo VPN tunnel built on top of it.
//
// The handshake transport combines ML-KEM-1024 (NIST FIPS 203) post-quantum
// key encapsulation with X25519 classical ECDH for defense-in-depth against
// both classical and quantum attacks; the resulting shared secret is mixed
// into a Noise SymmetricState to derive the transport ciphers.
//
// # Quick Start
//
// For a complete VPN tunnel with handshake:
//
//	import "github.com/pzverkov/noisecore/pkg/tunnel"
//
//	// Server
//	listener, _ := tunnel.Listen("tcp", ":8443")
//	conn, _ := listener.Accept()
//	data, _ := conn.Receive()
//
//	// Client
//	client, _ := tunnel.Dial("tcp", "localhost:8443")
//	client.Send([]byte("Hello!"))
//
// For low-level CH-KEM key encapsulation:
//
//	import "github.com/pzverkov/noisecore/pkg/chkem"
//
//	keyPair, _ := chkem.GenerateKeyPair()
//	ciphertext, sharedSecret, _ := chkem.Encapsulate(keyPair.PublicKey())
//	recoveredSecret, _ := chkem.Decapsulate(ciphertext, keyPair)
//
// # Package Structure
//
// The library is organized into several packages:
//
//   - pkg/noise: Noise Protocol Framework SymmetricState/CipherState engine (HKDF, AEAD, transcript hashing)
//   - pkg/chkem: High-level CH-KEM key encapsulation API (ML-KEM-1024 + X25519)
//   - pkg/tunnel: VPN tunnel with handshake protocol and encrypted transport, built on pkg/noise
//   - pkg/protocol: Wire protocol message definitions and encoding
//   - internal/constants: Security parameters and protocol constants
//   - internal/errors: Custom error types for detailed error handling
//
// # Security Properties
//
// The CH-KEM construction provides:
//
//   - Post-quantum security: ML-KEM-1024 (NIST Category 5, ~256-bit security)
//   - Classical security: X25519 ECDH (128-bit security)
//   - Hybrid guarantee: Secure if EITHER algorithm is secure
//   - Forward secrecy: Ephemeral keys generated for each session
//   - Authenticated encryption: AES-256-GCM or ChaCha20-Poly1305
//   - Replay protection: Sliding window with sequence numbers
//
// # Testing
//
// The library includes comprehensive tests:
//
//	go test ./...                                    # All tests
//	go test -fuzz=FuzzParsePublicKey ./test/fuzz/  # Fuzz tests
//	go test ./pkg/noise                              # SymmetricState/CipherState unit tests
//	go test -bench=. ./test/benchmark              # Benchmarks
//
// # Performance
//
// Typical performance on modern hardware (AMD64):
//
//   - CH-KEM key generation: ~800 µs
//   - CH-KEM encapsulation: ~900 µs
//   - CH-KEM decapsulation: ~1000 µs
//   - AES-256-GCM encryption: ~2 GB/s (hardware-accelerated)
//   - ChaCha20-Poly1305: ~800 MB/s (software)
//
// # References
//
//   - NIST FIPS 203: Module-Lattice-Based Key-Encapsulation Mechanism Standard
//   - RFC 7748: Elliptic Curves for Security
//   - NIST FIPS 202: SHA-3 Standard (SHAKE-256)
//
// For more information, see: https://github.com/pzverkov/noisecore
package noisecore
