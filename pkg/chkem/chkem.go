// Package chkem implements the Cascaded Hybrid Key Encapsulation Mechanism
// (CH-KEM): X25519 combined with ML-KEM-1024 via a SHAKE-256 combiner.
//
// CH-KEM is IND-CCA2 secure if EITHER X25519 OR ML-KEM-1024 is secure, under
// the random oracle model for SHAKE-256:
//
//  1. Quantum resistance: ML-KEM-1024 resists quantum adversaries.
//  2. Classical fallback: X25519 provides defense if ML-KEM is ever broken.
//  3. Defense in depth: both must fail for the combined key to be exposed.
//
// # Construction
//
//	KeyGen:        (sk_x, pk_x) <- X25519.KeyGen(); (sk_m, pk_m) <- ML-KEM.KeyGen()
//	               pk = pk_x || pk_m; sk = (sk_x, sk_m)
//	Encapsulate:   (ct_m, K_m) <- ML-KEM.Encaps(pk_m)
//	               (sk_e, pk_e) <- X25519.KeyGen(); K_x <- X25519.DH(sk_e, pk_x)
//	               ct = pk_e || ct_m
//	               K <- SHAKE-256(K_x || K_m || SHA3-256(pk || ct), "CH-KEM-v1-SharedSecret")
//	Decapsulate:   parse ct as (pk_e, ct_m); K_x <- X25519.DH(sk_x, pk_e)
//	               K_m <- ML-KEM.Decaps(sk_m, ct_m)
//	               K <- SHAKE-256(K_x || K_m || SHA3-256(pk || ct), "CH-KEM-v1-SharedSecret")
//
// CH-KEM only produces an opaque shared-secret byte string; it has no
// knowledge of how that secret is later mixed into a handshake (that's
// pkg/noise's job) and implements no handshake pattern of its own.
package chkem

import (
	"crypto/ecdh"

	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"

	"github.com/pzverkov/noisecore/internal/constants"
	qerrors "github.com/pzverkov/noisecore/internal/errors"
)

// KeyPair is a CH-KEM key pair combining X25519 and ML-KEM-1024 components.
type KeyPair struct {
	x25519 *x25519KeyPair
	mlkem  *mlkemKeyPair
}

// PublicKey is a CH-KEM public key, usable for Encapsulate.
type PublicKey struct {
	x25519 *ecdh.PublicKey
	mlkem  *mlkem1024.PublicKey
}

// Ciphertext is a CH-KEM ciphertext: an X25519 ephemeral public key plus an
// ML-KEM-1024 ciphertext.
type Ciphertext struct {
	x25519Ephemeral []byte
	mlkemCiphertext []byte
}

// GenerateKeyPair generates a new CH-KEM key pair using the system CSPRNG.
func GenerateKeyPair() (*KeyPair, error) {
	x, err := generateX25519KeyPair()
	if err != nil {
		return nil, qerrors.NewCryptoError("CHKEM.GenerateKeyPair", err)
	}
	m, err := generateMLKEMKeyPair()
	if err != nil {
		return nil, qerrors.NewCryptoError("CHKEM.GenerateKeyPair", err)
	}
	return &KeyPair{x25519: x, mlkem: m}, nil
}

// PublicKey returns the public component of the key pair.
func (kp *KeyPair) PublicKey() *PublicKey {
	return &PublicKey{x25519: kp.x25519.publicKey, mlkem: kp.mlkem.encapsulationKey}
}

// Encapsulate performs CH-KEM encapsulation against recipientPublic,
// returning the ciphertext to send and the derived shared secret.
func Encapsulate(recipientPublic *PublicKey) (*Ciphertext, []byte, error) {
	if recipientPublic == nil || recipientPublic.x25519 == nil || recipientPublic.mlkem == nil {
		return nil, nil, qerrors.ErrInvalidPublicKey
	}

	ephemeral, err := generateX25519KeyPair()
	if err != nil {
		return nil, nil, qerrors.NewCryptoError("CHKEM.Encapsulate", err)
	}

	xSecret, err := x25519DH(ephemeral.privateKey, recipientPublic.x25519)
	if err != nil {
		return nil, nil, qerrors.NewCryptoError("CHKEM.Encapsulate", err)
	}

	mCiphertext, mSecret, err := mlkemEncapsulate(recipientPublic.mlkem)
	if err != nil {
		return nil, nil, qerrors.NewCryptoError("CHKEM.Encapsulate", err)
	}

	ct := &Ciphertext{
		x25519Ephemeral: ephemeral.publicKeyBytes(),
		mlkemCiphertext: mCiphertext,
	}

	transcript := transcriptHash(
		recipientPublic.x25519.Bytes(),
		mlkemPublicKeyBytes(recipientPublic.mlkem),
		ct.x25519Ephemeral,
		ct.mlkemCiphertext,
	)

	sharedSecret, err := deriveSharedSecret(xSecret, mSecret, transcript)
	if err != nil {
		return nil, nil, err
	}
	ZeroizeMultiple(xSecret, mSecret)

	return ct, sharedSecret, nil
}

// Decapsulate recovers the shared secret Encapsulate produced for ct, using
// kp's private key material.
func Decapsulate(ct *Ciphertext, kp *KeyPair) ([]byte, error) {
	if ct == nil || len(ct.x25519Ephemeral) == 0 || len(ct.mlkemCiphertext) == 0 {
		return nil, qerrors.ErrInvalidCiphertext
	}
	if kp == nil || kp.x25519 == nil || kp.mlkem == nil {
		return nil, qerrors.ErrInvalidPrivateKey
	}

	ephemeralPublic, err := parseX25519PublicKey(ct.x25519Ephemeral)
	if err != nil {
		return nil, qerrors.NewCryptoError("CHKEM.Decapsulate", err)
	}

	xSecret, err := x25519DH(kp.x25519.privateKey, ephemeralPublic)
	if err != nil {
		return nil, qerrors.NewCryptoError("CHKEM.Decapsulate", err)
	}

	mSecret, err := mlkemDecapsulate(kp.mlkem.decapsulationKey, ct.mlkemCiphertext)
	if err != nil {
		return nil, qerrors.NewCryptoError("CHKEM.Decapsulate", err)
	}

	transcript := transcriptHash(
		kp.x25519.publicKey.Bytes(),
		mlkemPublicKeyBytes(kp.mlkem.encapsulationKey),
		ct.x25519Ephemeral,
		ct.mlkemCiphertext,
	)

	sharedSecret, err := deriveSharedSecret(xSecret, mSecret, transcript)
	if err != nil {
		return nil, err
	}
	ZeroizeMultiple(xSecret, mSecret)

	return sharedSecret, nil
}

// Bytes serializes the public key as x25519_public || mlkem_public.
func (pk *PublicKey) Bytes() []byte {
	result := make([]byte, constants.CHKEMPublicKeySize)
	copy(result[:constants.X25519PublicKeySize], pk.x25519.Bytes())
	copy(result[constants.X25519PublicKeySize:], mlkemPublicKeyBytes(pk.mlkem))
	return result
}

// ParsePublicKey parses a CH-KEM public key from its wire encoding.
func ParsePublicKey(data []byte) (*PublicKey, error) {
	if len(data) != constants.CHKEMPublicKeySize {
		return nil, qerrors.ErrInvalidPublicKey
	}

	x, err := parseX25519PublicKey(data[:constants.X25519PublicKeySize])
	if err != nil {
		return nil, err
	}
	m, err := parseMLKEMPublicKey(data[constants.X25519PublicKeySize:])
	if err != nil {
		return nil, err
	}
	return &PublicKey{x25519: x, mlkem: m}, nil
}

// Bytes serializes the ciphertext as x25519_ephemeral || mlkem_ciphertext.
func (ct *Ciphertext) Bytes() []byte {
	result := make([]byte, constants.CHKEMCiphertextSize)
	copy(result[:constants.X25519PublicKeySize], ct.x25519Ephemeral)
	copy(result[constants.X25519PublicKeySize:], ct.mlkemCiphertext)
	return result
}

// ParseCiphertext parses a CH-KEM ciphertext from its wire encoding.
func ParseCiphertext(data []byte) (*Ciphertext, error) {
	if len(data) != constants.CHKEMCiphertextSize {
		return nil, qerrors.ErrInvalidCiphertext
	}
	return &Ciphertext{
		x25519Ephemeral: data[:constants.X25519PublicKeySize],
		mlkemCiphertext: data[constants.X25519PublicKeySize:],
	}, nil
}

// Zeroize drops the key pair's private key references.
func (kp *KeyPair) Zeroize() {
	kp.x25519 = nil
	kp.mlkem = nil
}

// Clone returns a shallow copy of the public key.
func (pk *PublicKey) Clone() *PublicKey {
	return &PublicKey{x25519: pk.x25519, mlkem: pk.mlkem}
}

// X25519PublicKey returns the X25519 component of the public key.
func (pk *PublicKey) X25519PublicKey() *ecdh.PublicKey {
	return pk.x25519
}

// MLKEMPublicKey returns the raw ML-KEM-1024 public key bytes.
func (pk *PublicKey) MLKEMPublicKey() []byte {
	return mlkemPublicKeyBytes(pk.mlkem)
}
