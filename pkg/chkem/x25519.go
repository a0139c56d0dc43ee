package chkem

import (
	"crypto/ecdh"

	"github.com/pzverkov/noisecore/internal/constants"
	qerrors "github.com/pzverkov/noisecore/internal/errors"
)

// x25519KeyPair is a classical ECDH key pair (RFC 7748), the non-quantum-
// resistant half of the hybrid construction.
type x25519KeyPair struct {
	publicKey  *ecdh.PublicKey
	privateKey *ecdh.PrivateKey
}

func generateX25519KeyPair() (*x25519KeyPair, error) {
	privateKey, err := ecdh.X25519().GenerateKey(Reader)
	if err != nil {
		return nil, qerrors.NewCryptoError("x25519KeyPair.Generate", err)
	}
	return &x25519KeyPair{publicKey: privateKey.PublicKey(), privateKey: privateKey}, nil
}

func x25519DH(privateKey *ecdh.PrivateKey, peerPublic *ecdh.PublicKey) ([]byte, error) {
	if privateKey == nil {
		return nil, qerrors.ErrInvalidPrivateKey
	}
	if peerPublic == nil {
		return nil, qerrors.ErrInvalidPublicKey
	}
	secret, err := privateKey.ECDH(peerPublic)
	if err != nil {
		return nil, qerrors.NewCryptoError("x25519DH", err)
	}
	return secret, nil
}

func (kp *x25519KeyPair) publicKeyBytes() []byte {
	return kp.publicKey.Bytes()
}

func parseX25519PublicKey(data []byte) (*ecdh.PublicKey, error) {
	if len(data) != constants.X25519PublicKeySize {
		return nil, qerrors.ErrInvalidPublicKey
	}
	publicKey, err := ecdh.X25519().NewPublicKey(data)
	if err != nil {
		return nil, qerrors.NewCryptoError("parseX25519PublicKey", err)
	}
	return publicKey, nil
}
