package chkem

import (
	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"

	"github.com/pzverkov/noisecore/internal/constants"
	qerrors "github.com/pzverkov/noisecore/internal/errors"
)

// mlkemKeyPair is the post-quantum half of the hybrid construction:
// NIST FIPS 203 ML-KEM-1024, Category 5 security against quantum adversaries.
type mlkemKeyPair struct {
	encapsulationKey *mlkem1024.PublicKey
	decapsulationKey *mlkem1024.PrivateKey
}

func generateMLKEMKeyPair() (*mlkemKeyPair, error) {
	pk, sk, err := mlkem1024.GenerateKeyPair(Reader)
	if err != nil {
		return nil, qerrors.NewCryptoError("mlkemKeyPair.Generate", err)
	}
	return &mlkemKeyPair{encapsulationKey: pk, decapsulationKey: sk}, nil
}

func mlkemEncapsulate(ek *mlkem1024.PublicKey) (ciphertext, sharedSecret []byte, err error) {
	if ek == nil {
		return nil, nil, qerrors.ErrInvalidPublicKey
	}

	ct := make([]byte, mlkem1024.CiphertextSize)
	ss := make([]byte, mlkem1024.SharedKeySize)

	seed := make([]byte, mlkem1024.EncapsulationSeedSize)
	if err := SecureRandom(seed); err != nil {
		return nil, nil, qerrors.NewCryptoError("mlkemEncapsulate", err)
	}

	ek.EncapsulateTo(ct, ss, seed)
	return ct, ss, nil
}

func mlkemDecapsulate(dk *mlkem1024.PrivateKey, ciphertext []byte) ([]byte, error) {
	if dk == nil {
		return nil, qerrors.ErrInvalidPrivateKey
	}
	if len(ciphertext) != constants.MLKEMCiphertextSize {
		return nil, qerrors.ErrInvalidCiphertext
	}

	ss := make([]byte, mlkem1024.SharedKeySize)
	dk.DecapsulateTo(ss, ciphertext)
	return ss, nil
}

func mlkemPublicKeyBytes(pk *mlkem1024.PublicKey) []byte {
	if pk == nil {
		return nil
	}
	buf := make([]byte, mlkem1024.PublicKeySize)
	pk.Pack(buf)
	return buf
}

func parseMLKEMPublicKey(data []byte) (*mlkem1024.PublicKey, error) {
	if len(data) != constants.MLKEMPublicKeySize {
		return nil, qerrors.ErrInvalidPublicKey
	}
	pk := new(mlkem1024.PublicKey)
	if err := pk.Unpack(data); err != nil {
		return nil, qerrors.NewCryptoError("parseMLKEMPublicKey", err)
	}
	return pk, nil
}
