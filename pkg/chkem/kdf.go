package chkem

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/pzverkov/noisecore/internal/constants"
	qerrors "github.com/pzverkov/noisecore/internal/errors"
)

// deriveKeyMultiple combines domain, the number of inputs, and each
// length-prefixed input into a SHAKE-256 sponge and squeezes outputLen
// bytes. This is CH-KEM's own key combiner and is independent of the HKDF
// derivation pkg/noise uses for SymmetricState — CH-KEM only hands
// pkg/noise an opaque shared-secret byte string.
func deriveKeyMultiple(domain string, inputs [][]byte, outputLen int) ([]byte, error) {
	if outputLen <= 0 || outputLen > 1<<20 {
		return nil, qerrors.NewCryptoError("deriveKeyMultiple", qerrors.ErrInvalidKeySize)
	}

	h := sha3.NewShake256()
	lenBuf := make([]byte, 4)

	domainBytes := []byte(domain)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(domainBytes)))
	h.Write(lenBuf)
	h.Write(domainBytes)

	binary.BigEndian.PutUint32(lenBuf, uint32(len(inputs)))
	h.Write(lenBuf)
	for _, input := range inputs {
		binary.BigEndian.PutUint32(lenBuf, uint32(len(input)))
		h.Write(lenBuf)
		h.Write(input)
	}

	output := make([]byte, outputLen)
	_, _ = h.Read(output) // SHAKE256.Read never fails
	return output, nil
}

// transcriptHash binds the handshake's public values (both parties' public
// keys plus the ciphertext) into a single SHA3-256 digest, so any
// modification to the exchanged values changes the final shared secret.
func transcriptHash(components ...[]byte) []byte {
	h := sha3.New256()
	lenBuf := make([]byte, 4)

	binary.BigEndian.PutUint32(lenBuf, uint32(len(components)))
	h.Write(lenBuf)
	for _, component := range components {
		binary.BigEndian.PutUint32(lenBuf, uint32(len(component)))
		h.Write(lenBuf)
		h.Write(component)
	}
	return h.Sum(nil)
}

// deriveSharedSecret combines the X25519 and ML-KEM secrets with the
// transcript hash: K is indistinguishable from random as long as either
// component secret is.
func deriveSharedSecret(x25519Secret, mlkemSecret, transcript []byte) ([]byte, error) {
	if len(x25519Secret) != constants.X25519SharedSecretSize {
		return nil, qerrors.NewCryptoError("deriveSharedSecret", qerrors.ErrInvalidKeySize)
	}
	if len(mlkemSecret) != constants.MLKEMSharedSecretSize {
		return nil, qerrors.NewCryptoError("deriveSharedSecret", qerrors.ErrInvalidKeySize)
	}
	if len(transcript) != constants.TranscriptHashSize {
		return nil, qerrors.NewCryptoError("deriveSharedSecret", qerrors.ErrInvalidKeySize)
	}

	return deriveKeyMultiple(
		constants.DomainSeparatorCHKEM,
		[][]byte{x25519Secret, mlkemSecret, transcript},
		constants.CHKEMSharedSecretSize,
	)
}
