package tunnel

import (
	"github.com/pzverkov/noisecore/internal/constants"
	qerrors "github.com/pzverkov/noisecore/internal/errors"
	"github.com/pzverkov/noisecore/pkg/noise"
)

// noiseSuite maps a negotiated constants.CipherSuite onto the pkg/noise
// primitive capability set the handshake and session drive. The handshake
// hash is fixed at SHA-256 regardless of which AEAD is selected, both
// because its 32-byte width matches protocol.ClientFinished/ServerFinished's
// fixed VerifyData size and because Noise's "the protocol name fixes
// everything" philosophy calls for one hash per deployment rather than one
// per cipher choice.
func noiseSuite(cs constants.CipherSuite) (noise.Suite, error) {
	switch cs {
	case constants.CipherSuiteChaCha20Poly1305:
		return noise.NewSuite(noise.SHA256, noise.NewChaCha20Poly1305, constants.ChaCha20KeySize, noise.LittleEndian), nil
	case constants.CipherSuiteAES256GCM:
		return noise.NewSuite(noise.SHA256, noise.NewAES256GCM, constants.AESKeySize, noise.BigEndian), nil
	default:
		return noise.Suite{}, qerrors.ErrUnsupportedCipherSuite
	}
}
