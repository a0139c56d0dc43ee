// handshake.go implements the CH-KEM handshake state machine on top of
// pkg/noise's SymmetricState: CH-KEM is the external DH/KEM collaborator
// that produces the opaque shared secret, and every handshake message is
// folded into a single running noise.UnkeyedState/KeyedState instead of a
// hand-rolled transcript buffer.
//
// Handshake Protocol:
//
//	Initiator                              Responder
//	    |                                      |
//	    | -------- ClientHello --------------> |
//	    |   - version, random                  |
//	    |   - CH-KEM public key                |
//	    |   - cipher suite                     |
//	    |                                      |
//	    | <------- ServerHello --------------- |
//	    |   - version, random                  |
//	    |   - CH-KEM ciphertext                |
//	    |                                      |
//	    |   [Both mix the CH-KEM secret into   |
//	    |    the running handshake hash]       |
//	    |                                      |
//	    | -------- ClientFinished -----------> |
//	    |   - verify_data (encrypted)          |
//	    |                                      |
//	    | <------- ServerFinished ------------ |
//	    |   - verify_data (encrypted)          |
//	    |                                      |
//	    |    === Tunnel Established ===        |
//
// Security Properties:
//   - Forward secrecy: Ephemeral keys used for each session
//   - Quantum resistance: CH-KEM hybrid key exchange
//   - Mutual authentication: Through verify_data exchange, bound to the
//     full running handshake hash rather than a separately-maintained MAC
//   - Replay protection: Random nonces in hello messages
package tunnel

import (
	"crypto/subtle"
	"encoding/binary"
	"io"

	"github.com/pzverkov/noisecore/internal/constants"
	qerrors "github.com/pzverkov/noisecore/internal/errors"
	"github.com/pzverkov/noisecore/pkg/chkem"
	"github.com/pzverkov/noisecore/pkg/noise"
	"github.com/pzverkov/noisecore/pkg/protocol"
)

// HandshakeState represents the current state of the handshake.
type HandshakeState int

const (
	HandshakeStateInitial HandshakeState = iota
	HandshakeStateClientHelloSent
	HandshakeStateServerHelloSent
	HandshakeStateClientFinishedSent
	HandshakeStateComplete
	HandshakeStateFailed
)

// Handshake manages the CH-KEM handshake process. unkeyed carries the
// running hash before the CH-KEM secret is mixed in; once mixed, only keyed
// remains valid, per pkg/noise's consume-on-transition discipline.
type Handshake struct {
	session *Session
	codec   *protocol.Codec
	state   HandshakeState

	clientRandom []byte
	serverRandom []byte

	unkeyed *noise.UnkeyedState
	keyed   *noise.KeyedState
}

// NewHandshake creates a new handshake for the given session.
func NewHandshake(session *Session) *Handshake {
	return &Handshake{
		session: session,
		codec:   protocol.NewCodec(),
		state:   HandshakeStateInitial,
	}
}

func (h *Handshake) init() error {
	suite, err := noiseSuite(h.session.CipherSuite)
	if err != nil {
		return err
	}
	h.unkeyed = noise.NewUnkeyedState(suite, protocol.ProtocolID, h.session.noiseOpts()...)
	return nil
}

// --- Initiator Functions ---

// CreateClientHello generates the ClientHello message.
func (h *Handshake) CreateClientHello() ([]byte, error) {
	if h.state != HandshakeStateInitial {
		return nil, qerrors.ErrInvalidState
	}
	if err := h.init(); err != nil {
		return nil, err
	}

	random, err := chkem.SecureRandomBytes(32)
	if err != nil {
		return nil, err
	}
	h.clientRandom = random

	msg := &protocol.ClientHello{
		Version:        protocol.Current,
		Random:         h.clientRandom,
		SessionID:      nil, // New session
		CHKEMPublicKey: h.session.LocalKeyPair.PublicKey().Bytes(),
		CipherSuites:   []constants.CipherSuite{h.session.CipherSuite},
	}

	data, err := h.codec.EncodeClientHello(msg)
	if err != nil {
		return nil, err
	}

	h.unkeyed.MixHash(data)

	h.state = HandshakeStateClientHelloSent
	h.session.SetState(SessionStateHandshaking)

	return data, nil
}

// ProcessServerHello processes the ServerHello message (initiator).
func (h *Handshake) ProcessServerHello(data []byte) error {
	if h.state != HandshakeStateClientHelloSent {
		return qerrors.ErrInvalidState
	}

	msg, err := h.codec.DecodeServerHello(data)
	if err != nil {
		return err
	}

	if !msg.Version.IsCompatible(protocol.Current) {
		return qerrors.ErrUnsupportedVersion
	}
	if msg.CipherSuite != h.session.CipherSuite {
		return qerrors.ErrUnsupportedCipherSuite
	}

	h.serverRandom = msg.Random

	ct, err := chkem.ParseCiphertext(msg.CHKEMCiphertext)
	if err != nil {
		return err
	}

	sharedSecret, err := chkem.Decapsulate(ct, h.session.LocalKeyPair)
	if err != nil {
		return err
	}

	h.unkeyed.MixHash(data)

	h.session.ID = msg.SessionID
	h.session.Version = msg.Version

	h.keyed = h.unkeyed.MixSharedSecret(sharedSecret)
	h.unkeyed = nil

	h.state = HandshakeStateServerHelloSent
	return nil
}

// CreateClientFinished generates the ClientFinished message.
func (h *Handshake) CreateClientFinished() ([]byte, error) {
	if h.keyed == nil {
		return nil, qerrors.ErrInvalidState
	}

	verifyData := h.keyed.Hash()[:32]

	plaintext, err := h.codec.EncodeFinished(protocol.MessageTypeClientFinished, verifyData)
	if err != nil {
		return nil, err
	}

	ciphertext := h.keyed.EncryptAndAppend(plaintext)

	h.state = HandshakeStateClientFinishedSent
	return ciphertext, nil
}

// ProcessServerFinished processes the ServerFinished message (initiator).
func (h *Handshake) ProcessServerFinished(data []byte) error {
	if h.state != HandshakeStateClientFinishedSent {
		return qerrors.ErrInvalidState
	}

	expected := h.keyed.Hash()[:32]

	plaintext, err := h.decryptFinished(data)
	if err != nil {
		return err
	}

	verifyData, err := h.codec.DecodeFinished(plaintext)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(verifyData, expected) != 1 {
		return qerrors.NewProtocolError("handshake", qerrors.ErrAuthenticationFailed)
	}

	if err := h.session.InitializeKeys(h.keyed); err != nil {
		return err
	}

	h.state = HandshakeStateComplete
	h.cleanup()

	return nil
}

// --- Responder Functions ---

// ProcessClientHello processes the ClientHello message (responder).
func (h *Handshake) ProcessClientHello(data []byte) error {
	if h.state != HandshakeStateInitial {
		return qerrors.ErrInvalidState
	}
	if err := h.init(); err != nil {
		return err
	}

	msg, err := h.codec.DecodeClientHello(data)
	if err != nil {
		return err
	}

	if !msg.Version.IsCompatible(protocol.Current) {
		return qerrors.ErrUnsupportedVersion
	}

	if !offersCipherSuite(msg.CipherSuites, h.session.CipherSuite) {
		return qerrors.ErrUnsupportedCipherSuite
	}

	h.clientRandom = msg.Random

	clientPublicKey, err := chkem.ParsePublicKey(msg.CHKEMPublicKey)
	if err != nil {
		return err
	}
	h.session.RemotePublicKey = clientPublicKey

	h.unkeyed.MixHash(data)

	h.session.Version = msg.Version
	h.session.SetState(SessionStateHandshaking)

	return nil
}

// CreateServerHello generates the ServerHello message.
func (h *Handshake) CreateServerHello() ([]byte, error) {
	if h.session.RemotePublicKey == nil {
		return nil, qerrors.ErrInvalidState
	}

	random, err := chkem.SecureRandomBytes(32)
	if err != nil {
		return nil, err
	}
	h.serverRandom = random

	ct, sharedSecret, err := chkem.Encapsulate(h.session.RemotePublicKey)
	if err != nil {
		return nil, err
	}

	msg := &protocol.ServerHello{
		Version:         protocol.Current,
		Random:          h.serverRandom,
		SessionID:       h.session.ID,
		CHKEMCiphertext: ct.Bytes(),
		CipherSuite:     h.session.CipherSuite,
	}

	data, err := h.codec.EncodeServerHello(msg)
	if err != nil {
		return nil, err
	}

	h.unkeyed.MixHash(data)

	h.keyed = h.unkeyed.MixSharedSecret(sharedSecret)
	h.unkeyed = nil

	h.state = HandshakeStateServerHelloSent
	return data, nil
}

// ProcessClientFinished processes the ClientFinished message (responder).
func (h *Handshake) ProcessClientFinished(data []byte) error {
	if h.state != HandshakeStateServerHelloSent {
		return qerrors.ErrInvalidState
	}

	expected := h.keyed.Hash()[:32]

	plaintext, err := h.decryptFinished(data)
	if err != nil {
		return err
	}

	verifyData, err := h.codec.DecodeFinished(plaintext)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(verifyData, expected) != 1 {
		return qerrors.NewProtocolError("handshake", qerrors.ErrAuthenticationFailed)
	}

	h.state = HandshakeStateClientFinishedSent
	return nil
}

// CreateServerFinished generates the ServerFinished message.
func (h *Handshake) CreateServerFinished() ([]byte, error) {
	if h.keyed == nil {
		return nil, qerrors.ErrInvalidState
	}

	verifyData := h.keyed.Hash()[:32]

	plaintext, err := h.codec.EncodeFinished(protocol.MessageTypeServerFinished, verifyData)
	if err != nil {
		return nil, err
	}

	ciphertext := h.keyed.EncryptAndAppend(plaintext)

	if err := h.session.InitializeKeys(h.keyed); err != nil {
		return nil, err
	}

	h.state = HandshakeStateComplete
	h.cleanup()

	return ciphertext, nil
}

// --- Helper Functions ---

// decryptFinished splits a combined ciphertext||tag record and authenticates
// it against the running handshake hash, per pkg/noise.KeyedState.Decrypt.
func (h *Handshake) decryptFinished(data []byte) ([]byte, error) {
	if h.keyed == nil || len(data) < aeadTagSize {
		return nil, qerrors.NewProtocolError("handshake", qerrors.ErrInvalidMessage)
	}

	plaintext := append([]byte(nil), data[:len(data)-aeadTagSize]...)
	tag := data[len(data)-aeadTagSize:]

	if err := h.keyed.Decrypt(plaintext, tag); err != nil {
		return nil, qerrors.NewProtocolError("handshake", qerrors.ErrAuthenticationFailed)
	}
	return plaintext, nil
}

// offersCipherSuite reports whether want appears in offered.
func offersCipherSuite(offered []constants.CipherSuite, want constants.CipherSuite) bool {
	for _, cs := range offered {
		if cs == want {
			return true
		}
	}
	return false
}

// cleanup drops sensitive handshake-local data once the session owns the
// derived transport ciphers.
func (h *Handshake) cleanup() {
	if h.clientRandom != nil {
		chkem.Zeroize(h.clientRandom)
		h.clientRandom = nil
	}
	if h.serverRandom != nil {
		chkem.Zeroize(h.serverRandom)
		h.serverRandom = nil
	}
	h.keyed = nil
}

// State returns the current handshake state.
func (h *Handshake) State() HandshakeState {
	return h.state
}

// IsComplete returns true if the handshake completed successfully.
func (h *Handshake) IsComplete() bool {
	return h.state == HandshakeStateComplete
}

// writeEncryptedRecord writes an encrypted record with length framing.
// Format: [4-byte big-endian length][ciphertext]
func writeEncryptedRecord(w io.Writer, ciphertext []byte) error {
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(ciphertext)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err := w.Write(ciphertext)
	return err
}

// readEncryptedRecord reads an encrypted record with length framing.
func readEncryptedRecord(r io.Reader) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf)

	if length > protocol.MaxMessageSize {
		return nil, qerrors.ErrMessageTooLarge
	}

	ciphertext := make([]byte, length)
	if _, err := io.ReadFull(r, ciphertext); err != nil {
		return nil, err
	}
	return ciphertext, nil
}

// --- High-Level API ---

// InitiatorHandshake performs the complete handshake as initiator.
func InitiatorHandshake(session *Session, rw io.ReadWriter) error {
	h := NewHandshake(session)

	clientHello, err := h.CreateClientHello()
	if err != nil {
		return err
	}
	if _, err := rw.Write(clientHello); err != nil {
		return err
	}

	serverHello, err := h.codec.ReadMessage(rw)
	if err != nil {
		return err
	}
	if err := h.ProcessServerHello(serverHello); err != nil {
		return err
	}

	clientFinished, err := h.CreateClientFinished()
	if err != nil {
		return err
	}
	if err := writeEncryptedRecord(rw, clientFinished); err != nil {
		return err
	}

	serverFinished, err := readEncryptedRecord(rw)
	if err != nil {
		return err
	}
	if err := h.ProcessServerFinished(serverFinished); err != nil {
		return err
	}

	return nil
}

// ResponderHandshake performs the complete handshake as responder.
func ResponderHandshake(session *Session, rw io.ReadWriter) error {
	h := NewHandshake(session)

	clientHello, err := h.codec.ReadMessage(rw)
	if err != nil {
		return err
	}
	if err := h.ProcessClientHello(clientHello); err != nil {
		return err
	}

	serverHello, err := h.CreateServerHello()
	if err != nil {
		return err
	}
	if _, err := rw.Write(serverHello); err != nil {
		return err
	}

	clientFinished, err := readEncryptedRecord(rw)
	if err != nil {
		return err
	}
	if err := h.ProcessClientFinished(clientFinished); err != nil {
		return err
	}

	serverFinished, err := h.CreateServerFinished()
	if err != nil {
		return err
	}
	if err := writeEncryptedRecord(rw, serverFinished); err != nil {
		return err
	}

	return nil
}
