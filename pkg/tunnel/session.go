// Package tunnel implements the CH-KEM VPN tunnel with secure key exchange
// and encrypted data transport.
//
// The tunnel provides:
//   - Quantum-resistant key exchange using CH-KEM, mixed into transport keys
//     through pkg/noise's SymmetricState machinery
//   - Authenticated encryption using AES-256-GCM or ChaCha20-Poly1305
//   - Forward secrecy through ephemeral keys
//   - Automatic rekeying to limit key exposure
//   - Replay protection through sequence numbers
package tunnel

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pzverkov/noisecore/internal/constants"
	qerrors "github.com/pzverkov/noisecore/internal/errors"
	"github.com/pzverkov/noisecore/pkg/chkem"
	"github.com/pzverkov/noisecore/pkg/noise"
	"github.com/pzverkov/noisecore/pkg/protocol"
)

// aeadTagSize is the detached authentication tag length both registered
// pkg/noise AEADs (ChaCha20-Poly1305, AES-256-GCM) produce.
const aeadTagSize = 16

// SessionState represents the current state of the tunnel session.
type SessionState int32

const (
	// SessionStateNew indicates a fresh session not yet handshaked
	SessionStateNew SessionState = iota

	// SessionStateHandshaking indicates handshake is in progress
	SessionStateHandshaking

	// SessionStateEstablished indicates the tunnel is ready for data
	SessionStateEstablished

	// SessionStateRekeying indicates a rekey operation is in progress
	SessionStateRekeying

	// SessionStateClosed indicates the session has been terminated
	SessionStateClosed
)

// String returns a human-readable name for the session state.
func (s SessionState) String() string {
	switch s {
	case SessionStateNew:
		return "New"
	case SessionStateHandshaking:
		return "Handshaking"
	case SessionStateEstablished:
		return "Established"
	case SessionStateRekeying:
		return "Rekeying"
	case SessionStateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Role indicates whether this endpoint is the initiator or responder.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

// Session represents a CH-KEM VPN tunnel session. The cipher suite is fixed
// at construction, not negotiated mid-handshake: both endpoints must be
// configured with the same constants.CipherSuite beforehand, since a
// pkg/noise Suite (hence the protocol name) must be fully known before
// either side can build a matching SymmetricState.
type Session struct {
	// Unique session identifier
	ID []byte

	// Role of this endpoint
	Role Role

	// Current state
	state atomic.Int32

	// Protocol version negotiated
	Version protocol.Version

	// Cipher suite this session was configured with
	CipherSuite constants.CipherSuite

	// Local key pair for this session
	LocalKeyPair *chkem.KeyPair

	// Remote public key
	RemotePublicKey *chkem.PublicKey

	// Transport ciphers, derived from the handshake's KeyedState.Split
	sendCipher *noise.Cipher
	recvCipher *noise.Cipher

	// channelHash is the handshake hash pkg/noise.Output returned at Split:
	// an exported channel-binding value, not secret, useful for
	// out-of-band session verification.
	channelHash []byte

	// Sequence numbers
	sendSeq atomic.Uint64
	recvSeq atomic.Uint64 //nolint:unused // Reserved for future bidirectional validation

	// Replay protection window
	replayWindow *ReplayWindow

	// Timestamps
	CreatedAt     time.Time
	EstablishedAt time.Time
	LastActivity  time.Time

	// Observability hooks
	observer      Observer
	noiseObserver noise.OpObserver

	// Statistics
	BytesSent     atomic.Uint64
	BytesReceived atomic.Uint64
	PacketsSent   atomic.Uint64
	PacketsRecv   atomic.Uint64

	// Rekey state
	rekeyInProgress     bool
	pendingRekeyKeyPair *chkem.KeyPair // New keypair for initiator
	rekeyActivationSeq  uint64         // Sequence number when new keys activate
	pendingRecvCipher   *noise.Cipher  // New receive cipher waiting for activation
	pendingSendCipher   *noise.Cipher  // New send cipher waiting for activation
	pendingChannelHash  []byte         // Channel hash paired with the pending ciphers

	// Mutex for state changes
	mu sync.RWMutex
}

// ReplayWindow implements a sliding window for replay attack protection.
type ReplayWindow struct {
	mu         sync.Mutex
	highSeq    uint64
	bitmap     uint64 // Bitmap for last 64 sequence numbers
	windowSize uint64
}

// NewReplayWindow creates a new replay protection window.
func NewReplayWindow() *ReplayWindow {
	return &ReplayWindow{
		highSeq:    0,
		bitmap:     0,
		windowSize: 64,
	}
}

// Check validates a sequence number against the replay window.
// Returns true if the sequence number is valid (not a replay).
func (rw *ReplayWindow) Check(seq uint64) bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	// Sequence number is too old
	if seq+rw.windowSize <= rw.highSeq {
		return false
	}

	// Sequence number is within the window
	if seq <= rw.highSeq {
		diff := rw.highSeq - seq
		bit := uint64(1) << diff
		if rw.bitmap&bit != 0 {
			return false // Already received
		}
		rw.bitmap |= bit
		return true
	}

	// New highest sequence number
	if seq > rw.highSeq {
		diff := seq - rw.highSeq
		if diff >= rw.windowSize {
			rw.bitmap = 0
		} else {
			rw.bitmap <<= diff
		}
		rw.bitmap |= 1
		rw.highSeq = seq
	}

	return true
}

// NewSession creates a new session with the given role and cipher suite.
// Both endpoints of a tunnel must be constructed with the same cipherSuite.
func NewSession(role Role, cipherSuite constants.CipherSuite) (*Session, error) {
	if !cipherSuite.IsSupported() {
		return nil, qerrors.ErrUnsupportedCipherSuite
	}

	sessionID, err := chkem.SecureRandomBytes(constants.SessionIDSize)
	if err != nil {
		return nil, err
	}

	keyPair, err := chkem.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:           sessionID,
		Role:         role,
		CipherSuite:  cipherSuite,
		LocalKeyPair: keyPair,
		replayWindow: NewReplayWindow(),
		CreatedAt:    time.Now(),
	}
	s.state.Store(int32(SessionStateNew))

	return s, nil
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// SetState atomically sets the session state.
func (s *Session) SetState(state SessionState) {
	s.state.Store(int32(state))
}

// SetObserver sets an observer for session lifecycle and metrics.
// Should be called during initialization before any data is sent.
func (s *Session) SetObserver(observer Observer) {
	s.observer = observer
}

// SetNoiseObserver attaches an observer for pkg/noise's primitive
// operations (mix_hash, mix_shared_secret, encrypt, decrypt, split) to
// every SymmetricState this session constructs from here on — the initial
// handshake (via Handshake.init) and any subsequent Rekey/rekey-response
// SymmetricState. metrics.NewNoiseObserver satisfies noise.OpObserver.
func (s *Session) SetNoiseObserver(observer noise.OpObserver) {
	s.noiseObserver = observer
}

// noiseOpts returns the noise.Option slice to pass to noise.NewUnkeyedState,
// carrying the session's noiseObserver (if any) onto the constructed state.
func (s *Session) noiseOpts() []noise.Option {
	if s.noiseObserver == nil {
		return nil
	}
	return []noise.Option{noise.WithObserver(s.noiseObserver)}
}

// ChannelHash returns the handshake hash pkg/noise.Output produced when the
// transport keys were derived, or nil if the session is not yet established.
func (s *Session) ChannelHash() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelHash
}

// InitializeKeys installs the transport ciphers derived from a completed
// handshake's KeyedState.Split. swap follows the session's role: the
// responder swaps sender/receiver so both ends land on the same pair.
func (s *Session) InitializeKeys(ks *noise.KeyedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Load() == int32(SessionStateClosed) {
		return qerrors.ErrTunnelClosed
	}

	out := ks.Split(1, s.Role == RoleResponder)
	s.sendCipher = out.Sender
	s.recvCipher = out.Receiver
	s.channelHash = out.Hash

	s.EstablishedAt = time.Now()
	s.SetState(SessionStateEstablished)

	return nil
}

func seqAAD(seq uint64) []byte {
	aad := make([]byte, 8)
	binary.BigEndian.PutUint64(aad, seq)
	return aad
}

// Encrypt encrypts data for sending.
func (s *Session) Encrypt(plaintext []byte) ([]byte, uint64, error) {
	// Get the sequence number first
	seq := s.sendSeq.Add(1) - 1

	// Check if we need to activate pending send cipher at this sequence
	s.checkAndActivateSendCipher(seq)

	// Now get the current send cipher (potentially just activated)
	s.mu.RLock()
	cipher := s.sendCipher
	s.mu.RUnlock()

	observer := s.observer
	var done func(error)
	if observer != nil {
		_, done = observer.OnEncrypt(context.Background(), len(plaintext))
	}

	if cipher == nil {
		if observer != nil {
			observer.OnProtocolError(qerrors.ErrInvalidState)
		}
		if done != nil {
			done(qerrors.ErrInvalidState)
		}
		return nil, 0, qerrors.ErrInvalidState
	}

	buf := append([]byte(nil), plaintext...)
	tag := cipher.Encrypt(seqAAD(seq), buf)
	ciphertext := append(buf, tag...)

	if done != nil {
		done(nil)
	}

	s.BytesSent.Add(uint64(len(plaintext)))
	s.PacketsSent.Add(1)
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()

	return ciphertext, seq, nil
}

// Decrypt decrypts received data.
func (s *Session) Decrypt(ciphertext []byte, seq uint64) ([]byte, error) {
	s.mu.RLock()
	cipher := s.recvCipher
	s.mu.RUnlock()

	if cipher == nil {
		if s.observer != nil {
			s.observer.OnProtocolError(qerrors.ErrInvalidState)
		}
		return nil, qerrors.ErrInvalidState
	}

	// Check replay window
	if !s.replayWindow.Check(seq) {
		if s.observer != nil {
			s.observer.OnReplayDetected()
		}
		return nil, qerrors.ErrReplayDetected
	}

	observer := s.observer
	var done func(error)
	if observer != nil {
		_, done = observer.OnDecrypt(context.Background(), len(ciphertext))
	}

	if len(ciphertext) < aeadTagSize {
		err := qerrors.ErrCiphertextTooShort
		if done != nil {
			done(err)
		}
		return nil, err
	}

	buf := append([]byte(nil), ciphertext[:len(ciphertext)-aeadTagSize]...)
	tag := ciphertext[len(ciphertext)-aeadTagSize:]

	if err := cipher.Decrypt(seqAAD(seq), buf, tag); err != nil {
		if observer != nil {
			if qerrors.Is(err, qerrors.ErrAuthenticationFailed) {
				observer.OnAuthFailure()
			}
		}
		if done != nil {
			done(err)
		}
		return nil, err
	}
	if done != nil {
		done(nil)
	}

	s.BytesReceived.Add(uint64(len(buf)))
	s.PacketsRecv.Add(1)
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()

	return buf, nil
}

// NeedsRekey returns true if the session should initiate rekeying.
func (s *Session) NeedsRekey() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sendCipher == nil {
		return false
	}

	if s.BytesSent.Load() >= constants.MaxBytesBeforeRekey {
		return true
	}

	if s.PacketsSent.Load() >= constants.MaxPacketsBeforeRekey {
		return true
	}

	if time.Since(s.EstablishedAt).Seconds() >= float64(constants.MaxSessionDurationSeconds) {
		return true
	}

	return false
}

// Rekey performs a standalone session rekey from a freshly exchanged shared
// secret, deriving new transport ciphers through a fresh pkg/noise
// SymmetricState rather than the original handshake transcript.
func (s *Session) Rekey(newSharedSecret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(newSharedSecret) != constants.CHKEMSharedSecretSize {
		return qerrors.ErrInvalidKeySize
	}

	suite, err := noiseSuite(s.CipherSuite)
	if err != nil {
		return err
	}

	unkeyed := noise.NewUnkeyedState(suite, constants.ProtocolName, s.noiseOpts()...)
	keyed := unkeyed.MixSharedSecret(newSharedSecret)
	out := keyed.Split(1, s.Role == RoleResponder)

	s.sendCipher = out.Sender
	s.recvCipher = out.Receiver
	s.channelHash = out.Hash

	s.replayWindow = NewReplayWindow()
	s.EstablishedAt = time.Now()

	return nil
}

// Close securely closes the session and drops sensitive data.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SetState(SessionStateClosed)

	if s.LocalKeyPair != nil {
		s.LocalKeyPair.Zeroize()
		s.LocalKeyPair = nil
	}

	s.sendCipher = nil
	s.recvCipher = nil
}

// Stats returns session statistics.
type Stats struct {
	BytesSent     uint64
	BytesReceived uint64
	PacketsSent   uint64
	PacketsRecv   uint64
	Duration      time.Duration
	State         SessionState
}

// Stats returns current session statistics.
func (s *Session) Stats() Stats {
	return Stats{
		BytesSent:     s.BytesSent.Load(),
		BytesReceived: s.BytesReceived.Load(),
		PacketsSent:   s.PacketsSent.Load(),
		PacketsRecv:   s.PacketsRecv.Load(),
		Duration:      time.Since(s.CreatedAt),
		State:         s.State(),
	}
}

// --- Rekey Protocol Methods ---

// InitiateRekey starts a rekey operation (called by initiator).
// Returns the new public key to send to the responder and the activation sequence.
func (s *Session) InitiateRekey() ([]byte, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rekeyInProgress {
		return nil, 0, qerrors.ErrRekeyInProgress
	}

	if s.State() != SessionStateEstablished {
		return nil, 0, qerrors.ErrInvalidState
	}

	newKeyPair, err := chkem.GenerateKeyPair()
	if err != nil {
		return nil, 0, err
	}

	// Set activation sequence to current + some buffer for in-flight packets
	activationSeq := s.sendSeq.Load() + 16

	s.rekeyInProgress = true
	s.pendingRekeyKeyPair = newKeyPair
	s.rekeyActivationSeq = activationSeq
	s.SetState(SessionStateRekeying)

	return newKeyPair.PublicKey().Bytes(), activationSeq, nil
}

// PrepareRekeyResponse processes an incoming rekey request (called by responder).
// Returns the ciphertext to send back to the initiator.
func (s *Session) PrepareRekeyResponse(newPublicKeyBytes []byte, activationSeq uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != SessionStateEstablished && s.State() != SessionStateRekeying {
		return nil, qerrors.ErrInvalidState
	}

	newPublicKey, err := chkem.ParsePublicKey(newPublicKeyBytes)
	if err != nil {
		return nil, err
	}

	ciphertext, sharedSecret, err := chkem.Encapsulate(newPublicKey)
	if err != nil {
		return nil, err
	}

	suite, err := noiseSuite(s.CipherSuite)
	if err != nil {
		return nil, err
	}

	unkeyed := noise.NewUnkeyedState(suite, constants.ProtocolName, s.noiseOpts()...)
	keyed := unkeyed.MixSharedSecret(sharedSecret)
	out := keyed.Split(1, true) // responder: swap sender/receiver

	s.rekeyInProgress = true
	s.rekeyActivationSeq = activationSeq
	s.pendingSendCipher = out.Sender
	s.pendingRecvCipher = out.Receiver
	s.pendingChannelHash = out.Hash

	s.SetState(SessionStateRekeying)

	return ciphertext.Bytes(), nil
}

// ProcessRekeyResponse completes a rekey operation (called by initiator).
func (s *Session) ProcessRekeyResponse(ciphertextBytes []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.rekeyInProgress || s.pendingRekeyKeyPair == nil {
		return qerrors.ErrInvalidState
	}

	ciphertext, err := chkem.ParseCiphertext(ciphertextBytes)
	if err != nil {
		return err
	}

	sharedSecret, err := chkem.Decapsulate(ciphertext, s.pendingRekeyKeyPair)
	if err != nil {
		return err
	}

	suite, err := noiseSuite(s.CipherSuite)
	if err != nil {
		return err
	}

	unkeyed := noise.NewUnkeyedState(suite, constants.ProtocolName, s.noiseOpts()...)
	keyed := unkeyed.MixSharedSecret(sharedSecret)
	out := keyed.Split(1, false) // initiator: no swap

	s.pendingSendCipher = out.Sender
	s.pendingRecvCipher = out.Receiver
	s.pendingChannelHash = out.Hash

	s.pendingRekeyKeyPair.Zeroize()
	s.pendingRekeyKeyPair = nil

	return nil
}

// ActivatePendingKeys activates pending keys after activation sequence is reached.
func (s *Session) ActivatePendingKeys() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activatePendingKeysLocked()
}

func (s *Session) activatePendingKeysLocked() {
	if !s.rekeyInProgress {
		return
	}

	if s.pendingRecvCipher != nil {
		s.recvCipher = s.pendingRecvCipher
		s.pendingRecvCipher = nil
	}
	if s.pendingSendCipher != nil {
		s.sendCipher = s.pendingSendCipher
		s.pendingSendCipher = nil
	}
	if s.pendingChannelHash != nil {
		s.channelHash = s.pendingChannelHash
		s.pendingChannelHash = nil
	}

	s.rekeyInProgress = false
	s.rekeyActivationSeq = 0
	s.replayWindow = NewReplayWindow()
	s.EstablishedAt = time.Now()

	s.SetState(SessionStateEstablished)
}

// checkAndActivateSendCipher checks if send cipher should be activated based on sequence number.
func (s *Session) checkAndActivateSendCipher(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rekeyInProgress && s.pendingSendCipher != nil && seq >= s.rekeyActivationSeq {
		s.activatePendingKeysLocked()
	}
}

// IsRekeyInProgress returns true if a rekey operation is in progress.
func (s *Session) IsRekeyInProgress() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rekeyInProgress
}

// GetRekeyActivationSeq returns the sequence number at which new keys activate.
func (s *Session) GetRekeyActivationSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rekeyActivationSeq
}
