package noise

import "time"

// state is the shared bookkeeping behind UnkeyedState and KeyedState: the
// running handshake hash h and chaining key ck, plus the Suite that
// supplies the Hash/HKDF/AEAD primitives (spec.md §3).
type state struct {
	suite    Suite
	h        []byte
	ck       []byte
	consumed bool
	observer OpObserver
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// UnkeyedState is a SymmetricState before any shared secret or PSK has been
// mixed in: mix_hash is available, but no AEAD key exists yet (spec.md
// §4.4). MixSharedSecret/MixPSK consume it and return a *KeyedState.
type UnkeyedState struct {
	state
}

// KeyedState is a SymmetricState once an AEAD key k has been derived. The
// per-message nonce index N starts at 0 on every keying transition and
// advances with every AEAD operation (spec.md §3/§4.4).
type KeyedState struct {
	state
	k AEAD
	n uint64
}

// NewUnkeyedState creates a SymmetricState per spec.md §4.4: h is
// protocolName right-padded with zeros to suite.Hash.Size() if it fits, or
// H(protocolName) otherwise; ck starts equal to h.
func NewUnkeyedState(suite Suite, protocolName string, opts ...Option) *UnkeyedState {
	l := suite.Hash.Size()
	name := []byte(protocolName)

	var h []byte
	if len(name) <= l {
		h = make([]byte, l)
		copy(h, name)
	} else {
		h = suite.Hash.Sum(name)
	}

	ck := cloneBytes(h)
	u := &UnkeyedState{state: state{suite: suite, h: h, ck: ck}}
	for _, opt := range opts {
		opt(&u.state)
	}
	return u
}

func (s *state) checkLive() {
	invariant(!s.consumed, "SymmetricState used after Split or after being superseded by a mixing operation")
}

// Hash returns a copy of the running handshake hash.
func (u *UnkeyedState) Hash() []byte { u.checkLive(); return cloneBytes(u.h) }

// Hash returns a copy of the running handshake hash.
func (k *KeyedState) Hash() []byte { k.checkLive(); return cloneBytes(k.h) }

// MixHash updates h <- H(h || data). Available in any state.
func (u *UnkeyedState) MixHash(data []byte) *UnkeyedState {
	u.checkLive()
	u.h = u.suite.Hash.SumParts(u.h, data)
	u.notifyMixHash()
	return u
}

// MixHash updates h <- H(h || data). Available in any state.
func (k *KeyedState) MixHash(data []byte) *KeyedState {
	k.checkLive()
	k.h = k.suite.Hash.SumParts(k.h, data)
	k.notifyMixHash()
	return k
}

// mixSharedSecret implements spec.md §4.4's mix_shared_secret against a
// generic state value, returning the next state's (h, ck) and the derived
// AEAD key. data is zeroized before return, per the ownership rules in
// spec.md §3.
func mixSharedSecret(s state, data []byte) (next state, aeadKey []byte) {
	ckNext, tempFull := s.suite.HKDF.Split2(s.ck, data)

	aeadKey = make([]byte, s.suite.AEADKeySize)
	copy(aeadKey, tempFull[:s.suite.AEADKeySize])

	zeroizeAll(data, tempFull, s.ck)
	return state{suite: s.suite, h: s.h, ck: ckNext, observer: s.observer}, aeadKey
}

// mixPSK implements spec.md §4.4's mix_psk: like mixSharedSecret but splits
// HKDF into three blocks and mixes the (full-width, untruncated) middle
// block into h.
func mixPSK(s state, psk []byte) (next state, aeadKey []byte) {
	ckNext, middleFull, tempFull := s.suite.HKDF.Split3(s.ck, psk)

	hNext := s.suite.Hash.SumParts(s.h, middleFull)

	aeadKey = make([]byte, s.suite.AEADKeySize)
	copy(aeadKey, tempFull[:s.suite.AEADKeySize])

	zeroizeAll(psk, tempFull, middleFull, s.ck)
	return state{suite: s.suite, h: hNext, ck: ckNext, observer: s.observer}, aeadKey
}

// MixSharedSecret mixes a Diffie-Hellman (or KEM) shared secret into the
// state via HKDF, deriving a fresh AEAD key and resetting the nonce index
// to 0. data is zeroized before this returns. The receiver is consumed;
// only the returned *KeyedState remains valid.
func (u *UnkeyedState) MixSharedSecret(data []byte) *KeyedState {
	u.checkLive()
	next, key := mixSharedSecret(u.state, data)
	ks := &KeyedState{state: next, k: u.suite.AEAD(key)}
	zeroize(key)
	u.consumed = true
	u.notifyMixSharedSecret()
	return ks
}

// MixSharedSecret re-keys an already-keyed state (spec.md's "Keyed(any) ->
// Keyed(0)" transition, e.g. for rekeying mid-session). The receiver is
// consumed; only the returned *KeyedState remains valid.
func (k *KeyedState) MixSharedSecret(data []byte) *KeyedState {
	k.checkLive()
	next, key := mixSharedSecret(k.state, data)
	ks := &KeyedState{state: next, k: k.suite.AEAD(key)}
	zeroize(key)
	k.consumed = true
	k.notifyMixSharedSecret()
	return ks
}

// MixPSK mixes a pre-shared key into the state per spec.md §4.4. The
// receiver is consumed; only the returned *KeyedState remains valid.
func (u *UnkeyedState) MixPSK(psk []byte) *KeyedState {
	u.checkLive()
	next, key := mixPSK(u.state, psk)
	ks := &KeyedState{state: next, k: u.suite.AEAD(key)}
	zeroize(key)
	u.consumed = true
	u.notifyMixSharedSecret()
	return ks
}

// MixPSK re-keys an already-keyed state with a pre-shared key.
func (k *KeyedState) MixPSK(psk []byte) *KeyedState {
	k.checkLive()
	next, key := mixPSK(k.state, psk)
	ks := &KeyedState{state: next, k: k.suite.AEAD(key)}
	zeroize(key)
	k.consumed = true
	k.notifyMixSharedSecret()
	return ks
}

// Encrypt encrypts plaintext in place (it is replaced by ciphertext of the
// same length), mixes the ciphertext and tag into h, and advances the
// nonce index. Returns the detached authentication tag.
func (k *KeyedState) Encrypt(plaintext []byte) (tag []byte) {
	k.checkLive()
	start := time.Now()
	nonce := prepareNonce(k.suite.Endian, k.n, k.k.NonceSize())
	tag = k.k.Seal(nonce, k.h, plaintext)
	k.n++
	k.h = k.suite.Hash.SumParts(k.h, plaintext, tag)
	k.notifyEncrypt(time.Since(start))
	return tag
}

// EncryptAndAppend is a convenience wrapper: it encrypts data in place and
// appends the tag, returning the extended slice.
func (k *KeyedState) EncryptAndAppend(data []byte) []byte {
	tag := k.Encrypt(data)
	return append(data, tag...)
}

// Decrypt verifies tag and decrypts ciphertext in place. The handshake hash
// used for the post-operation mix is computed from the wire-format
// ciphertext bytes before the AEAD call mutates the buffer (spec.md §9's
// "Handshake-hash computation on decrypt" note), so a failed decrypt
// leaves h and n untouched and returns ErrMacMismatch.
func (k *KeyedState) Decrypt(ciphertext []byte, tag []byte) error {
	k.checkLive()
	start := time.Now()
	hNext := k.suite.Hash.SumParts(k.h, ciphertext, tag)
	nonce := prepareNonce(k.suite.Endian, k.n, k.k.NonceSize())
	err := k.k.Open(nonce, k.h, ciphertext, tag)
	k.notifyDecrypt(time.Since(start), err)
	if err != nil {
		return err
	}
	k.h = hNext
	k.n++
	return nil
}

// Increase advances the nonce index without performing any AEAD operation,
// for protocol variants that skip a slot.
func (k *KeyedState) Increase() {
	k.checkLive()
	k.n++
}

// ZerosTag encrypts a zero-filled buffer of the given length, mixing the
// result into h exactly as Encrypt does, and returns the tag. This is the
// pattern callers use when a protocol payload is empty but a MAC must
// still be emitted and mixed (spec.md §4.4).
//
// The reference implementation performs this AEAD call twice, discarding
// the first result; per spec.md §9's open question, this implementation
// performs it once since the discarded call has no observable
// cryptographic effect.
func (k *KeyedState) ZerosTag(length int) (tag []byte) {
	buf := make([]byte, length)
	return k.Encrypt(buf)
}

// Split is the terminal operation (spec.md §4.4): it derives two transport
// keys via HKDF-split_final, wraps them in Ciphers with the given Step,
// assigns sender/receiver per swap, and returns the final handshake hash.
// The receiver is consumed.
func (k *KeyedState) Split(step uint64, swap bool) *Output {
	k.checkLive()

	k1Full, k2Full := k.suite.HKDF.SplitFinal(k.ck)
	key1 := make([]byte, k.suite.AEADKeySize)
	key2 := make([]byte, k.suite.AEADKeySize)
	copy(key1, k1Full[:k.suite.AEADKeySize])
	copy(key2, k2Full[:k.suite.AEADKeySize])

	var sender, receiver *Cipher
	if !swap {
		sender = NewCipher(k.suite.AEAD(key1), k.suite.Endian, step)
		receiver = NewCipher(k.suite.AEAD(key2), k.suite.Endian, step)
	} else {
		sender = NewCipher(k.suite.AEAD(key2), k.suite.Endian, step)
		receiver = NewCipher(k.suite.AEAD(key1), k.suite.Endian, step)
	}

	out := &Output{Sender: sender, Receiver: receiver, Hash: cloneBytes(k.h)}

	zeroizeAll(k.ck, k1Full, k2Full, key1, key2)
	k.consumed = true
	k.notifySplit()
	return out
}
