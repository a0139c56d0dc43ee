package noise

import (
	"bytes"
	"testing"
)

func testSuite() Suite {
	return NewSuite(SHA256, NewChaCha20Poly1305, 32, LittleEndian)
}

func TestNewUnkeyedStatePadsShortName(t *testing.T) {
	suite := testSuite()
	s := NewUnkeyedState(suite, "short")
	h := s.Hash()
	if len(h) != suite.Hash.Size() {
		t.Fatalf("h length = %d, want %d", len(h), suite.Hash.Size())
	}
	if !bytes.HasPrefix(h, []byte("short")) {
		t.Fatalf("h does not start with protocol name: %x", h)
	}
	for _, b := range h[len("short"):] {
		if b != 0 {
			t.Fatalf("expected zero padding after name, got %x", h)
		}
	}
}

func TestNewUnkeyedStateHashesLongName(t *testing.T) {
	suite := testSuite()
	longName := "Noise_XK_25519_ChaChaPoly_SHA256_with_a_name_longer_than_32_bytes"
	s := NewUnkeyedState(suite, longName)
	want := suite.Hash.Sum([]byte(longName))
	if !bytes.Equal(s.Hash(), want) {
		t.Fatalf("h = %x, want H(name) = %x", s.Hash(), want)
	}
}

func TestMixHashComposition(t *testing.T) {
	// spec.md §8 property 1: each MixHash call hashes h || data as a single
	// SumParts call, so MixHash("a") then MixHash("b") is H(H(h||a)||b),
	// not the same as one MixHash("ab"). What must hold is that two states
	// fed the identical sequence of MixHash calls end up with identical h.
	suite := testSuite()
	s1 := NewUnkeyedState(suite, "proto")
	s2 := NewUnkeyedState(suite, "proto")

	s1.MixHash([]byte("a")).MixHash([]byte("b"))
	s2.MixHash([]byte("a")).MixHash([]byte("b"))

	if !bytes.Equal(s1.Hash(), s2.Hash()) {
		t.Fatalf("identical MixHash sequences diverged: %x != %x", s1.Hash(), s2.Hash())
	}

	s3 := NewUnkeyedState(suite, "proto")
	s3.MixHash([]byte("a"))
	if bytes.Equal(s3.Hash(), s1.Hash()) {
		t.Fatalf("partial MixHash sequence should not equal the full sequence's hash")
	}
}

func TestMixSharedSecretTransitionsToKeyed(t *testing.T) {
	suite := testSuite()
	u := NewUnkeyedState(suite, "proto")
	secret := bytes.Repeat([]byte{0x05}, 32)

	ks := u.MixSharedSecret(secret)
	if ks == nil {
		t.Fatal("MixSharedSecret returned nil")
	}
	if ks.n != 0 {
		t.Fatalf("fresh KeyedState nonce index = %d, want 0", ks.n)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected use of consumed UnkeyedState to panic")
		}
	}()
	u.MixHash([]byte("x"))
}

func TestMixSharedSecretZeroizesInput(t *testing.T) {
	suite := testSuite()
	u := NewUnkeyedState(suite, "proto")
	secret := bytes.Repeat([]byte{0x07}, 32)
	u.MixSharedSecret(secret)

	for _, b := range secret {
		if b != 0 {
			t.Fatalf("mix_shared_secret input not zeroized: %x", secret)
		}
	}
}

func TestKeyedMixSharedSecretRekeysAndResetsNonce(t *testing.T) {
	suite := testSuite()
	u := NewUnkeyedState(suite, "proto")
	ks1 := u.MixSharedSecret(bytes.Repeat([]byte{0x01}, 32))
	ks1.Encrypt([]byte("advance the counter"))
	if ks1.n == 0 {
		t.Fatal("setup: expected nonce to have advanced")
	}

	ks2 := ks1.MixSharedSecret(bytes.Repeat([]byte{0x02}, 32))
	if ks2.n != 0 {
		t.Fatalf("rekeyed state nonce index = %d, want 0", ks2.n)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected use of consumed KeyedState to panic")
		}
	}()
	ks1.Hash()
}

func TestEncryptDecryptRoundTripAndHashEquivalence(t *testing.T) {
	// spec.md §8 property 2: independent sender/receiver SymmetricStates
	// walked through the same operations stay hash-equivalent, and
	// Encrypt/Decrypt round-trips the plaintext.
	suite := testSuite()
	secret := bytes.Repeat([]byte{0x09}, 32)

	sender := NewUnkeyedState(suite, "proto").MixSharedSecret(append([]byte(nil), secret...))
	receiver := NewUnkeyedState(suite, "proto").MixSharedSecret(append([]byte(nil), secret...))

	plaintext := []byte("handshake payload")
	buf := append([]byte(nil), plaintext...)
	tag := sender.Encrypt(buf)

	if err := receiver.Decrypt(buf, tag); err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(buf, plaintext) {
		t.Fatalf("round trip produced %q, want %q", buf, plaintext)
	}
	if !bytes.Equal(sender.Hash(), receiver.Hash()) {
		t.Fatalf("sender/receiver hashes diverged after round trip: %x != %x", sender.Hash(), receiver.Hash())
	}
}

func TestDecryptFailureLeavesStateUnchanged(t *testing.T) {
	suite := testSuite()
	secret := bytes.Repeat([]byte{0x0a}, 32)

	sender := NewUnkeyedState(suite, "proto").MixSharedSecret(append([]byte(nil), secret...))
	receiver := NewUnkeyedState(suite, "proto").MixSharedSecret(append([]byte(nil), secret...))

	buf := []byte("payload")
	tag := sender.Encrypt(buf)
	tag[0] ^= 0xff

	hBefore := receiver.Hash()
	nBefore := receiver.n
	if err := receiver.Decrypt(buf, tag); err == nil {
		t.Fatal("expected decrypt to fail with tampered tag")
	}
	if !bytes.Equal(hBefore, receiver.Hash()) {
		t.Fatalf("h changed after failed decrypt: %x -> %x", hBefore, receiver.Hash())
	}
	if receiver.n != nBefore {
		t.Fatalf("n changed after failed decrypt: %d -> %d", nBefore, receiver.n)
	}
}

func TestSplitProducesIndependentCrossDecryptingCiphers(t *testing.T) {
	// spec.md §8 property 3: after Split, the initiator's Sender decrypts
	// under the responder's Receiver and vice versa.
	suite := testSuite()
	secret := bytes.Repeat([]byte{0x0b}, 32)

	initiator := NewUnkeyedState(suite, "proto").MixSharedSecret(append([]byte(nil), secret...))
	responder := NewUnkeyedState(suite, "proto").MixSharedSecret(append([]byte(nil), secret...))

	initOut := initiator.Split(1, false)
	respOut := responder.Split(1, true)

	if !bytes.Equal(initOut.Hash, respOut.Hash) {
		t.Fatalf("split hashes diverged: %x != %x", initOut.Hash, respOut.Hash)
	}

	msg := []byte("transport message")
	tag := initOut.Sender.Encrypt(nil, msg)
	if err := respOut.Receiver.Decrypt(nil, msg, tag); err != nil {
		t.Fatalf("responder could not decrypt initiator's sender traffic: %v", err)
	}

	reply := []byte("reply message")
	tag2 := respOut.Sender.Encrypt(nil, reply)
	if err := initOut.Receiver.Decrypt(nil, reply, tag2); err != nil {
		t.Fatalf("initiator could not decrypt responder's sender traffic: %v", err)
	}
}

func TestSplitConsumesState(t *testing.T) {
	suite := testSuite()
	secret := bytes.Repeat([]byte{0x0c}, 32)
	ks := NewUnkeyedState(suite, "proto").MixSharedSecret(secret)
	ks.Split(1, false)

	defer func() {
		if recover() == nil {
			t.Fatal("expected use of split KeyedState to panic")
		}
	}()
	ks.Hash()
}

func TestZerosTagAdvancesStateLikeEncrypt(t *testing.T) {
	suite := testSuite()
	secret := bytes.Repeat([]byte{0x0d}, 32)
	sender := NewUnkeyedState(suite, "proto").MixSharedSecret(append([]byte(nil), secret...))
	receiver := NewUnkeyedState(suite, "proto").MixSharedSecret(append([]byte(nil), secret...))

	tag := sender.ZerosTag(0)
	empty := []byte{}
	if err := receiver.Decrypt(empty, tag); err != nil {
		t.Fatalf("receiver could not verify zeros tag: %v", err)
	}
	if !bytes.Equal(sender.Hash(), receiver.Hash()) {
		t.Fatalf("hashes diverged after ZerosTag: %x != %x", sender.Hash(), receiver.Hash())
	}
}

func TestMixPSKMixesFullWidthMiddleIntoHash(t *testing.T) {
	suite := testSuite()
	u1 := NewUnkeyedState(suite, "proto")
	u2 := NewUnkeyedState(suite, "proto")

	psk := bytes.Repeat([]byte{0x0e}, 32)
	ks := u1.MixPSK(append([]byte(nil), psk...))

	// Recompute what mixPSK should have produced and compare hashes.
	_, middle, _ := suite.HKDF.Split3(u2.ck, psk)
	wantH := suite.Hash.SumParts(u2.h, middle)

	if !bytes.Equal(ks.h, wantH) {
		t.Fatalf("MixPSK hash = %x, want %x", ks.h, wantH)
	}
}
