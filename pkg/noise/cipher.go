package noise

import "sync"

// Cipher is a one-direction AEAD-keyed object holding a key and a 64-bit
// monotonic nonce counter, per spec.md §3/§4.3. Step is 1 for standard
// Noise transport and 2 for protocols that interleave a secondary "link"
// encryption on odd nonces.
//
// Cipher is NOT safe for concurrent mutation of the nonce counter; callers
// serializing encryption of a single direction must not call Encrypt from
// multiple goroutines at once (nonce reuse is catastrophic for AEAD
// security). The mutex here only protects the counter read/increment
// itself from torn updates, not higher-level ordering.
type Cipher struct {
	aead   AEAD
	endian Endian
	step   uint64

	mu sync.Mutex
	n  uint64
}

// NewCipher constructs a Cipher over aead with nonce counter 0. step must
// be 1 or 2.
func NewCipher(aead AEAD, endian Endian, step uint64) *Cipher {
	invariant(step == 1 || step == 2, "Cipher step must be 1 or 2")
	return &Cipher{aead: aead, endian: endian, step: step}
}

// Nonce returns the current counter value.
func (c *Cipher) Nonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Encrypt encrypts buf in place with associated data ad, using nonce
// n*Step, and increments the counter on success.
func (c *Cipher) Encrypt(ad, buf []byte) (tag []byte) {
	c.mu.Lock()
	n := c.n
	c.n++
	c.mu.Unlock()

	nonce := prepareNonce(c.endian, n*c.step, c.aead.NonceSize())
	return c.aead.Seal(nonce, ad, buf)
}

// Decrypt verifies tag and decrypts buf in place with associated data ad,
// using nonce n*Step. On success the counter is incremented; on failure it
// is left unchanged and ErrMacMismatch is returned, so the caller may retry
// with a corrected buffer/tag (real callers generally treat failure as
// fatal for the session).
func (c *Cipher) Decrypt(ad, buf []byte, tag []byte) error {
	c.mu.Lock()
	n := c.n
	c.mu.Unlock()

	nonce := prepareNonce(c.endian, n*c.step, c.aead.NonceSize())
	if err := c.aead.Open(nonce, ad, buf, tag); err != nil {
		return err
	}

	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return nil
}

// Link encrypts data in place with an explicit nonce and empty associated
// data, using AEAD nonce explicitNonce*2+1 — the odd-nonce "link" channel
// present only when Step == 2 (spec.md §4.3). It does not advance the
// Cipher's own counter. Panics if Step != 2.
func (c *Cipher) Link(explicitNonce uint64, data []byte) (tag []byte) {
	invariant(c.step == 2, "Link is only available when Cipher step is 2")
	nonce := prepareNonce(c.endian, explicitNonce*2+1, c.aead.NonceSize())
	return c.aead.Seal(nonce, nil, data)
}

// Swap returns a new Cipher over the same key, endian policy and step,
// with the counter carried over, for logically swapping sender/receiver
// roles (e.g. when an endpoint loops its own traffic back to itself).
func (c *Cipher) Swap() *Cipher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Cipher{aead: c.aead, endian: c.endian, step: c.step, n: c.n}
}
