package noise

import (
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"
)

type chachaAEAD struct {
	aead cipher.AEAD
}

// NewChaCha20Poly1305 constructs an AEAD for the given 32-byte key, using a
// little-endian nonce (spec.md §4.2, §6).
func NewChaCha20Poly1305(key []byte) AEAD {
	c, err := chacha20poly1305.New(key)
	if err != nil {
		panic("noise: chacha20poly1305: " + err.Error())
	}
	return &chachaAEAD{aead: c}
}

func (c *chachaAEAD) KeySize() int   { return chacha20poly1305.KeySize }
func (c *chachaAEAD) NonceSize() int { return c.aead.NonceSize() }
func (c *chachaAEAD) TagSize() int   { return c.aead.Overhead() }

func (c *chachaAEAD) Seal(nonce, ad, buf []byte) []byte {
	return sealDetached(c.aead, nonce, ad, buf)
}

func (c *chachaAEAD) Open(nonce, ad, buf []byte, tag []byte) error {
	return openDetached(c.aead, nonce, ad, buf, tag)
}
