package noise

import (
	"crypto/aes"
	"crypto/cipher"
)

type aesgcmAEAD struct {
	aead cipher.AEAD
}

// NewAES256GCM constructs an AEAD for the given 32-byte key, using a
// big-endian nonce (spec.md §4.2, §6).
func NewAES256GCM(key []byte) AEAD {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic("noise: aes256gcm: " + err.Error())
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic("noise: aes256gcm: " + err.Error())
	}
	return &aesgcmAEAD{aead: aead}
}

func (c *aesgcmAEAD) KeySize() int   { return 32 }
func (c *aesgcmAEAD) NonceSize() int { return c.aead.NonceSize() }
func (c *aesgcmAEAD) TagSize() int   { return c.aead.Overhead() }

func (c *aesgcmAEAD) Seal(nonce, ad, buf []byte) []byte {
	return sealDetached(c.aead, nonce, ad, buf)
}

func (c *aesgcmAEAD) Open(nonce, ad, buf []byte, tag []byte) error {
	return openDetached(c.aead, nonce, ad, buf, tag)
}
