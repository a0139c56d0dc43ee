package noise

import (
	"crypto/sha256"
	"crypto/sha512"
	stdhash "hash"
)

// sha2Hash adapts crypto/sha256 or crypto/sha512 to the Hash contract.
type sha2Hash struct {
	newFunc   func() stdhash.Hash
	size      int
	blockSize int
}

// SHA256 is the Noise MixHash primitive backed by crypto/sha256.
var SHA256 Hash = &sha2Hash{newFunc: func() stdhash.Hash { return sha256.New() }, size: sha256.Size, blockSize: sha256.BlockSize}

// SHA512 is the Noise MixHash primitive backed by crypto/sha512.
var SHA512 Hash = &sha2Hash{newFunc: func() stdhash.Hash { return sha512.New() }, size: sha512.Size, blockSize: sha512.BlockSize}

func (h *sha2Hash) Size() int      { return h.size }
func (h *sha2Hash) BlockSize() int { return h.blockSize }

func (h *sha2Hash) Sum(data []byte) []byte {
	d := h.newFunc()
	d.Write(data)
	return d.Sum(nil)
}

func (h *sha2Hash) SumParts(prefix []byte, parts ...[]byte) []byte {
	d := h.newFunc()
	d.Write(prefix)
	for _, p := range parts {
		d.Write(p)
	}
	return d.Sum(nil)
}

func (h *sha2Hash) New() stdhash.Hash { return h.newFunc() }
