package noise

import (
	stdhash "hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
)

// blake2Hash adapts golang.org/x/crypto/blake2b or blake2s to the Hash
// contract. Both constructors accept an optional key; Noise never uses the
// keyed mode, so newFunc is always called with a nil key.
type blake2Hash struct {
	newFunc   func() stdhash.Hash
	size      int
	blockSize int
}

// BLAKE2b512 is the Noise MixHash primitive backed by
// golang.org/x/crypto/blake2b (64-byte digest).
var BLAKE2b512 Hash = &blake2Hash{
	newFunc: func() stdhash.Hash {
		d, err := blake2b.New512(nil)
		if err != nil {
			panic(err)
		}
		return d
	},
	size:      blake2b.Size,
	blockSize: blake2b.BlockSize,
}

// BLAKE2s256 is the Noise MixHash primitive backed by
// golang.org/x/crypto/blake2s (32-byte digest).
var BLAKE2s256 Hash = &blake2Hash{
	newFunc: func() stdhash.Hash {
		d, err := blake2s.New256(nil)
		if err != nil {
			panic(err)
		}
		return d
	},
	size:      blake2s.Size,
	blockSize: blake2s.BlockSize,
}

func (h *blake2Hash) Size() int      { return h.size }
func (h *blake2Hash) BlockSize() int { return h.blockSize }

func (h *blake2Hash) Sum(data []byte) []byte {
	d := h.newFunc()
	d.Write(data)
	return d.Sum(nil)
}

func (h *blake2Hash) SumParts(prefix []byte, parts ...[]byte) []byte {
	d := h.newFunc()
	d.Write(prefix)
	for _, p := range parts {
		d.Write(p)
	}
	return d.Sum(nil)
}

func (h *blake2Hash) New() stdhash.Hash { return h.newFunc() }
