package noise

import (
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfSplit implements HKDF against a paired Hash. Noise's HKDF
// construction (HKDF-Extract(salt=ck, ikm) then HKDF-Expand with empty
// info, sliced into L-byte blocks) is exactly RFC 5869 HKDF with those
// parameters, so this wraps golang.org/x/crypto/hkdf directly rather than
// hand-rolling the HMAC chaining.
type hkdfSplit struct {
	h Hash
}

// NewHKDF returns an HKDF implementation keyed by h.
func NewHKDF(h Hash) HKDF {
	return &hkdfSplit{h: h}
}

func (k *hkdfSplit) expand(ck, ikm []byte, n int) []byte {
	l := k.h.Size()
	r := hkdf.New(k.h.New, ikm, ck, nil)
	out := make([]byte, n*l)
	if _, err := io.ReadFull(r, out); err != nil {
		// hkdf.Read only fails if the output length exceeds the RFC 5869
		// limit (255*HashLen); Noise never requests more than 3*L.
		panic("noise: hkdf expand failed: " + err.Error())
	}
	return out
}

func (k *hkdfSplit) Split2(ck, ikm []byte) (ckNext, tempKey []byte) {
	l := k.h.Size()
	out := k.expand(ck, ikm, 2)
	ckNext = out[:l]
	tempKey = out[l : 2*l]
	return
}

func (k *hkdfSplit) Split3(ck, ikm []byte) (ckNext, middle, tempKey []byte) {
	l := k.h.Size()
	out := k.expand(ck, ikm, 3)
	ckNext = out[:l]
	middle = out[l : 2*l]
	tempKey = out[2*l : 3*l]
	return
}

func (k *hkdfSplit) SplitFinal(ck []byte) (k1, k2 []byte) {
	l := k.h.Size()
	out := k.expand(ck, nil, 2)
	k1 = out[:l]
	k2 = out[l : 2*l]
	return
}
