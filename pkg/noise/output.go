package noise

// Output carries the pair of transport Ciphers and the final handshake
// hash produced by KeyedState.Split (spec.md §4.5). It has no operations of
// its own; callers drive the Ciphers directly.
type Output struct {
	Sender   *Cipher
	Receiver *Cipher
	Hash     []byte
}
