// Package common holds the small set of wire-level types shared by every
// layer of the store: the node storage engine, the proof codec and the
// versioned state store all key their records by Hash.
package common

import "encoding/hex"

const HashLength = 32

// Hash is the output of the engine's hash function H(). It identifies a
// node by content address and, once hashed at the leaf boundary, a stored
// value.
type Hash [HashLength]byte

var ZeroHash Hash

func BytesToHash(b []byte) (h Hash) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

func (h Hash) IsZero() bool { return h == ZeroHash }

// Less gives Hash a total order, used to keep the created-node set of a
// diff record deterministic regardless of map iteration order.
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
