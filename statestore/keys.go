package statestore

import (
	"encoding/binary"

	"github.com/taraxa-project/smt-store/common"
)

// The persisted keyspace is a single prefix byte ahead of the rest of
// the key, exactly as laid out by §6.2.
const (
	prefixNode  byte = 0x00
	prefixValue byte = 0x01
	prefixDiff  byte = 0x02
	prefixRoot  byte = 0x03
)

var rootPointerKey = []byte{prefixRoot}

func nodeKey(h common.Hash) []byte {
	k := make([]byte, 1+common.HashLength)
	k[0] = prefixNode
	copy(k[1:], h.Bytes())
	return k
}

func valueKey(userKey []byte) []byte {
	k := make([]byte, 1+len(userKey))
	k[0] = prefixValue
	copy(k[1:], userKey)
	return k
}

func diffKeyFor(height uint64) []byte {
	k := make([]byte, 5)
	k[0] = prefixDiff
	binary.BigEndian.PutUint32(k[1:], uint32(height))
	return k
}

func diffLowerBound() []byte { return []byte{prefixDiff} }
func diffUpperBound() []byte { return []byte{prefixDiff, 0xff, 0xff, 0xff, 0xff} }

func heightFromDiffKey(k []byte) uint64 {
	return uint64(binary.BigEndian.Uint32(k[1:]))
}
