package smt

import "github.com/taraxa-project/smt-store/util/assert"

// bitAt returns the bit of key at path position i, most-significant bit
// of byte 0 first. It is the one primitive Update, Prove and Verify all
// share for walking a key's 8*K-bit path.
func bitAt(key []byte, i int) int {
	byteIdx := i / 8
	assert.Holds(byteIdx < len(key), "bitAt: path position out of range")
	bitIdx := uint(7 - i%8)
	return int((key[byteIdx] >> bitIdx) & 1)
}

func pathLen(keyLen int) int { return keyLen * 8 }
