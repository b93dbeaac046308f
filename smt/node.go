package smt

import (
	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/util"
)

// Node tag bytes. Fixed for the lifetime of any store built on this
// package; the empty-hash constant and these prefixes are the
// implementer's choice left open by the specification, and must never
// change once a store has committed data under them.
const (
	TagEmpty  byte = 0x00
	TagLeaf   byte = 0x01
	TagBranch byte = 0x02
)

// kept as unexported aliases so the rest of this package's code reads
// naturally; TagX above is what callers outside the package (e.g. a
// state store's garbage collector walking raw node bytes) dispatch on.
const (
	tagEmpty  = TagEmpty
	tagLeaf   = TagLeaf
	tagBranch = TagBranch
)

// EmptyHash is the fixed hash of the empty subtree: H(tagEmpty). It is
// never written to a node store; a branch whose two children are both
// EmptyHash collapses to EmptyHash instead of being persisted.
var EmptyHash = util.Hash([]byte{tagEmpty})

func leafHash(key []byte, valueHash common.Hash) common.Hash {
	return util.Hash([]byte{tagLeaf}, key, valueHash.Bytes())
}

func branchHash(left, right common.Hash) common.Hash {
	return util.Hash([]byte{tagBranch}, left.Bytes(), right.Bytes())
}

func encodeLeaf(key []byte, valueHash common.Hash) []byte {
	buf := make([]byte, 1+len(key)+common.HashLength)
	buf[0] = tagLeaf
	copy(buf[1:], key)
	copy(buf[1+len(key):], valueHash.Bytes())
	return buf
}

func decodeLeaf(raw []byte, keyLen int) (key []byte, valueHash common.Hash, err error) {
	if len(raw) != 1+keyLen+common.HashLength || raw[0] != tagLeaf {
		return nil, common.Hash{}, ErrMalformedNode
	}
	key = common.CopyBytes(raw[1 : 1+keyLen])
	valueHash = common.BytesToHash(raw[1+keyLen:])
	return key, valueHash, nil
}

func encodeBranch(left, right common.Hash) []byte {
	buf := make([]byte, 1+2*common.HashLength)
	buf[0] = tagBranch
	copy(buf[1:], left.Bytes())
	copy(buf[1+common.HashLength:], right.Bytes())
	return buf
}

func decodeBranch(raw []byte) (left, right common.Hash, err error) {
	if len(raw) != 1+2*common.HashLength || raw[0] != tagBranch {
		return common.Hash{}, common.Hash{}, ErrMalformedNode
	}
	left = common.BytesToHash(raw[1 : 1+common.HashLength])
	right = common.BytesToHash(raw[1+common.HashLength:])
	return left, right, nil
}

func nodeTag(raw []byte) (byte, error) {
	if len(raw) == 0 {
		return 0, ErrMalformedNode
	}
	return raw[0], nil
}

// Tag returns raw's node tag. Exported for callers outside this
// package that need to walk persisted node bytes structurally without
// going through a Tree (e.g. a mark-and-sweep garbage collector).
func Tag(raw []byte) (byte, error) { return nodeTag(raw) }

// DecodeBranchChildren exposes decodeBranch for the same structural
// walking use case as Tag.
func DecodeBranchChildren(raw []byte) (left, right common.Hash, err error) {
	return decodeBranch(raw)
}
