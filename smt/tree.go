package smt

import (
	"bytes"

	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/util"
)

// Tree is the configurable-key-length SMT engine (C4). It holds no
// state of its own beyond KeyLen; every call is handed the root it
// operates on and a NodeStore to read/write through.
type Tree struct {
	KeyLen int
}

func New(keyLen int) *Tree {
	return &Tree{KeyLen: keyLen}
}

// KV is one update pair. An empty Value deletes Key.
type KV struct {
	Key, Value []byte
}

// leafPair is the internal unit the recursive update partitions.
// preservedHash is set when this pair represents a leaf already
// resolved from storage (an existing key being carried forward
// unchanged into a new branch split), so its value never needs
// re-hashing.
type leafPair struct {
	key           []byte
	value         []byte
	preservedHash *common.Hash
}

func (p leafPair) isDelete() bool {
	return p.preservedHash == nil && len(p.value) == 0
}

func (p leafPair) valueHash() common.Hash {
	if p.preservedHash != nil {
		return *p.preservedHash
	}
	return util.Hash(p.value)
}

// Update applies pairs to root and returns the new root hash. Every
// key must have length KeyLen. Duplicate keys within pairs resolve
// last-write-wins in input order. root must either be EmptyHash or
// resolve in store.
func (self *Tree) Update(store NodeStore, root common.Hash, pairs []KV) (common.Hash, error) {
	dedup := make(map[string][]byte, len(pairs))
	order := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if len(p.Key) != self.KeyLen {
			return common.Hash{}, ErrInvalidKeyLength
		}
		ks := string(p.Key)
		if _, exists := dedup[ks]; !exists {
			order = append(order, ks)
		}
		dedup[ks] = p.Value
	}
	if root != EmptyHash {
		if _, err := store.GetNode(root); err != nil {
			return common.Hash{}, ErrRootNotFound
		}
	}
	final := make([]leafPair, len(order))
	for i, ks := range order {
		final[i] = leafPair{key: []byte(ks), value: dedup[ks]}
	}
	return self.update(store, root, 0, final)
}

func (self *Tree) update(store NodeStore, nodeHash common.Hash, depth int, pairs []leafPair) (common.Hash, error) {
	if len(pairs) == 0 {
		return nodeHash, nil
	}
	if nodeHash == EmptyHash {
		return self.updateEmpty(store, depth, pairs)
	}
	raw, err := store.GetNode(nodeHash)
	if err != nil {
		return common.Hash{}, err
	}
	tag, err := nodeTag(raw)
	if err != nil {
		return common.Hash{}, err
	}
	switch tag {
	case tagLeaf:
		return self.updateLeaf(store, nodeHash, raw, depth, pairs)
	case tagBranch:
		return self.updateBranch(store, nodeHash, raw, depth, pairs)
	default:
		return common.Hash{}, ErrMalformedNode
	}
}

func (self *Tree) updateEmpty(store NodeStore, depth int, pairs []leafPair) (common.Hash, error) {
	var surviving []leafPair
	for _, p := range pairs {
		if !p.isDelete() {
			surviving = append(surviving, p)
		}
	}
	switch len(surviving) {
	case 0:
		return EmptyHash, nil
	case 1:
		return self.writeLeaf(store, surviving[0])
	default:
		var left, right []leafPair
		for _, p := range pairs {
			if bitAt(p.key, depth) == 0 {
				left = append(left, p)
			} else {
				right = append(right, p)
			}
		}
		leftHash, err := self.update(store, EmptyHash, depth+1, left)
		if err != nil {
			return common.Hash{}, err
		}
		rightHash, err := self.update(store, EmptyHash, depth+1, right)
		if err != nil {
			return common.Hash{}, err
		}
		return self.combine(store, leftHash, rightHash)
	}
}

func (self *Tree) writeLeaf(store NodeStore, p leafPair) (common.Hash, error) {
	vh := p.valueHash()
	h := leafHash(p.key, vh)
	store.SetNode(h, encodeLeaf(p.key, vh))
	return h, nil
}

func (self *Tree) updateLeaf(store NodeStore, nodeHash common.Hash, raw []byte, depth int, pairs []leafPair) (common.Hash, error) {
	existingKey, existingValueHash, err := decodeLeaf(raw, self.KeyLen)
	if err != nil {
		return common.Hash{}, err
	}
	store.DeleteNode(nodeHash)

	var matched *leafPair
	var rest []leafPair
	for i := range pairs {
		if bytes.Equal(pairs[i].key, existingKey) {
			m := pairs[i]
			matched = &m
		} else {
			rest = append(rest, pairs[i])
		}
	}

	if len(rest) == 0 {
		if matched == nil {
			h := leafHash(existingKey, existingValueHash)
			store.SetNode(h, raw)
			return h, nil
		}
		if matched.isDelete() {
			return EmptyHash, nil
		}
		return self.writeLeaf(store, *matched)
	}

	// Existing leaf's subtree now contains more than one surviving key
	// (or a mix of a new key and the untouched existing one): fold the
	// existing leaf back into the pair stream and let updateEmpty
	// split at the first differing bit, extending the branch chain as
	// far down as necessary.
	all := rest
	if matched == nil {
		all = append(all, leafPair{key: existingKey, preservedHash: &existingValueHash})
	} else if !matched.isDelete() {
		all = append(all, *matched)
	}
	return self.updateEmpty(store, depth, all)
}

func (self *Tree) updateBranch(store NodeStore, nodeHash common.Hash, raw []byte, depth int, pairs []leafPair) (common.Hash, error) {
	left, right, err := decodeBranch(raw)
	if err != nil {
		return common.Hash{}, err
	}
	store.DeleteNode(nodeHash)

	var leftPairs, rightPairs []leafPair
	for _, p := range pairs {
		if bitAt(p.key, depth) == 0 {
			leftPairs = append(leftPairs, p)
		} else {
			rightPairs = append(rightPairs, p)
		}
	}
	newLeft, err := self.update(store, left, depth+1, leftPairs)
	if err != nil {
		return common.Hash{}, err
	}
	newRight, err := self.update(store, right, depth+1, rightPairs)
	if err != nil {
		return common.Hash{}, err
	}
	return self.combine(store, newLeft, newRight)
}

// combine rebuilds a branch from its (possibly unchanged) children. Two
// empty children collapse to EmptyHash. A branch with exactly one empty
// child and one leaf child promotes that leaf in place of the branch:
// the leaf node already carries its full key, so nothing is lost by
// lifting it to a shallower depth, and this is what makes a single
// surviving key's root equal that key's leaf hash regardless of how
// deep it was previously nested. A branch whose only non-empty child is
// itself a branch is never promoted, since a branch node carries no
// record of the path depth it sits at.
func (self *Tree) combine(store NodeStore, left, right common.Hash) (common.Hash, error) {
	if left == EmptyHash && right == EmptyHash {
		return EmptyHash, nil
	}
	if left == EmptyHash || right == EmptyHash {
		nonEmpty := left
		if nonEmpty == EmptyHash {
			nonEmpty = right
		}
		raw, err := store.GetNode(nonEmpty)
		if err != nil {
			return common.Hash{}, err
		}
		tag, err := nodeTag(raw)
		if err != nil {
			return common.Hash{}, err
		}
		if tag == tagLeaf {
			return nonEmpty, nil
		}
	}
	h := branchHash(left, right)
	store.SetNode(h, encodeBranch(left, right))
	return h, nil
}
