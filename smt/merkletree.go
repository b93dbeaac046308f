package smt

import "github.com/taraxa-project/smt-store/common"

// SparseMerkleTree is the no-persistence façade of §6.3: a Tree paired
// with an in-memory, unbounded NodeStore, for callers that only need
// to compute roots and proofs over ephemeral key-value batches and
// have no use for a durable state store.
type SparseMerkleTree struct {
	tree  *Tree
	store *memStore
	root  common.Hash
}

func NewSparseMerkleTree(keyLen int) *SparseMerkleTree {
	return &SparseMerkleTree{
		tree:  New(keyLen),
		store: newMemStore(),
		root:  EmptyHash,
	}
}

func (self *SparseMerkleTree) Root() common.Hash { return self.root }

func (self *SparseMerkleTree) Update(pairs []KV) (common.Hash, error) {
	newRoot, err := self.tree.Update(self.store, self.root, pairs)
	if err != nil {
		return common.Hash{}, err
	}
	self.root = newRoot
	return newRoot, nil
}

func (self *SparseMerkleTree) Prove(keys [][]byte) (*Proof, error) {
	return self.tree.Prove(self.store, self.root, keys)
}

func (self *SparseMerkleTree) Verify(keys [][]byte, proof *Proof) bool {
	return self.tree.Verify(self.root, keys, proof)
}
