package statestore

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/kv"
	"github.com/taraxa-project/smt-store/smt"
)

// Finalize irreversibly discards history below height: every diff
// record below height is deleted, and every node unreachable from any
// retained root (the current root, plus every root at height >=
// height) is garbage-collected. This is a mark-and-sweep pass, not
// incremental refcounting — see DESIGN.md's Open Question #2 for why.
func (self *Store) Finalize(height uint64) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return ErrClosed
	}

	cur, err := self.currentRootLocked()
	if err != nil {
		return err
	}
	retained := mapset.NewSet()
	retained.Add(cur)

	retainIt := self.db.Iterate(kv.IterateOptions{Gte: diffKeyFor(height), Lte: diffUpperBound()})
	var belowKeys [][]byte
	for retainIt.Next() {
		d, err := decodeDiff(retainIt.Value())
		if err != nil {
			retainIt.Release()
			return ErrCorruption
		}
		retained.Add(d.NewRoot)
	}
	err = retainIt.Err()
	retainIt.Release()
	if err != nil {
		return err
	}

	if height > 0 {
		belowIt := self.db.Iterate(kv.IterateOptions{Gte: diffLowerBound(), Lte: diffKeyFor(height - 1)})
		for belowIt.Next() {
			belowKeys = append(belowKeys, common.CopyBytes(belowIt.Key()))
		}
		err = belowIt.Err()
		belowIt.Release()
		if err != nil {
			return err
		}
	}

	reachable := mapset.NewSet()
	var markErr error
	retained.Each(func(item interface{}) bool {
		if err := self.markReachable(item.(common.Hash), reachable); err != nil {
			markErr = err
			return true
		}
		return false
	})
	if markErr != nil {
		return markErr
	}

	nodeIt := self.db.Iterate(kv.IterateOptions{Gte: []byte{prefixNode}, Lte: nodePrefixUpperBound()})
	var unreachable [][]byte
	for nodeIt.Next() {
		h := common.BytesToHash(nodeIt.Key()[1:])
		if !reachable.Contains(h) {
			unreachable = append(unreachable, common.CopyBytes(nodeIt.Key()))
		}
	}
	err = nodeIt.Err()
	nodeIt.Release()
	if err != nil {
		return err
	}

	batch := self.db.NewBatch()
	for _, k := range belowKeys {
		batch.Del(k)
	}
	for _, k := range unreachable {
		batch.Del(k)
	}
	return self.db.Write(batch)
}

func (self *Store) markReachable(root common.Hash, reachable mapset.Set) error {
	if root == smt.EmptyHash || reachable.Contains(root) {
		return nil
	}
	raw, err := self.db.Get(nodeKey(root))
	if err == kv.ErrNotFound {
		return ErrCorruption
	}
	if err != nil {
		return err
	}
	reachable.Add(root)
	tag, err := smt.Tag(raw)
	if err != nil {
		return ErrCorruption
	}
	if tag != smt.TagBranch {
		return nil
	}
	left, right, err := smt.DecodeBranchChildren(raw)
	if err != nil {
		return ErrCorruption
	}
	if err := self.markReachable(left, reachable); err != nil {
		return err
	}
	return self.markReachable(right, reachable)
}

func nodePrefixUpperBound() []byte {
	b := make([]byte, 1+common.HashLength)
	b[0] = prefixNode
	for i := 1; i < len(b); i++ {
		b[i] = 0xff
	}
	return b
}
