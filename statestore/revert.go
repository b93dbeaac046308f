package statestore

import "github.com/taraxa-project/smt-store/common"

// Revert undoes the commit at height, restoring the root to prevRoot
// bit-for-bit. Fails if height is not the current top height, if
// prevRoot does not match that commit's recorded previous root, or if
// the diff record is missing.
func (self *Store) Revert(prevRoot common.Hash, height uint64) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return ErrClosed
	}

	top, ok, err := self.topDiffLocked()
	if err != nil {
		return err
	}
	if !ok || top.Height != height || top.PrevRoot != prevRoot {
		return ErrInvalidState
	}
	cur, err := self.currentRootLocked()
	if err != nil {
		return err
	}
	if cur != top.NewRoot {
		return ErrInvalidState
	}

	batch := self.db.NewBatch()
	for _, h := range top.CreatedNodes {
		batch.Del(nodeKey(h))
	}
	for _, sc := range top.SideIndex {
		if sc.HadValue {
			batch.Set(valueKey(sc.Key), sc.PrevVal)
		} else {
			batch.Del(valueKey(sc.Key))
		}
	}
	batch.Del(diffKeyFor(height))
	batch.Set(rootPointerKey, prevRoot.Bytes())

	return self.db.Write(batch)
}
