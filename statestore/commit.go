package statestore

import (
	"sort"

	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/smt"
)

// commitNodeCacheSize bounds the hot-subtree LRU each Commit wraps its
// backing store in. Update touches the same upper branch nodes
// repeatedly while descending to sibling leaves in the same batch;
// caching them avoids re-fetching from the underlying kv.Database on
// every descent within a single commit.
const commitNodeCacheSize = 4096

// CommitOptions controls the optional behaviors of §4.4's commit
// step 4 and step 5.
type CommitOptions struct {
	// CheckRoot aborts the commit (no persistence at all) if the
	// computed root does not equal ExpectedRoot.
	CheckRoot    bool
	ExpectedRoot common.Hash
	// Readonly computes and returns the new root without persisting
	// anything.
	Readonly bool
}

// Commit folds rw's working set into the SMT at height, building on
// prevRoot, and persists node mutations, side-index updates, a diff
// record and the root pointer in one atomic batch. It never runs
// concurrently with another Commit/Revert/Finalize on the same Store.
func (self *Store) Commit(rw *ReadWriter, height uint64, prevRoot common.Hash, opts CommitOptions) (common.Hash, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return common.Hash{}, ErrClosed
	}
	cur, err := self.currentRootLocked()
	if err != nil {
		return common.Hash{}, err
	}
	if cur != prevRoot {
		return common.Hash{}, ErrInvalidState
	}

	changes := rw.changes()
	pairs := make([]smt.KV, len(changes))
	for i, c := range changes {
		pairs[i] = smt.KV{Key: c.key, Value: c.value}
	}

	batch := self.db.NewBatch()
	nodeStore := newCommitNodeStore(self.db, batch)
	cached := smt.NewCachedNodeStore(nodeStore, commitNodeCacheSize)
	newRoot, err := self.tree.Update(cached, prevRoot, pairs)
	if err != nil {
		return common.Hash{}, err
	}

	if opts.CheckRoot && opts.ExpectedRoot != newRoot {
		return common.Hash{}, &RootMismatchError{Expected: opts.ExpectedRoot, Actual: newRoot}
	}
	if opts.Readonly {
		return newRoot, nil
	}

	diff := &DiffRecord{Height: height, PrevRoot: prevRoot, NewRoot: newRoot}
	for h := range nodeStore.created {
		diff.CreatedNodes = append(diff.CreatedNodes, h)
	}
	// nodeStore.created is a map; iteration order is random. Sort so
	// the encoded diff record is deterministic for identical commits,
	// not an artifact of this run's map ordering.
	sort.Slice(diff.CreatedNodes, func(i, j int) bool {
		return diff.CreatedNodes[i].Less(diff.CreatedNodes[j])
	})
	for _, c := range changes {
		diff.SideIndex = append(diff.SideIndex, sideIndexChange{Key: c.key, HadValue: c.hadValue, PrevVal: c.prevValue})
		if len(c.value) == 0 {
			batch.Del(valueKey(c.key))
		} else {
			batch.Set(valueKey(c.key), c.value)
		}
	}
	batch.Set(diffKeyFor(height), encodeDiff(diff))
	batch.Set(rootPointerKey, newRoot.Bytes())

	if err := self.db.Write(batch); err != nil {
		return common.Hash{}, err
	}
	return newRoot, nil
}
