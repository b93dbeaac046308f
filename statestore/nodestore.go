package statestore

import (
	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/kv"
	"github.com/taraxa-project/smt-store/smt"
)

// commitNodeStore adapts a kv.Database + in-flight kv.Batch into an
// smt.NodeStore for the duration of one Commit call. It tracks, among
// the nodes it is asked to persist, exactly those that did not already
// exist in storage before this commit (created), since those are the
// only ones a subsequent Revert may safely delete — see DESIGN.md's
// Open Question #3. DeleteNode never issues a physical removal: nodes
// are retained until Finalize's mark-and-sweep, so that structural
// sharing with older, still-retained roots is never broken by a later
// commit.
type commitNodeStore struct {
	db      kv.Database
	batch   kv.Batch
	pending map[common.Hash][]byte
	created map[common.Hash]bool
}

func newCommitNodeStore(db kv.Database, batch kv.Batch) *commitNodeStore {
	return &commitNodeStore{
		db:      db,
		batch:   batch,
		pending: make(map[common.Hash][]byte),
		created: make(map[common.Hash]bool),
	}
}

func (self *commitNodeStore) GetNode(hash common.Hash) ([]byte, error) {
	if raw, ok := self.pending[hash]; ok {
		return raw, nil
	}
	raw, err := self.db.Get(nodeKey(hash))
	if err == kv.ErrNotFound {
		return nil, smt.ErrNodeNotFound
	}
	return raw, err
}

func (self *commitNodeStore) SetNode(hash common.Hash, encoded []byte) {
	if _, ok := self.pending[hash]; ok {
		return
	}
	if exists, _ := self.db.Has(nodeKey(hash)); exists {
		self.pending[hash] = encoded
		return
	}
	self.pending[hash] = encoded
	self.created[hash] = true
	self.batch.Set(nodeKey(hash), encoded)
}

func (self *commitNodeStore) DeleteNode(hash common.Hash) {
	// Intentionally a no-op against storage; see the type doc comment.
}
