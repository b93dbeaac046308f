package statestore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/kv"
)

// Reader is a read-only snapshot of the store's root and underlying
// KV at the moment it was created (§4.4). A later commit never
// affects an already-open Reader; Close on the owning Store
// invalidates every outstanding Reader at once.
type Reader struct {
	id       uuid.UUID
	store    *Store
	root     common.Hash
	kvReader kv.Reader

	mu       sync.Mutex
	released bool
	closed   bool
}

func (self *Reader) ID() uuid.UUID { return self.id }

func (self *Reader) Root() common.Hash { return self.root }

// Get reads the side-index (valueKey) rather than re-walking the SMT
// from root, as an optimization over §4.4's literal "fetch by
// resolving the root" wording. This is only correct because Commit
// and Revert keep the side-index and the SMT root in lockstep for
// every key they touch (see readwriter.go's existedBefore/changes and
// revert.go) — if the two ever diverged for a key, Get would return a
// stale value despite the root proving something else.
func (self *Reader) Get(key []byte) ([]byte, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return nil, ErrClosed
	}
	v, err := self.kvReader.Get(valueKey(key))
	if err == kv.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

// Has is the side-index equivalent of Get; the same consistency
// dependency applies.
func (self *Reader) Has(key []byte) (bool, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return false, ErrClosed
	}
	return self.kvReader.Has(valueKey(key))
}

func (self *Reader) Iterate(opts kv.IterateOptions) kv.Iterator {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return &closedIterator{}
	}
	return self.store.newSideIndexIterator(self.kvReader, opts)
}

// Release drops this reader's snapshot. Idempotent.
func (self *Reader) Release() {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.released {
		return
	}
	self.released = true
	self.closed = true
	self.kvReader.Release()
	self.store.untrackReader(self.id)
}

// invalidate is called by Store.Close; unlike Release it does not
// untrack from the store (Close is already iterating that map).
func (self *Reader) invalidate() {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return
	}
	self.closed = true
	self.released = true
	self.kvReader.Release()
}

type closedIterator struct{}

func (*closedIterator) Next() bool    { return false }
func (*closedIterator) Key() []byte   { return nil }
func (*closedIterator) Value() []byte { return nil }
func (*closedIterator) Err() error    { return ErrClosed }
func (*closedIterator) Release()      {}
