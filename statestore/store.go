package statestore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/kv"
	"github.com/taraxa-project/smt-store/smt"
	"github.com/taraxa-project/smt-store/util"
)

// Store is the top-level handle of C5: it owns the underlying KV
// engine, serialises the write path behind a single mutex, and hands
// out Readers and ReadWriters bound to its current root. A Commit,
// Revert or Finalize called while another one holds the mutex waits
// for it to finish; it does not fail fast.
type Store struct {
	db     kv.Database
	keyLen int
	tree   *smt.Tree

	mu     sync.Mutex
	closed bool

	readersMu sync.Mutex
	readers   map[uuid.UUID]*Reader
}

// Open attaches a Store to db. keyLen is the fixed SMT key length
// (§3's K) this store was created with; it must never change across
// the lifetime of the underlying data.
func Open(db kv.Database, keyLen int) (*Store, error) {
	return &Store{
		db:      db,
		keyLen:  keyLen,
		tree:    smt.New(keyLen),
		readers: make(map[uuid.UUID]*Reader),
	}, nil
}

// currentRootLocked returns the store's root pointer. A missing
// pointer (nothing committed yet) is the only case that legitimately
// means EmptyHash; any other backend error is returned as-is, never
// collapsed to EmptyHash, since callers gate correctness-critical
// decisions (Commit/Revert's prevRoot check) on this value.
func (self *Store) currentRootLocked() (common.Hash, error) {
	raw, err := self.db.Get(rootPointerKey)
	if err == kv.ErrNotFound {
		return smt.EmptyHash, nil
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(raw), nil
}

// CurrentRoot returns the store's current root hash.
func (self *Store) CurrentRoot() (common.Hash, error) {
	defer util.LockUnlock(&self.mu)()
	return self.currentRootLocked()
}

func (self *Store) trackReader(r *Reader) {
	defer util.LockUnlock(&self.readersMu)()
	self.readers[r.id] = r
}

func (self *Store) untrackReader(id uuid.UUID) {
	defer util.LockUnlock(&self.readersMu)()
	delete(self.readers, id)
}

// NewReader returns a Reader bound to the store's current root.
func (self *Store) NewReader() (*Reader, error) {
	self.mu.Lock()
	if self.closed {
		self.mu.Unlock()
		return nil, ErrClosed
	}
	root, err := self.currentRootLocked()
	self.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r := &Reader{id: uuid.New(), store: self, root: root, kvReader: self.db.NewReader()}
	self.trackReader(r)
	return r, nil
}

// NewReadWriter returns a working set bound to the store's current
// root.
func (self *Store) NewReadWriter() (*ReadWriter, error) {
	self.mu.Lock()
	if self.closed {
		self.mu.Unlock()
		return nil, ErrClosed
	}
	root, err := self.currentRootLocked()
	self.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return newReadWriter(self, root, self.db.NewReader()), nil
}

// topDiffLocked returns the diff record for the highest committed
// height, if any commit has happened yet.
func (self *Store) topDiffLocked() (*DiffRecord, bool, error) {
	it := self.db.Iterate(kv.IterateOptions{Gte: diffLowerBound(), Lte: diffUpperBound(), Reverse: true, Limit: 1})
	defer it.Release()
	if !it.Next() {
		return nil, false, it.Err()
	}
	d, err := decodeDiff(it.Value())
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// Close releases the underlying KV handle and invalidates every
// outstanding Reader; subsequent operations on those readers fail
// with ErrClosed.
func (self *Store) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return nil
	}
	self.closed = true

	self.readersMu.Lock()
	for _, r := range self.readers {
		r.invalidate()
	}
	self.readers = make(map[uuid.UUID]*Reader)
	self.readersMu.Unlock()

	return self.db.Close()
}
