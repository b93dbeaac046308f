// Package memory is the in-memory implementation of the kv.Database
// facade (component C3): a sorted map over byte keys, used for tests and
// ephemeral trees. It supports Clone, an O(n) deep copy acceptable for
// that purpose, which backs both NewReader and the facade's "point in
// time" iteration guarantee.
package memory

import (
	"bytes"
	"sync"

	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/taraxa-project/smt-store/kv"
)

func byteKeyComparator(a, b interface{}) int {
	return bytes.Compare(a.([]byte), b.([]byte))
}

// Database is a sorted-map KV store guarded by a single mutex; it makes no
// attempt at lock-free reads, which is acceptable since it exists for
// tests and small ephemeral working sets, not for the hot path.
type Database struct {
	mu     sync.RWMutex
	tree   *rbt.Tree
	closed bool
}

func New() *Database {
	return &Database{tree: rbt.NewWith(byteKeyComparator)}
}

type Factory struct{}

func (Factory) NewDatabase() (kv.Database, error) { return New(), nil }

func init() {
	kv.RegisterFactory("memory", func() kv.Factory { return Factory{} })
}

func (self *Database) Get(key []byte) ([]byte, error) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	if self.closed {
		return nil, kv.ErrClosed
	}
	v, found := self.tree.Get(key)
	if !found {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v.([]byte)...), nil
}

func (self *Database) Has(key []byte) (bool, error) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	if self.closed {
		return false, kv.ErrClosed
	}
	_, found := self.tree.Get(key)
	return found, nil
}

func (self *Database) Set(key, value []byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return kv.ErrClosed
	}
	self.tree.Put(append([]byte(nil), key...), append([]byte(nil), value...))
	return nil
}

func (self *Database) Del(key []byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return kv.ErrClosed
	}
	self.tree.Remove(key)
	return nil
}

func (self *Database) NewBatch() kv.Batch {
	return new(batch)
}

func (self *Database) Write(b kv.Batch) error {
	mb, ok := b.(*batch)
	if !ok {
		return kv.ErrClosed
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return kv.ErrClosed
	}
	for _, w := range mb.writes {
		if w.del {
			self.tree.Remove(w.key)
			continue
		}
		self.tree.Put(w.key, w.value)
	}
	return nil
}

// Clone produces an independent, deep-copied database in O(n). Acceptable
// for the test and ephemeral uses this type targets.
func (self *Database) Clone() *Database {
	self.mu.RLock()
	defer self.mu.RUnlock()
	clone := New()
	it := self.tree.Iterator()
	for it.Next() {
		k := it.Key().([]byte)
		v := it.Value().([]byte)
		clone.tree.Put(append([]byte(nil), k...), append([]byte(nil), v...))
	}
	return clone
}

func (self *Database) NewReader() kv.Reader {
	return &reader{snapshot: self.Clone()}
}

func (self *Database) Iterate(opts kv.IterateOptions) kv.Iterator {
	return newIterator(self.Clone(), opts)
}

func (self *Database) Clear(opts kv.IterateOptions) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return kv.ErrClosed
	}
	keys := collectKeys(self.tree, opts)
	for _, k := range keys {
		self.tree.Remove(k)
	}
	return nil
}

func (self *Database) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.closed = true
	self.tree = rbt.NewWith(byteKeyComparator)
	return nil
}

type kvPair struct {
	key, value []byte
	del        bool
}

type batch struct {
	writes []kvPair
}

func (b *batch) Set(key, value []byte) {
	b.writes = append(b.writes, kvPair{append([]byte(nil), key...), append([]byte(nil), value...), false})
}

func (b *batch) Del(key []byte) {
	b.writes = append(b.writes, kvPair{append([]byte(nil), key...), nil, true})
}

func (b *batch) Len() int { return len(b.writes) }

func (b *batch) Reset() { b.writes = b.writes[:0] }

type reader struct {
	snapshot *Database
	released bool
	mu       sync.Mutex
}

func (self *reader) Get(key []byte) ([]byte, error) {
	return self.snapshot.Get(key)
}

func (self *reader) Has(key []byte) (bool, error) {
	return self.snapshot.Has(key)
}

func (self *reader) Iterate(opts kv.IterateOptions) kv.Iterator {
	return newIterator(self.snapshot.Clone(), opts)
}

func (self *reader) Release() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.released = true
}
