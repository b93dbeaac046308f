// Package leveldb is the durable kv.Database implementation (component
// C1/C2), backed by goleveldb: an ordered, persistent byte-KV engine with
// native snapshots, atomic batches and forward/reverse range iteration,
// which is exactly the contract §6.1 asks the store to sit on.
package leveldb

import (
	"github.com/syndtr/goleveldb/leveldb"
	lvlerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/taraxa-project/smt-store/kv"
)

type Config struct {
	File     string `json:"file"`
	ReadOnly bool   `json:"readOnly"`
	// CacheCapacity sizes goleveldb's block cache, in bytes. Zero uses the
	// library default.
	CacheCapacity int `json:"cacheCapacity"`
}

type Database struct {
	db *leveldb.DB
}

func (cfg Config) NewDatabase() (kv.Database, error) { return Open(cfg) }

func init() {
	kv.RegisterFactory("leveldb", func() kv.Factory { return &Config{} })
}

func Open(cfg Config) (*Database, error) {
	opts := &opt.Options{ReadOnly: cfg.ReadOnly}
	if cfg.CacheCapacity != 0 {
		opts.BlockCacheCapacity = cfg.CacheCapacity
	}
	db, err := leveldb.OpenFile(cfg.File, opts)
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (self *Database) Get(key []byte) ([]byte, error) {
	v, err := self.db.Get(key, nil)
	if err == lvlerrors.ErrNotFound {
		return nil, kv.ErrNotFound
	}
	return v, err
}

func (self *Database) Has(key []byte) (bool, error) {
	return self.db.Has(key, nil)
}

func (self *Database) Set(key, value []byte) error {
	return self.db.Put(key, value, nil)
}

func (self *Database) Del(key []byte) error {
	return self.db.Delete(key, nil)
}

func (self *Database) NewBatch() kv.Batch {
	return &batch{b: new(leveldb.Batch)}
}

func (self *Database) Write(b kv.Batch) error {
	lb, ok := b.(*batch)
	if !ok {
		return kv.ErrClosed
	}
	return self.db.Write(lb.b, nil)
}

func (self *Database) NewReader() kv.Reader {
	snap, err := self.db.GetSnapshot()
	if err != nil {
		return &errReader{err}
	}
	return &reader{snap}
}

func (self *Database) Iterate(opts kv.IterateOptions) kv.Iterator {
	return newIterator(self.db, opts)
}

func (self *Database) Clear(opts kv.IterateOptions) error {
	it := self.Iterate(opts)
	defer it.Release()
	b := self.NewBatch()
	for it.Next() {
		b.Del(it.Key())
	}
	if err := it.Err(); err != nil {
		return err
	}
	return self.Write(b)
}

func (self *Database) Close() error {
	return self.db.Close()
}

type batch struct {
	b *leveldb.Batch
}

func (b *batch) Set(key, value []byte) { b.b.Put(key, value) }
func (b *batch) Del(key []byte)        { b.b.Delete(key) }
func (b *batch) Len() int              { return b.b.Len() }
func (b *batch) Reset()                { b.b.Reset() }

type errReader struct{ err error }

func (r *errReader) Get([]byte) ([]byte, error)               { return nil, r.err }
func (r *errReader) Has([]byte) (bool, error)                 { return false, r.err }
func (r *errReader) Iterate(kv.IterateOptions) kv.Iterator     { return &errIterator{r.err} }
func (r *errReader) Release()                                 {}

type errIterator struct{ err error }

func (it *errIterator) Next() bool     { return false }
func (it *errIterator) Key() []byte    { return nil }
func (it *errIterator) Value() []byte  { return nil }
func (it *errIterator) Err() error     { return it.err }
func (it *errIterator) Release()       {}

type reader struct {
	snap *leveldb.Snapshot
}

func (self *reader) Get(key []byte) ([]byte, error) {
	v, err := self.snap.Get(key, nil)
	if err == lvlerrors.ErrNotFound {
		return nil, kv.ErrNotFound
	}
	return v, err
}

func (self *reader) Has(key []byte) (bool, error) {
	return self.snap.Has(key, nil)
}

func (self *reader) Iterate(opts kv.IterateOptions) kv.Iterator {
	return newIteratorFrom(self.snap, opts)
}

func (self *reader) Release() {
	self.snap.Release()
}

// rangeFor turns inclusive [gte, lte] bounds into goleveldb's
// half-open util.Range, by nudging the exclusive Limit one past Lte.
func rangeFor(opts kv.IterateOptions) *util.Range {
	r := &util.Range{Start: opts.Gte}
	if opts.Lte != nil {
		r.Limit = append(append([]byte(nil), opts.Lte...), 0x00)
	}
	return r
}

type dbIterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

type ldbIterator struct {
	it      dbIterator
	opts    kv.IterateOptions
	started bool
	emitted int
	done    bool
}

func newIterator(db *leveldb.DB, opts kv.IterateOptions) *ldbIterator {
	return &ldbIterator{it: db.NewIterator(rangeFor(opts), nil), opts: opts}
}

func newIteratorFrom(snap *leveldb.Snapshot, opts kv.IterateOptions) *ldbIterator {
	return &ldbIterator{it: snap.NewIterator(rangeFor(opts), nil), opts: opts}
}

func (it *ldbIterator) Next() bool {
	if it.done {
		return false
	}
	if it.opts.Limit > 0 && it.emitted >= it.opts.Limit {
		it.done = true
		return false
	}
	var ok bool
	if !it.started {
		it.started = true
		if it.opts.Reverse {
			ok = it.it.Last()
		} else {
			ok = it.it.First()
		}
	} else if it.opts.Reverse {
		ok = it.it.Prev()
	} else {
		ok = it.it.Next()
	}
	if !ok {
		it.done = true
		return false
	}
	it.emitted++
	return true
}

// Key and Value return slices owned by the underlying goleveldb
// iterator; they are only valid until the next call to Next and must
// be copied by the caller to retain past that point.
func (it *ldbIterator) Key() []byte   { return it.it.Key() }
func (it *ldbIterator) Value() []byte { return it.it.Value() }
func (it *ldbIterator) Err() error    { return it.it.Error() }
func (it *ldbIterator) Release()      { it.it.Release() }
