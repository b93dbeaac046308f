// Package kv defines the ordered byte-keyed KV facade every higher layer
// in this module is built on (the SMT node store and the state store's
// side-index both sit on top of a Database). Two implementations are
// provided: kv/memory, a sorted in-memory map used for tests and ephemeral
// trees, and kv/leveldb, a durable implementation backed by goleveldb.
package kv

import "github.com/taraxa-project/smt-store/util"

// ErrNotFound is returned by Get when the key is absent. It is a sentinel,
// not an exceptional condition: callers are expected to check for it.
var ErrNotFound = util.ErrorString("kv: not found")

// ErrClosed is returned by any operation performed on a Database or Reader
// after Close has released the underlying handle.
var ErrClosed = util.ErrorString("kv: closed")

// Database is the read/write facade over an ordered byte-keyed store.
// Implementations must serialise writes internally; concurrent readers
// are always safe.
type Database interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	// Del is idempotent: deleting an absent key is a no-op, never an error.
	Del(key []byte) error
	// Write applies a Batch atomically.
	Write(b Batch) error
	NewBatch() Batch
	// NewReader opens a read-only handle bound to the database's state at
	// the moment of the call. The reader is unaffected by writes that
	// happen after it is created.
	NewReader() Reader
	// Iterate returns a lazy, restartable-once sequence over opts' key
	// range, taken as a point-in-time snapshot.
	Iterate(opts IterateOptions) Iterator
	Clear(opts IterateOptions) error
	Close() error
}

// Reader is the read-only subset of Database, bound to a fixed snapshot.
type Reader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Iterate(opts IterateOptions) Iterator
	Release()
}

// Batch records a sequence of Set/Del operations for atomic application
// via Database.Write.
type Batch interface {
	Set(key, value []byte)
	Del(key []byte)
	Len() int
	Reset()
}

// IterateOptions bounds a range scan. Bounds are inclusive; Gte > Lte
// yields the empty sequence. A nil bound means unbounded on that side.
type IterateOptions struct {
	Gte     []byte
	Lte     []byte
	Reverse bool
	// Limit caps the number of emitted entries. Zero or negative means
	// unbounded.
	Limit int
}

// Iterator is a forward-only, one-shot cursor over a point-in-time range
// snapshot. Entries emitted reflect state as of iterator creation;
// concurrent writes never affect an iteration already in progress.
type Iterator interface {
	// Next advances the cursor and reports whether an entry is available.
	Next() bool
	Key() []byte
	Value() []byte
	// Err returns any error encountered during iteration; check after Next
	// returns false.
	Err() error
	// Release cancels further emission and releases the iterator's
	// snapshot. Safe to call multiple times.
	Release()
}
