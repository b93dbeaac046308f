package statestore

import (
	"bytes"
	"sort"

	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/kv"
	"github.com/taraxa-project/smt-store/util"
)

type cacheEntry struct {
	value     []byte
	tombstone bool
}

// snapshotValue is the undo image recorded the first time a key is
// observed, either by a read or by a write that needed to know what
// came before. exists=false with a nil value means the key is absent
// from the committed snapshot this ReadWriter is layered on.
type snapshotValue struct {
	value  []byte
	exists bool
}

type frameUndo struct {
	hadCacheEntry bool
	entry         cacheEntry
}

// ReadWriter is the per-block mutable working set of §4.4: a cache
// over a snapshot root, an undo image of everything the cache has
// touched, and a stack of checkpoints for Snapshot/RestoreSnapshot.
//
// The observed/tombstone split follows the original implementation's
// StateWriter more closely than spec.md's prose alone requires: a Del
// of a key never present in the underlying snapshot drops the cache
// entry outright rather than leaving a tombstone with nothing to
// tombstone against (see SPEC_FULL.md "Supplemented features").
type ReadWriter struct {
	store  *Store
	root   common.Hash
	reader kv.Reader

	cache   map[string]*cacheEntry
	initial map[string]*snapshotValue
	frames  []map[string]*frameUndo

	closed bool
}

func newReadWriter(store *Store, root common.Hash, reader kv.Reader) *ReadWriter {
	return &ReadWriter{
		store:   store,
		root:    root,
		reader:  reader,
		cache:   make(map[string]*cacheEntry),
		initial: make(map[string]*snapshotValue),
	}
}

func (self *ReadWriter) readThrough(key []byte) ([]byte, error) {
	v, err := self.reader.Get(valueKey(key))
	if err == kv.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (self *ReadWriter) recordInitial(ks string, v []byte, exists bool) {
	if _, ok := self.initial[ks]; ok {
		return
	}
	self.initial[ks] = &snapshotValue{value: common.CopyBytes(v), exists: exists}
}

func (self *ReadWriter) existedBefore(key []byte) (bool, error) {
	ks := string(key)
	if iv, ok := self.initial[ks]; ok {
		return iv.exists, nil
	}
	v, err := self.readThrough(key)
	if err == ErrNotFound {
		self.recordInitial(ks, nil, false)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	self.recordInitial(ks, v, true)
	return true, nil
}

func (self *ReadWriter) Get(key []byte) ([]byte, error) {
	if self.closed {
		return nil, ErrClosed
	}
	ks := string(key)
	if e, ok := self.cache[ks]; ok {
		if e.tombstone {
			return nil, ErrNotFound
		}
		return common.CopyBytes(e.value), nil
	}
	v, err := self.readThrough(key)
	self.recordInitial(ks, v, err == nil)
	if err != nil {
		return nil, err
	}
	return common.CopyBytes(v), nil
}

func (self *ReadWriter) Has(key []byte) (bool, error) {
	if self.closed {
		return false, ErrClosed
	}
	ks := string(key)
	if e, ok := self.cache[ks]; ok {
		return !e.tombstone, nil
	}
	return self.existedBefore(key)
}

func (self *ReadWriter) touch(ks string) {
	if len(self.frames) == 0 {
		return
	}
	frame := self.frames[len(self.frames)-1]
	if _, already := frame[ks]; already {
		return
	}
	if e, ok := self.cache[ks]; ok {
		frame[ks] = &frameUndo{hadCacheEntry: true, entry: *e}
	} else {
		frame[ks] = &frameUndo{}
	}
}

func (self *ReadWriter) Set(key, value []byte) error {
	if self.closed {
		return ErrClosed
	}
	ks := string(key)
	if _, err := self.existedBefore(key); err != nil {
		return err
	}
	self.touch(ks)
	self.cache[ks] = &cacheEntry{value: common.CopyBytes(value)}
	return nil
}

func (self *ReadWriter) Del(key []byte) error {
	if self.closed {
		return ErrClosed
	}
	ks := string(key)
	existed, err := self.existedBefore(key)
	if err != nil {
		return err
	}
	if !existed {
		if _, cached := self.cache[ks]; cached {
			self.touch(ks)
			delete(self.cache, ks)
		}
		return nil
	}
	self.touch(ks)
	self.cache[ks] = &cacheEntry{tombstone: true}
	return nil
}

func (self *ReadWriter) Snapshot() int {
	self.frames = append(self.frames, make(map[string]*frameUndo))
	return len(self.frames) - 1
}

func (self *ReadWriter) RestoreSnapshot() error {
	if len(self.frames) == 0 {
		return ErrInvalidInput
	}
	frame := self.frames[len(self.frames)-1]
	self.frames = self.frames[:len(self.frames)-1]
	for ks, undo := range frame {
		if undo.hadCacheEntry {
			e := undo.entry
			self.cache[ks] = &e
		} else {
			delete(self.cache, ks)
		}
	}
	return nil
}

// RangeEntry is one result of ReadWriter.Range.
type RangeEntry struct {
	Key, Value []byte
}

// Range merges the cache over the committed side-index within opts'
// bounds: cache tombstones suppress the underlying entry, cache
// entries override it, and everything is re-sorted and re-bounded
// since the cache may introduce keys outside what the underlying
// range scan alone would have produced relative ordering-wise.
func (self *ReadWriter) Range(opts kv.IterateOptions) ([]RangeEntry, error) {
	if self.closed {
		return nil, ErrClosed
	}
	merged := make(map[string][]byte)
	it := self.store.newSideIndexIterator(self.reader, kv.IterateOptions{Gte: opts.Gte, Lte: opts.Lte})
	defer it.Release()
	for it.Next() {
		merged[string(it.Key())] = common.CopyBytes(it.Value())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	for ks, e := range self.cache {
		k := []byte(ks)
		if opts.Gte != nil && bytes.Compare(k, opts.Gte) < 0 {
			continue
		}
		if opts.Lte != nil && bytes.Compare(k, opts.Lte) > 0 {
			continue
		}
		if e.tombstone {
			delete(merged, ks)
			continue
		}
		merged[ks] = common.CopyBytes(e.value)
	}
	keys := make([]string, 0, len(merged))
	for ks := range merged {
		keys = append(keys, ks)
	}
	sort.Strings(keys)
	if opts.Reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	if opts.Limit > 0 {
		keys = keys[:util.Min(len(keys), opts.Limit)]
	}
	result := make([]RangeEntry, len(keys))
	for i, ks := range keys {
		result[i] = RangeEntry{Key: []byte(ks), Value: merged[ks]}
	}
	return result, nil
}

// changes returns every key this working set has written or deleted,
// with the undo information Commit needs for the diff record.
func (self *ReadWriter) changes() []pendingChange {
	out := make([]pendingChange, 0, len(self.cache))
	for ks, e := range self.cache {
		c := pendingChange{key: []byte(ks)}
		if !e.tombstone {
			c.value = common.CopyBytes(e.value)
		}
		if iv, ok := self.initial[ks]; ok {
			c.hadValue = iv.exists
			c.prevValue = iv.value
		}
		out = append(out, c)
	}
	return out
}

// Release drops this working set's snapshot reader. A ReadWriter that
// is never committed simply has its changes discarded.
func (self *ReadWriter) Release() {
	if self.closed {
		return
	}
	self.closed = true
	self.reader.Release()
}

type pendingChange struct {
	key       []byte
	value     []byte
	hadValue  bool
	prevValue []byte
}
