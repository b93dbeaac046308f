package memory

import (
	"bytes"

	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/taraxa-project/smt-store/kv"
)

// collectKeys materialises the ordered key list within opts' bounds. The
// in-memory store has no native range-scan primitive cheaper than a full
// walk, so both Iterate and Clear build on this.
func collectKeys(tree *rbt.Tree, opts kv.IterateOptions) [][]byte {
	if opts.Gte != nil && opts.Lte != nil && bytes.Compare(opts.Gte, opts.Lte) > 0 {
		return nil
	}
	var ret [][]byte
	it := tree.Iterator()
	for it.Next() {
		k := it.Key().([]byte)
		if opts.Gte != nil && bytes.Compare(k, opts.Gte) < 0 {
			continue
		}
		if opts.Lte != nil && bytes.Compare(k, opts.Lte) > 0 {
			continue
		}
		ret = append(ret, k)
	}
	return ret
}

type iterator struct {
	snapshot *Database
	keys     [][]byte
	pos      int
	limit    int
	curKey   []byte
	curVal   []byte
}

func newIterator(snapshot *Database, opts kv.IterateOptions) *iterator {
	keys := collectKeys(snapshot.tree, opts)
	if opts.Reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	return &iterator{snapshot: snapshot, keys: keys, pos: -1, limit: opts.Limit}
}

func (it *iterator) Next() bool {
	if it.limit > 0 && it.pos+1 >= it.limit {
		return false
	}
	it.pos++
	if it.pos >= len(it.keys) {
		return false
	}
	k := it.keys[it.pos]
	v, found := it.snapshot.tree.Get(k)
	if !found {
		return it.Next()
	}
	it.curKey, it.curVal = k, v.([]byte)
	return true
}

func (it *iterator) Key() []byte   { return it.curKey }
func (it *iterator) Value() []byte { return it.curVal }
func (it *iterator) Err() error    { return nil }
func (it *iterator) Release()      {}
