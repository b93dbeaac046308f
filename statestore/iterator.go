package statestore

import "github.com/taraxa-project/smt-store/kv"

// sideIndexRange turns caller-facing bounds over user keys (fixed
// length keyLen, since SMT keys are fixed length) into bounds over the
// underlying prefixValue keyspace. With no caller bound, the lower
// bound is the prefix followed by keyLen 0x00 bytes (the smallest
// possible key of that fixed length) and the upper bound is the
// prefix followed by keyLen 0xff bytes (the
// largest possible key of that fixed length), so the scan never spills
// into the node/diff/root keyspaces above or below it.
func (self *Store) sideIndexRange(opts kv.IterateOptions) kv.IterateOptions {
	lo := make([]byte, 1+self.keyLen)
	lo[0] = prefixValue
	if opts.Gte != nil {
		copy(lo[1:], opts.Gte)
	}
	hi := make([]byte, 1+self.keyLen)
	hi[0] = prefixValue
	if opts.Lte != nil {
		copy(hi[1:], opts.Lte)
	} else {
		for i := 1; i < len(hi); i++ {
			hi[i] = 0xff
		}
	}
	return kv.IterateOptions{Gte: lo, Lte: hi, Reverse: opts.Reverse, Limit: opts.Limit}
}

type reader interface {
	Get(key []byte) ([]byte, error)
	Iterate(opts kv.IterateOptions) kv.Iterator
}

func (self *Store) newSideIndexIterator(r reader, opts kv.IterateOptions) kv.Iterator {
	return &sideIndexIterator{inner: r.Iterate(self.sideIndexRange(opts))}
}

// sideIndexIterator strips the one-byte side-index prefix back off
// each key before handing it to the caller.
type sideIndexIterator struct {
	inner kv.Iterator
}

func (self *sideIndexIterator) Next() bool { return self.inner.Next() }
func (self *sideIndexIterator) Key() []byte {
	k := self.inner.Key()
	if len(k) == 0 {
		return k
	}
	return k[1:]
}
func (self *sideIndexIterator) Value() []byte { return self.inner.Value() }
func (self *sideIndexIterator) Err() error     { return self.inner.Err() }
func (self *sideIndexIterator) Release()       { self.inner.Release() }
